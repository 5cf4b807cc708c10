package gst

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestValidGSTIN(t *testing.T) {
	if !ValidGSTIN("29ABCDE1234F1Z5") {
		t.Fatalf("expected valid gstin")
	}
	if ValidGSTIN("29ABCDE1234F1Z") {
		t.Fatalf("14 characters should be invalid")
	}
	if ValidGSTIN("29abcde1234f1z5!") {
		t.Fatalf("punctuation should be invalid")
	}
	// Lowercase input is normalized before matching.
	if !ValidGSTIN(" 29abcde1234f1z5 ") {
		t.Fatalf("lowercase gstin should normalize to valid")
	}
}

func TestClientVerifyParsesPrincipalPlace(t *testing.T) {
	respBody := `{"result":{"source_output":{"legal_name":"Sharma Hardware Pvt Ltd","principal_place_of_business_fields":{"street":"7 Industrial Layout","city":"Bengaluru","state":"Karnataka","pincode":"560068"}}}}`

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/verify") {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		if req.Header.Get("Authorization") != "Bearer key-1" {
			t.Fatalf("authorization header missing")
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("http://gst.test", "key-1", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	reg, err := client.Verify(context.Background(), "29ABCDE1234F1Z5")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if reg.LegalName != "Sharma Hardware Pvt Ltd" {
		t.Fatalf("unexpected legal name %q", reg.LegalName)
	}
	if reg.Street != "7 Industrial Layout" || reg.City != "Bengaluru" || reg.State != "Karnataka" || reg.ZipCode != "560068" {
		t.Fatalf("unexpected registration %+v", reg)
	}
}

func TestClientVerifyRejectsShortGSTIN(t *testing.T) {
	client, err := NewClient("http://gst.test", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Verify(context.Background(), "SHORT"); err == nil {
		t.Fatalf("expected validation error before any network call")
	}
}

func TestClientVerifyEmptyRegistration(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"result":{"source_output":{}}}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("http://gst.test", "", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Verify(context.Background(), "29ABCDE1234F1Z5"); err == nil {
		t.Fatalf("expected error for empty registration")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
