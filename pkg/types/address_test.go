package types

import "testing"

func TestAddressIsComplete(t *testing.T) {
	addr := Address{
		FirstName: "Asha",
		LastName:  "Rao",
		Street:    "14 MG Road",
		City:      "Bengaluru",
		State:     "Karnataka",
		ZipCode:   "560001",
		Country:   "IN",
	}
	if !addr.IsComplete() {
		t.Fatalf("expected complete address")
	}

	addr.City = "  "
	if addr.IsComplete() {
		t.Fatalf("whitespace city should not count as populated")
	}

	// Tax id is optional for completeness.
	addr.City = "Bengaluru"
	addr.TaxID = ""
	if !addr.IsComplete() {
		t.Fatalf("tax id must not affect completeness")
	}
}

func TestLatLngIsZero(t *testing.T) {
	if !(LatLng{}).IsZero() {
		t.Fatalf("zero value should report unset")
	}
	if (LatLng{Lat: 12.97, Lng: 77.59}).IsZero() {
		t.Fatalf("populated coordinate should not report unset")
	}
}
