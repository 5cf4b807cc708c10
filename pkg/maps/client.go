package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/buildmart/storefront-client/pkg/errors"
	"github.com/buildmart/storefront-client/pkg/types"
)

const (
	defaultBaseURL             = "https://maps.googleapis.com/maps/api"
	statusOK                   = "OK"
	statusZeroResults          = "ZERO_RESULTS"
	errorBodyReadLimit   int64 = 1024
	defaultClientTimeout       = 10 * time.Second
)

var (
	errAPIKeyRequired = errors.New("google maps api key is required")
)

// Client wraps the Google Maps geocoding and directions APIs used for
// delivery-address guidance and distance checks.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Maps base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds every request issued by the client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds the Google Maps client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// GeocodeResult is the normalized shape shared by forward and reverse lookups.
type GeocodeResult struct {
	FormattedAddress string
	Location         types.LatLng
	Street           string
	City             string
	State            string
	ZipCode          string
	Country          string
}

// Geocode resolves a free-form address to a coordinate.
func (c *Client) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	if strings.TrimSpace(address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	params := url.Values{}
	params.Set("address", address)
	return c.geocode(ctx, params)
}

// PincodeLookup resolves a postal code to a coordinate, scoped to a country.
func (c *Client) PincodeLookup(ctx context.Context, pincode, country string) (*GeocodeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	trimmed := strings.TrimSpace(pincode)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pincode is required")
	}
	components := "postal_code:" + trimmed
	if strings.TrimSpace(country) != "" {
		components += "|country:" + strings.TrimSpace(country)
	}
	params := url.Values{}
	params.Set("components", components)
	return c.geocode(ctx, params)
}

// ReverseGeocode resolves a coordinate back into address components.
func (c *Client) ReverseGeocode(ctx context.Context, point types.LatLng) (*GeocodeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", point.Lat, point.Lng))
	return c.geocode(ctx, params)
}

func (c *Client) geocode(ctx context.Context, params url.Values) (*GeocodeResult, error) {
	params.Set("key", c.apiKey)

	var apiResp struct {
		Status  string `json:"status"`
		Results []struct {
			FormattedAddress  string `json:"formatted_address"`
			AddressComponents []struct {
				LongName  string   `json:"long_name"`
				ShortName string   `json:"short_name"`
				Types     []string `json:"types"`
			} `json:"address_components"`
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := c.get(ctx, "geocode/json", params, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.Status == statusZeroResults || len(apiResp.Results) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no geocode result")
	}
	if apiResp.Status != statusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("geocode status %s", apiResp.Status))
	}

	first := apiResp.Results[0]
	result := &GeocodeResult{
		FormattedAddress: first.FormattedAddress,
		Location: types.LatLng{
			Lat: first.Geometry.Location.Lat,
			Lng: first.Geometry.Location.Lng,
		},
	}

	var streetNumber, route string
	for _, comp := range first.AddressComponents {
		for _, kind := range comp.Types {
			switch kind {
			case "street_number":
				streetNumber = comp.LongName
			case "route":
				route = comp.LongName
			case "locality":
				result.City = comp.LongName
			case "administrative_area_level_1":
				result.State = comp.LongName
			case "postal_code":
				result.ZipCode = comp.LongName
			case "country":
				result.Country = comp.ShortName
			}
		}
	}
	result.Street = strings.TrimSpace(streetNumber + " " + route)

	return result, nil
}

// DrivingDistance returns the routed road distance in kilometers between two
// coordinates. A route that cannot be computed surfaces as an error so the
// caller can fall back to great-circle distance.
func (c *Client) DrivingDistance(ctx context.Context, origin, destination types.LatLng) (float64, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}

	params := url.Values{}
	params.Set("origin", fmt.Sprintf("%f,%f", origin.Lat, origin.Lng))
	params.Set("destination", fmt.Sprintf("%f,%f", destination.Lat, destination.Lng))
	params.Set("mode", "driving")
	params.Set("key", c.apiKey)

	var apiResp struct {
		Status string `json:"status"`
		Routes []struct {
			Legs []struct {
				Distance struct {
					Value int `json:"value"` // meters
				} `json:"distance"`
			} `json:"legs"`
		} `json:"routes"`
	}
	if err := c.get(ctx, "directions/json", params, &apiResp); err != nil {
		return 0, err
	}
	if apiResp.Status != statusOK || len(apiResp.Routes) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("directions status %s", apiResp.Status))
	}

	meters := 0
	for _, leg := range apiResp.Routes[0].Legs {
		meters += leg.Distance.Value
	}
	if meters <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "directions returned no distance")
	}
	return float64(meters) / 1000.0, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	endpoint := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build maps request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "execute maps request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "maps request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode maps response")
	}
	return nil
}
