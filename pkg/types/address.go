package types

import "strings"

// Address is the shipping/billing address shape sent on order creation.
// Shipping and billing are structurally identical; TaxID is meaningful for
// billing addresses only.
type Address struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Street    string `json:"street" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZipCode   string `json:"zip_code" validate:"required"`
	Country   string `json:"country" validate:"required"`
	TaxID     string `json:"tax_id,omitempty"`
}

// IsComplete reports whether every required field carries a value.
func (a Address) IsComplete() bool {
	required := []string{a.FirstName, a.LastName, a.Street, a.City, a.State, a.ZipCode, a.Country}
	for _, field := range required {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// String renders the address as a single geocodable line.
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, field := range []string{a.Street, a.City, a.State, a.ZipCode, a.Country} {
		if strings.TrimSpace(field) != "" {
			parts = append(parts, strings.TrimSpace(field))
		}
	}
	return strings.Join(parts, ", ")
}

// LatLng is a coordinate pair. The zero value is treated as unset.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the coordinate has not been populated.
func (p LatLng) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}
