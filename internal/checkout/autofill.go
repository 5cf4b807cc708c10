package checkout

import (
	"context"

	"github.com/buildmart/storefront-client/pkg/errors"
	"github.com/buildmart/storefront-client/pkg/types"
)

// AutofillFromGSTIN resolves a GSTIN to the registered business address
// for billing autofill. Failures here never block checkout; the caller
// falls back to manual entry.
func (s *service) AutofillFromGSTIN(ctx context.Context, gstin string) (*types.Address, error) {
	if s.gst == nil {
		return nil, errors.New(errors.CodeDependency, "gstin verification not configured")
	}

	registration, err := s.gst.Verify(ctx, gstin)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "gstin autofill unavailable")
		return nil, err
	}
	return &types.Address{
		Street:  registration.Street,
		City:    registration.City,
		State:   registration.State,
		ZipCode: registration.ZipCode,
		Country: "India",
		TaxID:   gstin,
	}, nil
}

// ResolvePincode fills city and state from a postal code so the user
// only types the street.
func (s *service) ResolvePincode(ctx context.Context, pincode, country string) (*types.Address, error) {
	if s.geocoder == nil {
		return nil, errors.New(errors.CodeDependency, "pincode lookup not configured")
	}
	if country == "" {
		country = "IN"
	}

	result, err := s.geocoder.PincodeLookup(ctx, pincode, country)
	if err != nil {
		return nil, err
	}
	return &types.Address{
		City:    result.City,
		State:   result.State,
		ZipCode: pincode,
		Country: result.Country,
	}, nil
}
