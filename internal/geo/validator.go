package geo

import (
	"context"
	"math"
	"time"

	"github.com/buildmart/storefront-client/pkg/config"
	"github.com/buildmart/storefront-client/pkg/errors"
	"github.com/buildmart/storefront-client/pkg/logger"
	"github.com/buildmart/storefront-client/pkg/types"
)

const earthRadiusKm = 6371.0

// Router produces a road distance between two points. *maps.Client
// satisfies it.
type Router interface {
	DrivingDistance(ctx context.Context, origin, destination types.LatLng) (float64, error)
}

// Validator decides whether a destination is deliverable from the
// configured store origin.
type Validator struct {
	router       Router
	logg         *logger.Logger
	origin       types.LatLng
	radiusKm     float64
	routeTimeout time.Duration
}

// Report is the outcome of a deliverability check.
type Report struct {
	DistanceKm   float64
	WithinRadius bool
	Routed       bool
}

// NewValidator builds a Validator. The router is optional; without one
// every distance falls back to great-circle math.
func NewValidator(cfg config.DeliveryConfig, routeTimeout time.Duration, router Router, logg *logger.Logger) (*Validator, error) {
	if logg == nil {
		return nil, errors.New(errors.CodeValidation, "geo validator: logger is required")
	}
	origin := types.LatLng{Lat: cfg.OriginLat, Lng: cfg.OriginLng}
	if origin.IsZero() {
		return nil, errors.New(errors.CodeValidation, "geo validator: store origin is required")
	}
	radius := cfg.RadiusKm
	if radius <= 0 {
		radius = 25
	}
	if routeTimeout <= 0 {
		routeTimeout = 4 * time.Second
	}
	return &Validator{
		router:       router,
		logg:         logg,
		origin:       origin,
		radiusKm:     radius,
		routeTimeout: routeTimeout,
	}, nil
}

// RadiusKm returns the configured delivery radius.
func (v *Validator) RadiusKm() float64 {
	return v.radiusKm
}

// DistanceKm measures the distance from the store origin to the
// destination. Road distance is preferred; when the router is absent or
// fails, the great-circle distance stands in. Identical points short
// circuit to zero without a provider call.
func (v *Validator) DistanceKm(ctx context.Context, destination types.LatLng) (float64, error) {
	if destination == v.origin {
		return 0, nil
	}
	var routed bool
	return v.routedDistance(ctx, destination, &routed)
}

// Validate reports whether the destination sits inside the delivery
// radius. A distance exactly on the boundary is deliverable.
func (v *Validator) Validate(ctx context.Context, destination types.LatLng) (*Report, error) {
	if destination == v.origin {
		return &Report{DistanceKm: 0, WithinRadius: true}, nil
	}
	routed := false
	km, err := v.routedDistance(ctx, destination, &routed)
	if err != nil {
		return nil, err
	}
	report := &Report{
		DistanceKm:   km,
		WithinRadius: km <= v.radiusKm,
		Routed:       routed,
	}
	if !report.WithinRadius {
		v.logg.Warn(v.logg.WithFields(ctx, map[string]any{
			"distance_km": km,
			"radius_km":   v.radiusKm,
		}), "destination outside delivery radius")
	}
	return report, nil
}

func (v *Validator) routedDistance(ctx context.Context, destination types.LatLng, routed *bool) (float64, error) {
	if destination.IsZero() {
		return 0, errors.New(errors.CodeValidation, "destination coordinates are required")
	}
	if v.router != nil {
		routeCtx, cancel := context.WithTimeout(ctx, v.routeTimeout)
		defer cancel()
		km, err := v.router.DrivingDistance(routeCtx, v.origin, destination)
		if err == nil {
			*routed = true
			return km, nil
		}
		v.logg.Warn(v.logg.WithField(ctx, "error", err.Error()), "road distance unavailable, using great-circle distance")
	}
	return Haversine(v.origin, destination), nil
}

// Haversine returns the great-circle distance in kilometers.
func Haversine(a, b types.LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
