package geo

import (
	"context"
	"fmt"
	"math"
	"time"
)

const earthRadiusM = 6371000

// maxAccuracyBonusM caps how much a coarse GPS fix can widen the geofence.
const maxAccuracyBonusM = 50

// Fix is a single position report from a location source.
type Fix struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	AccuracyM float64   `json:"accuracyM"`
	At        time.Time `json:"at"`
}

// DistanceMeters returns the great-circle distance between two coordinates
// on a spherical-Earth approximation.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dp := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dp/2)*math.Sin(dp/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// IsWithinRange reports whether the current position is within maxMeters of
// the reference point. The reported GPS accuracy widens the band so a coarse
// but legitimate fix is not rejected; the bonus is capped at 50 m so a wildly
// inaccurate reading cannot defeat the check.
func IsWithinRange(curLat, curLon, refLat, refLon, maxMeters, accuracyMeters float64) bool {
	bonus := accuracyMeters
	if bonus > maxAccuracyBonusM {
		bonus = maxAccuracyBonusM
	}
	if bonus < 0 {
		bonus = 0
	}
	return DistanceMeters(curLat, curLon, refLat, refLon) <= maxMeters+bonus
}

// Provider produces the device's current position.
type Provider interface {
	Current(ctx context.Context) (Fix, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (Fix, error)

// Current implements Provider.
func (f ProviderFunc) Current(ctx context.Context) (Fix, error) { return f(ctx) }

// Locator wraps a Provider with a fix timeout. No prior fix is ever reused;
// every call goes to the underlying source.
type Locator struct {
	provider Provider
	timeout  time.Duration
}

// NewLocator builds a Locator; timeout defaults to 10 seconds.
func NewLocator(p Provider, timeout time.Duration) *Locator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Locator{provider: p, timeout: timeout}
}

// Current returns a fresh fix or a descriptive error when the source denies
// the request or cannot produce one in time.
func (l *Locator) Current(ctx context.Context) (Fix, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	fix, err := l.provider.Current(ctx)
	if err != nil {
		return Fix{}, fmt.Errorf("geo: current location unavailable: %w", err)
	}
	return fix, nil
}
