package geo

import (
	"math"
	"testing"

	"carva/internal/domain"
)

func TestDistance_Symmetric(t *testing.T) {
	t.Parallel()

	pairs := [][4]float64{
		{24.71, 46.67, 24.72, 46.68},
		{24.705, 46.665, 24.71, 46.67},
		{-33.86, 151.2, 51.5, -0.12},
		{0, 0, 0, 179.9},
	}

	for _, p := range pairs {
		ab := Distance(p[0], p[1], p[2], p[3])
		ba := Distance(p[2], p[3], p[0], p[1])
		if ab != ba {
			t.Errorf("Distance not symmetric for %v: %v vs %v", p, ab, ba)
		}
		if ab < 0 {
			t.Errorf("Distance negative for %v: %v", p, ab)
		}
	}
}

func TestDistance_SamePointIsZero(t *testing.T) {
	t.Parallel()

	if d := Distance(24.7136, 46.6753, 24.7136, 46.6753); d != 0 {
		t.Errorf("expected 0, got %v", d)
	}
}

func TestDistance_NonFiniteIsZero(t *testing.T) {
	t.Parallel()

	testCases := [][4]float64{
		{math.NaN(), 46.67, 24.71, 46.68},
		{24.7, math.Inf(1), 24.71, 46.68},
		{24.7, 46.67, math.Inf(-1), 46.68},
	}
	for _, tc := range testCases {
		if d := Distance(tc[0], tc[1], tc[2], tc[3]); d != 0 {
			t.Errorf("expected 0 for %v, got %v", tc, d)
		}
	}
}

func TestDistanceFromStrings(t *testing.T) {
	t.Parallel()

	if d := DistanceFromStrings("24.7", "46.67", "24.71", "46.68"); d != 1.5 {
		t.Errorf("expected 1.5, got %v", d)
	}
	if d := DistanceFromStrings("abc", "46.67", "24.71", "46.68"); d != 0 {
		t.Errorf("expected 0 for non-numeric input, got %v", d)
	}
	if d := DistanceFromStrings("", "", "", ""); d != 0 {
		t.Errorf("expected 0 for empty input, got %v", d)
	}
}

func TestDistance_DriverToClient(t *testing.T) {
	t.Parallel()

	// Driver at (24.705,46.665), owner at (24.71,46.67).
	if d := Distance(24.705, 46.665, 24.71, 46.67); d != 0.75 {
		t.Errorf("expected 0.75, got %v", d)
	}
}

func TestTripCost(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		dist float64
		rate float64
		want int
	}{
		{"origin to destination", Distance(24.7000, 46.6700, 24.7100, 46.6800), 15, 23},
		{"exact multiple", 2, 15, 30},
		{"float noise", 16.6, 15, 249},
		{"zero distance", 0, 15, 0},
		{"rounds up", 0.01, 15, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TripCost(tc.dist, tc.rate); got != tc.want {
				t.Errorf("TripCost(%v, %v) = %d, want %d", tc.dist, tc.rate, got, tc.want)
			}
		})
	}
}

func TestValidCoordinates(t *testing.T) {
	t.Parallel()

	if !ValidLatitude(90) || ValidLatitude(90.1) || ValidLatitude(-91) {
		t.Error("latitude bounds wrong")
	}
	if !ValidLongitude(-180) || ValidLongitude(180.5) {
		t.Error("longitude bounds wrong")
	}
}

func TestRequestFeatures(t *testing.T) {
	t.Parallel()

	req := &domain.ActiveRequest{
		Name: "Sara", UserLat: 24.71, UserLng: 46.67,
		DestName: "Fast Fix", DestLat: 24.72, DestLng: 46.68,
		Status: domain.StatusPending,
	}

	fc := RequestFeatures(req)
	if len(fc.Features) != 3 {
		t.Fatalf("expected 3 features without a driver, got %d", len(fc.Features))
	}

	req.Status = domain.StatusAccepted
	req.DriverUsername = "driver1"
	req.DriverName = "Ali"
	req.Sat7aLat, req.Sat7aLng = 24.705, 46.665

	fc = RequestFeatures(req)
	if len(fc.Features) != 4 {
		t.Fatalf("expected 4 features with a driver, got %d", len(fc.Features))
	}
	driver := fc.Features[2]
	if driver.Properties["kind"] != MarkerDriver {
		t.Errorf("expected driver marker, got %v", driver.Properties["kind"])
	}
	if driver.Properties["distanceToOriginKm"] != 0.75 {
		t.Errorf("expected 0.75 km, got %v", driver.Properties["distanceToOriginKm"])
	}
}
