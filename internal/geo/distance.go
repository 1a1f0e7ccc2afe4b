package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two
// coordinates, rounded to two decimals. Non-finite input yields 0.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	for _, v := range [...]float64{lat1, lng1, lat2, lng2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	d := EarthRadiusKm * c
	if math.IsNaN(d) {
		return 0
	}
	return round2(d)
}

// DistanceBetween is Distance over orb points (longitude first).
func DistanceBetween(a, b orb.Point) float64 {
	return Distance(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

// DistanceFromStrings parses raw coordinate text and returns Distance.
// Any non-numeric component makes the result 0.
func DistanceFromStrings(lat1, lng1, lat2, lng2 string) float64 {
	vals := [4]float64{}
	for i, s := range [...]string{lat1, lng1, lat2, lng2} {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		vals[i] = v
	}
	return Distance(vals[0], vals[1], vals[2], vals[3])
}

// TripCost returns the fare for a distance at the given per-kilometer rate,
// rounded up to a whole currency unit.
func TripCost(distanceKm, ratePerKm float64) int {
	raw := distanceKm * ratePerKm
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	// Trim float noise such as 21.000000000000004 before rounding up.
	raw = math.Round(raw*1e6) / 1e6
	return int(math.Ceil(raw))
}

// ValidLatitude reports whether lat is within [-90, 90].
func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lng is within [-180, 180].
func ValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
