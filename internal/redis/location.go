package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const driverLocationKey = "carva:drivers:locations"

// DriverLocation represents a flatbed driver's last reported position.
type DriverLocation struct {
	Username string
	Lat      float64
	Lng      float64
}

// LocationStore keeps live driver positions in a Redis geo index.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a driver's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, username string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
		Name:      username,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// GetLocation returns the last stored position of a driver.
// ok is false when the driver has never reported one.
func (s *LocationStore) GetLocation(ctx context.Context, username string) (loc DriverLocation, ok bool, err error) {
	positions, err := s.client.GeoPos(ctx, driverLocationKey, username).Result()
	if errors.Is(err, redis.Nil) {
		return DriverLocation{}, false, nil
	}
	if err != nil {
		return DriverLocation{}, false, err
	}
	if len(positions) == 0 || positions[0] == nil {
		return DriverLocation{}, false, nil
	}
	return DriverLocation{
		Username: username,
		Lat:      positions[0].Latitude,
		Lng:      positions[0].Longitude,
	}, true, nil
}

// FindNearbyDrivers returns drivers within the given radius (in kilometers),
// nearest first.
func (s *LocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error) {
	results, err := s.client.GeoRadius(ctx, driverLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]DriverLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, DriverLocation{
			Username: r.Name,
			Lat:      r.Latitude,
			Lng:      r.Longitude,
		})
	}

	return locations, nil
}

// RemoveLocation drops a driver from the geo index when they go offline.
func (s *LocationStore) RemoveLocation(ctx context.Context, username string) error {
	return s.client.ZRem(ctx, driverLocationKey, username).Err()
}
