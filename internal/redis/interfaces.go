package redis

import (
	"context"
	"time"

	"carva/internal/store"
)

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, username string, lat, lng float64) error
	GetLocation(ctx context.Context, username string) (DriverLocation, bool, error)
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, username string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireRequestLock(ctx context.Context, requestID int64, ttl time.Duration) (bool, error)
	ReleaseRequestLock(ctx context.Context, requestID int64) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ store.KV               = (*KVStore)(nil)
)
