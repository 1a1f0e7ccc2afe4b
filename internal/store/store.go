package store

import (
	"context"
	"errors"
	"strconv"
)

// Collection keys.
const (
	KeyUsers          = "carva_users"
	KeyWorkshops      = "carva_workshops"
	KeyActiveRequests = "carva_active_requests"
	KeyOrderHistory   = "carva_order_history"
	KeyPayments       = "carva_payments"
)

// RejectedKey returns the key holding the ids a driver dismissed.
func RejectedKey(driver string) string {
	return "carva_rejected_requests:" + driver
}

// NotifiedArrivalKey returns the one-shot arrival alert flag for a request.
func NotifiedArrivalKey(requestID int64) string {
	return "notified_arrival_" + strconv.FormatInt(requestID, 10)
}

// ErrConflict is returned by backends when an optimistic update lost a race
// more times than it is willing to retry.
var ErrConflict = errors.New("store: concurrent update conflict")

// UpdateFunc receives the current value (nil when absent) and returns the
// value to store. Returning a nil slice deletes the key. Returning an error
// aborts the update and is passed back to the caller.
type UpdateFunc func(current []byte) ([]byte, error)

// KV is a key-value store of serialized collections. Every backend applies
// Update atomically for a single key.
type KV interface {
	// Get returns the value for key, or nil when it does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error

	// Update performs an atomic read-modify-write of key.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte) (bool, error)

	// Subscribe streams the keys written by any writer until ctx is done.
	Subscribe(ctx context.Context) (<-chan string, error)

	// Close releases backend resources.
	Close() error
}
