package repository

import (
	"context"

	"carva/internal/domain"
)

// RequestMutator edits a request in place. Returning an error aborts the write.
type RequestMutator func(req *domain.ActiveRequest) error

// RequestRepository defines the persistence operations for requests across
// the active and history collections.
type RequestRepository interface {
	// ListActive returns every request in the active collection.
	ListActive(ctx context.Context) ([]*domain.ActiveRequest, error)

	// GetActive retrieves an active request by ID.
	GetActive(ctx context.Context, id int64) (*domain.ActiveRequest, error)

	// FindActiveByOwner returns the owner's active request, if any.
	FindActiveByOwner(ctx context.Context, username string) (*domain.ActiveRequest, error)

	// Create appends a new request to the active collection.
	Create(ctx context.Context, req *domain.ActiveRequest) error

	// Update atomically applies fn to an active request and returns the result.
	Update(ctx context.Context, id int64, fn RequestMutator) (*domain.ActiveRequest, error)

	// Remove deletes a request from the active collection and returns it.
	// A non-nil check runs against the stored record first and aborts the
	// removal when it returns an error.
	Remove(ctx context.Context, id int64, check RequestMutator) (*domain.ActiveRequest, error)

	// Archive moves a request from active to history. A request already in
	// history is not appended twice.
	Archive(ctx context.Context, id int64) (*domain.ActiveRequest, error)

	// ListHistory returns every archived request.
	ListHistory(ctx context.Context) ([]*domain.ActiveRequest, error)

	// GetHistory retrieves an archived request by ID.
	GetHistory(ctx context.Context, id int64) (*domain.ActiveRequest, error)
}

// RejectionRepository stores the requests each driver has dismissed.
type RejectionRepository interface {
	// List returns the request ids a driver rejected.
	List(ctx context.Context, driver string) ([]int64, error)

	// Add records that a driver rejected a request.
	Add(ctx context.Context, driver string, requestID int64) error
}

// FlagRepository stores one-shot flags.
type FlagRepository interface {
	// MarkArrivalNotified sets the arrival alert flag for a request and
	// reports whether this call was the one that set it.
	MarkArrivalNotified(ctx context.Context, requestID int64) (bool, error)
}
