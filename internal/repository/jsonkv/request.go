package jsonkv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"carva/internal/domain"
	"carva/internal/repository"
	"carva/internal/store"
)

// RequestRepository keeps requests in the active and history collections.
type RequestRepository struct {
	active  *store.Collection[*domain.ActiveRequest]
	history *store.Collection[*domain.ActiveRequest]
}

// NewRequestRepository creates a request repository over kv.
func NewRequestRepository(kv store.KV, logger *slog.Logger) *RequestRepository {
	return &RequestRepository{
		active:  store.NewCollection[*domain.ActiveRequest](kv, store.KeyActiveRequests, logger),
		history: store.NewCollection[*domain.ActiveRequest](kv, store.KeyOrderHistory, logger),
	}
}

var _ repository.RequestRepository = (*RequestRepository)(nil)

// ListActive returns every request in the active collection.
func (r *RequestRepository) ListActive(ctx context.Context) ([]*domain.ActiveRequest, error) {
	items, err := r.active.Load(ctx)
	if err != nil {
		return nil, err
	}
	return compact(items), nil
}

// GetActive retrieves an active request by ID.
func (r *RequestRepository) GetActive(ctx context.Context, id int64) (*domain.ActiveRequest, error) {
	items, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if req := findByID(items, id); req != nil {
		return req, nil
	}
	return nil, repository.ErrNotFound
}

// FindActiveByOwner returns the owner's active request.
func (r *RequestRepository) FindActiveByOwner(ctx context.Context, username string) (*domain.ActiveRequest, error) {
	items, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, req := range items {
		if req.Username == username {
			return req, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Create appends a new request.
func (r *RequestRepository) Create(ctx context.Context, req *domain.ActiveRequest) error {
	req.Normalize()
	return r.active.Mutate(ctx, func(items []*domain.ActiveRequest) ([]*domain.ActiveRequest, error) {
		if findByID(items, req.ID) != nil {
			return nil, repository.ErrDuplicateID
		}
		return append(items, req.Clone()), nil
	})
}

// Update atomically applies fn to an active request.
func (r *RequestRepository) Update(ctx context.Context, id int64, fn repository.RequestMutator) (*domain.ActiveRequest, error) {
	var updated *domain.ActiveRequest
	err := r.active.Mutate(ctx, func(items []*domain.ActiveRequest) ([]*domain.ActiveRequest, error) {
		items = compact(items)
		req := findByID(items, id)
		if req == nil {
			return nil, repository.ErrNotFound
		}
		if err := fn(req); err != nil {
			return nil, err
		}
		req.Normalize()
		updated = req.Clone()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove deletes a request from the active collection.
func (r *RequestRepository) Remove(ctx context.Context, id int64, check repository.RequestMutator) (*domain.ActiveRequest, error) {
	var removed *domain.ActiveRequest
	err := r.active.Mutate(ctx, func(items []*domain.ActiveRequest) ([]*domain.ActiveRequest, error) {
		removed = nil
		kept := make([]*domain.ActiveRequest, 0, len(items))
		for _, req := range compact(items) {
			if req.ID == id {
				removed = req
				continue
			}
			kept = append(kept, req)
		}
		if removed == nil {
			return nil, repository.ErrNotFound
		}
		if check != nil {
			if err := check(removed); err != nil {
				return nil, err
			}
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Archive moves a request from active to history. History is written first
// and skips ids it already holds, so racing archivers move it exactly once.
// The active record is only removed while it still matches the archived copy;
// a write landing in between refreshes the history entry and retries.
func (r *RequestRepository) Archive(ctx context.Context, id int64) (*domain.ActiveRequest, error) {
	req, err := r.GetActive(ctx, id)
	if err == repository.ErrNotFound {
		return r.GetHistory(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	refresh := false
	for attempt := 0; attempt < archiveAttempts; attempt++ {
		if err := r.writeHistory(ctx, req, refresh); err != nil {
			return nil, err
		}

		snapshot := req
		removed, err := r.Remove(ctx, id, func(live *domain.ActiveRequest) error {
			if !sameRecord(live, snapshot) {
				return errStaleArchive
			}
			return nil
		})
		switch {
		case err == nil:
			return removed, nil
		case err == repository.ErrNotFound:
			return r.GetHistory(ctx, id)
		case !errors.Is(err, errStaleArchive):
			return nil, err
		}

		req, err = r.GetActive(ctx, id)
		if err == repository.ErrNotFound {
			return r.GetHistory(ctx, id)
		}
		if err != nil {
			return nil, err
		}
		refresh = true
	}
	return nil, store.ErrConflict
}

const archiveAttempts = 5

var errStaleArchive = errors.New("active request changed while archiving")

// writeHistory appends req to history. An entry with the same id is kept
// unless refresh is set, in which case it is replaced.
func (r *RequestRepository) writeHistory(ctx context.Context, req *domain.ActiveRequest, refresh bool) error {
	return r.history.Mutate(ctx, func(items []*domain.ActiveRequest) ([]*domain.ActiveRequest, error) {
		items = compact(items)
		for i, existing := range items {
			if existing.ID != req.ID {
				continue
			}
			if refresh {
				items[i] = req
			}
			return items, nil
		}
		return append(items, req), nil
	})
}

func sameRecord(a, b *domain.ActiveRequest) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(left, right)
}

// ListHistory returns every archived request.
func (r *RequestRepository) ListHistory(ctx context.Context) ([]*domain.ActiveRequest, error) {
	items, err := r.history.Load(ctx)
	if err != nil {
		return nil, err
	}
	return compact(items), nil
}

// GetHistory retrieves an archived request by ID.
func (r *RequestRepository) GetHistory(ctx context.Context, id int64) (*domain.ActiveRequest, error) {
	items, err := r.ListHistory(ctx)
	if err != nil {
		return nil, err
	}
	if req := findByID(items, id); req != nil {
		return req, nil
	}
	return nil, repository.ErrNotFound
}

func findByID(items []*domain.ActiveRequest, id int64) *domain.ActiveRequest {
	for _, req := range items {
		if req.ID == id {
			return req
		}
	}
	return nil
}

// compact drops null entries left by hand-edited or truncated collections.
func compact(items []*domain.ActiveRequest) []*domain.ActiveRequest {
	out := items[:0]
	for _, req := range items {
		if req != nil {
			out = append(out, req)
		}
	}
	return out
}
