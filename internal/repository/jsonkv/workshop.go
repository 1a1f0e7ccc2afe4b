package jsonkv

import (
	"context"
	"log/slog"

	"carva/internal/domain"
	"carva/internal/repository"
	"carva/internal/store"
)

// WorkshopRepository keeps workshops in the workshops collection.
type WorkshopRepository struct {
	workshops *store.Collection[*domain.Workshop]
}

// NewWorkshopRepository creates a workshop repository over kv.
func NewWorkshopRepository(kv store.KV, logger *slog.Logger) *WorkshopRepository {
	return &WorkshopRepository{
		workshops: store.NewCollection[*domain.Workshop](kv, store.KeyWorkshops, logger),
	}
}

var _ repository.WorkshopRepository = (*WorkshopRepository)(nil)

func (r *WorkshopRepository) List(ctx context.Context) ([]*domain.Workshop, error) {
	items, err := r.workshops.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Workshop, 0, len(items))
	for _, ws := range items {
		if ws != nil {
			out = append(out, ws)
		}
	}
	return out, nil
}

func (r *WorkshopRepository) GetByID(ctx context.Context, id int64) (*domain.Workshop, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, ws := range items {
		if ws.ID == id {
			return ws, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *WorkshopRepository) GetByOwner(ctx context.Context, username string) (*domain.Workshop, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, ws := range items {
		if ws.OwnerUsername != "" && ws.OwnerUsername == username {
			return ws, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *WorkshopRepository) Create(ctx context.Context, ws *domain.Workshop) error {
	return r.workshops.Mutate(ctx, func(items []*domain.Workshop) ([]*domain.Workshop, error) {
		for _, existing := range items {
			if existing != nil && existing.ID == ws.ID {
				return nil, repository.ErrDuplicateID
			}
		}
		return append(items, ws), nil
	})
}

func (r *WorkshopRepository) Seed(ctx context.Context, workshops []*domain.Workshop) (bool, error) {
	seeded := false
	err := r.workshops.Mutate(ctx, func(items []*domain.Workshop) ([]*domain.Workshop, error) {
		if len(items) > 0 {
			return items, nil
		}
		seeded = true
		return workshops, nil
	})
	return seeded, err
}
