package jsonkv

import (
	"context"
	"log/slog"

	"carva/internal/repository"
	"carva/internal/store"
)

// RejectionRepository keeps one id list per driver.
type RejectionRepository struct {
	kv     store.KV
	logger *slog.Logger
}

// NewRejectionRepository creates a rejection repository over kv.
func NewRejectionRepository(kv store.KV, logger *slog.Logger) *RejectionRepository {
	return &RejectionRepository{kv: kv, logger: logger}
}

var _ repository.RejectionRepository = (*RejectionRepository)(nil)

func (r *RejectionRepository) List(ctx context.Context, driver string) ([]int64, error) {
	return store.NewCollection[int64](r.kv, store.RejectedKey(driver), r.logger).Load(ctx)
}

func (r *RejectionRepository) Add(ctx context.Context, driver string, requestID int64) error {
	col := store.NewCollection[int64](r.kv, store.RejectedKey(driver), r.logger)
	return col.Mutate(ctx, func(ids []int64) ([]int64, error) {
		for _, id := range ids {
			if id == requestID {
				return ids, nil
			}
		}
		return append(ids, requestID), nil
	})
}

// FlagRepository stores one-shot flags as individual keys.
type FlagRepository struct {
	kv store.KV
}

// NewFlagRepository creates a flag repository over kv.
func NewFlagRepository(kv store.KV) *FlagRepository {
	return &FlagRepository{kv: kv}
}

var _ repository.FlagRepository = (*FlagRepository)(nil)

func (r *FlagRepository) MarkArrivalNotified(ctx context.Context, requestID int64) (bool, error) {
	return r.kv.SetNX(ctx, store.NotifiedArrivalKey(requestID), []byte("true"))
}
