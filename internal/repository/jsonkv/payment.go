package jsonkv

import (
	"context"
	"log/slog"

	"carva/internal/domain"
	"carva/internal/repository"
	"carva/internal/store"
)

// PaymentRepository keeps the wallet transfer ledger.
type PaymentRepository struct {
	payments *store.Collection[*domain.Payment]
}

// NewPaymentRepository creates a payment repository over kv.
func NewPaymentRepository(kv store.KV, logger *slog.Logger) *PaymentRepository {
	return &PaymentRepository{
		payments: store.NewCollection[*domain.Payment](kv, store.KeyPayments, logger),
	}
}

var _ repository.PaymentRepository = (*PaymentRepository)(nil)

func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return r.payments.Mutate(ctx, func(items []*domain.Payment) ([]*domain.Payment, error) {
		for _, p := range items {
			if p != nil && p.RequestID == payment.RequestID {
				return nil, repository.ErrDuplicateID
			}
		}
		return append(items, payment), nil
	})
}

func (r *PaymentRepository) GetByRequestID(ctx context.Context, requestID int64) (*domain.Payment, error) {
	items, err := r.payments.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		if p != nil && p.RequestID == requestID {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *PaymentRepository) ListByAccount(ctx context.Context, username string) ([]*domain.Payment, error) {
	items, err := r.payments.Load(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.Payment
	for _, p := range items {
		if p != nil && (p.Payer == username || p.Payee == username) {
			out = append(out, p)
		}
	}
	return out, nil
}
