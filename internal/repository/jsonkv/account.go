package jsonkv

import (
	"context"
	"log/slog"
	"strings"

	"carva/internal/domain"
	"carva/internal/repository"
	"carva/internal/store"
)

// AccountRepository keeps accounts in the users collection.
type AccountRepository struct {
	users *store.Collection[*domain.Account]
}

// NewAccountRepository creates an account repository over kv.
func NewAccountRepository(kv store.KV, logger *slog.Logger) *AccountRepository {
	return &AccountRepository{
		users: store.NewCollection[*domain.Account](kv, store.KeyUsers, logger),
	}
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

// Create persists a new account, enforcing unique usernames and emails.
func (r *AccountRepository) Create(ctx context.Context, acc *domain.Account) error {
	return r.users.Mutate(ctx, func(items []*domain.Account) ([]*domain.Account, error) {
		for _, existing := range items {
			if existing == nil {
				continue
			}
			if strings.EqualFold(existing.Username, acc.Username) {
				return nil, repository.ErrDuplicateUsername
			}
			if strings.EqualFold(existing.Email, acc.Email) {
				return nil, repository.ErrDuplicateEmail
			}
		}
		return append(items, acc.Clone()), nil
	})
}

// GetByUsername retrieves an account by username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	items, err := r.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, acc := range items {
		if acc != nil && acc.Username == username {
			return acc, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetByLogin retrieves an account whose username or email equals identifier.
func (r *AccountRepository) GetByLogin(ctx context.Context, identifier string) (*domain.Account, error) {
	items, err := r.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, acc := range items {
		if acc == nil {
			continue
		}
		if acc.Username == identifier || strings.EqualFold(acc.Email, identifier) {
			return acc, nil
		}
	}
	return nil, repository.ErrNotFound
}

// List returns every account.
func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	items, err := r.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Account, 0, len(items))
	for _, acc := range items {
		if acc != nil {
			out = append(out, acc)
		}
	}
	return out, nil
}

// Update atomically applies fn to one account.
func (r *AccountRepository) Update(ctx context.Context, username string, fn repository.AccountMutator) (*domain.Account, error) {
	var updated *domain.Account
	err := r.UpdateMany(ctx, []string{username}, func(accs map[string]*domain.Account) error {
		acc := accs[username]
		if err := fn(acc); err != nil {
			return err
		}
		updated = acc.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateMany atomically applies fn to several accounts in one write.
func (r *AccountRepository) UpdateMany(ctx context.Context, usernames []string, fn func(accs map[string]*domain.Account) error) error {
	return r.users.Mutate(ctx, func(items []*domain.Account) ([]*domain.Account, error) {
		selected := make(map[string]*domain.Account, len(usernames))
		for _, acc := range items {
			if acc == nil {
				continue
			}
			for _, name := range usernames {
				if acc.Username == name {
					selected[name] = acc
				}
			}
		}
		for _, name := range usernames {
			if selected[name] == nil {
				return nil, repository.ErrNotFound
			}
		}
		if err := fn(selected); err != nil {
			return nil, err
		}
		return items, nil
	})
}
