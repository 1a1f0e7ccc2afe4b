package repository

import (
	"context"

	"carva/internal/domain"
)

// AccountMutator edits an account in place. Returning an error aborts the write.
type AccountMutator func(acc *domain.Account) error

// AccountRepository defines the persistence operations for accounts.
type AccountRepository interface {
	// Create persists a new account. Usernames and emails are unique,
	// compared case-insensitively.
	Create(ctx context.Context, acc *domain.Account) error

	// GetByUsername retrieves an account by username.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)

	// GetByLogin retrieves an account by username or email.
	GetByLogin(ctx context.Context, identifier string) (*domain.Account, error)

	// List returns every account.
	List(ctx context.Context) ([]*domain.Account, error)

	// Update atomically applies fn to one account.
	Update(ctx context.Context, username string, fn AccountMutator) (*domain.Account, error)

	// UpdateMany atomically applies fn to several accounts at once. Every
	// username must exist.
	UpdateMany(ctx context.Context, usernames []string, fn func(accs map[string]*domain.Account) error) error
}

// WorkshopRepository defines the persistence operations for workshops.
type WorkshopRepository interface {
	// List returns every workshop.
	List(ctx context.Context) ([]*domain.Workshop, error)

	// GetByID retrieves a workshop by ID.
	GetByID(ctx context.Context, id int64) (*domain.Workshop, error)

	// GetByOwner retrieves the workshop registered by an account.
	GetByOwner(ctx context.Context, username string) (*domain.Workshop, error)

	// Create appends a workshop.
	Create(ctx context.Context, ws *domain.Workshop) error

	// Seed stores the given workshops when the collection is empty and
	// reports whether it did.
	Seed(ctx context.Context, workshops []*domain.Workshop) (bool, error)
}

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByRequestID retrieves the payment made for a request.
	GetByRequestID(ctx context.Context, requestID int64) (*domain.Payment, error)

	// ListByAccount returns payments where the account paid or was paid.
	ListByAccount(ctx context.Context, username string) ([]*domain.Payment, error)
}
