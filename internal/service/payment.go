package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"carva/internal/domain"
	"carva/internal/redis"
	"carva/internal/repository"
)

const paymentLockTTL = 10 * time.Second

// PaymentService moves trip fares between wallets.
type PaymentService struct {
	requests repository.RequestRepository
	accounts repository.AccountRepository
	payments repository.PaymentRepository
	locks    redis.LockStoreInterface
	notifier *NotificationService
	logger   *slog.Logger

	// inflight holds the requests being paid on this instance.
	mu       sync.Mutex
	inflight map[int64]struct{}
}

// NewPaymentService creates a new PaymentService. locks may be nil.
func NewPaymentService(
	requests repository.RequestRepository,
	accounts repository.AccountRepository,
	payments repository.PaymentRepository,
	locks redis.LockStoreInterface,
	notifier *NotificationService,
	logger *slog.Logger,
) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		requests: requests,
		accounts: accounts,
		payments: payments,
		locks:    locks,
		notifier: notifier,
		logger:   logger,
		inflight: make(map[int64]struct{}),
	}
}

// PaymentResult contains the paid request and its ledger entry.
type PaymentResult struct {
	Request *domain.ActiveRequest
	Payment *domain.Payment
}

// Pay charges the owner the trip cost, credits the assigned driver, marks
// the request paid and completed, and archives it. With a balance below the
// trip cost nothing changes and ErrInsufficientFunds is returned.
func (s *PaymentService) Pay(ctx context.Context, actor Actor, id int64) (*PaymentResult, error) {
	if actor.Role != domain.RoleOwner {
		return nil, ErrForbidden
	}

	if !s.begin(id) {
		return nil, ErrInvalidTransition
	}
	defer s.end(id)

	if s.locks != nil {
		acquired, err := s.locks.AcquireRequestLock(ctx, id, paymentLockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrInvalidTransition
		}
		defer func() {
			_ = s.locks.ReleaseRequestLock(ctx, id)
		}()
	}

	req, err := s.requests.GetActive(ctx, id)
	if err == repository.ErrNotFound {
		if _, herr := s.requests.GetHistory(ctx, id); herr == nil {
			return nil, ErrRequestClosed
		}
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := checkPayable(req, actor); err != nil {
		return nil, err
	}

	amount := req.TripCost
	if err := s.transfer(ctx, req.Username, req.DriverUsername, amount); err != nil {
		return nil, err
	}

	updated, err := s.requests.Update(ctx, id, func(cur *domain.ActiveRequest) error {
		if err := checkPayable(cur, actor); err != nil {
			return err
		}
		cur.IsPaid = true
		return advance(cur, domain.StatusCompleted)
	})
	if err != nil {
		s.refund(ctx, req.Username, req.DriverUsername, amount, id)
		return nil, err
	}

	payment := &domain.Payment{
		ID:        uuid.New().String(),
		RequestID: id,
		Payer:     req.Username,
		Payee:     req.DriverUsername,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		s.logger.Error("payment ledger write failed", "request_id", id, "error", err)
	}

	if _, err := s.requests.Archive(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("payment completed",
		"request_id", id, "payer", payment.Payer, "payee", payment.Payee, "amount", amount)

	s.notifier.Notify(ctx, payment.Payer, TitlePaymentSuccess,
		fmt.Sprintf("You paid %d for request #%d.", amount, id))
	s.notifier.Notify(ctx, payment.Payee, TitlePaymentReceived,
		fmt.Sprintf("%s paid %d for request #%d.", updated.Name, amount, id))

	return &PaymentResult{Request: updated, Payment: payment}, nil
}

// begin claims id for one payment on this instance. Other instances are
// kept out by the request lock.
func (s *PaymentService) begin(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *PaymentService) end(id int64) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

// GetByRequest returns the ledger entry for a paid request.
func (s *PaymentService) GetByRequest(ctx context.Context, requestID int64) (*domain.Payment, error) {
	p, err := s.payments.GetByRequestID(ctx, requestID)
	if err == repository.ErrNotFound {
		return nil, ErrRequestNotFound
	}
	return p, err
}

// ListForAccount returns every payment the account made or received.
func (s *PaymentService) ListForAccount(ctx context.Context, username string) ([]*domain.Payment, error) {
	payments, err := s.payments.ListByAccount(ctx, username)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*domain.Payment{}
	}
	return payments, nil
}

func (s *PaymentService) transfer(ctx context.Context, payer, payee string, amount int) error {
	err := s.accounts.UpdateMany(ctx, []string{payer, payee}, func(accs map[string]*domain.Account) error {
		if accs[payer].WalletBalance < amount {
			return ErrInsufficientFunds
		}
		accs[payer].WalletBalance -= amount
		accs[payee].WalletBalance += amount
		return nil
	})
	if err == repository.ErrNotFound {
		return ErrAccountNotFound
	}
	return err
}

func (s *PaymentService) refund(ctx context.Context, payer, payee string, amount int, id int64) {
	err := s.accounts.UpdateMany(ctx, []string{payer, payee}, func(accs map[string]*domain.Account) error {
		accs[payer].WalletBalance += amount
		accs[payee].WalletBalance -= amount
		return nil
	})
	if err != nil {
		s.logger.Error("payment refund failed", "request_id", id, "amount", amount, "error", err)
	}
}

func checkPayable(req *domain.ActiveRequest, actor Actor) error {
	if req.Username != actor.Username {
		return ErrForbidden
	}
	if req.IsPaid {
		return ErrAlreadyPaid
	}
	if req.Status.IsTerminal() {
		return ErrRequestClosed
	}
	if req.Status != domain.StatusArrivedAtDest {
		return ErrInvalidTransition
	}
	if req.DriverUsername == "" {
		return ErrInvalidTransition
	}
	return nil
}
