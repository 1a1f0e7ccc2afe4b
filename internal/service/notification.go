package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"carva/internal/domain"
	"carva/internal/repository"
)

// Notification titles.
const (
	TitleNewRequest       = "New Request"
	TitleRequestAccepted  = "Request Accepted"
	TitleRequestCancelled = "Request Cancelled"
	TitleNegotiation      = "Workshop Reviewing"
	TitleBillReady        = "Bill Ready"
	TitleBillAgreed       = "Bill Agreed"
	TitleArrived          = "Arrived at Destination"
	TitlePaymentSuccess   = "Payment Successful"
	TitlePaymentReceived  = "Payment Received"
	TitleWelcome          = "Welcome to Carva"
)

// NotificationService writes entries to account inboxes.
type NotificationService struct {
	accounts repository.AccountRepository
	logger   *slog.Logger

	mu     sync.Mutex
	lastID int64
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(accounts repository.AccountRepository, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{accounts: accounts, logger: logger}
}

// Notify prepends a notification to the recipient's inbox. Delivery is best
// effort: a missing recipient is logged and skipped.
func (s *NotificationService) Notify(ctx context.Context, recipient, title, message string) {
	if recipient == "" {
		return
	}

	n := s.build(title, message)
	_, err := s.accounts.Update(ctx, recipient, func(acc *domain.Account) error {
		acc.Notify(n)
		return nil
	})
	if err != nil {
		s.logger.Warn("notification not delivered",
			"recipient", recipient, "title", title, "error", err)
		return
	}

	s.logger.Info("notification sent",
		"recipient", recipient, "title", title, "message", message)
}

// NotifyCancelled tells every participant other than the actor that the
// request is gone.
func (s *NotificationService) NotifyCancelled(ctx context.Context, req *domain.ActiveRequest, actor string, workshopOwner string, reason string) {
	for _, recipient := range []string{req.Username, req.DriverUsername, workshopOwner} {
		if recipient == "" || recipient == actor {
			continue
		}
		s.Notify(ctx, recipient, TitleRequestCancelled,
			fmt.Sprintf("Request #%d was cancelled. %s", req.ID, reason))
	}
}

// build stamps a notification with a unique, increasing id.
func (s *NotificationService) build(title, message string) domain.Notification {
	now := time.Now()

	s.mu.Lock()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	s.mu.Unlock()

	return domain.Notification{
		ID:      id,
		Title:   title,
		Message: message,
		Time:    now.Format(time.RFC3339),
	}
}
