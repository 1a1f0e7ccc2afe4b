package syncer

import (
	"context"
	"errors"
	"sync"

	"carva/internal/domain"
	"carva/internal/repository"
)

// Archiver moves a paid request to history.
type Archiver interface {
	ArchivePaid(ctx context.Context, id int64) (bool, error)
}

// PaymentWatcher runs on the driver's waiting-payment screen. Once the owner
// has paid it makes sure the request is archived and sends the driver back
// to the dashboard.
type PaymentWatcher struct {
	requests  repository.RequestRepository
	archiver  Archiver
	requestID int64
	emit      Emit

	mu   sync.Mutex
	done bool
}

// NewPaymentWatcher creates a payment watcher for one request.
func NewPaymentWatcher(requests repository.RequestRepository, archiver Archiver, requestID int64, emit Emit) *PaymentWatcher {
	return &PaymentWatcher{requests: requests, archiver: archiver, requestID: requestID, emit: emit}
}

// Done reports whether the watcher has reached a final outcome.
func (p *PaymentWatcher) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *PaymentWatcher) Tick(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil
	}

	req, err := p.requests.GetActive(ctx, p.requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return p.settle(ctx)
	}
	if err != nil {
		return err
	}
	if !req.IsPaid {
		return nil
	}

	if _, err := p.archiver.ArchivePaid(ctx, p.requestID); err != nil {
		return err
	}
	return p.settle(ctx)
}

// settle reports the final outcome once the request left the active
// collection.
func (p *PaymentWatcher) settle(ctx context.Context) error {
	archived, err := p.requests.GetHistory(ctx, p.requestID)
	switch {
	case err == nil:
		p.emit(Event{
			Type:      EventArchived,
			RequestID: archived.ID,
			Status:    archived.Status,
			Request:   archived,
		})
	case errors.Is(err, repository.ErrNotFound):
		p.emit(Event{
			Type:      EventCancelled,
			RequestID: p.requestID,
			Status:    domain.StatusCancelled,
		})
	default:
		return err
	}

	p.done = true
	p.emit(Event{Type: EventNavigate, View: domain.ViewDashboardDriver})
	return nil
}
