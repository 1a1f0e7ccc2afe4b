package syncer

import (
	"context"

	"carva/internal/domain"
	"carva/internal/repository"
)

// ArrivalWatcher alerts a workshop once when a request destined to it
// reaches the destination. The one-shot flag lives in the store so the
// alert is not repeated across reconnects or instances.
type ArrivalWatcher struct {
	requests repository.RequestRepository
	flags    repository.FlagRepository
	workshop *domain.Workshop
	emit     Emit
}

// NewArrivalWatcher creates an arrival watcher for ws.
func NewArrivalWatcher(requests repository.RequestRepository, flags repository.FlagRepository, ws *domain.Workshop, emit Emit) *ArrivalWatcher {
	return &ArrivalWatcher{requests: requests, flags: flags, workshop: ws, emit: emit}
}

func (a *ArrivalWatcher) Tick(ctx context.Context) error {
	active, err := a.requests.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, req := range active {
		if req.Status != domain.StatusArrivedAtDest || !req.IsDestination(a.workshop) {
			continue
		}
		first, err := a.flags.MarkArrivalNotified(ctx, req.ID)
		if err != nil {
			return err
		}
		if first {
			a.emit(Event{
				Type:      EventWorkshopArrival,
				RequestID: req.ID,
				Status:    req.Status,
				Request:   req,
			})
		}
	}
	return nil
}
