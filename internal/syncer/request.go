package syncer

import (
	"context"
	"errors"
	"sync"

	"carva/internal/domain"
	"carva/internal/repository"
)

// Participant identifies whose point of view a watcher takes.
type Participant struct {
	Username string
	Role     domain.Role
	// Workshop is the workshop registered by a workshop account.
	Workshop *domain.Workshop
}

func (p Participant) involved(req *domain.ActiveRequest) bool {
	switch p.Role {
	case domain.RoleOwner:
		return req.Username == p.Username
	case domain.RoleDriver:
		return req.DriverUsername == p.Username
	case domain.RoleWorkshop:
		return req.IsDestination(p.Workshop)
	}
	return false
}

// RequestWatcher follows one request from a participant's point of view and
// reports status changes, confirmations, new chat messages on its channel
// and the request leaving the active collection.
type RequestWatcher struct {
	requests repository.RequestRepository
	who      Participant
	channel  domain.Channel
	match    func(*domain.ActiveRequest) bool
	emit     Emit

	mu        sync.Mutex
	view      domain.View
	requestID int64
	pinned    bool
	last      *domain.ActiveRequest
	notified  int64
}

// NewRequestWatcher watches the owner/driver trip thread. A zero requestID
// follows the participant's current request.
func NewRequestWatcher(requests repository.RequestRepository, who Participant, requestID int64, view domain.View, emit Emit) *RequestWatcher {
	w := newRequestWatcher(requests, who, requestID, view, emit)
	w.channel = domain.ChannelTrip
	w.match = func(req *domain.ActiveRequest) bool {
		return who.involved(req) && !req.Status.IsTerminal()
	}
	return w
}

// NewNegotiationWatcher watches the owner/workshop negotiation thread.
func NewNegotiationWatcher(requests repository.RequestRepository, who Participant, requestID int64, view domain.View, emit Emit) *RequestWatcher {
	w := newRequestWatcher(requests, who, requestID, view, emit)
	w.channel = domain.ChannelNegotiation
	w.match = func(req *domain.ActiveRequest) bool {
		if !who.involved(req) {
			return false
		}
		if who.Role == domain.RoleWorkshop {
			return req.Status == domain.StatusNegotiation
		}
		return !req.Status.IsTerminal()
	}
	return w
}

func newRequestWatcher(requests repository.RequestRepository, who Participant, requestID int64, view domain.View, emit Emit) *RequestWatcher {
	if view == "" {
		view = domain.Dashboard(who.Role)
	}
	return &RequestWatcher{
		requests:  requests,
		who:       who,
		emit:      emit,
		view:      view,
		requestID: requestID,
		pinned:    requestID != 0,
	}
}

// SetView records the screen the client is showing. Messages on the
// watcher's channel do not raise events while its chat screen is shown.
func (w *RequestWatcher) SetView(v domain.View) {
	w.mu.Lock()
	w.view = v
	w.mu.Unlock()
}

// View returns the screen the watcher last routed to or was told about.
func (w *RequestWatcher) View() domain.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// Tick reads the active collection once and emits what changed.
func (w *RequestWatcher) Tick(ctx context.Context) error {
	active, err := w.requests.ListActive(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.locate(active)
	if current == nil {
		return w.vanished(ctx)
	}

	if w.last == nil {
		w.requestID = current.ID
		w.last = current
		w.notified = lastMessageID(current.Messages(w.channel))
		return nil
	}

	w.diff(current)
	w.last = current
	return nil
}

func (w *RequestWatcher) locate(active []*domain.ActiveRequest) *domain.ActiveRequest {
	for _, req := range active {
		if w.requestID != 0 {
			if req.ID == w.requestID {
				return req
			}
			continue
		}
		if w.match(req) {
			return req
		}
	}
	return nil
}

func (w *RequestWatcher) diff(current *domain.ActiveRequest) {
	last := w.last

	if current.Status != last.Status {
		w.emit(Event{
			Type:      EventStatusChanged,
			RequestID: current.ID,
			Status:    current.Status,
			Request:   current,
		})
		// The pickup leg keeps both parties on their trip screens.
		if current.Status != domain.StatusPickedUp {
			w.navigate(domain.RouteFor(w.who.Role, current))
		}
	}

	if current.UserConfirmed != last.UserConfirmed || current.Sat7aConfirmed != last.Sat7aConfirmed {
		w.emit(Event{
			Type:      EventConfirmationChanged,
			RequestID: current.ID,
			Status:    current.Status,
			Request:   current,
		})
	}

	local := w.who.Role.Sender()
	for _, msg := range current.Messages(w.channel) {
		if msg.ID <= w.notified {
			continue
		}
		w.notified = msg.ID
		if msg.Sender == domain.SenderSystem || msg.Sender == local || w.viewingChat() {
			continue
		}
		m := msg
		w.emit(Event{
			Type:      EventMessageReceived,
			RequestID: current.ID,
			Channel:   w.channel,
			Message:   &m,
		})
	}
}

// vanished handles the tracked request leaving the active collection. History
// is checked first so a normal completion is not reported as a cancellation.
func (w *RequestWatcher) vanished(ctx context.Context) error {
	if w.last == nil {
		return nil
	}
	last := w.last

	archived, err := w.requests.GetHistory(ctx, last.ID)
	switch {
	case err == nil:
		w.emit(Event{
			Type:      EventArchived,
			RequestID: archived.ID,
			Status:    archived.Status,
			Request:   archived,
		})
		w.navigate(domain.RouteFor(w.who.Role, archived))
	case errors.Is(err, repository.ErrNotFound):
		cancelled := last.Clone()
		cancelled.Status = domain.StatusCancelled
		w.emit(Event{
			Type:      EventCancelled,
			RequestID: cancelled.ID,
			Status:    cancelled.Status,
			Request:   cancelled,
		})
		w.navigate(domain.RouteFor(w.who.Role, cancelled))
	default:
		return err
	}

	w.last = nil
	w.notified = 0
	if !w.pinned {
		w.requestID = 0
	}
	return nil
}

func (w *RequestWatcher) navigate(v domain.View) {
	if v == w.view {
		return
	}
	w.view = v
	w.emit(Event{Type: EventNavigate, View: v})
}

func (w *RequestWatcher) viewingChat() bool {
	if w.channel == domain.ChannelNegotiation {
		return w.view == domain.ViewNegotiation
	}
	return w.view == domain.ViewTripChat
}

func lastMessageID(msgs []domain.ChatMessage) int64 {
	var id int64
	for _, m := range msgs {
		if m.ID > id {
			id = m.ID
		}
	}
	return id
}
