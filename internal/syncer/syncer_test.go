package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carva/internal/domain"
	"carva/internal/logging"
	"carva/internal/repository"
	"carva/internal/repository/jsonkv"
	"carva/internal/service"
	"carva/internal/store"
)

// ──────────────────────────────────────────────
// TEST HELPERS
// ──────────────────────────────────────────────

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// take returns and clears the recorded events.
func (r *recorder) take() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func expectTypes(t *testing.T, got []Event, want ...EventType) {
	t.Helper()
	gotTypes := types(got)
	if len(gotTypes) != len(want) {
		t.Fatalf("expected events %v, got %v", want, gotTypes)
	}
	for i := range want {
		if gotTypes[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, gotTypes)
		}
	}
}

var (
	owner    = Participant{Username: "sara", Role: domain.RoleOwner}
	driver   = Participant{Username: "driver1", Role: domain.RoleDriver}
	workshop = &domain.Workshop{ID: 10, NameEn: "Fast Fix", NameAr: "Fast Fix", OwnerUsername: "fastfix"}
)

func newRequests(t *testing.T) (*store.Memory, *jsonkv.RequestRepository) {
	t.Helper()
	kv := store.NewMemory()
	return kv, jsonkv.NewRequestRepository(kv, logging.Discard())
}

func createRequest(t *testing.T, repo *jsonkv.RequestRepository, req *domain.ActiveRequest) {
	t.Helper()
	if err := repo.Create(context.Background(), req); err != nil {
		t.Fatalf("create request: %v", err)
	}
}

func update(t *testing.T, repo *jsonkv.RequestRepository, id int64, fn repository.RequestMutator) {
	t.Helper()
	if _, err := repo.Update(context.Background(), id, fn); err != nil {
		t.Fatalf("update request: %v", err)
	}
}

func tick(t *testing.T, w Watcher) {
	t.Helper()
	if err := w.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
}

func flatbedRequest(id int64) *domain.ActiveRequest {
	return &domain.ActiveRequest{
		ID: id, Username: "sara", Name: "Sara", Car: "Camry",
		UserLat: 24.71, UserLng: 46.67, DestLat: 24.72, DestLng: 46.68,
		DestName: "Home", Timestamp: id, Status: domain.StatusPending,
	}
}

func assign(req *domain.ActiveRequest) error {
	req.Status = domain.StatusAccepted
	req.DriverUsername = "driver1"
	req.DriverName = "Ali"
	return nil
}

func message(id int64, sender domain.Sender, text string) domain.ChatMessage {
	return domain.ChatMessage{ID: id, Sender: sender, Text: text, Time: "10:00"}
}

// ──────────────────────────────────────────────
// REQUEST WATCHER
// ──────────────────────────────────────────────

func TestRequestWatcher_StatusNavigation(t *testing.T) {
	t.Parallel()

	_, repo := newRequests(t)
	createRequest(t, repo, flatbedRequest(1))

	var ownerEvents, driverEvents recorder
	ownerW := NewRequestWatcher(repo, owner, 0, domain.ViewSearchingFlatbed, ownerEvents.emit)
	driverW := NewRequestWatcher(repo, driver, 1, domain.ViewDashboardDriver, driverEvents.emit)

	tick(t, ownerW)
	tick(t, driverW)
	expectTypes(t, ownerEvents.take())
	expectTypes(t, driverEvents.take())

	update(t, repo, 1, assign)
	tick(t, ownerW)
	tick(t, driverW)

	got := ownerEvents.take()
	expectTypes(t, got, EventStatusChanged, EventNavigate)
	if got[1].View != domain.ViewOwnerTrip {
		t.Errorf("expected owner on %s, got %s", domain.ViewOwnerTrip, got[1].View)
	}
	got = driverEvents.take()
	expectTypes(t, got, EventStatusChanged, EventNavigate)
	if got[1].View != domain.ViewDriverTrip {
		t.Errorf("expected driver on %s, got %s", domain.ViewDriverTrip, got[1].View)
	}

	// First half of the pickup handshake.
	update(t, repo, 1, func(req *domain.ActiveRequest) error {
		req.UserConfirmed = true
		return nil
	})
	tick(t, driverW)
	expectTypes(t, driverEvents.take(), EventConfirmationChanged)

	update(t, repo, 1, func(req *domain.ActiveRequest) error {
		req.UserConfirmed = false
		req.Status = domain.StatusPickedUp
		return nil
	})
	tick(t, ownerW)
	tick(t, driverW)
	expectTypes(t, ownerEvents.take(), EventStatusChanged)
	expectTypes(t, driverEvents.take(), EventStatusChanged, EventConfirmationChanged)

	update(t, repo, 1, func(req *domain.ActiveRequest) error {
		req.Status = domain.StatusArrivedAtDest
		req.TripCost = 23
		return nil
	})
	tick(t, ownerW)
	tick(t, driverW)
	got = ownerEvents.take()
	expectTypes(t, got, EventStatusChanged, EventNavigate)
	if got[1].View != domain.ViewPayment {
		t.Errorf("expected owner on %s, got %s", domain.ViewPayment, got[1].View)
	}
	got = driverEvents.take()
	expectTypes(t, got, EventStatusChanged, EventNavigate)
	if got[1].View != domain.ViewWaitingPayment {
		t.Errorf("expected driver on %s, got %s", domain.ViewWaitingPayment, got[1].View)
	}
}

func TestRequestWatcher_Messages(t *testing.T) {
	t.Parallel()

	_, repo := newRequests(t)
	req := flatbedRequest(1)
	_ = assign(req)
	req.ChatMessages = []domain.ChatMessage{message(1, domain.SenderDriver, "old")}
	createRequest(t, repo, req)

	var events recorder
	w := NewRequestWatcher(repo, owner, 0, domain.ViewOwnerTrip, events.emit)
	tick(t, w)
	expectTypes(t, events.take())

	appendMsg := func(m domain.ChatMessage) {
		update(t, repo, 1, func(r *domain.ActiveRequest) error {
			r.AppendMessage(domain.ChannelTrip, m)
			return nil
		})
	}

	appendMsg(message(2, domain.SenderDriver, "on my way"))
	tick(t, w)
	got := events.take()
	expectTypes(t, got, EventMessageReceived)
	if got[0].Message.Text != "on my way" || got[0].Channel != domain.ChannelTrip {
		t.Errorf("unexpected message event %+v", got[0])
	}

	// Nothing new, nothing repeated.
	tick(t, w)
	expectTypes(t, events.take())

	appendMsg(message(3, domain.SenderSystem, "system note"))
	appendMsg(message(4, domain.SenderUser, "my own"))
	tick(t, w)
	expectTypes(t, events.take())

	w.SetView(domain.ViewTripChat)
	appendMsg(message(5, domain.SenderDriver, "seen in chat"))
	tick(t, w)
	expectTypes(t, events.take())

	w.SetView(domain.ViewOwnerTrip)
	tick(t, w)
	expectTypes(t, events.take())
}

func TestRequestWatcher_ArchivedIsNotCancelled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, repo := newRequests(t)
	req := flatbedRequest(1)
	_ = assign(req)
	req.Status = domain.StatusArrivedAtDest
	createRequest(t, repo, req)

	var events recorder
	w := NewRequestWatcher(repo, owner, 0, domain.ViewPayment, events.emit)
	tick(t, w)

	update(t, repo, 1, func(r *domain.ActiveRequest) error {
		r.IsPaid = true
		r.Status = domain.StatusCompleted
		return nil
	})
	if _, err := repo.Archive(ctx, 1); err != nil {
		t.Fatalf("archive: %v", err)
	}

	tick(t, w)
	got := events.take()
	expectTypes(t, got, EventArchived, EventNavigate)
	if got[1].View != domain.ViewDone {
		t.Errorf("expected %s, got %s", domain.ViewDone, got[1].View)
	}

	// The outcome is reported once.
	tick(t, w)
	expectTypes(t, events.take())
}

func TestRequestWatcher_CancelledRedirects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, repo := newRequests(t)
	createRequest(t, repo, flatbedRequest(1))

	var ownerEvents, driverEvents recorder
	ownerW := NewRequestWatcher(repo, owner, 0, domain.ViewSearchingFlatbed, ownerEvents.emit)
	update(t, repo, 1, assign)
	driverW := NewRequestWatcher(repo, driver, 0, domain.ViewDriverTrip, driverEvents.emit)
	tick(t, ownerW)
	tick(t, driverW)
	ownerEvents.take()

	if _, err := repo.Remove(ctx, 1, nil); err != nil {
		t.Fatalf("remove: %v", err)
	}

	tick(t, ownerW)
	tick(t, driverW)

	got := ownerEvents.take()
	expectTypes(t, got, EventCancelled, EventNavigate)
	if got[0].Request.Status != domain.StatusCancelled {
		t.Errorf("expected cancelled snapshot, got %s", got[0].Request.Status)
	}
	if got[1].View != domain.ViewDashboardOwner {
		t.Errorf("expected %s, got %s", domain.ViewDashboardOwner, got[1].View)
	}
	got = driverEvents.take()
	expectTypes(t, got, EventCancelled, EventNavigate)
	if got[1].View != domain.ViewDashboardDriver {
		t.Errorf("expected %s, got %s", domain.ViewDashboardDriver, got[1].View)
	}

	// An unpinned owner watcher picks up the next request.
	createRequest(t, repo, flatbedRequest(2))
	tick(t, ownerW)
	expectTypes(t, ownerEvents.take())
	update(t, repo, 2, assign)
	tick(t, ownerW)
	expectTypes(t, ownerEvents.take(), EventStatusChanged, EventNavigate)
}

func TestRequestWatcher_WorkshopTimeoutSeenByOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := logging.Discard()
	kv, repo := newRequests(t)
	accounts := jsonkv.NewAccountRepository(kv, logger)
	svc := service.NewRequestService(
		repo, jsonkv.NewRejectionRepository(kv, logger), accounts, jsonkv.NewWorkshopRepository(kv, logger),
		nil, nil, service.NewNotificationService(accounts, logger),
		service.LifecycleSettings{TripRatePerKm: 15, WorkshopTimeout: 300 * time.Second},
		logger,
	)

	req := flatbedRequest(1)
	req.Status = domain.StatusWaitingWorkshop
	req.WorkshopID = workshop.ID
	req.DestName = workshop.NameEn
	req.Timestamp = time.Now().Add(-301 * time.Second).UnixMilli()
	createRequest(t, repo, req)

	var events recorder
	w := NewRequestWatcher(repo, owner, 0, domain.ViewWaitingWorkshop, events.emit)
	tick(t, w)

	expired, err := svc.ExpireWaiting(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired request, got %d", len(expired))
	}

	tick(t, w)
	got := events.take()
	expectTypes(t, got, EventCancelled, EventNavigate)
	if got[1].View != domain.ViewWorkshopSelection {
		t.Errorf("expected %s, got %s", domain.ViewWorkshopSelection, got[1].View)
	}
}

func TestNegotiationWatcher_Workshop(t *testing.T) {
	t.Parallel()

	_, repo := newRequests(t)
	req := flatbedRequest(1)
	req.Status = domain.StatusWaitingWorkshop
	req.WorkshopID = workshop.ID
	createRequest(t, repo, req)

	who := Participant{Username: "fastfix", Role: domain.RoleWorkshop, Workshop: workshop}
	var events recorder
	w := NewNegotiationWatcher(repo, who, 1, domain.ViewDashboardWorkshop, events.emit)
	tick(t, w)

	update(t, repo, 1, func(r *domain.ActiveRequest) error {
		r.Status = domain.StatusNegotiation
		r.AppendMessage(domain.ChannelNegotiation, message(1, domain.SenderUser, "how much?"))
		r.AppendMessage(domain.ChannelTrip, message(2, domain.SenderDriver, "not for you"))
		return nil
	})
	tick(t, w)
	got := events.take()
	expectTypes(t, got, EventStatusChanged, EventNavigate)
	if w.View() != domain.ViewNegotiation {
		t.Errorf("expected workshop routed to %s, got %s", domain.ViewNegotiation, w.View())
	}

	// Back on the dashboard, owner messages raise events.
	w.SetView(domain.ViewDashboardWorkshop)
	update(t, repo, 1, func(r *domain.ActiveRequest) error {
		r.AppendMessage(domain.ChannelNegotiation, message(3, domain.SenderUser, "hello?"))
		r.AppendMessage(domain.ChannelNegotiation, message(4, domain.SenderWorkshop, "own reply"))
		return nil
	})
	tick(t, w)
	got = events.take()
	expectTypes(t, got, EventMessageReceived)
	if got[0].Message.ID != 3 || got[0].Channel != domain.ChannelNegotiation {
		t.Errorf("unexpected event %+v", got[0])
	}
}

// ──────────────────────────────────────────────
// LIST WATCHERS
// ──────────────────────────────────────────────

type fakeFeed struct {
	mu    sync.Mutex
	items []service.PendingItem
	err   error
}

func (f *fakeFeed) set(items ...service.PendingItem) {
	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
}

func (f *fakeFeed) PendingFeed(ctx context.Context, actor service.Actor) ([]service.PendingItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.err
}

type fakeInbox struct {
	items []*domain.ActiveRequest
}

func (f *fakeInbox) Inbox(ctx context.Context, actor service.Actor) ([]*domain.ActiveRequest, error) {
	return f.items, nil
}

func TestPendingFeed(t *testing.T) {
	t.Parallel()

	source := &fakeFeed{}
	var events recorder
	feed := NewPendingFeed(source, service.Actor{Username: "driver1", Role: domain.RoleDriver}, events.emit)

	tick(t, feed)
	got := events.take()
	expectTypes(t, got, EventFeedUpdated)
	if len(got[0].Feed) != 0 {
		t.Errorf("expected empty feed, got %d", len(got[0].Feed))
	}

	tick(t, feed)
	expectTypes(t, events.take())

	source.set(service.PendingItem{Request: flatbedRequest(1), DistClient: 0.75, DistDest: 2.1})
	tick(t, feed)
	got = events.take()
	expectTypes(t, got, EventFeedUpdated)
	if got[0].Feed[0].DistClient != 0.75 {
		t.Errorf("unexpected feed %+v", got[0].Feed)
	}

	// The driver moved.
	source.set(service.PendingItem{Request: flatbedRequest(1), DistClient: 0.5, DistDest: 1.9})
	tick(t, feed)
	expectTypes(t, events.take(), EventFeedUpdated)

	source.err = errors.New("store down")
	if err := feed.Tick(context.Background()); err == nil {
		t.Error("expected source error")
	}
}

func TestWorkshopInbox(t *testing.T) {
	t.Parallel()

	req := flatbedRequest(1)
	req.Status = domain.StatusWaitingWorkshop
	source := &fakeInbox{items: []*domain.ActiveRequest{req}}

	var events recorder
	inbox := NewWorkshopInbox(source, service.Actor{Username: "fastfix", Role: domain.RoleWorkshop}, events.emit)
	tick(t, inbox)
	expectTypes(t, events.take(), EventInboxUpdated)
	tick(t, inbox)
	expectTypes(t, events.take())

	changed := req.Clone()
	changed.Status = domain.StatusNegotiation
	source.items = []*domain.ActiveRequest{changed}
	tick(t, inbox)
	got := events.take()
	expectTypes(t, got, EventInboxUpdated)
	if got[0].Inbox[0].Status != domain.StatusNegotiation {
		t.Errorf("unexpected inbox %+v", got[0].Inbox)
	}
}

// ──────────────────────────────────────────────
// ARRIVAL AND PAYMENT WATCHERS
// ──────────────────────────────────────────────

func TestArrivalWatcher_AlertsOnce(t *testing.T) {
	t.Parallel()

	kv, repo := newRequests(t)
	flags := jsonkv.NewFlagRepository(kv)

	req := flatbedRequest(1)
	_ = assign(req)
	req.WorkshopID = workshop.ID
	createRequest(t, repo, req)
	other := flatbedRequest(2)
	other.Username = "nora"
	other.Status = domain.StatusArrivedAtDest
	createRequest(t, repo, other)

	var events recorder
	w := NewArrivalWatcher(repo, flags, workshop, events.emit)
	tick(t, w)
	expectTypes(t, events.take())

	update(t, repo, 1, func(r *domain.ActiveRequest) error {
		r.Status = domain.StatusArrivedAtDest
		return nil
	})
	tick(t, w)
	got := events.take()
	expectTypes(t, got, EventWorkshopArrival)
	if got[0].RequestID != 1 {
		t.Errorf("expected request 1, got %d", got[0].RequestID)
	}

	tick(t, w)
	expectTypes(t, events.take())

	// A new connection does not repeat the alert.
	var again recorder
	tick(t, NewArrivalWatcher(repo, flags, workshop, again.emit))
	expectTypes(t, again.take())
}

type fakeArchiver struct {
	repo  *jsonkv.RequestRepository
	calls int
}

func (a *fakeArchiver) ArchivePaid(ctx context.Context, id int64) (bool, error) {
	a.calls++
	if _, err := a.repo.Archive(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

func TestPaymentWatcher_ArchivesWhenPaid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, repo := newRequests(t)
	req := flatbedRequest(1)
	_ = assign(req)
	req.Status = domain.StatusArrivedAtDest
	createRequest(t, repo, req)

	archiver := &fakeArchiver{repo: repo}
	var events recorder
	w := NewPaymentWatcher(repo, archiver, 1, events.emit)

	tick(t, w)
	expectTypes(t, events.take())

	update(t, repo, 1, func(r *domain.ActiveRequest) error {
		r.IsPaid = true
		return nil
	})
	tick(t, w)
	got := events.take()
	expectTypes(t, got, EventArchived, EventNavigate)
	if got[1].View != domain.ViewDashboardDriver {
		t.Errorf("expected %s, got %s", domain.ViewDashboardDriver, got[1].View)
	}
	if !w.Done() || archiver.calls != 1 {
		t.Errorf("expected one archive call, done=%v calls=%d", w.Done(), archiver.calls)
	}
	if _, err := repo.GetHistory(ctx, 1); err != nil {
		t.Errorf("expected request in history: %v", err)
	}

	tick(t, w)
	expectTypes(t, events.take())
}

func TestPaymentWatcher_Cancelled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, repo := newRequests(t)
	createRequest(t, repo, flatbedRequest(1))

	var events recorder
	w := NewPaymentWatcher(repo, &fakeArchiver{repo: repo}, 1, events.emit)
	if _, err := repo.Remove(ctx, 1, nil); err != nil {
		t.Fatalf("remove: %v", err)
	}
	tick(t, w)
	expectTypes(t, events.take(), EventCancelled, EventNavigate)
}

// ──────────────────────────────────────────────
// LOOP
// ──────────────────────────────────────────────

type countingWatcher struct {
	ticks chan struct{}
	err   error
}

func (c *countingWatcher) Tick(ctx context.Context) error {
	c.ticks <- struct{}{}
	return c.err
}

func TestLoop_TicksOnChangeAndStops(t *testing.T) {
	t.Parallel()

	w := &countingWatcher{ticks: make(chan struct{}, 8), err: errors.New("ignored")}
	changes := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Loop(ctx, time.Hour, w, changes, logging.Discard())
		close(done)
	}()

	waitTick := func() {
		t.Helper()
		select {
		case <-w.ticks:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for tick")
		}
	}

	waitTick()
	changes <- store.KeyActiveRequests
	waitTick()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
