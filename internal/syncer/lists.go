package syncer

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"carva/internal/domain"
	"carva/internal/service"
)

// FeedSource lists the requests a driver can accept.
type FeedSource interface {
	PendingFeed(ctx context.Context, actor service.Actor) ([]service.PendingItem, error)
}

// InboxSource lists the active requests headed to a workshop.
type InboxSource interface {
	Inbox(ctx context.Context, actor service.Actor) ([]*domain.ActiveRequest, error)
}

// PendingFeed republishes a driver's ranked feed whenever its contents or
// distances change.
type PendingFeed struct {
	source FeedSource
	actor  service.Actor
	emit   Emit

	mu      sync.Mutex
	last    string
	started bool
}

// NewPendingFeed creates a feed watcher for a driver.
func NewPendingFeed(source FeedSource, actor service.Actor, emit Emit) *PendingFeed {
	return &PendingFeed{source: source, actor: actor, emit: emit}
}

// Tick re-ranks the feed and emits it if it changed. The first tick always
// emits.
func (f *PendingFeed) Tick(ctx context.Context) error {
	items, err := f.source.PendingFeed(ctx, f.actor)
	if err != nil {
		return err
	}

	var sig strings.Builder
	feed := make([]FeedItem, 0, len(items))
	for _, item := range items {
		feed = append(feed, FeedItem{Request: item.Request, DistClient: item.DistClient, DistDest: item.DistDest})
		sig.WriteString(strconv.FormatInt(item.Request.ID, 10))
		sig.WriteByte(':')
		sig.WriteString(strconv.FormatFloat(item.DistClient, 'f', 2, 64))
		sig.WriteByte(';')
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started && sig.String() == f.last {
		return nil
	}
	f.started = true
	f.last = sig.String()
	f.emit(Event{Type: EventFeedUpdated, Feed: feed})
	return nil
}

// WorkshopInbox republishes a workshop's inbox whenever a request enters,
// leaves or changes status.
type WorkshopInbox struct {
	source InboxSource
	actor  service.Actor
	emit   Emit

	mu      sync.Mutex
	last    string
	started bool
}

// NewWorkshopInbox creates an inbox watcher for a workshop account.
func NewWorkshopInbox(source InboxSource, actor service.Actor, emit Emit) *WorkshopInbox {
	return &WorkshopInbox{source: source, actor: actor, emit: emit}
}

func (i *WorkshopInbox) Tick(ctx context.Context) error {
	inbox, err := i.source.Inbox(ctx, i.actor)
	if err != nil {
		return err
	}

	var sig strings.Builder
	for _, req := range inbox {
		sig.WriteString(strconv.FormatInt(req.ID, 10))
		sig.WriteByte(':')
		sig.WriteString(string(req.Status))
		sig.WriteByte(':')
		sig.WriteString(strconv.Itoa(len(req.NegotiationChatMessages)))
		sig.WriteByte(';')
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started && sig.String() == i.last {
		return nil
	}
	i.started = true
	i.last = sig.String()
	i.emit(Event{Type: EventInboxUpdated, Inbox: inbox})
	return nil
}
