// Package syncer turns the shared request store into per-screen event
// streams. Each watcher re-reads the store on a fixed interval, diffs what it
// sees against the last snapshot and reports the differences as events.
package syncer

import (
	"context"

	"carva/internal/domain"
)

// EventType identifies what a watcher observed.
type EventType string

const (
	EventStatusChanged       EventType = "status_changed"
	EventConfirmationChanged EventType = "confirmation_changed"
	EventMessageReceived     EventType = "message_received"
	EventNavigate            EventType = "navigate"
	EventCancelled           EventType = "cancelled"
	EventArchived            EventType = "archived"
	EventWorkshopArrival     EventType = "workshop_arrival"
	EventFeedUpdated         EventType = "feed_updated"
	EventInboxUpdated        EventType = "inbox_updated"
)

// Event is a single observation pushed to a client.
type Event struct {
	Type      EventType               `json:"type"`
	RequestID int64                   `json:"requestId,omitempty"`
	Status    domain.RequestStatus    `json:"status,omitempty"`
	View      domain.View             `json:"view,omitempty"`
	Channel   domain.Channel          `json:"channel,omitempty"`
	Message   *domain.ChatMessage     `json:"message,omitempty"`
	Request   *domain.ActiveRequest   `json:"request,omitempty"`
	Feed      []FeedItem              `json:"feed,omitempty"`
	Inbox     []*domain.ActiveRequest `json:"inbox,omitempty"`
}

// FeedItem is one entry of a driver's pending feed.
type FeedItem struct {
	Request    *domain.ActiveRequest `json:"request"`
	DistClient float64               `json:"distClient"`
	DistDest   float64               `json:"distDest"`
}

// Emit receives the events a watcher produces. It is called synchronously
// from Tick and must not block for long.
type Emit func(Event)

// Watcher is a single polling synchronizer.
type Watcher interface {
	Tick(ctx context.Context) error
}
