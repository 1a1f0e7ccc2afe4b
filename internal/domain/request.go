package domain

import (
	"errors"
	"fmt"
)

// RequestStatus represents where a towing/repair request is in its lifecycle.
type RequestStatus string

const (
	StatusWaitingWorkshop RequestStatus = "waiting_workshop"
	StatusNegotiation     RequestStatus = "negotiation"
	StatusPending         RequestStatus = "pending"
	StatusAccepted        RequestStatus = "accepted"
	StatusPickedUp        RequestStatus = "picked_up"
	StatusArrivedAtDest   RequestStatus = "arrived_at_dest"
	StatusCompleted       RequestStatus = "completed"
	StatusCancelled       RequestStatus = "cancelled"
)

// ErrInvalidStatus is returned when a string is not one of the known statuses.
var ErrInvalidStatus = errors.New("invalid request status")

var allStatuses = []RequestStatus{
	StatusWaitingWorkshop,
	StatusNegotiation,
	StatusPending,
	StatusAccepted,
	StatusPickedUp,
	StatusArrivedAtDest,
	StatusCompleted,
	StatusCancelled,
}

// transitions lists every allowed move. Cancellation is handled separately
// since it is permitted from any non-terminal status.
var transitions = map[RequestStatus][]RequestStatus{
	StatusWaitingWorkshop: {StatusNegotiation, StatusPending},
	StatusNegotiation:     {StatusPending, StatusCompleted},
	StatusPending:         {StatusAccepted},
	StatusAccepted:        {StatusPickedUp},
	StatusPickedUp:        {StatusArrivedAtDest},
	StatusArrivedAtDest:   {StatusCompleted},
}

// Statuses returns the closed set of request statuses.
func Statuses() []RequestStatus {
	out := make([]RequestStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a raw string to a RequestStatus.
func ParseStatus(s string) (RequestStatus, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsTerminal reports whether no further transitions are possible.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether a request may move from s to next.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Editable reports whether the owner may still change the request details.
func (s RequestStatus) Editable() bool {
	return s == StatusWaitingWorkshop || s == StatusPending || s == StatusNegotiation
}

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser     Sender = "user"
	SenderDriver   Sender = "driver"
	SenderWorkshop Sender = "workshop"
	SenderSystem   Sender = "system"
)

// ChatMessage is a single entry in one of a request's chat threads.
type ChatMessage struct {
	ID     int64  `json:"id"`
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
	Image  string `json:"image,omitempty"`
}

// Channel selects which chat thread of a request a message belongs to.
type Channel string

const (
	// ChannelTrip is the owner/driver thread.
	ChannelTrip Channel = "trip"
	// ChannelNegotiation is the owner/workshop thread.
	ChannelNegotiation Channel = "negotiation"
)

// BillItem is one line of a workshop bill.
type BillItem struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// BillTotal returns the sum of price times quantity plus labor.
func BillTotal(items []BillItem, labor float64) float64 {
	total := labor
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// ActiveRequest is the shared record all three roles read and write.
// JSON field names match the persisted collection layout.
type ActiveRequest struct {
	ID        int64         `json:"id"`
	Username  string        `json:"username"`
	Name      string        `json:"name"`
	Car       string        `json:"car"`
	Year      int           `json:"year"`
	UserLat   float64       `json:"userLat"`
	UserLng   float64       `json:"userLng"`
	DestLat   float64       `json:"destLat"`
	DestLng   float64       `json:"destLng"`
	DestName  string        `json:"destName"`
	Timestamp int64         `json:"timestamp"`
	Status    RequestStatus `json:"status"`

	// WorkshopID is the destination workshop, zero for a custom destination.
	WorkshopID int64 `json:"workshopId,omitempty"`

	DriverUsername string  `json:"driverUsername,omitempty"`
	DriverName     string  `json:"driverName,omitempty"`
	DriverPlate    string  `json:"driverPlate,omitempty"`
	Sat7aLat       float64 `json:"sat7aLat,omitempty"`
	Sat7aLng       float64 `json:"sat7aLng,omitempty"`
	UserConfirmed  bool    `json:"userConfirmed"`
	Sat7aConfirmed bool    `json:"sat7aConfirmed"`

	ChatMessages            []ChatMessage `json:"chatMessages"`
	NegotiationChatMessages []ChatMessage `json:"negotiationChatMessages"`

	ProblemDescription  string `json:"problemDescription,omitempty"`
	IncidentTime        string `json:"incidentTime,omitempty"`
	IsAccident          bool   `json:"isAccident"`
	AccidentReportImage string `json:"accidentReportImage,omitempty"`
	CarImage            string `json:"carImage,omitempty"`
	CanDrive            bool   `json:"canDrive"`

	BillItems       []BillItem `json:"billItems"`
	LaborCost       float64    `json:"laborCost"`
	BillTotal       float64    `json:"billTotal"`
	IsBillFinalized bool       `json:"isBillFinalized"`
	BillAgreed      bool       `json:"billAgreed"`

	TripCost int  `json:"tripCost,omitempty"`
	IsPaid   bool `json:"isPaid"`
}

// Messages returns the thread for the given channel.
func (r *ActiveRequest) Messages(ch Channel) []ChatMessage {
	if ch == ChannelNegotiation {
		return r.NegotiationChatMessages
	}
	return r.ChatMessages
}

// AppendMessage adds a message to the given thread.
func (r *ActiveRequest) AppendMessage(ch Channel, msg ChatMessage) {
	if ch == ChannelNegotiation {
		r.NegotiationChatMessages = append(r.NegotiationChatMessages, msg)
		return
	}
	r.ChatMessages = append(r.ChatMessages, msg)
}

// Clone returns a deep copy so callers can diff against later snapshots.
func (r *ActiveRequest) Clone() *ActiveRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.ChatMessages = append(make([]ChatMessage, 0, len(r.ChatMessages)), r.ChatMessages...)
	c.NegotiationChatMessages = append(make([]ChatMessage, 0, len(r.NegotiationChatMessages)), r.NegotiationChatMessages...)
	c.BillItems = append(make([]BillItem, 0, len(r.BillItems)), r.BillItems...)
	return &c
}

// HasDriver reports whether a driver has been assigned.
func (r *ActiveRequest) HasDriver() bool {
	return r.DriverUsername != "" || r.DriverName != ""
}

// IsDestination reports whether the given workshop is this request's destination.
// Requests created before workshop ids were stored are matched by name.
func (r *ActiveRequest) IsDestination(ws *Workshop) bool {
	if ws == nil {
		return false
	}
	if r.WorkshopID != 0 {
		return r.WorkshopID == ws.ID
	}
	return r.DestName != "" && (r.DestName == ws.NameEn || r.DestName == ws.NameAr)
}

// Normalize replaces nil slices with empty ones so the persisted layout
// always carries arrays.
func (r *ActiveRequest) Normalize() {
	if r.ChatMessages == nil {
		r.ChatMessages = []ChatMessage{}
	}
	if r.NegotiationChatMessages == nil {
		r.NegotiationChatMessages = []ChatMessage{}
	}
	if r.BillItems == nil {
		r.BillItems = []BillItem{}
	}
}
