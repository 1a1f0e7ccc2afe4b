package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"carva/internal/domain"
	"carva/internal/repository"
	"carva/internal/service"
	"carva/internal/syncer"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer = 64
)

// Watch kinds accepted by the sync endpoint.
const (
	WatchRequest     = "request"
	WatchNegotiation = "negotiation"
	WatchFeed        = "feed"
	WatchInbox       = "inbox"
	WatchArrival     = "arrival"
	WatchPayment     = "payment"
)

var errUnknownWatch = errors.New("unknown watch kind")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChangeFeed streams the keys written to the store.
type ChangeFeed interface {
	Subscribe(ctx context.Context) (<-chan string, error)
}

// SyncIntervals holds the poll period of each watcher kind.
type SyncIntervals struct {
	Request time.Duration
	Feed    time.Duration
	Inbox   time.Duration
	Arrival time.Duration
	Payment time.Duration
}

// DefaultSyncIntervals returns the standard poll periods.
func DefaultSyncIntervals() SyncIntervals {
	return SyncIntervals{
		Request: syncer.RequestInterval,
		Feed:    syncer.FeedInterval,
		Inbox:   syncer.InboxInterval,
		Arrival: syncer.ArrivalInterval,
		Payment: syncer.PaymentInterval,
	}
}

// viewMessage is sent by clients when the screen they show changes.
type viewMessage struct {
	View domain.View `json:"view"`
}

// SyncHandler streams watcher events to clients over a websocket.
type SyncHandler struct {
	requests        repository.RequestRepository
	flags           repository.FlagRepository
	requestService  *service.RequestService
	driverService   *service.DriverService
	workshopService *service.WorkshopService
	changes         ChangeFeed
	intervals       SyncIntervals
	logger          *slog.Logger
}

// NewSyncHandler creates a new SyncHandler. changes may be nil, in which
// case watchers only poll.
func NewSyncHandler(
	requests repository.RequestRepository,
	flags repository.FlagRepository,
	requestService *service.RequestService,
	driverService *service.DriverService,
	workshopService *service.WorkshopService,
	changes ChangeFeed,
	intervals SyncIntervals,
	logger *slog.Logger,
) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{
		requests:        requests,
		flags:           flags,
		requestService:  requestService,
		driverService:   driverService,
		workshopService: workshopService,
		changes:         changes,
		intervals:       intervals,
		logger:          logger,
	}
}

// session is one watcher bound to one connection.
type session struct {
	watcher  syncer.Watcher
	interval time.Duration
	// request is set for watchers that follow the client's current screen.
	request *syncer.RequestWatcher
	payment *syncer.PaymentWatcher
}

// Serve handles GET /v1/sync?watch=<kind>&request_id=<id>&view=<view>
func (h *SyncHandler) Serve(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	var requestID int64
	if raw := c.Query("request_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: errInvalidRequestID.Error()})
			return
		}
		requestID = id
	}

	send := make(chan syncer.Event, sendBuffer)
	emit := func(ev syncer.Event) {
		select {
		case send <- ev:
		default:
			h.logger.Warn("sync event dropped", "username", who.Username, "type", ev.Type)
		}
	}

	s, err := h.newSession(c.Request.Context(), who, c.DefaultQuery("watch", WatchRequest), requestID, domain.View(c.Query("view")), emit)
	if err != nil {
		if errors.Is(err, errUnknownWatch) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes <-chan string
	if h.changes != nil {
		changes, err = h.changes.Subscribe(ctx)
		if err != nil {
			h.logger.Warn("change feed unavailable, polling only", "error", err)
			changes = nil
		}
	}

	h.logger.Info("sync session opened", "username", who.Username, "watch", c.DefaultQuery("watch", WatchRequest), "request_id", requestID)

	watcher := s.watcher
	if s.payment != nil {
		watcher = &untilDone{payment: s.payment, stop: cancel}
	}
	go syncer.Loop(ctx, s.interval, watcher, changes, h.logger)
	go h.writePump(ctx, conn, send)
	h.readPump(conn, s)

	cancel()
	h.logger.Info("sync session closed", "username", who.Username)
}

func (h *SyncHandler) newSession(ctx context.Context, who service.Actor, watch string, requestID int64, view domain.View, emit syncer.Emit) (*session, error) {
	participant := syncer.Participant{Username: who.Username, Role: who.Role}
	if who.Role == domain.RoleWorkshop {
		ws, err := h.requestService.WorkshopOf(ctx, who)
		if err != nil {
			return nil, err
		}
		participant.Workshop = ws
	}

	switch watch {
	case WatchRequest:
		w := syncer.NewRequestWatcher(h.requests, participant, requestID, view, emit)
		return &session{watcher: w, request: w, interval: h.intervals.Request}, nil
	case WatchNegotiation:
		w := syncer.NewNegotiationWatcher(h.requests, participant, requestID, view, emit)
		return &session{watcher: w, request: w, interval: h.intervals.Request}, nil
	case WatchFeed:
		if who.Role != domain.RoleDriver {
			return nil, service.ErrForbidden
		}
		return &session{watcher: syncer.NewPendingFeed(h.driverService, who, emit), interval: h.intervals.Feed}, nil
	case WatchInbox:
		if who.Role != domain.RoleWorkshop {
			return nil, service.ErrForbidden
		}
		return &session{watcher: syncer.NewWorkshopInbox(h.workshopService, who, emit), interval: h.intervals.Inbox}, nil
	case WatchArrival:
		if participant.Workshop == nil {
			return nil, service.ErrForbidden
		}
		return &session{watcher: syncer.NewArrivalWatcher(h.requests, h.flags, participant.Workshop, emit), interval: h.intervals.Arrival}, nil
	case WatchPayment:
		if who.Role != domain.RoleDriver {
			return nil, service.ErrForbidden
		}
		if requestID == 0 {
			return nil, errInvalidRequestID
		}
		w := syncer.NewPaymentWatcher(h.requests, h.requestService, requestID, emit)
		return &session{watcher: w, payment: w, interval: h.intervals.Payment}, nil
	}
	return nil, errUnknownWatch
}

// readPump applies view changes sent by the client until the connection
// closes.
func (h *SyncHandler) readPump(conn *websocket.Conn, s *session) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var msg viewMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("ignoring malformed client message", "error", err)
			continue
		}
		if s.request != nil && msg.View != "" {
			s.request.SetView(msg.View)
		}
	}
}

// writePump forwards events to the connection and keeps it alive with
// pings. Events queued when ctx ends are flushed before the close frame.
func (h *SyncHandler) writePump(ctx context.Context, conn *websocket.Conn, send <-chan syncer.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			for {
				select {
				case ev := <-send:
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteJSON(ev); err != nil {
						return
					}
				default:
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// untilDone ends the session once the payment watcher has settled.
type untilDone struct {
	payment *syncer.PaymentWatcher
	stop    context.CancelFunc
}

func (u *untilDone) Tick(ctx context.Context) error {
	err := u.payment.Tick(ctx)
	if u.payment.Done() {
		u.stop()
	}
	return err
}
