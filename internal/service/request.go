package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"carva/internal/domain"
	"carva/internal/geo"
	"carva/internal/redis"
	"carva/internal/repository"
)

const (
	defaultTripRatePerKm   = 15.0
	defaultWorkshopTimeout = 300 * time.Second
	nearbyDriverRadiusKm   = 10.0
	customDestinationName  = "Custom Location"
	messageTimeLayout      = "15:04"
	maxCreateAttempts      = 5
)

// Actor identifies the account performing an operation.
type Actor struct {
	Username string
	Role     domain.Role
}

// LifecycleSettings holds the tariff and timeout used by the lifecycle engine.
type LifecycleSettings struct {
	TripRatePerKm   float64
	WorkshopTimeout time.Duration
}

// RequestService owns the request status state machine.
type RequestService struct {
	requests   repository.RequestRepository
	rejections repository.RejectionRepository
	accounts   repository.AccountRepository
	workshops  repository.WorkshopRepository
	locations  redis.LocationStoreInterface
	locks      redis.LockStoreInterface
	notifier   *NotificationService
	settings   LifecycleSettings
	logger     *slog.Logger

	now   func() time.Time
	msgMu sync.Mutex
}

// NewRequestService creates a new RequestService. locations and locks may be
// nil when Redis is not configured; driver positions then come from the
// account profile and accepts rely on the atomic store update alone.
func NewRequestService(
	requests repository.RequestRepository,
	rejections repository.RejectionRepository,
	accounts repository.AccountRepository,
	workshops repository.WorkshopRepository,
	locations redis.LocationStoreInterface,
	locks redis.LockStoreInterface,
	notifier *NotificationService,
	settings LifecycleSettings,
	logger *slog.Logger,
) *RequestService {
	if settings.TripRatePerKm <= 0 {
		settings.TripRatePerKm = defaultTripRatePerKm
	}
	if settings.WorkshopTimeout <= 0 {
		settings.WorkshopTimeout = defaultWorkshopTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestService{
		requests:   requests,
		rejections: rejections,
		accounts:   accounts,
		workshops:  workshops,
		locations:  locations,
		locks:      locks,
		notifier:   notifier,
		settings:   settings,
		logger:     logger,
		now:        time.Now,
	}
}

// RequestDetails contains the owner-editable fields of a request.
type RequestDetails struct {
	Car                 string
	Year                int
	UserLat             float64
	UserLng             float64
	WorkshopID          int64
	DestLat             *float64
	DestLng             *float64
	DestName            string
	ProblemDescription  string
	IncidentTime        string
	IsAccident          bool
	AccidentReportImage string
	CarImage            string
	CanDrive            bool
}

// RequestList groups a user's requests by collection.
type RequestList struct {
	Active  []*domain.ActiveRequest
	History []*domain.ActiveRequest
}

type destination struct {
	workshop *domain.Workshop
	lat      float64
	lng      float64
	name     string
}

// Submit creates the owner's request, or updates it in place when one is
// still being arranged. The initial status is waiting_workshop when a
// workshop was chosen, pending otherwise.
func (s *RequestService) Submit(ctx context.Context, actor Actor, d RequestDetails) (*domain.ActiveRequest, error) {
	if actor.Role != domain.RoleOwner {
		return nil, ErrForbidden
	}
	if err := validateDetails(d); err != nil {
		return nil, err
	}

	dest, err := s.resolveDestination(ctx, d)
	if err != nil {
		return nil, err
	}

	owner, err := s.accounts.GetByUsername(ctx, actor.Username)
	if err == repository.ErrNotFound {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	existing, err := s.requests.FindActiveByOwner(ctx, actor.Username)
	switch {
	case err == nil:
		if settled(existing) {
			if err := s.retire(ctx, existing); err != nil {
				return nil, err
			}
			break
		}
		if !existing.Status.Editable() {
			return nil, ErrActiveRequestExists
		}
		return s.updateDetails(ctx, actor, existing.ID, d, dest)
	case err != repository.ErrNotFound:
		return nil, err
	}

	now := s.now()
	req := &domain.ActiveRequest{
		ID:        now.UnixMilli(),
		Username:  owner.Username,
		Name:      owner.Name,
		Timestamp: now.UnixMilli(),
		Status:    domain.StatusPending,
	}
	if dest.workshop != nil {
		req.Status = domain.StatusWaitingWorkshop
	}
	applyDetails(req, d, dest)
	req.Normalize()

	for attempt := 1; ; attempt++ {
		err = s.requests.Create(ctx, req)
		if err != repository.ErrDuplicateID || attempt == maxCreateAttempts {
			break
		}
		req.ID++
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("request submitted",
		"request_id", req.ID, "owner", req.Username, "status", req.Status, "destination", req.DestName)

	s.announce(ctx, req, dest.workshop)
	return req, nil
}

// UpdateDetails lets the owner edit a request that has no driver yet.
func (s *RequestService) UpdateDetails(ctx context.Context, actor Actor, id int64, d RequestDetails) (*domain.ActiveRequest, error) {
	if actor.Role != domain.RoleOwner {
		return nil, ErrForbidden
	}
	if err := validateDetails(d); err != nil {
		return nil, err
	}

	dest, err := s.resolveDestination(ctx, d)
	if err != nil {
		return nil, err
	}

	return s.updateDetails(ctx, actor, id, d, dest)
}

func (s *RequestService) updateDetails(ctx context.Context, actor Actor, id int64, d RequestDetails, dest destination) (*domain.ActiveRequest, error) {
	var before domain.RequestStatus
	updated, err := s.requests.Update(ctx, id, func(req *domain.ActiveRequest) error {
		before = req.Status
		if req.Username != actor.Username {
			return ErrForbidden
		}
		if req.Status.IsTerminal() {
			return ErrRequestClosed
		}
		if !req.Status.Editable() {
			return ErrInvalidTransition
		}

		switch {
		case dest.workshop == nil:
			if req.Status != domain.StatusPending {
				if err := advance(req, domain.StatusPending); err != nil {
					return err
				}
			}
		case req.WorkshopID != dest.workshop.ID:
			if req.Status != domain.StatusWaitingWorkshop {
				return ErrInvalidTransition
			}
			// A new workshop gets a full response window.
			req.Timestamp = s.now().UnixMilli()
		}

		applyDetails(req, d, dest)
		return nil
	})
	if err != nil {
		return nil, s.mapMissing(ctx, id, err)
	}

	s.logger.Info("request details updated",
		"request_id", id, "owner", actor.Username, "from", before, "status", updated.Status)

	if before != updated.Status {
		s.announce(ctx, updated, nil)
	}
	return updated, nil
}

// OpenNegotiation moves a waiting request into negotiation with its
// destination workshop.
func (s *RequestService) OpenNegotiation(ctx context.Context, actor Actor, id int64) (*domain.ActiveRequest, error) {
	ws, err := s.workshopFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	updated, err := s.requests.Update(ctx, id, func(req *domain.ActiveRequest) error {
		if !req.IsDestination(ws) {
			return ErrForbidden
		}
		return advance(req, domain.StatusNegotiation)
	})
	if err != nil {
		return nil, s.mapMissing(ctx, id, err)
	}

	s.logger.Info("negotiation opened", "request_id", id, "workshop_id", ws.ID)
	s.notifier.Notify(ctx, updated.Username, TitleNegotiation,
		fmt.Sprintf("%s is reviewing your request.", ws.NameEn))
	return updated, nil
}

// UpdateBill replaces the bill items and labor cost and recomputes the total.
func (s *RequestService) UpdateBill(ctx context.Context, actor Actor, id int64, items []domain.BillItem, labor float64) (*domain.ActiveRequest, error) {
	ws, err := s.workshopFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if labor < 0 {
		return nil, ErrInvalidBillItem
	}

	base := s.now().UnixMilli()
	bill := make([]domain.BillItem, 0, len(items))
	for i, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" || item.Price < 0 || item.Quantity < 1 {
			return nil, ErrInvalidBillItem
		}
		if item.ID == 0 {
			item.ID = base + int64(i)
		}
		bill = append(bill, item)
	}

	updated, err := s.requests.Update(ctx, id, func(req *domain.ActiveRequest) error {
		if err := checkBillEditable(req, ws); err != nil {
			return err
		}
		req.BillItems = bill
		req.LaborCost = labor
		req.BillTotal = domain.BillTotal(req.BillItems, req.LaborCost)
		return nil
	})
	if err != nil {
		return nil, s.mapMissing(ctx, id, err)
	}

	s.logger.Info("bill updated", "request_id", id, "items", len(bill), "total", updated.BillTotal)
	return updated, nil
}

// FinalizeBill locks the bill. The lock is permanent.
func (s *RequestService) FinalizeBill(ctx context.Context, actor Actor, id int64) (*domain.ActiveRequest, error) {
	ws, err := s.workshopFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	updated, err := s.requests.Update(ctx, id, func(req *domain.ActiveRequest) error {
		if err := checkBillEditable(req, ws); err != nil {
			return err
		}
		req.BillTotal = domain.BillTotal(req.BillItems, req.LaborCost)
		req.IsBillFinalized = true
		return nil
	})
	if err != nil {
		return nil, s.mapMissing(ctx, id, err)
	}

	s.logger.Info("bill finalized", "request_id", id, "total", updated.BillTotal)
	s.notifier.Notify(ctx, updated.Username, TitleBillReady,
		fmt.Sprintf("%s sent a bill of %s.", ws.NameEn, formatAmount(updated.BillTotal)))
	return updated, nil
}

// AgreeToBill records the owner's agreement to a finalized bill. Owners who
// can drive are done; everyone else moves on to the flatbed search.
func (s *RequestService) AgreeToBill(ctx context.Context, actor Actor, id int64) (*domain.ActiveRequest, error) {
	if actor.Role != domain.RoleOwner {
		return nil, ErrForbidden
	}

	updated, err := s.requests.Update(ctx, id, func(req *domain.ActiveRequest) error {
		if req.Username != actor.Username {
			return ErrForbidden
		}
		if req.Status.IsTerminal() {
			return ErrRequestClosed
		}
		if req.Status != domain.StatusNegotiation {
			return ErrInvalidTransition
		}
		if !req.IsBillFinalized {
			return ErrBillNotFinalized
		}

		next := domain.StatusPending
		if req.CanDrive {
			next = domain.StatusCompleted
		}
		if err := advance(req, next); err != nil {
			return err
		}

		text := fmt.Sprintf("%s agreed with %s on %s", req.Name, req.DestName, formatAmount(req.BillTotal))
		req.AppendMessage(domain.ChannelNegotiation, s.nextMessage(req, domain.SenderSystem, text, ""))
		req.BillAgreed = true
		return nil
	})
	if err != nil {
		return nil, s.mapMissing(ctx, id, err)
	}

	s.logger.Info("bill agreed", "request_id", id, "total", updated.BillTotal, "status", updated.Status)

	if owner := s.workshopOwner(ctx, updated); owner != "" {
		s.notifier.Notify(ctx, owner, TitleBillAgreed,
			fmt.Sprintf("%s agreed to the bill of %s.", updated.Name, formatAmount(updated.BillTotal)))
	}

	if updated.Status == domain.StatusCompleted {
		if _, err := s.requests.Archive(ctx, id); err != nil {
			return nil, err
		}
		s.logger.Info("request archived", "request_id", id)
	} else {
		s.announce(ctx, updated, nil)
	}
	return updated, nil
}

// Cancel removes a request from the active collection. Cancelled requests
// are not archived.
func (s *RequestService) Cancel(ctx context.Context, actor Actor, id int64) (*domain.ActiveRequest, error) {
	ws, err := s.actorWorkshop(ctx, actor)
	if err != nil {
		return nil, err
	}

	removed, err := s.requests.Remove(ctx, id, func(req *domain.ActiveRequest) error {
		if req.Status.IsTerminal() {
			return ErrRequestClosed
		}
		if !participates(actor, req, ws) {
			return ErrForbidden
		}
		return nil
	})
	if err != nil {
		return nil, s.mapMissing(ctx, id, err)
	}
	removed.Status = domain.StatusCancelled

	s.logger.Info("request cancelled", "request_id", id, "by", actor.Username, "role", actor.Role)
	s.notifier.NotifyCancelled(ctx, removed, actor.Username, s.workshopOwner(ctx, removed),
		fmt.Sprintf("Cancelled by the %s.", actor.Role))
	return removed, nil
}

// ExpireWaiting cancels every request that waited for its workshop longer
// than the workshop timeout.
func (s *RequestService) ExpireWaiting(ctx context.Context) ([]*domain.ActiveRequest, error) {
	active, err := s.requests.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-s.settings.WorkshopTimeout).UnixMilli()
	expired := func(req *domain.ActiveRequest) bool {
		return req.Status == domain.StatusWaitingWorkshop && req.Timestamp <= cutoff
	}

	var out []*domain.ActiveRequest
	for _, req := range active {
		if !expired(req) {
			continue
		}

		removed, err := s.requests.Remove(ctx, req.ID, func(cur *domain.ActiveRequest) error {
			if !expired(cur) {
				return ErrInvalidTransition
			}
			return nil
		})
		if err == ErrInvalidTransition || err == repository.ErrNotFound {
			continue
		}
		if err != nil {
			return out, err
		}

		removed.Status = domain.StatusCancelled
		out = append(out, removed)

		s.logger.Info("workshop response timed out", "request_id", removed.ID, "destination", removed.DestName)
		s.notifier.Notify(ctx, removed.Username, TitleRequestCancelled, "Workshop did not respond in time.")
	}
	return out, nil
}

// SendMessage appends a chat message to the selected thread.
func (s *RequestService) SendMessage(ctx context.Context, actor Actor, id int64, ch domain.Channel, text, image string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == "" {
		return nil, ErrEmptyMessage
	}

	ws, err := s.actorWorkshop(ctx, actor)
	if err != nil {
		return nil, err
	}

	var msg domain.ChatMessage
	_, err = s.requests.Update(ctx, id, func(req *domain.ActiveRequest) error {
		if req.Status.IsTerminal() {
			return ErrRequestClosed
		}
		if !canChat(actor, req, ws, ch) {
			return ErrForbidden
		}
		msg = s.nextMessage(req, actor.Role.Sender(), text, image)
		req.AppendMessage(ch, msg)
		return nil
	})
	if err != nil {
		return nil, s.mapMissing(ctx, id, err)
	}

	s.logger.Debug("message sent", "request_id", id, "channel", ch, "sender", msg.Sender)
	return &msg, nil
}

// Get returns a request from the active or history collection. Drivers may
// also view any pending request they could accept.
func (s *RequestService) Get(ctx context.Context, actor Actor, id int64) (*domain.ActiveRequest, error) {
	ws, err := s.actorWorkshop(ctx, actor)
	if err != nil {
		return nil, err
	}

	req, err := s.requests.GetActive(ctx, id)
	if err == repository.ErrNotFound {
		req, err = s.requests.GetHistory(ctx, id)
	}
	if err == repository.ErrNotFound {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}

	if participates(actor, req, ws) {
		return req, nil
	}
	if actor.Role == domain.RoleDriver && req.Status == domain.StatusPending && !req.HasDriver() {
		return req, nil
	}
	return nil, ErrForbidden
}

// ListForUser returns the actor's current and archived requests.
func (s *RequestService) ListForUser(ctx context.Context, actor Actor) (*RequestList, error) {
	ws, err := s.actorWorkshop(ctx, actor)
	if err != nil {
		return nil, err
	}

	active, err := s.requests.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.requests.ListHistory(ctx)
	if err != nil {
		return nil, err
	}

	list := &RequestList{
		Active:  []*domain.ActiveRequest{},
		History: []*domain.ActiveRequest{},
	}
	for _, req := range active {
		if participates(actor, req, ws) {
			list.Active = append(list.Active, req)
		}
	}
	for _, req := range history {
		if participates(actor, req, ws) {
			list.History = append(list.History, req)
		}
	}
	return list, nil
}

// ArchivePaid moves a paid request to history if it is still active and
// reports whether this call moved it.
func (s *RequestService) ArchivePaid(ctx context.Context, id int64) (bool, error) {
	req, err := s.requests.GetActive(ctx, id)
	if err == repository.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !req.IsPaid {
		return false, nil
	}

	if _, err := s.requests.Archive(ctx, id); err != nil {
		return false, err
	}
	s.logger.Info("request archived", "request_id", id)
	return true, nil
}

// WorkshopOf returns the workshop registered by a workshop account.
func (s *RequestService) WorkshopOf(ctx context.Context, actor Actor) (*domain.Workshop, error) {
	return s.workshopFor(ctx, actor)
}

// announce tells the parties that can act on a fresh request about it.
func (s *RequestService) announce(ctx context.Context, req *domain.ActiveRequest, ws *domain.Workshop) {
	if ws != nil && ws.OwnerUsername != "" {
		s.notifier.Notify(ctx, ws.OwnerUsername, TitleNewRequest,
			fmt.Sprintf("%s sent a %s request.", req.Name, req.Car))
	}

	if req.Status != domain.StatusPending || req.CanDrive || s.locations == nil {
		return
	}

	nearby, err := s.locations.FindNearbyDrivers(ctx, req.UserLat, req.UserLng, nearbyDriverRadiusKm)
	if err != nil {
		s.logger.Warn("nearby driver lookup failed", "request_id", req.ID, "error", err)
		return
	}
	for _, d := range nearby {
		dist := geo.Distance(d.Lat, d.Lng, req.UserLat, req.UserLng)
		s.notifier.Notify(ctx, d.Username, TitleNewRequest,
			fmt.Sprintf("Towing request %s km away.", formatAmount(dist)))
	}
}

func (s *RequestService) resolveDestination(ctx context.Context, d RequestDetails) (destination, error) {
	if d.WorkshopID != 0 {
		ws, err := s.workshops.GetByID(ctx, d.WorkshopID)
		if err == repository.ErrNotFound {
			return destination{}, ErrWorkshopNotFound
		}
		if err != nil {
			return destination{}, err
		}
		lat, lng := ws.Coordinates()
		return destination{workshop: ws, lat: lat, lng: lng, name: ws.NameEn}, nil
	}

	dest := destination{lat: domain.DefaultDestLat, lng: domain.DefaultDestLng, name: customDestinationName}
	if d.DestLat != nil && d.DestLng != nil {
		dest.lat, dest.lng = *d.DestLat, *d.DestLng
	}
	if name := strings.TrimSpace(d.DestName); name != "" {
		dest.name = name
	}
	return dest, nil
}

// workshopFor returns the workshop a workshop account answers for.
func (s *RequestService) workshopFor(ctx context.Context, actor Actor) (*domain.Workshop, error) {
	if actor.Role != domain.RoleWorkshop {
		return nil, ErrForbidden
	}
	ws, err := s.workshops.GetByOwner(ctx, actor.Username)
	if err == repository.ErrNotFound {
		return nil, ErrForbidden
	}
	return ws, err
}

func (s *RequestService) actorWorkshop(ctx context.Context, actor Actor) (*domain.Workshop, error) {
	if actor.Role != domain.RoleWorkshop {
		return nil, nil
	}
	return s.workshopFor(ctx, actor)
}

// workshopOwner returns the account behind a request's destination, if any.
func (s *RequestService) workshopOwner(ctx context.Context, req *domain.ActiveRequest) string {
	workshops, err := s.workshops.List(ctx)
	if err != nil {
		s.logger.Warn("workshop lookup failed", "request_id", req.ID, "error", err)
		return ""
	}
	for _, ws := range workshops {
		if req.IsDestination(ws) {
			return ws.OwnerUsername
		}
	}
	return ""
}

// mapMissing turns a repository miss into ErrRequestClosed when the request
// was archived and ErrRequestNotFound otherwise.
func (s *RequestService) mapMissing(ctx context.Context, id int64, err error) error {
	if err != repository.ErrNotFound {
		return err
	}
	if _, herr := s.requests.GetHistory(ctx, id); herr == nil {
		return ErrRequestClosed
	}
	return ErrRequestNotFound
}

// nextMessage builds a message whose id is greater than every id already
// in either thread of req.
func (s *RequestService) nextMessage(req *domain.ActiveRequest, sender domain.Sender, text, image string) domain.ChatMessage {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()

	now := s.now()
	id := now.UnixMilli()
	for _, ch := range []domain.Channel{domain.ChannelTrip, domain.ChannelNegotiation} {
		for _, m := range req.Messages(ch) {
			if m.ID >= id {
				id = m.ID + 1
			}
		}
	}

	return domain.ChatMessage{
		ID:     id,
		Sender: sender,
		Text:   text,
		Time:   now.Format(messageTimeLayout),
		Image:  image,
	}
}

func validateDetails(d RequestDetails) error {
	if strings.TrimSpace(d.Car) == "" {
		return ErrMissingFields
	}
	if !geo.ValidLatitude(d.UserLat) || !geo.ValidLongitude(d.UserLng) {
		return ErrInvalidLocation
	}
	if (d.DestLat == nil) != (d.DestLng == nil) {
		return ErrInvalidLocation
	}
	if d.DestLat != nil && (!geo.ValidLatitude(*d.DestLat) || !geo.ValidLongitude(*d.DestLng)) {
		return ErrInvalidLocation
	}
	return nil
}

func applyDetails(req *domain.ActiveRequest, d RequestDetails, dest destination) {
	req.Car = strings.TrimSpace(d.Car)
	req.Year = d.Year
	req.UserLat = d.UserLat
	req.UserLng = d.UserLng
	req.DestLat = dest.lat
	req.DestLng = dest.lng
	req.DestName = dest.name
	req.WorkshopID = 0
	if dest.workshop != nil {
		req.WorkshopID = dest.workshop.ID
	}
	req.ProblemDescription = d.ProblemDescription
	req.IncidentTime = d.IncidentTime
	req.IsAccident = d.IsAccident
	req.AccidentReportImage = d.AccidentReportImage
	req.CarImage = d.CarImage
	req.CanDrive = d.CanDrive
}

// settled reports whether a closed request has nothing left to collect and
// only lingers because moving it out of the active collection failed.
func settled(req *domain.ActiveRequest) bool {
	switch req.Status {
	case domain.StatusCancelled:
		return true
	case domain.StatusCompleted:
		return req.IsPaid || !req.HasDriver()
	}
	return false
}

// retire finishes moving a settled request out of the active collection.
func (s *RequestService) retire(ctx context.Context, req *domain.ActiveRequest) error {
	var err error
	if req.Status == domain.StatusCompleted {
		_, err = s.requests.Archive(ctx, req.ID)
	} else {
		_, err = s.requests.Remove(ctx, req.ID, nil)
	}
	if err != nil && err != repository.ErrNotFound {
		return fmt.Errorf("retire request %d: %w", req.ID, err)
	}
	s.logger.Info("retired settled request", "request_id", req.ID, "status", req.Status)
	return nil
}

// advance moves req to next if the transition table allows it.
func advance(req *domain.ActiveRequest, next domain.RequestStatus) error {
	if req.Status.IsTerminal() {
		return ErrRequestClosed
	}
	if !req.Status.CanTransition(next) {
		return ErrInvalidTransition
	}
	req.Status = next
	return nil
}

func checkBillEditable(req *domain.ActiveRequest, ws *domain.Workshop) error {
	if !req.IsDestination(ws) {
		return ErrForbidden
	}
	if req.Status.IsTerminal() {
		return ErrRequestClosed
	}
	if req.Status != domain.StatusNegotiation {
		return ErrInvalidTransition
	}
	if req.IsBillFinalized {
		return ErrBillFinalized
	}
	return nil
}

// participates reports whether actor is the owner, the assigned driver or
// the destination workshop of req.
func participates(actor Actor, req *domain.ActiveRequest, ws *domain.Workshop) bool {
	switch actor.Role {
	case domain.RoleOwner:
		return req.Username == actor.Username
	case domain.RoleDriver:
		return req.DriverUsername != "" && req.DriverUsername == actor.Username
	case domain.RoleWorkshop:
		return req.IsDestination(ws)
	}
	return false
}

func canChat(actor Actor, req *domain.ActiveRequest, ws *domain.Workshop, ch domain.Channel) bool {
	if actor.Role == domain.RoleOwner {
		return req.Username == actor.Username
	}
	if ch == domain.ChannelNegotiation {
		return actor.Role == domain.RoleWorkshop && req.IsDestination(ws)
	}
	return actor.Role == domain.RoleDriver && participates(actor, req, ws)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
