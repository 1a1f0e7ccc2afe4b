package service

import (
	"context"
	"log/slog"
	"sort"

	"carva/internal/domain"
	"carva/internal/repository"
)

// DefaultWorkshops is the seed list stored on first start.
func DefaultWorkshops() []*domain.Workshop {
	return []*domain.Workshop{
		{ID: 1, NameEn: "Al Hilal Auto Center", NameAr: "مركز الهلال للسيارات", LocationEn: "Olaya, Riyadh", LocationAr: "العليا، الرياض", Rating: 4.8, Distance: 1.2},
		{ID: 2, NameEn: "Fast Fix Garage", NameAr: "ورشة الإصلاح السريع", LocationEn: "Al Malqa, Riyadh", LocationAr: "الملقا، الرياض", Rating: 4.5, Distance: 2.7},
		{ID: 3, NameEn: "Desert Motors Workshop", NameAr: "ورشة موتورز الصحراء", LocationEn: "Al Naseem, Riyadh", LocationAr: "النسيم، الرياض", Rating: 4.2, Distance: 3.9},
		{ID: 4, NameEn: "Precision Car Care", NameAr: "العناية الدقيقة بالسيارات", LocationEn: "Al Sulaimaniyah, Riyadh", LocationAr: "السليمانية، الرياض", Rating: 4.9, Distance: 5.4},
	}
}

// WorkshopService handles workshop listing and the workshop inbox.
type WorkshopService struct {
	workshops repository.WorkshopRepository
	requests  repository.RequestRepository
	logger    *slog.Logger
}

// NewWorkshopService creates a new WorkshopService.
func NewWorkshopService(workshops repository.WorkshopRepository, requests repository.RequestRepository, logger *slog.Logger) *WorkshopService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkshopService{workshops: workshops, requests: requests, logger: logger}
}

// Seed stores DefaultWorkshops when no workshop exists yet.
func (s *WorkshopService) Seed(ctx context.Context) error {
	seeded, err := s.workshops.Seed(ctx, DefaultWorkshops())
	if err != nil {
		return err
	}
	if seeded {
		s.logger.Info("workshops seeded", "count", len(DefaultWorkshops()))
	}
	return nil
}

// List returns every workshop.
func (s *WorkshopService) List(ctx context.Context) ([]*domain.Workshop, error) {
	return s.workshops.List(ctx)
}

// Inbox returns the active requests headed to the actor's workshop.
func (s *WorkshopService) Inbox(ctx context.Context, actor Actor) ([]*domain.ActiveRequest, error) {
	if actor.Role != domain.RoleWorkshop {
		return nil, ErrForbidden
	}
	ws, err := s.workshops.GetByOwner(ctx, actor.Username)
	if err == repository.ErrNotFound {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}

	active, err := s.requests.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return InboxFor(ws, active), nil
}

// InboxFor filters requests destined to ws, those still waiting for a
// response first, oldest first within each group.
func InboxFor(ws *domain.Workshop, active []*domain.ActiveRequest) []*domain.ActiveRequest {
	inbox := []*domain.ActiveRequest{}
	for _, req := range active {
		if req.IsDestination(ws) && !req.Status.IsTerminal() {
			inbox = append(inbox, req)
		}
	}
	sort.SliceStable(inbox, func(i, j int) bool {
		wi := inbox[i].Status == domain.StatusWaitingWorkshop
		wj := inbox[j].Status == domain.StatusWaitingWorkshop
		if wi != wj {
			return wi
		}
		return inbox[i].Timestamp < inbox[j].Timestamp
	})
	return inbox
}
