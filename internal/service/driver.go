package service

import (
	"context"
	"log/slog"
	"sort"

	"carva/internal/domain"
	"carva/internal/geo"
	"carva/internal/redis"
	"carva/internal/repository"
)

// DriverService handles driver positions and the pending request feed.
type DriverService struct {
	locationStore redis.LocationStoreInterface
	accounts      repository.AccountRepository
	requests      repository.RequestRepository
	rejections    repository.RejectionRepository
	logger        *slog.Logger
}

// NewDriverService creates a new DriverService. locationStore may be nil, in
// which case positions are kept on the driver profile only.
func NewDriverService(
	locationStore redis.LocationStoreInterface,
	accounts repository.AccountRepository,
	requests repository.RequestRepository,
	rejections repository.RejectionRepository,
	logger *slog.Logger,
) *DriverService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DriverService{
		locationStore: locationStore,
		accounts:      accounts,
		requests:      requests,
		rejections:    rejections,
		logger:        logger,
	}
}

// PendingItem is a request in a driver's feed with its distances.
type PendingItem struct {
	Request    *domain.ActiveRequest
	DistClient float64
	DistDest   float64
}

// UpdateLocation records a driver's current position.
func (s *DriverService) UpdateLocation(ctx context.Context, actor Actor, lat, lng float64) error {
	if actor.Role != domain.RoleDriver {
		return ErrForbidden
	}
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		return ErrInvalidLocation
	}

	if s.locationStore != nil {
		if err := s.locationStore.UpdateLocation(ctx, actor.Username, lat, lng); err != nil {
			return err
		}
	}

	_, err := s.accounts.Update(ctx, actor.Username, func(acc *domain.Account) error {
		if acc.Driver == nil {
			acc.Driver = &domain.DriverProfile{}
		}
		acc.Driver.FlatbedLat = lat
		acc.Driver.FlatbedLng = lng
		return nil
	})
	if err == repository.ErrNotFound {
		return ErrAccountNotFound
	}
	return err
}

// GoOffline removes the driver from the live location index.
func (s *DriverService) GoOffline(ctx context.Context, actor Actor) error {
	if actor.Role != domain.RoleDriver {
		return ErrForbidden
	}
	if s.locationStore == nil {
		return nil
	}
	return s.locationStore.RemoveLocation(ctx, actor.Username)
}

// Position returns the driver's most recent position.
func (s *DriverService) Position(ctx context.Context, username string) (lat, lng float64, ok bool, err error) {
	if s.locationStore != nil {
		loc, found, err := s.locationStore.GetLocation(ctx, username)
		if err != nil {
			return 0, 0, false, err
		}
		if found {
			return loc.Lat, loc.Lng, true, nil
		}
	}

	acc, err := s.accounts.GetByUsername(ctx, username)
	if err == repository.ErrNotFound {
		return 0, 0, false, ErrAccountNotFound
	}
	if err != nil {
		return 0, 0, false, err
	}
	if acc.Driver == nil || (acc.Driver.FlatbedLat == 0 && acc.Driver.FlatbedLng == 0) {
		return 0, 0, false, nil
	}
	return acc.Driver.FlatbedLat, acc.Driver.FlatbedLng, true, nil
}

// PendingFeed lists the requests a driver can accept, nearest origin first.
func (s *DriverService) PendingFeed(ctx context.Context, actor Actor) ([]PendingItem, error) {
	if actor.Role != domain.RoleDriver {
		return nil, ErrForbidden
	}

	lat, lng, _, err := s.Position(ctx, actor.Username)
	if err != nil {
		return nil, err
	}
	active, err := s.requests.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	rejected, err := s.rejections.List(ctx, actor.Username)
	if err != nil {
		return nil, err
	}

	return RankPending(active, rejected, lat, lng), nil
}

// RankPending keeps pending flatbed requests the driver has not rejected and
// orders them by distance from (lat, lng) to the request origin.
func RankPending(active []*domain.ActiveRequest, rejected []int64, lat, lng float64) []PendingItem {
	skip := make(map[int64]struct{}, len(rejected))
	for _, id := range rejected {
		skip[id] = struct{}{}
	}

	items := []PendingItem{}
	for _, req := range active {
		if req.Status != domain.StatusPending || req.CanDrive || req.HasDriver() {
			continue
		}
		if _, ok := skip[req.ID]; ok {
			continue
		}
		items = append(items, PendingItem{
			Request:    req,
			DistClient: geo.Distance(lat, lng, req.UserLat, req.UserLng),
			DistDest:   geo.Distance(lat, lng, req.DestLat, req.DestLng),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DistClient < items[j].DistClient
	})
	return items
}
