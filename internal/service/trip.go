package service

import (
	"context"
	"fmt"
	"time"

	"carva/internal/domain"
	"carva/internal/geo"
	"carva/internal/repository"
)

const (
	acceptLockTTL      = 10 * time.Second
	unknownDriverPlate = "Unknown"
)

// Accept assigns the driver to a pending request and snapshots the
// driver's position.
func (s *RequestService) Accept(ctx context.Context, actor Actor, id int64) (*domain.ActiveRequest, error) {
	if actor.Role != domain.RoleDriver {
		return nil, ErrForbidden
	}

	driver, err := s.accounts.GetByUsername(ctx, actor.Username)
	if err == repository.ErrNotFound {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	// Serialize accepts across instances.
	if s.locks != nil {
		acquired, err := s.locks.AcquireRequestLock(ctx, id, acceptLockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrRequestTaken
		}
		defer func() {
			_ = s.locks.ReleaseRequestLock(ctx, id)
		}()
	}

	rejected, err := s.rejections.List(ctx, actor.Username)
	if err != nil {
		return nil, err
	}
	for _, rid := range rejected {
		if rid == id {
			return nil, ErrAlreadyRejected
		}
	}

	active, err := s.requests.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, req := range active {
		if req.ID != id && req.DriverUsername == actor.Username && !req.Status.IsTerminal() {
			return nil, ErrDriverBusy
		}
	}

	lat, lng := s.driverPosition(ctx, driver)
	plate := unknownDriverPlate
	if driver.Driver != nil && driver.Driver.FlatbedPlate != "" {
		plate = driver.Driver.FlatbedPlate
	}

	updated, err := s.requests.Update(ctx, id, func(req *domain.ActiveRequest) error {
		if req.Status.IsTerminal() {
			return ErrRequestClosed
		}
		if req.HasDriver() {
			return ErrRequestTaken
		}
		if req.CanDrive {
			return ErrInvalidTransition
		}
		if err := advance(req, domain.StatusAccepted); err != nil {
			return err
		}

		req.DriverUsername = driver.Username
		req.DriverName = driver.Name
		req.DriverPlate = plate
		req.Sat7aLat = lat
		req.Sat7aLng = lng
		req.Sat7aConfirmed = false
		req.UserConfirmed = false
		return nil
	})
	if err != nil {
		return nil, s.mapMissing(ctx, id, err)
	}

	s.logger.Info("request accepted",
		"request_id", id, "driver", driver.Username, "distance_to_client_km",
		geo.Distance(lat, lng, updated.UserLat, updated.UserLng))

	s.notifier.Notify(ctx, updated.Username, TitleRequestAccepted,
		fmt.Sprintf("%s (%s) is on the way.", updated.DriverName, updated.DriverPlate))
	return updated, nil
}

// Reject hides a pending request from the driver's feed.
func (s *RequestService) Reject(ctx context.Context, actor Actor, id int64) error {
	if actor.Role != domain.RoleDriver {
		return ErrForbidden
	}

	req, err := s.requests.GetActive(ctx, id)
	if err != nil {
		return s.mapMissing(ctx, id, err)
	}
	if req.Status != domain.StatusPending {
		return ErrInvalidTransition
	}

	if err := s.rejections.Add(ctx, actor.Username, id); err != nil {
		return err
	}

	s.logger.Info("request rejected", "request_id", id, "driver", actor.Username)
	return nil
}

// ConfirmArrival records one side of the two-phase pickup or drop-off
// handshake. The second confirmation advances the status, clears both flags
// and, on arrival at the destination, fixes the trip cost.
func (s *RequestService) ConfirmArrival(ctx context.Context, actor Actor, id int64) (*domain.ActiveRequest, error) {
	if actor.Role != domain.RoleOwner && actor.Role != domain.RoleDriver {
		return nil, ErrForbidden
	}

	var before domain.RequestStatus
	updated, err := s.requests.Update(ctx, id, func(req *domain.ActiveRequest) error {
		before = req.Status
		if req.Status.IsTerminal() {
			return ErrRequestClosed
		}
		if req.Status != domain.StatusAccepted && req.Status != domain.StatusPickedUp {
			return ErrInvalidTransition
		}

		switch {
		case actor.Role == domain.RoleOwner && req.Username == actor.Username:
			req.UserConfirmed = true
		case actor.Role == domain.RoleDriver && req.DriverUsername == actor.Username:
			req.Sat7aConfirmed = true
		default:
			return ErrForbidden
		}

		if !req.UserConfirmed || !req.Sat7aConfirmed {
			return nil
		}

		if req.Status == domain.StatusAccepted {
			if err := advance(req, domain.StatusPickedUp); err != nil {
				return err
			}
		} else {
			if err := advance(req, domain.StatusArrivedAtDest); err != nil {
				return err
			}
			dist := geo.Distance(req.UserLat, req.UserLng, req.DestLat, req.DestLng)
			req.TripCost = geo.TripCost(dist, s.settings.TripRatePerKm)
			req.IsPaid = false
		}
		req.UserConfirmed = false
		req.Sat7aConfirmed = false
		return nil
	})
	if err != nil {
		return nil, s.mapMissing(ctx, id, err)
	}

	if updated.Status == before {
		s.logger.Debug("arrival confirmed", "request_id", id, "by", actor.Username)
		return updated, nil
	}

	s.logger.Info("request advanced", "request_id", id, "from", before, "to", updated.Status)
	if updated.Status == domain.StatusArrivedAtDest {
		s.notifier.Notify(ctx, updated.Username, TitleArrived,
			fmt.Sprintf("You arrived at %s. Trip cost: %d.", updated.DestName, updated.TripCost))
	}
	return updated, nil
}

// driverPosition returns the live position when one was reported and the
// profile position otherwise.
func (s *RequestService) driverPosition(ctx context.Context, driver *domain.Account) (lat, lng float64) {
	if s.locations != nil {
		loc, ok, err := s.locations.GetLocation(ctx, driver.Username)
		if err != nil {
			s.logger.Warn("driver location lookup failed", "driver", driver.Username, "error", err)
		}
		if ok {
			return loc.Lat, loc.Lng
		}
	}
	if driver.Driver != nil {
		return driver.Driver.FlatbedLat, driver.Driver.FlatbedLng
	}
	return 0, 0
}
