package tests

import (
	"context"
	"testing"

	"carva/internal/domain"
	"carva/internal/service"
)

func TestUpdateLocation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	mustNoErr(t, h.driverSvc.UpdateLocation(ctx, driver2Actor, 24.8, 46.8))
	if !h.locations.HasLocation(driver2Actor.Username) {
		t.Error("expected location in live index")
	}

	acc, _ := h.accountSvc.Profile(ctx, driver2Actor.Username)
	if acc.Driver.FlatbedLat != 24.8 || acc.Driver.FlatbedLng != 46.8 {
		t.Errorf("expected profile position to follow, got %v,%v", acc.Driver.FlatbedLat, acc.Driver.FlatbedLng)
	}

	testCases := []struct {
		name     string
		actor    service.Actor
		lat, lng float64
		want     error
	}{
		{"owner", ownerActor, 24.8, 46.8, service.ErrForbidden},
		{"latitude out of range", driverActor, 91, 46.8, service.ErrInvalidLocation},
		{"longitude out of range", driverActor, 24.8, -181, service.ErrInvalidLocation},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := h.driverSvc.UpdateLocation(ctx, tc.actor, tc.lat, tc.lng); err != tc.want {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUpdateLocation_StoreError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.locations.UpdateLocationError = ErrMockRedisDown

	if err := h.driverSvc.UpdateLocation(context.Background(), driverActor, 24.8, 46.8); err != ErrMockRedisDown {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestGoOffline(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	mustNoErr(t, h.driverSvc.GoOffline(ctx, driverActor))
	if h.locations.HasLocation(driverActor.Username) {
		t.Error("expected driver removed from live index")
	}

	// The profile position remains as a fallback.
	mustNoErr(t, h.driverSvc.UpdateLocation(ctx, driverActor, 24.705, 46.665))
	mustNoErr(t, h.driverSvc.GoOffline(ctx, driverActor))
	lat, lng, ok, err := h.driverSvc.Position(ctx, driverActor.Username)
	mustNoErr(t, err)
	if !ok || lat != 24.705 || lng != 46.665 {
		t.Errorf("expected profile fallback, got %v,%v ok=%v", lat, lng, ok)
	}
}

func TestPendingFeed_RankedByDistanceToClient(t *testing.T) {
	t.Parallel()

	active := []*domain.ActiveRequest{
		{ID: 1, Status: domain.StatusPending, UserLat: 24.80, UserLng: 46.80},
		{ID: 2, Status: domain.StatusPending, UserLat: 24.71, UserLng: 46.67},
		{ID: 3, Status: domain.StatusPending, UserLat: 24.72, UserLng: 46.68, CanDrive: true},
		{ID: 4, Status: domain.StatusAccepted, UserLat: 24.70, UserLng: 46.66, DriverUsername: "x"},
		{ID: 5, Status: domain.StatusPending, UserLat: 24.706, UserLng: 46.666},
		{ID: 6, Status: domain.StatusWaitingWorkshop, UserLat: 24.705, UserLng: 46.665},
	}

	items := service.RankPending(active, []int64{5}, driverLat, driverLng)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Request.ID != 2 || items[1].Request.ID != 1 {
		t.Errorf("unexpected order %d, %d", items[0].Request.ID, items[1].Request.ID)
	}
	if items[0].DistClient != 0.75 {
		t.Errorf("expected 0.75 km, got %v", items[0].DistClient)
	}
}

func TestWorkshopInbox(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitToWorkshop(t, false)

	inbox, err := h.workshopSvc.Inbox(ctx, workshopActor)
	mustNoErr(t, err)
	if len(inbox) != 1 || inbox[0].ID != req.ID {
		t.Errorf("unexpected inbox %+v", inbox)
	}

	if _, err := h.workshopSvc.Inbox(ctx, driverActor); err != service.ErrForbidden {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	workshops, err := h.workshopSvc.List(ctx)
	mustNoErr(t, err)
	if len(workshops) != len(service.DefaultWorkshops())+1 {
		t.Errorf("expected seeded workshops plus test workshop, got %d", len(workshops))
	}
}
