package tests

import (
	"context"
	"testing"

	"carva/internal/domain"
	"carva/internal/repository"
	"carva/internal/service"
)

// ──────────────────────────────────────────────
// 1. SUBMISSION
// ──────────────────────────────────────────────

func TestSubmit_InitialStatusByDestination(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	req := h.submitToWorkshop(t, false)
	if req.Status != domain.StatusWaitingWorkshop {
		t.Errorf("expected %s, got %s", domain.StatusWaitingWorkshop, req.Status)
	}
	if req.DestLat != workshopLat || req.DestLng != workshopLng || req.DestName != workshopName {
		t.Errorf("unexpected destination %v,%v %q", req.DestLat, req.DestLng, req.DestName)
	}
	if req.Name != "Sara" {
		t.Errorf("expected owner display name, got %q", req.Name)
	}

	inbox := h.inbox(t, workshopActor.Username)
	if len(inbox) != 1 || inbox[0].Title != service.TitleNewRequest {
		t.Errorf("expected workshop to be notified, got %+v", inbox)
	}

	h2 := newHarness(t)
	flatbed := h2.submitFlatbed(t, ownerLat, ownerLng, 24.72, 46.68)
	if flatbed.Status != domain.StatusPending {
		t.Errorf("expected %s, got %s", domain.StatusPending, flatbed.Status)
	}
	if h2.locations.FindNearbyCallCount != 1 {
		t.Errorf("expected nearby drivers to be looked up once, got %d", h2.locations.FindNearbyCallCount)
	}
}

func TestSubmit_DefaultAndFallbackDestinations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	h := newHarness(t)
	req, err := h.requestSvc.Submit(ctx, ownerActor, service.RequestDetails{
		Car: "Camry", UserLat: ownerLat, UserLng: ownerLng,
	})
	mustNoErr(t, err)
	if req.DestLat != domain.DefaultDestLat || req.DestLng != domain.DefaultDestLng {
		t.Errorf("expected default destination, got %v,%v", req.DestLat, req.DestLng)
	}

	// A pending request cannot be moved to a workshop.
	_, err = h.requestSvc.Submit(ctx, ownerActor, service.RequestDetails{
		Car: "Camry", UserLat: ownerLat, UserLng: ownerLng, WorkshopID: 2,
	})
	if err != service.ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	// Seed workshops carry no coordinates and are spread by id.
	h2 := newHarness(t)
	req, err = h2.requestSvc.Submit(ctx, ownerActor, service.RequestDetails{
		Car: "Camry", UserLat: ownerLat, UserLng: ownerLng, WorkshopID: 2,
	})
	mustNoErr(t, err)
	wantLat := domain.DefaultDestLat + float64(2)*0.01
	wantLng := domain.DefaultDestLng + float64(2)*0.01
	if req.DestLat != wantLat || req.DestLng != wantLng {
		t.Errorf("expected fallback %v,%v, got %v,%v", wantLat, wantLng, req.DestLat, req.DestLng)
	}
}

func TestSubmit_UpdatesEditableRequestInPlace(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	first := h.submitToWorkshop(t, false)

	// Switching to a flatbed-only search moves the request to pending.
	toLat, toLng := 24.8, 46.7
	second, err := h.requestSvc.Submit(ctx, ownerActor, service.RequestDetails{
		Car: "Accord", Year: 2019, UserLat: ownerLat, UserLng: ownerLng,
		DestLat: &toLat, DestLng: &toLng,
	})
	mustNoErr(t, err)
	if second.ID != first.ID {
		t.Errorf("expected same request id, got %d and %d", first.ID, second.ID)
	}
	if second.Car != "Accord" || second.Status != domain.StatusPending || second.WorkshopID != 0 {
		t.Errorf("unexpected update result: car=%s status=%s workshop=%d", second.Car, second.Status, second.WorkshopID)
	}

	active, _ := h.requests.ListActive(ctx)
	if len(active) != 1 {
		t.Errorf("expected 1 active request, got %d", len(active))
	}
}

func TestSubmit_RejectsWhileTripInProgress(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitFlatbed(t, ownerLat, ownerLng, 24.72, 46.68)
	_, err := h.requestSvc.Accept(ctx, driverActor, req.ID)
	mustNoErr(t, err)

	_, err = h.requestSvc.Submit(ctx, ownerActor, service.RequestDetails{
		Car: "Camry", UserLat: ownerLat, UserLng: ownerLng,
	})
	if err != service.ErrActiveRequestExists {
		t.Errorf("expected ErrActiveRequestExists, got %v", err)
	}
}

func TestSubmit_RetiresSettledLeftover(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// A self-driven completion whose archive step failed.
	h := newHarness(t)
	mustNoErr(t, h.requests.Create(ctx, &domain.ActiveRequest{
		ID: 1, Username: ownerActor.Username, Status: domain.StatusCompleted, CanDrive: true,
	}))
	req, err := h.requestSvc.Submit(ctx, ownerActor, service.RequestDetails{
		Car: "Camry", UserLat: ownerLat, UserLng: ownerLng,
	})
	mustNoErr(t, err)
	if req.ID == 1 || req.Status != domain.StatusPending {
		t.Errorf("expected a fresh pending request, got id=%d status=%s", req.ID, req.Status)
	}
	if _, err := h.requests.GetHistory(ctx, 1); err != nil {
		t.Errorf("expected leftover to be archived, got %v", err)
	}

	// A completed trip still waiting for the driver to be paid blocks.
	h2 := newHarness(t)
	mustNoErr(t, h2.requests.Create(ctx, &domain.ActiveRequest{
		ID: 2, Username: ownerActor.Username, Status: domain.StatusCompleted,
		DriverUsername: driverActor.Username, DriverName: "Ali",
	}))
	_, err = h2.requestSvc.Submit(ctx, ownerActor, service.RequestDetails{
		Car: "Camry", UserLat: ownerLat, UserLng: ownerLng,
	})
	if err != service.ErrActiveRequestExists {
		t.Errorf("expected ErrActiveRequestExists, got %v", err)
	}
}

func TestSubmit_Validation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	badLat := 95.0
	lng := 46.0

	testCases := []struct {
		name  string
		actor service.Actor
		d     service.RequestDetails
		want  error
	}{
		{"driver cannot submit", driverActor, service.RequestDetails{Car: "Camry"}, service.ErrForbidden},
		{"missing car", ownerActor, service.RequestDetails{UserLat: ownerLat, UserLng: ownerLng}, service.ErrMissingFields},
		{"bad origin", ownerActor, service.RequestDetails{Car: "Camry", UserLat: 200}, service.ErrInvalidLocation},
		{"bad destination", ownerActor, service.RequestDetails{Car: "Camry", DestLat: &badLat, DestLng: &lng}, service.ErrInvalidLocation},
		{"half destination", ownerActor, service.RequestDetails{Car: "Camry", DestLng: &lng}, service.ErrInvalidLocation},
		{"unknown workshop", ownerActor, service.RequestDetails{Car: "Camry", WorkshopID: 999}, service.ErrWorkshopNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.requestSvc.Submit(ctx, tc.actor, tc.d); err != tc.want {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// ──────────────────────────────────────────────
// 2. NEGOTIATION AND BILLING
// ──────────────────────────────────────────────

func TestNegotiation_BillAndAgreement(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitToWorkshop(t, false)

	if _, err := h.requestSvc.AgreeToBill(ctx, ownerActor, req.ID); err != service.ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition before negotiation, got %v", err)
	}

	opened, err := h.requestSvc.OpenNegotiation(ctx, workshopActor, req.ID)
	mustNoErr(t, err)
	if opened.Status != domain.StatusNegotiation {
		t.Fatalf("expected %s, got %s", domain.StatusNegotiation, opened.Status)
	}

	billed, err := h.requestSvc.UpdateBill(ctx, workshopActor, req.ID,
		[]domain.BillItem{{Name: "Oil Filter", Price: 50, Quantity: 1}}, 100)
	mustNoErr(t, err)
	if billed.BillTotal != 150 {
		t.Errorf("expected total 150, got %v", billed.BillTotal)
	}
	if billed.BillItems[0].ID == 0 {
		t.Error("expected bill item id to be assigned")
	}

	if _, err := h.requestSvc.AgreeToBill(ctx, ownerActor, req.ID); err != service.ErrBillNotFinalized {
		t.Errorf("expected ErrBillNotFinalized, got %v", err)
	}

	_, err = h.requestSvc.FinalizeBill(ctx, workshopActor, req.ID)
	mustNoErr(t, err)

	agreed, err := h.requestSvc.AgreeToBill(ctx, ownerActor, req.ID)
	mustNoErr(t, err)
	if agreed.Status != domain.StatusPending {
		t.Errorf("expected %s, got %s", domain.StatusPending, agreed.Status)
	}
	if !agreed.BillAgreed {
		t.Error("expected billAgreed")
	}

	msgs := agreed.NegotiationChatMessages
	if len(msgs) != 1 {
		t.Fatalf("expected 1 system message, got %d", len(msgs))
	}
	if msgs[0].Sender != domain.SenderSystem || msgs[0].Text != "Sara agreed with Fast Fix on 150" {
		t.Errorf("unexpected system message %+v", msgs[0])
	}
}

func TestNegotiation_CanDriveCompletesAndArchives(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitToWorkshop(t, true)

	_, err := h.requestSvc.OpenNegotiation(ctx, workshopActor, req.ID)
	mustNoErr(t, err)
	_, err = h.requestSvc.FinalizeBill(ctx, workshopActor, req.ID)
	mustNoErr(t, err)

	agreed, err := h.requestSvc.AgreeToBill(ctx, ownerActor, req.ID)
	mustNoErr(t, err)
	if agreed.Status != domain.StatusCompleted {
		t.Errorf("expected %s, got %s", domain.StatusCompleted, agreed.Status)
	}

	list, err := h.requestSvc.ListForUser(ctx, ownerActor)
	mustNoErr(t, err)
	if len(list.Active) != 0 || len(list.History) != 1 {
		t.Errorf("expected request archived, got active=%d history=%d", len(list.Active), len(list.History))
	}
}

func TestBill_FinalizedIsImmutable(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitToWorkshop(t, false)
	_, _ = h.requestSvc.OpenNegotiation(ctx, workshopActor, req.ID)
	_, _ = h.requestSvc.UpdateBill(ctx, workshopActor, req.ID,
		[]domain.BillItem{{Name: "Oil Filter", Price: 50, Quantity: 1}}, 100)
	_, err := h.requestSvc.FinalizeBill(ctx, workshopActor, req.ID)
	mustNoErr(t, err)

	_, err = h.requestSvc.UpdateBill(ctx, workshopActor, req.ID,
		[]domain.BillItem{{Name: "Brake Pads", Price: 300, Quantity: 2}}, 0)
	if err != service.ErrBillFinalized {
		t.Fatalf("expected ErrBillFinalized, got %v", err)
	}
	if _, err := h.requestSvc.FinalizeBill(ctx, workshopActor, req.ID); err != service.ErrBillFinalized {
		t.Errorf("expected ErrBillFinalized on second finalize, got %v", err)
	}

	stored, _ := h.requests.GetActive(ctx, req.ID)
	if len(stored.BillItems) != 1 || stored.LaborCost != 100 || stored.BillTotal != 150 {
		t.Errorf("bill changed after finalization: %+v labor=%v total=%v", stored.BillItems, stored.LaborCost, stored.BillTotal)
	}
}

func TestBill_Validation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitToWorkshop(t, false)
	_, _ = h.requestSvc.OpenNegotiation(ctx, workshopActor, req.ID)

	testCases := []struct {
		name  string
		items []domain.BillItem
		labor float64
	}{
		{"zero quantity", []domain.BillItem{{Name: "Filter", Price: 10, Quantity: 0}}, 0},
		{"negative price", []domain.BillItem{{Name: "Filter", Price: -1, Quantity: 1}}, 0},
		{"empty name", []domain.BillItem{{Name: " ", Price: 1, Quantity: 1}}, 0},
		{"negative labor", nil, -5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.requestSvc.UpdateBill(ctx, workshopActor, req.ID, tc.items, tc.labor); err != service.ErrInvalidBillItem {
				t.Errorf("expected ErrInvalidBillItem, got %v", err)
			}
		})
	}
}

func TestNegotiation_OnlyDestinationWorkshop(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitToWorkshop(t, false)

	other := service.Actor{Username: "othershop", Role: domain.RoleWorkshop}
	lat, lng := 24.9, 46.9
	mustNoErr(t, h.workshops.Create(ctx, &domain.Workshop{ID: 11, NameEn: "Other", Lat: &lat, Lng: &lng, OwnerUsername: other.Username}))

	if _, err := h.requestSvc.OpenNegotiation(ctx, other, req.ID); err != service.ErrForbidden {
		t.Errorf("expected ErrForbidden for another workshop, got %v", err)
	}
	if _, err := h.requestSvc.OpenNegotiation(ctx, driverActor, req.ID); err != service.ErrForbidden {
		t.Errorf("expected ErrForbidden for a driver, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 3. DRIVER MATCHING
// ──────────────────────────────────────────────

func TestAccept_DistanceToClient(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitFlatbed(t, ownerLat, ownerLng, workshopLat, workshopLng)

	feed, err := h.driverSvc.PendingFeed(ctx, driverActor)
	mustNoErr(t, err)
	if len(feed) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(feed))
	}
	if feed[0].DistClient != 0.75 {
		t.Errorf("expected distance to client 0.75, got %v", feed[0].DistClient)
	}

	accepted, err := h.requestSvc.Accept(ctx, driverActor, req.ID)
	mustNoErr(t, err)
	if accepted.Status != domain.StatusAccepted {
		t.Errorf("expected %s, got %s", domain.StatusAccepted, accepted.Status)
	}
	if accepted.DriverUsername != driverActor.Username || accepted.DriverName != "Ali" || accepted.DriverPlate != "ABC 123" {
		t.Errorf("unexpected driver fields %q %q %q", accepted.DriverUsername, accepted.DriverName, accepted.DriverPlate)
	}
	if accepted.Sat7aLat != driverLat || accepted.Sat7aLng != driverLng {
		t.Errorf("expected driver position snapshot, got %v,%v", accepted.Sat7aLat, accepted.Sat7aLng)
	}
	if h.locks.IsLocked(req.ID) {
		t.Error("expected accept lock to be released")
	}

	feed, _ = h.driverSvc.PendingFeed(ctx, driver2Actor)
	if len(feed) != 0 {
		t.Errorf("accepted request still in feed")
	}
}

func TestAccept_Conflicts(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitFlatbed(t, ownerLat, ownerLng, workshopLat, workshopLng)

	_, err := h.requestSvc.Accept(ctx, driverActor, req.ID)
	mustNoErr(t, err)

	accepted, err := h.requestSvc.Accept(ctx, driver2Actor, req.ID)
	if err != service.ErrRequestTaken {
		t.Errorf("expected ErrRequestTaken, got %v (%v)", err, accepted)
	}

	if _, err := h.requestSvc.Accept(ctx, driver2Actor, 12345); err != service.ErrRequestNotFound {
		t.Errorf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestAccept_LockHeld(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	req := h.submitFlatbed(t, ownerLat, ownerLng, workshopLat, workshopLng)
	h.locks.SetForceFailure(true)

	if _, err := h.requestSvc.Accept(context.Background(), driverActor, req.ID); err != service.ErrRequestTaken {
		t.Errorf("expected ErrRequestTaken, got %v", err)
	}
}

func TestReject_HidesFromFeed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitFlatbed(t, ownerLat, ownerLng, workshopLat, workshopLng)

	mustNoErr(t, h.requestSvc.Reject(ctx, driverActor, req.ID))

	feed, _ := h.driverSvc.PendingFeed(ctx, driverActor)
	if len(feed) != 0 {
		t.Errorf("expected rejected request to be hidden, got %d", len(feed))
	}
	if _, err := h.requestSvc.Accept(ctx, driverActor, req.ID); err != service.ErrAlreadyRejected {
		t.Errorf("expected ErrAlreadyRejected, got %v", err)
	}

	// Other drivers still see it.
	feed, _ = h.driverSvc.PendingFeed(ctx, driver2Actor)
	if len(feed) != 1 {
		t.Errorf("expected other driver to see request, got %d", len(feed))
	}
	accepted, err := h.requestSvc.Accept(ctx, driver2Actor, req.ID)
	mustNoErr(t, err)
	if accepted.DriverPlate != "Unknown" {
		t.Errorf("expected placeholder plate, got %q", accepted.DriverPlate)
	}
}

// ──────────────────────────────────────────────
// 4. TWO-PHASE CONFIRMATION AND TRIP COST
// ──────────────────────────────────────────────

func TestConfirmArrival_SinglePartyNeverAdvances(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitFlatbed(t, 24.70, 46.67, 24.71, 46.68)
	_, err := h.requestSvc.Accept(ctx, driverActor, req.ID)
	mustNoErr(t, err)

	for i := 0; i < 3; i++ {
		got, err := h.requestSvc.ConfirmArrival(ctx, ownerActor, req.ID)
		mustNoErr(t, err)
		if got.Status != domain.StatusAccepted {
			t.Fatalf("single party advanced status to %s", got.Status)
		}
		if !got.UserConfirmed || got.Sat7aConfirmed {
			t.Fatalf("unexpected flags user=%v driver=%v", got.UserConfirmed, got.Sat7aConfirmed)
		}
	}

	got, err := h.requestSvc.ConfirmArrival(ctx, driverActor, req.ID)
	mustNoErr(t, err)
	if got.Status != domain.StatusPickedUp {
		t.Errorf("expected %s, got %s", domain.StatusPickedUp, got.Status)
	}
	if got.UserConfirmed || got.Sat7aConfirmed {
		t.Error("expected both flags to be cleared")
	}

	if _, err := h.requestSvc.ConfirmArrival(ctx, driver2Actor, req.ID); err != service.ErrForbidden {
		t.Errorf("expected ErrForbidden for unassigned driver, got %v", err)
	}
}

func TestConfirmArrival_TripCost(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	req := h.submitFlatbed(t, 24.7000, 46.6700, 24.7100, 46.6800)

	arrived := h.driveToDestination(t, req.ID)
	if arrived.Status != domain.StatusArrivedAtDest {
		t.Fatalf("expected %s, got %s", domain.StatusArrivedAtDest, arrived.Status)
	}
	if arrived.TripCost != 23 {
		t.Errorf("expected trip cost 23, got %d", arrived.TripCost)
	}
	if arrived.IsPaid {
		t.Error("expected isPaid false")
	}

	if _, err := h.requestSvc.ConfirmArrival(context.Background(), ownerActor, req.ID); err != service.ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition after arrival, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 5. CANCELLATION AND TIMEOUT
// ──────────────────────────────────────────────

func TestCancel_RemovesWithoutArchiving(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitFlatbed(t, ownerLat, ownerLng, workshopLat, workshopLng)
	_, err := h.requestSvc.Accept(ctx, driverActor, req.ID)
	mustNoErr(t, err)

	if _, err := h.requestSvc.Cancel(ctx, driver2Actor, req.ID); err != service.ErrForbidden {
		t.Errorf("expected ErrForbidden for outsider, got %v", err)
	}

	cancelled, err := h.requestSvc.Cancel(ctx, ownerActor, req.ID)
	mustNoErr(t, err)
	if cancelled.Status != domain.StatusCancelled {
		t.Errorf("expected %s, got %s", domain.StatusCancelled, cancelled.Status)
	}

	if _, err := h.requests.GetActive(ctx, req.ID); err != repository.ErrNotFound {
		t.Errorf("expected request removed from active, got %v", err)
	}
	if _, err := h.requests.GetHistory(ctx, req.ID); err != repository.ErrNotFound {
		t.Errorf("expected cancelled request not archived, got %v", err)
	}

	inbox := h.inbox(t, driverActor.Username)
	if len(inbox) == 0 || inbox[0].Title != service.TitleRequestCancelled {
		t.Errorf("expected driver to be told about cancellation, got %+v", inbox)
	}

	if _, err := h.requestSvc.Cancel(ctx, ownerActor, req.ID); err != service.ErrRequestNotFound {
		t.Errorf("expected ErrRequestNotFound on repeat, got %v", err)
	}
}

func TestWorkshopTimeout(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitToWorkshop(t, false)

	age := func(ms int64) {
		_, err := h.requests.Update(ctx, req.ID, func(r *domain.ActiveRequest) error {
			r.Timestamp -= ms
			return nil
		})
		mustNoErr(t, err)
	}

	age(299_000)
	if n := h.timeoutJob.RunOnce(ctx); n != 0 {
		t.Fatalf("expected no expiry before 300 s, got %d", n)
	}

	age(2_000)
	if n := h.timeoutJob.RunOnce(ctx); n != 1 {
		t.Fatalf("expected 1 expiry, got %d", n)
	}

	if _, err := h.requests.GetActive(ctx, req.ID); err != repository.ErrNotFound {
		t.Errorf("expected request removed, got %v", err)
	}

	inbox := h.inbox(t, ownerActor.Username)
	if len(inbox) == 0 || inbox[0].Message != "Workshop did not respond in time." {
		t.Errorf("expected timeout notification, got %+v", inbox)
	}
}

func TestWorkshopTimeout_SkipsAnsweredRequests(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitToWorkshop(t, false)
	_, err := h.requestSvc.OpenNegotiation(ctx, workshopActor, req.ID)
	mustNoErr(t, err)

	_, _ = h.requests.Update(ctx, req.ID, func(r *domain.ActiveRequest) error {
		r.Timestamp -= 600_000
		return nil
	})

	if n := h.timeoutJob.RunOnce(ctx); n != 0 {
		t.Errorf("expected negotiation request to survive, got %d expired", n)
	}
}

// ──────────────────────────────────────────────
// 6. CHAT
// ──────────────────────────────────────────────

func TestSendMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitToWorkshop(t, false)
	_, _ = h.requestSvc.OpenNegotiation(ctx, workshopActor, req.ID)

	first, err := h.requestSvc.SendMessage(ctx, workshopActor, req.ID, domain.ChannelNegotiation, "Hello", "")
	mustNoErr(t, err)
	second, err := h.requestSvc.SendMessage(ctx, ownerActor, req.ID, domain.ChannelNegotiation, "Hi", "")
	mustNoErr(t, err)

	if first.Sender != domain.SenderWorkshop || second.Sender != domain.SenderUser {
		t.Errorf("unexpected senders %s, %s", first.Sender, second.Sender)
	}
	if second.ID <= first.ID {
		t.Errorf("expected increasing ids, got %d then %d", first.ID, second.ID)
	}

	if _, err := h.requestSvc.SendMessage(ctx, driverActor, req.ID, domain.ChannelNegotiation, "hey", ""); err != service.ErrForbidden {
		t.Errorf("expected ErrForbidden for driver, got %v", err)
	}
	if _, err := h.requestSvc.SendMessage(ctx, ownerActor, req.ID, domain.ChannelTrip, "   ", ""); err != service.ErrEmptyMessage {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}

	stored, _ := h.requests.GetActive(ctx, req.ID)
	if len(stored.NegotiationChatMessages) != 2 || len(stored.ChatMessages) != 0 {
		t.Errorf("unexpected thread sizes %d / %d", len(stored.NegotiationChatMessages), len(stored.ChatMessages))
	}
}

func TestGet_Visibility(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	req := h.submitFlatbed(t, ownerLat, ownerLng, workshopLat, workshopLng)

	if _, err := h.requestSvc.Get(ctx, driver2Actor, req.ID); err != nil {
		t.Errorf("expected drivers to see pending requests, got %v", err)
	}

	_, err := h.requestSvc.Accept(ctx, driverActor, req.ID)
	mustNoErr(t, err)

	if _, err := h.requestSvc.Get(ctx, driver2Actor, req.ID); err != service.ErrForbidden {
		t.Errorf("expected ErrForbidden once assigned, got %v", err)
	}
	if _, err := h.requestSvc.Get(ctx, workshopActor, req.ID); err != service.ErrForbidden {
		t.Errorf("expected ErrForbidden for unrelated workshop, got %v", err)
	}
	if _, err := h.requestSvc.Get(ctx, ownerActor, 1); err != service.ErrRequestNotFound {
		t.Errorf("expected ErrRequestNotFound, got %v", err)
	}
}
