package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseStatus_ClosedSet(t *testing.T) {
	t.Parallel()

	for _, st := range Statuses() {
		got, err := ParseStatus(string(st))
		if err != nil {
			t.Fatalf("ParseStatus(%q) returned error: %v", st, err)
		}
		if got != st {
			t.Errorf("ParseStatus(%q) = %q", st, got)
		}
	}

	for _, raw := range []string{"", "PENDING", "paid", "in_progress"} {
		if _, err := ParseStatus(raw); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("ParseStatus(%q): expected ErrInvalidStatus, got %v", raw, err)
		}
	}
}

func TestStatus_TerminalStatesHaveNoTransitions(t *testing.T) {
	t.Parallel()

	for _, from := range []RequestStatus{StatusCompleted, StatusCancelled} {
		if !from.IsTerminal() {
			t.Errorf("%s should be terminal", from)
		}
		for _, to := range Statuses() {
			if from.CanTransition(to) {
				t.Errorf("terminal %s should not transition to %s", from, to)
			}
		}
	}
}

func TestStatus_CanTransition(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		from, to RequestStatus
		want     bool
	}{
		{StatusWaitingWorkshop, StatusNegotiation, true},
		{StatusWaitingWorkshop, StatusCancelled, true},
		{StatusWaitingWorkshop, StatusAccepted, false},
		{StatusNegotiation, StatusPending, true},
		{StatusNegotiation, StatusCompleted, true},
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusPickedUp, false},
		{StatusAccepted, StatusPickedUp, true},
		{StatusAccepted, StatusArrivedAtDest, false},
		{StatusPickedUp, StatusArrivedAtDest, true},
		{StatusArrivedAtDest, StatusCompleted, true},
		{StatusArrivedAtDest, StatusPending, false},
		{StatusPickedUp, StatusCancelled, true},
	}

	for _, tc := range testCases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestBillTotal(t *testing.T) {
	t.Parallel()

	items := []BillItem{
		{ID: 1, Name: "Oil Filter", Price: 50, Quantity: 1},
		{ID: 2, Name: "Spark Plug", Price: 12.5, Quantity: 4},
	}
	if got := BillTotal(items, 100); got != 200 {
		t.Errorf("expected 200, got %v", got)
	}
	if got := BillTotal(nil, 0); got != 0 {
		t.Errorf("expected 0 for empty bill, got %v", got)
	}
}

func TestActiveRequest_CloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := &ActiveRequest{
		ID:           1,
		ChatMessages: []ChatMessage{{ID: 1, Sender: SenderUser, Text: "hi"}},
		BillItems:    []BillItem{{ID: 1, Name: "x", Price: 1, Quantity: 1}},
	}
	clone := orig.Clone()
	clone.ChatMessages[0].Text = "changed"
	clone.BillItems[0].Price = 99
	clone.AppendMessage(ChannelNegotiation, ChatMessage{ID: 2})

	if orig.ChatMessages[0].Text != "hi" || orig.BillItems[0].Price != 1 {
		t.Error("clone shares backing arrays with original")
	}
	if len(orig.NegotiationChatMessages) != 0 {
		t.Error("append on clone leaked into original")
	}
}

func TestActiveRequest_CloneKeepsEmptySlices(t *testing.T) {
	t.Parallel()

	orig := &ActiveRequest{ID: 1}
	orig.Normalize()
	clone := orig.Clone()

	if clone.ChatMessages == nil || clone.NegotiationChatMessages == nil || clone.BillItems == nil {
		t.Fatalf("expected non-nil slices, got chat=%v negotiation=%v bill=%v",
			clone.ChatMessages, clone.NegotiationChatMessages, clone.BillItems)
	}

	data, err := json.Marshal(clone)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{`"chatMessages":[]`, `"negotiationChatMessages":[]`, `"billItems":[]`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("expected %s in %s", field, data)
		}
	}
}

func TestActiveRequest_IsDestination(t *testing.T) {
	t.Parallel()

	ws := &Workshop{ID: 7, NameEn: "Fast Fix", NameAr: "الإصلاح السريع"}

	if !(&ActiveRequest{WorkshopID: 7}).IsDestination(ws) {
		t.Error("expected id match")
	}
	if (&ActiveRequest{WorkshopID: 8, DestName: "Fast Fix"}).IsDestination(ws) {
		t.Error("id mismatch should win over name")
	}
	if !(&ActiveRequest{DestName: "الإصلاح السريع"}).IsDestination(ws) {
		t.Error("expected name fallback match")
	}
	if (&ActiveRequest{}).IsDestination(ws) {
		t.Error("empty destination should not match")
	}
}

func TestRouteFor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		role Role
		req  *ActiveRequest
		want View
	}{
		{"owner no request", RoleOwner, nil, ViewDashboardOwner},
		{"owner waiting workshop", RoleOwner, &ActiveRequest{Status: StatusWaitingWorkshop}, ViewWaitingWorkshop},
		{"owner negotiation", RoleOwner, &ActiveRequest{Status: StatusNegotiation}, ViewNegotiation},
		{"owner pending flatbed", RoleOwner, &ActiveRequest{Status: StatusPending}, ViewSearchingFlatbed},
		{"owner pending can drive", RoleOwner, &ActiveRequest{Status: StatusPending, CanDrive: true}, ViewDone},
		{"owner accepted", RoleOwner, &ActiveRequest{Status: StatusAccepted}, ViewOwnerTrip},
		{"owner arrived", RoleOwner, &ActiveRequest{Status: StatusArrivedAtDest}, ViewPayment},
		{"owner cancelled workshop", RoleOwner, &ActiveRequest{Status: StatusCancelled, WorkshopID: 3}, ViewWorkshopSelection},
		{"driver picked up", RoleDriver, &ActiveRequest{Status: StatusPickedUp}, ViewDriverTrip},
		{"driver arrived", RoleDriver, &ActiveRequest{Status: StatusArrivedAtDest}, ViewWaitingPayment},
		{"driver cancelled", RoleDriver, &ActiveRequest{Status: StatusCancelled}, ViewDashboardDriver},
		{"workshop negotiation", RoleWorkshop, &ActiveRequest{Status: StatusNegotiation}, ViewNegotiation},
		{"workshop pending", RoleWorkshop, &ActiveRequest{Status: StatusPending}, ViewDashboardWorkshop},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RouteFor(tc.role, tc.req); got != tc.want {
				t.Errorf("RouteFor = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAccount_Validate(t *testing.T) {
	t.Parallel()

	ok := &Account{Role: RoleDriver, Driver: &DriverProfile{FlatbedPlate: "ABC"}}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := &Account{Role: RoleOwner, Workshop: &WorkshopProfile{}}
	if err := bad.Validate(); !errors.Is(err, ErrProfileMismatch) {
		t.Errorf("expected ErrProfileMismatch, got %v", err)
	}

	unknown := &Account{Role: "admin"}
	if err := unknown.Validate(); !errors.Is(err, ErrProfileMismatch) {
		t.Errorf("expected ErrProfileMismatch for unknown role, got %v", err)
	}
}
