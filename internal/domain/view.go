package domain

// View names the screen a client should be showing.
type View string

const (
	ViewDashboardOwner    View = "dashboard_user"
	ViewDashboardDriver   View = "dashboard_sat7a"
	ViewDashboardWorkshop View = "dashboard_workshop"
	ViewWorkshopSelection View = "workshop_selection"
	ViewWaitingWorkshop   View = "page_waiting_workshop"
	ViewSearchingFlatbed  View = "page_w"
	ViewNegotiation       View = "workshop_user_chat"
	ViewBill              View = "bill_view"
	ViewTripChat          View = "chat_view"
	ViewOwnerTrip         View = "match_user_view"
	ViewDriverTrip        View = "match_sat7a_view"
	ViewPayment           View = "payment_view"
	ViewWaitingPayment    View = "page_waiting_payment"
	ViewDone              View = "page_red_screen"
	ViewDriverHistory     View = "sat7a_history"
)

// IsChat reports whether the view shows a chat thread.
func (v View) IsChat() bool {
	return v == ViewTripChat || v == ViewNegotiation
}

// Dashboard returns the landing view for a role.
func Dashboard(role Role) View {
	switch role {
	case RoleDriver:
		return ViewDashboardDriver
	case RoleWorkshop:
		return ViewDashboardWorkshop
	default:
		return ViewDashboardOwner
	}
}

// RouteFor derives the view a participant should be on from the shared
// request state. A nil request routes to the role's dashboard.
func RouteFor(role Role, req *ActiveRequest) View {
	if req == nil {
		return Dashboard(role)
	}

	switch role {
	case RoleOwner:
		switch req.Status {
		case StatusWaitingWorkshop:
			return ViewWaitingWorkshop
		case StatusNegotiation:
			return ViewNegotiation
		case StatusPending:
			if req.CanDrive {
				return ViewDone
			}
			return ViewSearchingFlatbed
		case StatusAccepted, StatusPickedUp:
			return ViewOwnerTrip
		case StatusArrivedAtDest:
			if req.IsPaid {
				return ViewDone
			}
			return ViewPayment
		case StatusCompleted:
			return ViewDone
		case StatusCancelled:
			if req.WorkshopID != 0 {
				return ViewWorkshopSelection
			}
			return ViewDashboardOwner
		}
	case RoleDriver:
		switch req.Status {
		case StatusAccepted, StatusPickedUp:
			return ViewDriverTrip
		case StatusArrivedAtDest:
			return ViewWaitingPayment
		case StatusCompleted:
			return ViewDriverHistory
		}
	case RoleWorkshop:
		if req.Status == StatusNegotiation {
			return ViewNegotiation
		}
	}
	return Dashboard(role)
}
