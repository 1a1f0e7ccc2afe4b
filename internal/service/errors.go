package service

import "errors"

var (
	// ErrRequestNotFound is returned when a request is in neither the active nor history collection.
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidTransition is returned when the request status does not allow the operation.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRequestClosed is returned when operating on a completed, cancelled or archived request.
	ErrRequestClosed = errors.New("request is closed")

	// ErrActiveRequestExists is returned when an owner already has a request in progress.
	ErrActiveRequestExists = errors.New("owner already has an active request")

	// ErrRequestTaken is returned when another driver accepted the request first.
	ErrRequestTaken = errors.New("request already taken by another driver")

	// ErrDriverBusy is returned when a driver already has an active trip.
	ErrDriverBusy = errors.New("driver already has an active trip")

	// ErrAlreadyRejected is returned when a driver accepts a request they dismissed.
	ErrAlreadyRejected = errors.New("request was rejected by this driver")

	// ErrForbidden is returned when the actor is not a participant of the request.
	ErrForbidden = errors.New("not allowed for this account")

	// ErrWorkshopNotFound is returned when a workshop id does not exist.
	ErrWorkshopNotFound = errors.New("workshop not found")

	// ErrBillFinalized is returned when editing a bill that was already finalized.
	ErrBillFinalized = errors.New("bill already finalized")

	// ErrBillNotFinalized is returned when agreeing to a bill still being edited.
	ErrBillNotFinalized = errors.New("bill not finalized")

	// ErrInvalidBillItem is returned for an empty name, negative price or quantity below one.
	ErrInvalidBillItem = errors.New("invalid bill item")

	// ErrInsufficientFunds is returned when the wallet balance is below the trip cost.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrAlreadyPaid is returned when paying a request twice.
	ErrAlreadyPaid = errors.New("request already paid")

	// ErrEmptyMessage is returned when a chat message has neither text nor image.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrMissingFields is returned when required fields are empty.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrWeakPassword is returned when a password is shorter than 8 characters
	// or lacks a capital letter or a digit.
	ErrWeakPassword = errors.New("password must be at least 8 characters with a capital letter and a number")

	// ErrPasswordMismatch is returned when the confirmation does not match.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrInvalidRole is returned for an unknown account role.
	ErrInvalidRole = errors.New("invalid role")

	// ErrUsernameTaken is returned when a username is already registered.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken is returned when an email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidOTP is returned when the signup verification code is wrong.
	ErrInvalidOTP = errors.New("invalid verification code")

	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountNotFound is returned when an account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrCarNotFound is returned when a garage entry does not exist.
	ErrCarNotFound = errors.New("car not found")

	// ErrPlateRegistered is returned when a plate is already in some garage.
	ErrPlateRegistered = errors.New("plate already registered")

	// ErrNotificationNotFound is returned when an inbox entry does not exist.
	ErrNotificationNotFound = errors.New("notification not found")
)
