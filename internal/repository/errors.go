package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateUsername is returned when an account username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrDuplicateEmail is returned when an account email is already registered.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrDuplicateID is returned when a record with the same id already exists.
	ErrDuplicateID = errors.New("id already exists")
)
