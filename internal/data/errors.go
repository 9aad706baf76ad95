package data

import "errors"

var (
	// ErrNotFound is returned when a user, chat or message id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a chat for the same participant pair already exists.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateEmail is returned when registering an email that is taken.
	ErrDuplicateEmail = errors.New("user already exists")
)
