package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail indicates a registration conflict on the email column.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrAccessDenied indicates the owner export secret did not match.
	ErrAccessDenied = errors.New("access denied")
)
