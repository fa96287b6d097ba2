package users

import "time"

// User is the export-facing view of a registered account. The password
// hash is deliberately absent.
type User struct {
	ID          int64
	Name        string
	DateOfBirth time.Time
	Email       string
}
