package auth

import "time"

// User represents a registered account. Rows are created once at
// registration and never updated or deleted.
type User struct {
	ID           int64
	Name         string
	DateOfBirth  time.Time
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
