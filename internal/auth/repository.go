package auth

import "context"

// Repository defines persistence operations for the credential store.
type Repository interface {
	CreateUser(ctx context.Context, user *User) (int64, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
