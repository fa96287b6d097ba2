package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-web/gatehouse/internal/shared"
)

const uniqueViolation = "23505"

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateUser inserts a new row and returns the assigned id. The unique
// constraint on email resolves concurrent registrations; the loser gets
// shared.ErrDuplicateEmail.
func (r *PGRepository) CreateUser(ctx context.Context, user *User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users_list (name, dob, email, password_hash) VALUES ($1, $2, $3, $4) RETURNING id`,
		user.Name, user.DateOfBirth, user.Email, user.PasswordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, shared.ErrDuplicateEmail
		}
		return 0, fmt.Errorf("auth: create user: %w", err)
	}
	return id, nil
}

// FindByEmail fetches a user by exact email match.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, dob, email, password_hash, created_at FROM users_list WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Name, &user.DateOfBirth, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find by email: %w", err)
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
