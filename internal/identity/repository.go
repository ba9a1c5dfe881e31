package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound indicates no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	SetKYCStatus(ctx context.Context, id, status string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	var referrer any
	if user.ReferrerID != "" {
		referrer, err = uuid.Parse(user.ReferrerID)
		if err != nil {
			return err
		}
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, email, role, kyc_status, password_hash, referrer_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, user.Email, user.Role, user.KYCStatus, user.PasswordHash, referrer, user.CreatedAt.UTC())
	return err
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return r.scan(r.db.QueryRow(ctx, `SELECT id, email, role, kyc_status, password_hash, referrer_id, created_at
        FROM users WHERE id = $1`, userID))
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT id, email, role, kyc_status, password_hash, referrer_id, created_at
        FROM users WHERE email = $1`, email))
}

// SetKYCStatus records the outcome of the external KYC workflow.
func (r *PostgresRepository) SetKYCStatus(ctx context.Context, id, status string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET kyc_status = $1 WHERE id = $2`, status, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) scan(row pgx.Row) (User, error) {
	var (
		user      User
		id        uuid.UUID
		referrer  *uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &user.Email, &user.Role, &user.KYCStatus, &user.PasswordHash, &referrer, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	if referrer != nil {
		user.ReferrerID = referrer.String()
	}
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
