package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehouse_inventory_backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// UserRepository defines the interface for user records.
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, int, error)
}

// SessionRepository defines the interface for login sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
}

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, name, password_hash, role, location_id, is_active, created_at, updated_at`

func (r *userRepository) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
	          VALUES (:id, :email, :name, :password_hash, :role, :location_id, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		return wrapPQError(err, "creating user")
	}
	return nil
}

func (r *userRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetUserByEmail matches emails case-insensitively.
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "lower(email)", strings.ToLower(email))
}

func (r *userRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by %s: %v", ErrDatabaseError, column, err)
	}
	return &u, nil
}

// UpdateUser never touches the password hash.
func (r *userRepository) UpdateUser(ctx context.Context, u *models.User) error {
	query := `UPDATE users SET email = :email, name = :name, role = :role, location_id = :location_id,
	          is_active = :is_active, updated_at = :updated_at
	          WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		return wrapPQError(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, fmt.Errorf("%w: counting users: %v", ErrDatabaseError, err)
	}
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users ORDER BY email LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing users: %v", ErrDatabaseError, err)
	}
	return users, total, nil
}

type sessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) CreateSession(ctx context.Context, s *models.Session) error {
	query := `INSERT INTO sessions (id, user_id, ip_address, created_at, expires_at, revoked_at)
	          VALUES (:id, :user_id, :ip_address, :created_at, :expires_at, :revoked_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return wrapPQError(err, "creating session")
	}
	return nil
}

func (r *sessionRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := r.db.GetContext(ctx, &s,
		`SELECT id, user_id, ip_address, created_at, expires_at, revoked_at FROM sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding session: %v", ErrDatabaseError, err)
	}
	return &s, nil
}

func (r *sessionRepository) RevokeSession(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("%w: revoking session: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
