package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bulletin-api/internal/models"
)

const userColumns = `id, email, password_hash, display_name, profile_slug, active_bulletin_id, terminology, active, last_login, created_at, updated_at`

// UserRepository provides database access for editor accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByProfileSlug resolves a public profile handle to its owner and active pointer.
func (r *UserRepository) FindByProfileSlug(ctx context.Context, slug string) (*models.ProfileOwner, error) {
	const query = `SELECT id, active_bulletin_id FROM users WHERE profile_slug = $1 AND active = TRUE LIMIT 1`
	var owner models.ProfileOwner
	if err := r.db.GetContext(ctx, &owner, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by profile slug: %w", err)
	}
	return &owner, nil
}

// SetActiveBulletinID points the user's public profile at a bulletin.
func (r *UserRepository) SetActiveBulletinID(ctx context.Context, ownerID, bulletinID string) error {
	const query = `UPDATE users SET active_bulletin_id = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, ownerID, bulletinID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set active bulletin: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
