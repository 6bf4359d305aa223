package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bulletin-api/internal/models"
)

const bulletinColumns = `id, slug, meeting_date, meeting_type, owner_id, created_at, updated_at`

// BulletinRepository persists the indexed bulletin rows.
type BulletinRepository struct {
	db *sqlx.DB
}

// NewBulletinRepository creates a new instance of BulletinRepository.
func NewBulletinRepository(db *sqlx.DB) *BulletinRepository {
	return &BulletinRepository{db: db}
}

// Upsert inserts the record or updates the row sharing its id.
func (r *BulletinRepository) Upsert(ctx context.Context, record *models.BulletinRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO bulletins (id, slug, meeting_date, meeting_type, owner_id, created_at, updated_at)
VALUES (:id, :slug, :meeting_date, :meeting_type, :owner_id, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET meeting_date = EXCLUDED.meeting_date, meeting_type = EXCLUDED.meeting_type, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert bulletin: %w", err)
	}
	return nil
}

// FindByID returns a bulletin row by identifier.
func (r *BulletinRepository) FindByID(ctx context.Context, id string) (*models.BulletinRecord, error) {
	query := `SELECT ` + bulletinColumns + ` FROM bulletins WHERE id = $1 LIMIT 1`
	var record models.BulletinRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find bulletin by id: %w", err)
	}
	return &record, nil
}

// ListByOwner returns the owner's bulletins, newest first.
func (r *BulletinRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.BulletinRecord, error) {
	query := `SELECT ` + bulletinColumns + ` FROM bulletins WHERE owner_id = $1 ORDER BY created_at DESC`
	var records []models.BulletinRecord
	if err := r.db.SelectContext(ctx, &records, query, ownerID); err != nil {
		return nil, fmt.Errorf("list bulletins by owner: %w", err)
	}
	return records, nil
}

// LatestByOwner returns the most recently created bulletin of the owner.
func (r *BulletinRepository) LatestByOwner(ctx context.Context, ownerID string) (*models.BulletinRecord, error) {
	query := `SELECT ` + bulletinColumns + ` FROM bulletins WHERE owner_id = $1 ORDER BY created_at DESC LIMIT 1`
	var record models.BulletinRecord
	if err := r.db.GetContext(ctx, &record, query, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest bulletin by owner: %w", err)
	}
	return &record, nil
}

// Delete removes the owner's bulletin together with its keyed fields.
func (r *BulletinRepository) Delete(ctx context.Context, id, ownerID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete bulletin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var slug string
	if err := tx.GetContext(ctx, &slug, `DELETE FROM bulletins WHERE id = $1 AND owner_id = $2 RETURNING slug`, id, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete bulletin: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keyed_fields WHERE owner_id = $1 AND key LIKE $2`, ownerID, models.BulletinFieldPrefix(slug)+"%"); err != nil {
		return fmt.Errorf("delete bulletin fields: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET active_bulletin_id = NULL, updated_at = $3 WHERE id = $1 AND active_bulletin_id = $2`, ownerID, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear active bulletin: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete bulletin: %w", err)
	}
	return nil
}
