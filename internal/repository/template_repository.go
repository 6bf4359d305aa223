package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bulletin-api/internal/models"
)

const templateColumns = `id, owner_id, name, snapshot, created_at, updated_at`

// TemplateRepository persists named bulletin snapshots.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates a new instance of TemplateRepository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// ListByOwner returns the owner's templates ordered by name.
func (r *TemplateRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE owner_id = $1 ORDER BY name ASC`
	var templates []models.Template
	if err := r.db.SelectContext(ctx, &templates, query, ownerID); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for i := range templates {
		if err := decodeSnapshot(&templates[i]); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

// FindByID returns one of the owner's templates.
func (r *TemplateRepository) FindByID(ctx context.Context, ownerID, id string) (*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = $1 AND owner_id = $2 LIMIT 1`
	var tpl models.Template
	if err := r.db.GetContext(ctx, &tpl, query, id, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find template: %w", err)
	}
	if err := decodeSnapshot(&tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Create inserts a template, encoding its snapshot as JSON.
func (r *TemplateRepository) Create(ctx context.Context, tpl *models.Template) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	raw, err := json.Marshal(tpl.Snapshot)
	if err != nil {
		return fmt.Errorf("encode template snapshot: %w", err)
	}
	tpl.RawData = raw
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	const query = `INSERT INTO templates (id, owner_id, name, snapshot, created_at, updated_at) VALUES (:id, :owner_id, :name, :snapshot, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// Rename changes the template name.
func (r *TemplateRepository) Rename(ctx context.Context, ownerID, id, name string) error {
	const query = `UPDATE templates SET name = $3, updated_at = $4 WHERE id = $1 AND owner_id = $2`
	return execAffectingOne(ctx, r.db, "rename template", query, id, ownerID, name, time.Now().UTC())
}

// Delete removes the template.
func (r *TemplateRepository) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM templates WHERE id = $1 AND owner_id = $2`
	return execAffectingOne(ctx, r.db, "delete template", query, id, ownerID)
}

func decodeSnapshot(tpl *models.Template) error {
	if len(tpl.RawData) == 0 {
		return nil
	}
	if err := json.Unmarshal(tpl.RawData, &tpl.Snapshot); err != nil {
		return fmt.Errorf("decode template snapshot %s: %w", tpl.ID, err)
	}
	return nil
}

func execAffectingOne(ctx context.Context, db *sqlx.DB, op, query string, args ...interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
