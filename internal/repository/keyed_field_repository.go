package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bulletin-api/internal/models"
)

const upsertKeyedFieldQuery = `INSERT INTO keyed_fields (key, value, owner_id, updated_at)
VALUES (:key, :value, :owner_id, :updated_at)
ON CONFLICT (key, owner_id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

// KeyedFieldRepository stores auxiliary string values unique on (key, owner).
type KeyedFieldRepository struct {
	db *sqlx.DB
}

// NewKeyedFieldRepository creates a new instance of KeyedFieldRepository.
func NewKeyedFieldRepository(db *sqlx.DB) *KeyedFieldRepository {
	return &KeyedFieldRepository{db: db}
}

// Upsert writes a single field.
func (r *KeyedFieldRepository) Upsert(ctx context.Context, field *models.KeyedField) error {
	field.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, upsertKeyedFieldQuery, field); err != nil {
		return fmt.Errorf("upsert keyed field: %w", err)
	}
	return nil
}

// UpsertBatch writes all fields in one transaction.
func (r *KeyedFieldRepository) UpsertBatch(ctx context.Context, fields []models.KeyedField) error {
	if len(fields) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin keyed field batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for i := range fields {
		fields[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, upsertKeyedFieldQuery, fields[i]); err != nil {
			return fmt.Errorf("upsert keyed field %s: %w", fields[i].Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit keyed field batch: %w", err)
	}
	return nil
}

// Get returns the value stored under (ownerID, key).
func (r *KeyedFieldRepository) Get(ctx context.Context, ownerID, key string) (*models.KeyedField, error) {
	const query = `SELECT key, value, owner_id, updated_at FROM keyed_fields WHERE owner_id = $1 AND key = $2 LIMIT 1`
	var field models.KeyedField
	if err := r.db.GetContext(ctx, &field, query, ownerID, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get keyed field: %w", err)
	}
	return &field, nil
}

// ListByPrefix returns every field of the owner whose key starts with prefix.
func (r *KeyedFieldRepository) ListByPrefix(ctx context.Context, ownerID, prefix string) ([]models.KeyedField, error) {
	const query = `SELECT key, value, owner_id, updated_at FROM keyed_fields WHERE owner_id = $1 AND key LIKE $2 ORDER BY key`
	var fields []models.KeyedField
	if err := r.db.SelectContext(ctx, &fields, query, ownerID, prefix+"%"); err != nil {
		return nil, fmt.Errorf("list keyed fields: %w", err)
	}
	return fields, nil
}
