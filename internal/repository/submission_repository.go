package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bulletin-api/internal/models"
)

const submissionColumns = `id, owner_id, title, content, audience, submitter_name, submitter_email, status, reviewer_notes, reviewed_at, created_at, updated_at`

// SubmissionRepository stores announcement submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new instance of SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now
	if submission.Status == "" {
		submission.Status = models.SubmissionPending
	}

	const query = `INSERT INTO submissions (id, owner_id, title, content, audience, submitter_name, submitter_email, status, created_at, updated_at)
VALUES (:id, :owner_id, :title, :content, :audience, :submitter_name, :submitter_email, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByID returns the owner's submission by identifier.
func (r *SubmissionRepository) FindByID(ctx context.Context, ownerID, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1 AND owner_id = $2 LIMIT 1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// List returns the owner's submissions matching the filter with the total count.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	conditions := []string{"owner_id = $1"}
	args := []interface{}{filter.OwnerID}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Audience != nil {
		conditions = append(conditions, fmt.Sprintf("audience = $%d", len(args)+1))
		args = append(args, *filter.Audience)
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s FROM submissions%s ORDER BY created_at ASC LIMIT %d OFFSET %d", submissionColumns, where, pageSize, offset)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM submissions"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return submissions, total, nil
}

// ListPendingByAudience returns every pending submission of one audience, oldest first.
func (r *SubmissionRepository) ListPendingByAudience(ctx context.Context, ownerID string, audience models.AnnouncementAudience) ([]models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE owner_id = $1 AND audience = $2 AND status = $3 ORDER BY created_at ASC`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, ownerID, audience, models.SubmissionPending); err != nil {
		return nil, fmt.Errorf("list pending submissions: %w", err)
	}
	return submissions, nil
}

// UpdateStatus transitions a pending submission. sql.ErrNoRows is returned when the
// submission is missing or no longer pending.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, ownerID, id string, status models.SubmissionStatus, notes *string) error {
	now := time.Now().UTC()
	const query = `UPDATE submissions SET status = $3, reviewer_notes = $4, reviewed_at = $5, updated_at = $5 WHERE id = $1 AND owner_id = $2 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, ownerID, status, notes, now)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
