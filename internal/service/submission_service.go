package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
	"github.com/noah-isme/bulletin-api/pkg/htmlsanitize"
)

const profileSlugMaxLength = 50

type submissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, ownerID, id string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	ListPendingByAudience(ctx context.Context, ownerID string, audience models.AnnouncementAudience) ([]models.Submission, error)
	UpdateStatus(ctx context.Context, ownerID, id string, status models.SubmissionStatus, notes *string) error
}

type profileResolver interface {
	GetUserByProfileHandle(ctx context.Context, handle string) (*models.ProfileOwner, error)
}

type announcementAppender interface {
	AppendAnnouncement(ctx context.Context, session models.EditorSession, ann models.Announcement) (bool, error)
}

// SubmissionListRequest describes filters for listing submissions.
type SubmissionListRequest struct {
	Status   string `form:"status"`
	Audience string `form:"audience"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// SubmissionService handles the review workflow of announcement submissions.
type SubmissionService struct {
	repo      submissionRepository
	profiles  profileResolver
	editor    announcementAppender
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubmissionService constructs the service.
func NewSubmissionService(repo submissionRepository, profiles profileResolver, editor announcementAppender, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SubmissionService{repo: repo, profiles: profiles, editor: editor, validator: validate, logger: logger}
	if err := RegisterValidations(svc.validator); err != nil {
		panic(err)
	}
	return svc
}

var bulletinValidations = map[string]validator.Func{
	"audience": func(fl validator.FieldLevel) bool {
		return models.NormalizeAudience(fl.Field().String()).Valid()
	},
	"meeting_type": func(fl validator.FieldLevel) bool {
		_, ok := meetingTypes[models.MeetingType(strings.ToLower(fl.Field().String()))]
		return ok
	},
}

// RegisterValidations installs the bulletin-specific validation tags.
func RegisterValidations(v *validator.Validate) error {
	return registerTags(v, bulletinValidations)
}

func registerTags(v *validator.Validate, tags map[string]validator.Func) error {
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register validation %q: %w", tag, err)
		}
	}
	return nil
}

// List returns the owner's submissions with pagination.
func (s *SubmissionService) List(ctx context.Context, ownerID string, req SubmissionListRequest) ([]models.Submission, *models.Pagination, error) {
	filter := models.SubmissionFilter{OwnerID: ownerID, Page: req.Page, PageSize: req.PageSize}
	if req.Status != "" {
		status := models.SubmissionStatus(strings.ToLower(req.Status))
		switch status {
		case models.SubmissionPending, models.SubmissionApproved, models.SubmissionRejected:
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
		}
		filter.Status = &status
	}
	if req.Audience != "" {
		audience := models.NormalizeAudience(req.Audience)
		if !audience.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown audience")
		}
		filter.Audience = &audience
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "failed to list submissions")
	}
	if rows == nil {
		rows = []models.Submission{}
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Create records a submission from the public intake form.
func (s *SubmissionService) Create(ctx context.Context, req models.CreateSubmissionRequest) (*models.Submission, error) {
	req.ProfileSlug = strings.TrimSpace(req.ProfileSlug)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if !ValidSlug(req.ProfileSlug, profileSlugMaxLength) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid profile slug")
	}

	owner, err := s.profiles.GetUserByProfileHandle(ctx, req.ProfileSlug)
	if err != nil {
		return nil, err
	}

	submission := &models.Submission{
		OwnerID:        owner.OwnerID,
		Title:          htmlsanitize.Text(req.Title),
		Content:        htmlsanitize.Sanitize(req.Content),
		Audience:       models.NormalizeAudience(req.Audience),
		SubmitterName:  htmlsanitize.Text(req.SubmitterName),
		SubmitterEmail: strings.TrimSpace(req.SubmitterEmail),
		Status:         models.SubmissionPending,
	}
	if submission.Title == "" && submission.Content == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission has no content")
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "failed to create submission")
	}
	s.logger.Info("submission received",
		zap.String("submission_id", submission.ID),
		zap.String("owner_id", submission.OwnerID),
		zap.String("audience", string(submission.Audience)),
	)
	return submission, nil
}

// Approve appends a pending submission to the working document and then marks it
// approved. The submission stays pending when the append fails, so approval can be
// retried; a retry after a failed status update skips the append as a duplicate.
func (s *SubmissionService) Approve(ctx context.Context, session models.EditorSession, id string, req models.ReviewSubmissionRequest) (*models.ReviewResult, error) {
	submission, err := s.loadPending(ctx, session.OwnerID, id, req)
	if err != nil {
		return nil, err
	}
	appended, err := s.editor.AppendAnnouncement(ctx, session, submission.AsAnnouncement())
	if err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, session.OwnerID, submission, models.SubmissionApproved, req); err != nil {
		return nil, err
	}
	return &models.ReviewResult{Submission: *submission, Appended: appended}, nil
}

// Reject marks a pending submission rejected. Rejection is terminal.
func (s *SubmissionService) Reject(ctx context.Context, ownerID, id string, req models.ReviewSubmissionRequest) (*models.ReviewResult, error) {
	submission, err := s.loadPending(ctx, ownerID, id, req)
	if err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, ownerID, submission, models.SubmissionRejected, req); err != nil {
		return nil, err
	}
	return &models.ReviewResult{Submission: *submission}, nil
}

func (s *SubmissionService) loadPending(ctx context.Context, ownerID, id string, req models.ReviewSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	submission, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "failed to load submission")
	}
	if submission.Status != models.SubmissionPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "submission has already been reviewed")
	}
	return submission, nil
}

func (s *SubmissionService) setStatus(ctx context.Context, ownerID string, submission *models.Submission, status models.SubmissionStatus, req models.ReviewSubmissionRequest) error {
	notes := optionalNotes(req.Notes)
	if err := s.repo.UpdateStatus(ctx, ownerID, submission.ID, status, notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "submission has already been reviewed")
		}
		return appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "failed to update submission")
	}
	submission.Status = status
	submission.ReviewerNotes = notes
	return nil
}

// ApproveGroup approves every pending submission of one audience with individual updates.
// Failed updates are reported, not rolled back. The approved items are consolidated into
// one announcement and appended unless an identical one already exists.
func (s *SubmissionService) ApproveGroup(ctx context.Context, session models.EditorSession, req models.ApproveGroupRequest) (*models.BatchApprovalResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	audience := models.NormalizeAudience(req.Audience)

	pending, err := s.repo.ListPendingByAudience(ctx, session.OwnerID, audience)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "failed to list pending submissions")
	}
	if len(pending) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no pending submissions for this audience")
	}

	result := &models.BatchApprovalResult{
		Audience: audience,
		Approved: make([]string, 0, len(pending)),
		Failed:   []models.BatchFailure{},
	}
	notes := optionalNotes(req.Notes)
	approved := make([]models.Announcement, 0, len(pending))
	for _, submission := range pending {
		if err := s.repo.UpdateStatus(ctx, session.OwnerID, submission.ID, models.SubmissionApproved, notes); err != nil {
			s.logger.Warn("group approval update failed",
				zap.String("submission_id", submission.ID),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, models.BatchFailure{SubmissionID: submission.ID, Error: batchFailureReason(err)})
			continue
		}
		result.Approved = append(result.Approved, submission.ID)
		approved = append(approved, submission.AsAnnouncement())
	}
	if len(approved) == 0 {
		result.Warning = "no submissions could be approved"
		return result, nil
	}

	merged := ConsolidateAnnouncements(approved)[0]
	if merged.ID == "" {
		merged.ID = uuid.NewString()
	}
	result.Announcement = &merged
	appended, err := s.editor.AppendAnnouncement(ctx, session, merged)
	if err != nil {
		s.logger.Error("approved submissions could not be added to the bulletin", zap.Error(err))
		result.Warning = "submissions were approved but could not be added to the bulletin"
		return result, nil
	}
	result.Appended = appended
	if len(result.Failed) > 0 {
		result.Warning = "some submissions could not be approved"
	}
	return result, nil
}

func optionalNotes(notes string) *string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil
	}
	return &notes
}

func batchFailureReason(err error) string {
	if errors.Is(err, sql.ErrNoRows) {
		return "submission is no longer pending"
	}
	return "update failed"
}
