package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

type templateRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Template, error)
	FindByID(ctx context.Context, ownerID, id string) (*models.Template, error)
	Create(ctx context.Context, tpl *models.Template) error
	Rename(ctx context.Context, ownerID, id, name string) error
	Delete(ctx context.Context, ownerID, id string) error
}

// TemplateService manages named bulletin snapshots and the client's active template.
type TemplateService struct {
	repo      templateRepository
	drafts    *DraftService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTemplateService constructs the service.
func NewTemplateService(repo templateRepository, drafts *DraftService, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{repo: repo, drafts: drafts, validator: validate, logger: logger}
}

// List returns the owner's templates.
func (s *TemplateService) List(ctx context.Context, ownerID string) ([]models.Template, error) {
	templates, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "failed to list templates")
	}
	if templates == nil {
		templates = []models.Template{}
	}
	return templates, nil
}

// Get returns one of the owner's templates.
func (s *TemplateService) Get(ctx context.Context, ownerID, id string) (*models.Template, error) {
	tpl, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, templateError(err, "failed to get template")
	}
	return tpl, nil
}

// Create stores a new template. Without a snapshot the client's current draft is used.
func (s *TemplateService) Create(ctx context.Context, session models.EditorSession, req models.CreateTemplateRequest) (*models.Template, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}

	var snapshot models.BulletinDocument
	if req.Snapshot != nil {
		snapshot = *req.Snapshot
	} else {
		draft, err := s.drafts.LoadDraft(ctx, session.ClientID)
		if err != nil {
			return nil, err
		}
		if draft == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "snapshot is required when there is no draft")
		}
		snapshot = draft.Document
	}

	tpl := &models.Template{
		OwnerID:  session.OwnerID,
		Name:     req.Name,
		Snapshot: NormalizeDocument(snapshot),
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "failed to create template")
	}
	s.logger.Info("template created", zap.String("template_id", tpl.ID), zap.String("owner_id", tpl.OwnerID))
	return tpl, nil
}

// Rename changes a template's name.
func (s *TemplateService) Rename(ctx context.Context, ownerID, id string, req models.RenameTemplateRequest) (*models.Template, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	if err := s.repo.Rename(ctx, ownerID, id, req.Name); err != nil {
		return nil, templateError(err, "failed to rename template")
	}
	return s.Get(ctx, ownerID, id)
}

// Delete removes a template and forgets it as the client's active template.
func (s *TemplateService) Delete(ctx context.Context, session models.EditorSession, id string) error {
	if err := s.repo.Delete(ctx, session.OwnerID, id); err != nil {
		return templateError(err, "failed to delete template")
	}
	active, err := s.drafts.ActiveTemplate(ctx, session.ClientID)
	if err != nil {
		s.logger.Warn("failed to read active template", zap.Error(err))
		return nil
	}
	if active == id {
		if err := s.drafts.ClearActiveTemplate(ctx, session.ClientID); err != nil {
			s.logger.Warn("failed to clear active template", zap.Error(err))
		}
	}
	return nil
}

// Activate makes the template the editor's starting point and discards the draft.
func (s *TemplateService) Activate(ctx context.Context, session models.EditorSession, id string) (*models.Template, error) {
	tpl, err := s.Get(ctx, session.OwnerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.drafts.SetActiveTemplate(ctx, session.ClientID, tpl.ID); err != nil {
		return nil, err
	}
	if err := s.drafts.ClearDraft(ctx, session.ClientID); err != nil {
		return nil, err
	}
	if err := s.drafts.RememberOwner(ctx, session.ClientID, session.OwnerID); err != nil {
		s.logger.Warn("failed to remember owner", zap.Error(err))
	}
	return tpl, nil
}

// Deactivate forgets the client's active template.
func (s *TemplateService) Deactivate(ctx context.Context, session models.EditorSession) error {
	return s.drafts.ClearActiveTemplate(ctx, session.ClientID)
}

func templateError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "template not found")
	}
	return appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, message)
}
