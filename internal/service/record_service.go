package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type bulletinRepository interface {
	Upsert(ctx context.Context, record *models.BulletinRecord) error
	FindByID(ctx context.Context, id string) (*models.BulletinRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.BulletinRecord, error)
	LatestByOwner(ctx context.Context, ownerID string) (*models.BulletinRecord, error)
	Delete(ctx context.Context, id, ownerID string) error
}

type keyedFieldRepository interface {
	Upsert(ctx context.Context, field *models.KeyedField) error
	UpsertBatch(ctx context.Context, fields []models.KeyedField) error
	Get(ctx context.Context, ownerID, key string) (*models.KeyedField, error)
	ListByPrefix(ctx context.Context, ownerID, prefix string) ([]models.KeyedField, error)
}

type recordUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByProfileSlug(ctx context.Context, slug string) (*models.ProfileOwner, error)
	SetActiveBulletinID(ctx context.Context, ownerID, bulletinID string) error
}

// RecordService is the gateway to the hosted bulletin store. Every repository call is
// bounded by the configured per-call timeout.
type RecordService struct {
	bulletins   bulletinRepository
	fields      keyedFieldRepository
	users       recordUserRepository
	logger      *zap.Logger
	callTimeout time.Duration
	now         func() time.Time
}

// NewRecordService constructs a RecordService.
func NewRecordService(bulletins bulletinRepository, fields keyedFieldRepository, users recordUserRepository, logger *zap.Logger, callTimeout time.Duration) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &RecordService{
		bulletins:   bulletins,
		fields:      fields,
		users:       users,
		logger:      logger,
		callTimeout: callTimeout,
		now:         time.Now,
	}
}

func (s *RecordService) call(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return fn(callCtx)
}

// CreateOrUpdateBulletin writes the indexed bulletin row.
func (s *RecordService) CreateOrUpdateBulletin(ctx context.Context, record *models.BulletinRecord) error {
	if record.OwnerID == "" || record.Slug == "" {
		return appErrors.Clone(appErrors.ErrValidation, "bulletin owner and slug are required")
	}
	err := s.call(ctx, func(ctx context.Context) error { return s.bulletins.Upsert(ctx, record) })
	return storeError(err, "bulletin not found", "failed to save bulletin")
}

// GetBulletinByID returns the bulletin row with the given id.
func (s *RecordService) GetBulletinByID(ctx context.Context, id string) (*models.BulletinRecord, error) {
	var record *models.BulletinRecord
	err := s.call(ctx, func(ctx context.Context) (err error) {
		record, err = s.bulletins.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, "bulletin not found", "failed to load bulletin")
	}
	return record, nil
}

// GetBulletinsByOwner lists the owner's bulletins, newest first.
func (s *RecordService) GetBulletinsByOwner(ctx context.Context, ownerID string) ([]models.BulletinRecord, error) {
	var records []models.BulletinRecord
	err := s.call(ctx, func(ctx context.Context) (err error) {
		records, err = s.bulletins.ListByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "bulletins not found", "failed to list bulletins")
	}
	if records == nil {
		records = []models.BulletinRecord{}
	}
	return records, nil
}

// LatestBulletinByOwner returns the owner's most recently created bulletin.
func (s *RecordService) LatestBulletinByOwner(ctx context.Context, ownerID string) (*models.BulletinRecord, error) {
	var record *models.BulletinRecord
	err := s.call(ctx, func(ctx context.Context) (err error) {
		record, err = s.bulletins.LatestByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "no bulletin found", "failed to load latest bulletin")
	}
	return record, nil
}

// DeleteBulletin removes one of the owner's bulletins.
func (s *RecordService) DeleteBulletin(ctx context.Context, id, ownerID string) error {
	err := s.call(ctx, func(ctx context.Context) error { return s.bulletins.Delete(ctx, id, ownerID) })
	return storeError(err, "bulletin not found", "failed to delete bulletin")
}

// GetUser returns the account with the given id.
func (s *RecordService) GetUser(ctx context.Context, ownerID string) (*models.User, error) {
	var user *models.User
	err := s.call(ctx, func(ctx context.Context) (err error) {
		user, err = s.users.FindByID(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "user not found", "failed to load user")
	}
	return user, nil
}

// GetUserByProfileHandle resolves a public profile handle.
func (s *RecordService) GetUserByProfileHandle(ctx context.Context, handle string) (*models.ProfileOwner, error) {
	var owner *models.ProfileOwner
	err := s.call(ctx, func(ctx context.Context) (err error) {
		owner, err = s.users.FindByProfileSlug(ctx, handle)
		return err
	})
	if err != nil {
		return nil, storeError(err, "user not found", "failed to resolve profile")
	}
	return owner, nil
}

// SetActiveBulletinID points the owner's public profile at a bulletin.
func (s *RecordService) SetActiveBulletinID(ctx context.Context, ownerID, bulletinID string) error {
	err := s.call(ctx, func(ctx context.Context) error { return s.users.SetActiveBulletinID(ctx, ownerID, bulletinID) })
	return storeError(err, "user not found", "failed to set active bulletin")
}

// UpsertKeyedField stores a single auxiliary value for the owner.
func (s *RecordService) UpsertKeyedField(ctx context.Context, ownerID, key, value string) error {
	field := &models.KeyedField{Key: key, Value: value, OwnerID: ownerID}
	err := s.call(ctx, func(ctx context.Context) error { return s.fields.Upsert(ctx, field) })
	return storeError(err, "field not found", "failed to save field")
}

// GetKeyedField returns the owner's auxiliary value stored under key.
func (s *RecordService) GetKeyedField(ctx context.Context, ownerID, key string) (string, error) {
	var field *models.KeyedField
	err := s.call(ctx, func(ctx context.Context) (err error) {
		field, err = s.fields.Get(ctx, ownerID, key)
		return err
	})
	if err != nil {
		return "", storeError(err, "field not found", "failed to load field")
	}
	return field.Value, nil
}

// PrepareRecord resolves the row a save will write. Updating reuses the existing id and
// slug; otherwise a new id and a globally unique slug are derived.
func (s *RecordService) PrepareRecord(ctx context.Context, ownerID, existingID string, doc models.BulletinDocument) (*models.BulletinRecord, error) {
	record := &models.BulletinRecord{
		Date:        doc.Date,
		MeetingType: doc.MeetingType,
		OwnerID:     ownerID,
	}
	if existingID != "" {
		existing, err := s.GetBulletinByID(ctx, existingID)
		switch {
		case err == nil && existing.OwnerID != ownerID:
			return nil, appErrors.Clone(appErrors.ErrForbidden, "bulletin belongs to another user")
		case err == nil:
			record.ID = existing.ID
			record.Slug = existing.Slug
			record.CreatedAt = existing.CreatedAt
			return record, nil
		case !errors.Is(err, appErrors.ErrNotFound):
			return nil, err
		}
	}
	record.ID = uuid.NewString()
	record.Slug = NewSlug(ownerID, doc.Date, s.now())
	return record, nil
}

// SaveDocument writes the row and batch-upserts every auxiliary field. It is idempotent
// for a prepared record and safe to retry.
func (s *RecordService) SaveDocument(ctx context.Context, record *models.BulletinRecord, doc models.BulletinDocument) error {
	fields, err := encodeFields(record.Slug, record.OwnerID, doc)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode bulletin")
	}
	if err := s.CreateOrUpdateBulletin(ctx, record); err != nil {
		return err
	}
	err = s.call(ctx, func(ctx context.Context) error { return s.fields.UpsertBatch(ctx, fields) })
	return storeError(err, "bulletin not found", "failed to save bulletin fields")
}

// LoadDocument reassembles a stored bulletin from its row and keyed fields.
func (s *RecordService) LoadDocument(ctx context.Context, id string) (*models.StoredBulletin, error) {
	record, err := s.GetBulletinByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, record)
}

// LoadOwnedDocument is LoadDocument restricted to the owner's bulletins.
func (s *RecordService) LoadOwnedDocument(ctx context.Context, ownerID, id string) (*models.StoredBulletin, error) {
	record, err := s.GetBulletinByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.OwnerID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "bulletin not found")
	}
	return s.assemble(ctx, record)
}

func (s *RecordService) assemble(ctx context.Context, record *models.BulletinRecord) (*models.StoredBulletin, error) {
	var stored []models.KeyedField
	err := s.call(ctx, func(ctx context.Context) (err error) {
		stored, err = s.fields.ListByPrefix(ctx, record.OwnerID, models.BulletinFieldPrefix(record.Slug))
		return err
	})
	if err != nil {
		return nil, storeError(err, "bulletin not found", "failed to load bulletin fields")
	}

	doc := models.BulletinDocument{Date: record.Date, MeetingType: record.MeetingType}
	if failed, err := decodeFields(record.Slug, stored, &doc); err != nil {
		s.logger.Warn("skipping undecodable bulletin fields",
			zap.String("bulletin_id", record.ID),
			zap.Strings("fields", failed),
			zap.Error(err),
		)
	}
	return &models.StoredBulletin{Record: *record, Document: doc}, nil
}

// NewSlug derives a bulletin slug from the owner id, meeting date and a millisecond timestamp.
func NewSlug(ownerID, date string, now time.Time) string {
	owner := slugPart(ownerID)
	if len(owner) > 8 {
		owner = owner[:8]
	}
	if owner == "" {
		owner = "user"
	}
	day := slugPart(date)
	if day == "" {
		day = now.UTC().Format(isoDate)
	}
	return fmt.Sprintf("%s-%s-%d", owner, day, now.UnixMilli())
}

// ValidSlug reports whether s is a well-formed slug of at most max characters.
func ValidSlug(s string, max int) bool {
	return s != "" && len(s) <= max && slugPattern.MatchString(s)
}

func slugPart(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}

// storeError classifies repository failures into the application taxonomy.
func storeError(err error, notFound, failure string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, failure)
	}
}
