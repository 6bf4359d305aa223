package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

type publicRecords interface {
	GetUserByProfileHandle(ctx context.Context, handle string) (*models.ProfileOwner, error)
	LatestBulletinByOwner(ctx context.Context, ownerID string) (*models.BulletinRecord, error)
	LoadDocument(ctx context.Context, id string) (*models.StoredBulletin, error)
}

// PublicBulletinService resolves the bulletin a visitor of a profile should see.
type PublicBulletinService struct {
	records     publicRecords
	cache       *CacheService
	readTimeout time.Duration
	logger      *zap.Logger
}

// NewPublicBulletinService constructs the service.
func NewPublicBulletinService(records publicRecords, cache *CacheService, readTimeout time.Duration, logger *zap.Logger) *PublicBulletinService {
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicBulletinService{records: records, cache: cache, readTimeout: readTimeout, logger: logger}
}

// Resolve returns the active bulletin of the profile, else its newest one. The slug is
// validated before any backend call. The boolean reports a cache hit.
func (s *PublicBulletinService) Resolve(ctx context.Context, profileSlug string) (*models.PublicBulletin, bool, error) {
	profileSlug = strings.TrimSpace(profileSlug)
	if profileSlug == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "profileSlug is required")
	}
	if !ValidSlug(profileSlug, profileSlugMaxLength) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid profileSlug")
	}
	if s.records == nil {
		return nil, false, appErrors.Clone(appErrors.ErrMisconfigured, "bulletin store is not configured")
	}

	key := s.cacheKey(profileSlug)
	var cached models.PublicBulletin
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	var owner *models.ProfileOwner
	err := s.read(ctx, func(ctx context.Context) (err error) {
		owner, err = s.records.GetUserByProfileHandle(ctx, profileSlug)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	stored, err := s.resolveBulletin(ctx, owner)
	if err != nil {
		return nil, false, err
	}
	bulletin := stored.Public()
	s.cache.Set(ctx, key, bulletin, 0)
	return &bulletin, false, nil
}

func (s *PublicBulletinService) resolveBulletin(ctx context.Context, owner *models.ProfileOwner) (*models.StoredBulletin, error) {
	var stored *models.StoredBulletin
	if owner.ActiveBulletinID != nil && *owner.ActiveBulletinID != "" {
		err := s.read(ctx, func(ctx context.Context) (err error) {
			stored, err = s.records.LoadDocument(ctx, *owner.ActiveBulletinID)
			return err
		})
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		s.logger.Warn("active bulletin pointer is dangling", zap.String("owner_id", owner.OwnerID))
	}

	var latest *models.BulletinRecord
	err := s.read(ctx, func(ctx context.Context) (err error) {
		latest, err = s.records.LatestBulletinByOwner(ctx, owner.OwnerID)
		return err
	})
	if errors.Is(err, appErrors.ErrNotFound) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no bulletin has been published")
	}
	if err != nil {
		return nil, err
	}
	err = s.read(ctx, func(ctx context.Context) (err error) {
		stored, err = s.records.LoadDocument(ctx, latest.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// read races fn against the read timeout.
func (s *PublicBulletinService) read(ctx context.Context, fn func(ctx context.Context) error) error {
	readCtx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(readCtx) }()
	select {
	case err := <-done:
		return err
	case <-readCtx.Done():
		if errors.Is(readCtx.Err(), context.DeadlineExceeded) {
			return appErrors.Clone(appErrors.ErrTimeout, appErrors.ErrTimeout.Message)
		}
		return readCtx.Err()
	}
}

// Invalidate drops the cached bulletin of a profile.
func (s *PublicBulletinService) Invalidate(ctx context.Context, profileSlug string) error {
	return s.cache.Invalidate(ctx, s.cacheKey(profileSlug))
}

func (s *PublicBulletinService) cacheKey(profileSlug string) string {
	return s.cache.Key("public", profileSlug)
}
