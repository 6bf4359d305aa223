package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
	"github.com/noah-isme/bulletin-api/pkg/storage"
)

type shareRecords interface {
	GetBulletinByID(ctx context.Context, id string) (*models.BulletinRecord, error)
	LoadDocument(ctx context.Context, id string) (*models.StoredBulletin, error)
}

type shareSigner interface {
	Generate(subject, payload string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (*storage.SignedToken, error)
}

// ShareLink is a signed, expiring link to one bulletin.
type ShareLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ShareService issues and resolves share links. QR rendering is left to the client.
type ShareService struct {
	records shareRecords
	signer  shareSigner
	baseURL string
	logger  *zap.Logger
}

// NewShareService constructs the service. baseURL is the public origin links point at.
func NewShareService(records shareRecords, signer shareSigner, baseURL string, logger *zap.Logger) *ShareService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShareService{records: records, signer: signer, baseURL: baseURL, logger: logger}
}

// Create issues a link to one of the owner's bulletins.
func (s *ShareService) Create(ctx context.Context, ownerID, bulletinID string) (*ShareLink, error) {
	record, err := s.records.GetBulletinByID(ctx, bulletinID)
	if err != nil {
		return nil, err
	}
	if record.OwnerID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "bulletin not found")
	}
	token, expiresAt, err := s.signer.Generate(record.ID, record.OwnerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMisconfigured.Code, appErrors.ErrMisconfigured.Status, "share links are not configured")
	}
	s.logger.Info("share link issued", zap.String("bulletin_id", record.ID), zap.Time("expires_at", expiresAt))
	return &ShareLink{URL: s.baseURL + "/share/" + token, Token: token, ExpiresAt: expiresAt}, nil
}

// Resolve returns the bulletin a share token points at.
func (s *ShareService) Resolve(ctx context.Context, token string) (*models.PublicBulletin, error) {
	parsed, err := s.signer.Parse(token, false)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return nil, appErrors.Clone(appErrors.ErrLinkExpired, "share link has expired")
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "share link is invalid")
	}

	stored, err := s.records.LoadDocument(ctx, parsed.Subject)
	if err != nil {
		return nil, err
	}
	if stored.Record.OwnerID != parsed.Payload {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "bulletin not found")
	}
	bulletin := stored.Public()
	return &bulletin, nil
}
