package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bulletin-api/internal/models"
	"github.com/noah-isme/bulletin-api/internal/service"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

type bulletinRecordsStub struct {
	stored   map[string]*models.StoredBulletin
	activeID string
	deleted  []string
}

func (s *bulletinRecordsStub) GetBulletinsByOwner(ctx context.Context, ownerID string) ([]models.BulletinRecord, error) {
	out := []models.BulletinRecord{}
	for _, b := range s.stored {
		if b.Record.OwnerID == ownerID {
			out = append(out, b.Record)
		}
	}
	return out, nil
}

func (s *bulletinRecordsStub) LoadOwnedDocument(ctx context.Context, ownerID, id string) (*models.StoredBulletin, error) {
	b, ok := s.stored[id]
	if !ok || b.Record.OwnerID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "bulletin not found")
	}
	return b, nil
}

func (s *bulletinRecordsStub) DeleteBulletin(ctx context.Context, id, ownerID string) error {
	if _, err := s.LoadOwnedDocument(ctx, ownerID, id); err != nil {
		return err
	}
	delete(s.stored, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *bulletinRecordsStub) SetActiveBulletinID(ctx context.Context, ownerID, bulletinID string) error {
	s.activeID = bulletinID
	return nil
}

type shareCreatorStub struct{}

func (shareCreatorStub) Create(ctx context.Context, ownerID, bulletinID string) (*service.ShareLink, error) {
	return &service.ShareLink{URL: "https://example.org/share/t", Token: "t", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type exporterStub struct{}

func (exporterStub) BulletinPDF(ctx context.Context, ownerID, bulletinID string) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "bulletin_x.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

type invalidatorStub struct {
	slugs []string
}

func (s *invalidatorStub) Invalidate(ctx context.Context, slug string) error {
	s.slugs = append(s.slugs, slug)
	return nil
}

func newBulletinHandlerFixture() (*BulletinHandler, *bulletinRecordsStub, *invalidatorStub) {
	records := &bulletinRecordsStub{stored: map[string]*models.StoredBulletin{
		"b1": {Record: models.BulletinRecord{ID: "b1", OwnerID: "owner-1", Slug: "smith-2024-03-10"}},
		"b2": {Record: models.BulletinRecord{ID: "b2", OwnerID: "owner-2"}},
	}}
	public := &invalidatorStub{}
	return NewBulletinHandler(records, shareCreatorStub{}, exporterStub{}, public, nil), records, public
}

var ownerClaims = &models.JWTClaims{UserID: "owner-1", ProfileSlug: "smith-ward"}

func TestBulletinHandlerSetActiveInvalidatesPublicPage(t *testing.T) {
	h, records, public := newBulletinHandlerFixture()

	c, w := editorContext(http.MethodPut, "/api/v1/bulletins/b1/active", nil, ownerClaims, "")
	c.AddParam("id", "b1")
	h.SetActive(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b1", records.activeID)
	assert.Equal(t, []string{"smith-ward"}, public.slugs)

	c, w = editorContext(http.MethodPut, "/api/v1/bulletins/b2/active", nil, ownerClaims, "")
	c.AddParam("id", "b2")
	h.SetActive(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "b1", records.activeID)
}

func TestBulletinHandlerListAndDelete(t *testing.T) {
	h, records, public := newBulletinHandlerFixture()

	c, w := editorContext(http.MethodGet, "/api/v1/bulletins", nil, ownerClaims, "")
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.BulletinRecord
	decodeEnvelope(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "b1", list[0].ID)

	c, w = editorContext(http.MethodDelete, "/api/v1/bulletins/b2", nil, ownerClaims, "")
	c.AddParam("id", "b2")
	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = editorContext(http.MethodDelete, "/api/v1/bulletins/b1", nil, ownerClaims, "")
	c.AddParam("id", "b1")
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"b1"}, records.deleted)
	assert.Equal(t, []string{"smith-ward"}, public.slugs)
}

func TestBulletinHandlerRequiresOwner(t *testing.T) {
	h, _, _ := newBulletinHandlerFixture()
	c, w := editorContext(http.MethodGet, "/api/v1/bulletins", nil, nil, "")
	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBulletinHandlerDownloadsAndShares(t *testing.T) {
	h, _, _ := newBulletinHandlerFixture()

	c, w := editorContext(http.MethodGet, "/api/v1/bulletins/b1/pdf", nil, ownerClaims, "")
	c.AddParam("id", "b1")
	h.PDF(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="bulletin_x.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", w.Body.String())

	c, w = editorContext(http.MethodPost, "/api/v1/bulletins/b1/share", nil, ownerClaims, "")
	c.AddParam("id", "b1")
	h.Share(c)
	require.Equal(t, http.StatusCreated, w.Code)
	var link service.ShareLink
	decodeEnvelope(t, w, &link)
	assert.Equal(t, "t", link.Token)
}
