package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

type fakeTemplateRepo struct {
	items map[string]models.Template
	seq   int
	err   error
}

func (f *fakeTemplateRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Template, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Template
	for _, tpl := range f.items {
		if tpl.OwnerID == ownerID {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) FindByID(ctx context.Context, ownerID, id string) (*models.Template, error) {
	tpl, ok := f.items[id]
	if !ok || tpl.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	return &tpl, nil
}

func (f *fakeTemplateRepo) Create(ctx context.Context, tpl *models.Template) error {
	if f.err != nil {
		return f.err
	}
	f.seq++
	tpl.ID = fmt.Sprintf("tpl-%d", f.seq)
	f.items[tpl.ID] = *tpl
	return nil
}

func (f *fakeTemplateRepo) Rename(ctx context.Context, ownerID, id, name string) error {
	tpl, ok := f.items[id]
	if !ok || tpl.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	tpl.Name = name
	f.items[id] = tpl
	return nil
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, ownerID, id string) error {
	tpl, ok := f.items[id]
	if !ok || tpl.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

func newTemplateFixture() (*TemplateService, *fakeTemplateRepo, *DraftService) {
	repo := &fakeTemplateRepo{items: map[string]models.Template{}}
	drafts := NewDraftService(newMemoryStore(), nil)
	return NewTemplateService(repo, drafts, nil, nil), repo, drafts
}

func TestTemplateCreateFromDraft(t *testing.T) {
	svc, _, drafts := newTemplateFixture()
	ctx := context.Background()
	session := signedIn()

	_, err := svc.Create(ctx, session, models.CreateTemplateRequest{Name: "Fast Sunday"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	doc := sampleDocument()
	require.NoError(t, drafts.SaveDraft(ctx, "client-1", models.DraftRecord{Document: doc}))

	tpl, err := svc.Create(ctx, session, models.CreateTemplateRequest{Name: "  Fast Sunday  "})
	require.NoError(t, err)
	assert.Equal(t, "Fast Sunday", tpl.Name)
	assert.Equal(t, "owner-1", tpl.OwnerID)
	assert.Equal(t, doc.Theme, tpl.Snapshot.Theme)

	_, err = svc.Create(ctx, session, models.CreateTemplateRequest{Name: "   "})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTemplateCreateNormalizesSnapshot(t *testing.T) {
	svc, _, _ := newTemplateFixture()
	snapshot := models.BulletinDocument{Date: "2024-03-10", MeetingType: models.MeetingSacrament}

	tpl, err := svc.Create(context.Background(), signedIn(), models.CreateTemplateRequest{Name: "Plain", Snapshot: &snapshot})
	require.NoError(t, err)
	assert.Equal(t, 1, countSacraments(tpl.Snapshot.Agenda))
}

func TestTemplateActivateAndDelete(t *testing.T) {
	svc, repo, drafts := newTemplateFixture()
	ctx := context.Background()
	session := signedIn()
	repo.items["tpl-9"] = models.Template{ID: "tpl-9", OwnerID: "owner-1", Name: "Weekly", Snapshot: sampleDocument()}
	require.NoError(t, drafts.SaveDraft(ctx, "client-1", models.DraftRecord{Document: sampleDocument()}))

	_, err := svc.Activate(ctx, session, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	tpl, err := svc.Activate(ctx, session, "tpl-9")
	require.NoError(t, err)
	assert.Equal(t, "Weekly", tpl.Name)

	active, err := drafts.ActiveTemplate(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, "tpl-9", active)
	draft, err := drafts.LoadDraft(ctx, "client-1")
	require.NoError(t, err)
	assert.Nil(t, draft)
	owner, err := drafts.LastOwner(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", owner)

	require.NoError(t, svc.Delete(ctx, session, "tpl-9"))
	active, err = drafts.ActiveTemplate(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	err = svc.Delete(ctx, session, "tpl-9")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTemplateRenameAndOwnership(t *testing.T) {
	svc, repo, _ := newTemplateFixture()
	ctx := context.Background()
	repo.items["tpl-1"] = models.Template{ID: "tpl-1", OwnerID: "owner-1", Name: "Old"}

	tpl, err := svc.Rename(ctx, "owner-1", "tpl-1", models.RenameTemplateRequest{Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, "New", tpl.Name)

	_, err = svc.Rename(ctx, "owner-2", "tpl-1", models.RenameTemplateRequest{Name: "Mine"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Get(ctx, "owner-2", "tpl-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	list, err := svc.List(ctx, "owner-2")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	repo.err = errors.New("db down")
	_, err = svc.List(ctx, "owner-1")
	assert.True(t, errors.Is(err, appErrors.ErrDatabase))
}
