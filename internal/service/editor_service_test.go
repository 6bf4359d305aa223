package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

type fakeTemplateReader struct {
	templates map[string]models.Template
}

func (f *fakeTemplateReader) Get(ctx context.Context, ownerID, id string) (*models.Template, error) {
	tpl, ok := f.templates[id]
	if !ok || tpl.OwnerID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
	}
	return &tpl, nil
}

type fakeSessions struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeSessions) RefreshSession(ctx context.Context, claims *models.JWTClaims) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Session{AccessToken: "refreshed", Claims: claims}, nil
}

type fakeInvalidator struct {
	mu    sync.Mutex
	slugs []string
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, profileSlug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slugs = append(f.slugs, profileSlug)
	return nil
}

func (f *fakeInvalidator) invalidated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.slugs...)
}

type editorFixture struct {
	svc       *EditorService
	drafts    *DraftService
	records   *RecordService
	bulletins *fakeBulletinRepo
	users     *fakeUserRepo
	templates *fakeTemplateReader
	sessions  *fakeSessions
	public    *fakeInvalidator
	delays    []time.Duration
}

func newEditorFixture(t *testing.T, cfg EditorServiceConfig) *editorFixture {
	t.Helper()
	records, bulletins, _, users := newTestRecordService()
	f := &editorFixture{
		drafts:    NewDraftService(newMemoryStore(), nil),
		records:   records,
		bulletins: bulletins,
		users:     users,
		templates: &fakeTemplateReader{templates: map[string]models.Template{}},
		sessions:  &fakeSessions{},
		public:    &fakeInvalidator{},
	}
	f.svc = NewEditorService(EditorServiceParams{
		Drafts:    f.drafts,
		Records:   records,
		Templates: f.templates,
		Sessions:  f.sessions,
		Public:    f.public,
		Config:    cfg,
	})
	f.svc.sleep = func(ctx context.Context, d time.Duration) error {
		f.delays = append(f.delays, d)
		return nil
	}
	return f
}

func signedIn() models.EditorSession {
	return models.EditorSession{
		ClientID: "client-1",
		OwnerID:  "owner-1",
		Claims:   &models.JWTClaims{UserID: "owner-1", ProfileSlug: "smith-ward"},
	}
}

func anonymous() models.EditorSession {
	return models.EditorSession{ClientID: "client-1"}
}

func (f *editorFixture) storeRemote(t *testing.T, doc models.BulletinDocument) string {
	t.Helper()
	ctx := context.Background()
	record, err := f.records.PrepareRecord(ctx, "owner-1", "", doc)
	require.NoError(t, err)
	require.NoError(t, f.records.SaveDocument(ctx, record, doc))
	require.NoError(t, f.records.SetActiveBulletinID(ctx, "owner-1", record.ID))
	return record.ID
}

func TestEditorLoadPriority(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	session := signedIn()

	remote := sampleDocument()
	remote.Theme = "remote"
	remoteID := f.storeRemote(t, remote)

	tplDoc := sampleDocument()
	tplDoc.Theme = "template"
	f.templates.templates["tpl-1"] = models.Template{ID: "tpl-1", OwnerID: "owner-1", Snapshot: tplDoc}
	require.NoError(t, f.drafts.SetActiveTemplate(ctx, "client-1", "tpl-1"))

	draftDoc := sampleDocument()
	draftDoc.Theme = "draft"
	_, err := f.svc.UpdateDraft(ctx, session, draftDoc, "")
	require.NoError(t, err)

	result, err := f.svc.Load(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, models.SourceDraft, result.Source)
	assert.True(t, result.HasUnsavedChanges)
	assert.Equal(t, "draft", result.Document.Theme)

	require.NoError(t, f.svc.DiscardDraft(ctx, session))
	result, err = f.svc.Load(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, models.SourceTemplate, result.Source)
	assert.Equal(t, "tpl-1", result.TemplateID)
	assert.Equal(t, "template", result.Document.Theme)
	assert.False(t, result.HasUnsavedChanges)

	require.NoError(t, f.drafts.ClearActiveTemplate(ctx, "client-1"))
	result, err = f.svc.Load(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, models.SourceRemote, result.Source)
	assert.Equal(t, remoteID, result.RemoteID)
	assert.Equal(t, "remote", result.Document.Theme)

	result, err = f.svc.Load(ctx, anonymous())
	require.NoError(t, err)
	assert.Equal(t, models.SourceBlank, result.Source)
}

func TestEditorLoadBlankUsesDefaults(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	f.svc.now = func() time.Time { return time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC) }

	_, err := f.svc.SaveDefaults(ctx, anonymous(), models.FieldDefaults{WardName: "Cedar Ward", Organist: "Sister Park", StakeName: "North Stake"})
	require.NoError(t, err)

	result, err := f.svc.Load(ctx, anonymous())
	require.NoError(t, err)
	assert.Equal(t, models.SourceBlank, result.Source)
	assert.Equal(t, "Cedar Ward", result.Document.WardName)
	assert.Equal(t, "Sister Park", result.Document.Leadership.Organist)
	assert.Equal(t, "North Stake", result.Document.Leadership.Other["stake"])
	assert.Equal(t, "2024-03-10", result.Document.Date)
	require.Len(t, result.Document.Agenda, 1)
	assert.Equal(t, models.AgendaSacrament, result.Document.Agenda[0].Type)
	assert.NoError(t, ValidateDocument(result.Document))
}

func TestEditorLoadStaleTemplateFallsThrough(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	require.NoError(t, f.drafts.SetActiveTemplate(ctx, "client-1", "gone"))

	result, err := f.svc.Load(ctx, signedIn())
	require.NoError(t, err)
	assert.Equal(t, models.SourceBlank, result.Source)

	active, err := f.drafts.ActiveTemplate(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestEditorLoadTemplateForAnonymousUsesLastOwner(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	f.templates.templates["tpl-1"] = models.Template{ID: "tpl-1", OwnerID: "owner-1", Snapshot: sampleDocument()}
	require.NoError(t, f.drafts.SetActiveTemplate(ctx, "client-1", "tpl-1"))
	require.NoError(t, f.drafts.RememberOwner(ctx, "client-1", "owner-1"))

	result, err := f.svc.Load(ctx, anonymous())
	require.NoError(t, err)
	assert.Equal(t, models.SourceTemplate, result.Source)
}

func TestEditorSaveAnonymousStashesPending(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()

	_, err := f.svc.Save(ctx, anonymous(), models.SaveRequest{Document: sampleDocument()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Zero(t, f.bulletins.upserts)

	pending, err := f.drafts.TakePending(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "Maple Grove Ward", pending.Document.WardName)
}

func TestEditorSaveRejectsInvalidDocument(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	doc := sampleDocument()
	doc.Date = "10/03/2024"

	_, err := f.svc.Save(context.Background(), signedIn(), models.SaveRequest{Document: doc})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, f.sessions.calls)
}

func TestEditorSaveRefreshFailureStashesPending(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	f.sessions.err = appErrors.ErrSessionExpired

	_, err := f.svc.Save(ctx, signedIn(), models.SaveRequest{Document: sampleDocument(), ExistingID: "b1"})
	assert.True(t, errors.Is(err, appErrors.ErrSessionExpired))
	assert.Zero(t, f.bulletins.upserts)

	pending, err := f.drafts.TakePending(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "b1", pending.RemoteID)
}

func TestEditorSaveSuccess(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	session := signedIn()
	doc := sampleDocument()
	_, err := f.svc.UpdateDraft(ctx, session, doc, "")
	require.NoError(t, err)

	result, err := f.svc.Save(ctx, session, models.SaveRequest{Document: doc})
	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.False(t, result.Offline)
	assert.Equal(t, 1, result.Attempts)
	assert.NotEmpty(t, result.Slug)

	assert.Equal(t, result.ID, f.users.activeID("owner-1"))
	assert.Equal(t, []string{"smith-ward"}, f.public.invalidated())

	draft, err := f.drafts.LoadDraft(ctx, "client-1")
	require.NoError(t, err)
	assert.Nil(t, draft)

	owner, err := f.drafts.LastOwner(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", owner)

	stored, err := f.records.LoadOwnedDocument(ctx, "owner-1", result.ID)
	require.NoError(t, err)
	assert.Equal(t, doc, stored.Document)

	again, err := f.svc.Save(ctx, session, models.SaveRequest{Document: doc, ExistingID: result.ID})
	require.NoError(t, err)
	assert.Equal(t, result.ID, again.ID)
	assert.Equal(t, result.Slug, again.Slug)
	assert.Len(t, f.bulletins.records, 1)
}

func TestEditorSaveRetriesTransientFailures(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{RetryBaseDelay: 100 * time.Millisecond})
	f.bulletins.upsertErrs = []error{errors.New("connection reset"), errors.New("connection reset")}

	result, err := f.svc.Save(context.Background(), signedIn(), models.SaveRequest{Document: sampleDocument()})
	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, f.delays)
	assert.Len(t, f.bulletins.records, 1)
}

func TestEditorSaveExhaustedRetriesGoOffline(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{SaveRetries: 2})
	ctx := context.Background()
	session := signedIn()
	f.bulletins.upsertErrs = []error{errors.New("connection reset"), errors.New("connection reset")}
	_, err := f.svc.UpdateDraft(ctx, session, sampleDocument(), "")
	require.NoError(t, err)

	result, err := f.svc.Save(ctx, session, models.SaveRequest{Document: sampleDocument()})
	require.NoError(t, err)
	assert.False(t, result.Saved)
	assert.True(t, result.Offline)
	assert.Equal(t, offlineWarning, result.Warning)
	assert.Equal(t, 2, result.Attempts)

	entries, err := f.svc.ListOffline(ctx, session)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, result.ID, entries[0].ID)
	assert.Equal(t, "owner-1", entries[0].OwnerID)
	assert.NotEmpty(t, entries[0].LastError)

	draft, err := f.drafts.LoadDraft(ctx, "client-1")
	require.NoError(t, err)
	assert.NotNil(t, draft)
	assert.Empty(t, f.users.activeID("owner-1"))
}

func TestEditorSaveNonRetryableFailure(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	f.bulletins.put(models.BulletinRecord{ID: "b-other", Slug: "other", OwnerID: "owner-2"})

	_, err := f.svc.Save(ctx, signedIn(), models.SaveRequest{Document: sampleDocument(), ExistingID: "b-other"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	entries, err := f.svc.ListOffline(ctx, signedIn())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, f.delays)
}

func TestEditorSaveTimeoutThenLateWrite(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{SaveTimeout: 20 * time.Millisecond})
	ctx := context.Background()
	session := signedIn()
	f.bulletins.gate = make(chan struct{})
	_, err := f.svc.UpdateDraft(ctx, session, sampleDocument(), "")
	require.NoError(t, err)

	result, err := f.svc.Save(ctx, session, models.SaveRequest{Document: sampleDocument()})
	require.NoError(t, err)
	assert.False(t, result.Saved)
	assert.True(t, result.Offline)

	entries, err := f.svc.ListOffline(ctx, session)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, result.ID, entries[0].ID)
	assert.Equal(t, "owner-1", entries[0].OwnerID)

	close(f.bulletins.gate)

	assert.Eventually(t, func() bool {
		entries, err := f.drafts.ListOffline(ctx, "client-1", "owner-1")
		return err == nil && len(entries) == 0 && f.users.activeID("owner-1") != ""
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		draft, err := f.drafts.LoadDraft(ctx, "client-1")
		return err == nil && draft != nil && draft.RemoteID == f.users.activeID("owner-1")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEditorResumePending(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()

	result, err := f.svc.ResumePending(ctx, signedIn())
	require.NoError(t, err)
	assert.Nil(t, result)

	_, err = f.svc.Save(ctx, anonymous(), models.SaveRequest{Document: sampleDocument()})
	require.Error(t, err)

	result, err = f.svc.ResumePending(ctx, anonymous())
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = f.svc.ResumePending(ctx, signedIn())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Saved)
	assert.Equal(t, result.ID, f.users.activeID("owner-1"))

	result, err = f.svc.ResumePending(ctx, signedIn())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestEditorResumePendingFailureRestoresDraft(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	f.bulletins.put(models.BulletinRecord{ID: "b-other", Slug: "other", OwnerID: "owner-2"})
	require.NoError(t, f.drafts.StashPending(ctx, "client-1", models.DraftRecord{Document: sampleDocument(), RemoteID: "b-other"}))

	_, err := f.svc.ResumePending(ctx, signedIn())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	draft, err := f.drafts.LoadDraft(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, "b-other", draft.RemoteID)
	assert.Equal(t, "owner-1", draft.OwnerID)
}

func TestEditorSyncOffline(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()

	_, err := f.svc.SyncOffline(ctx, anonymous())
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	valid, err := f.drafts.AppendOffline(ctx, "client-1", models.OfflineBulletin{Document: sampleDocument(), OwnerID: "owner-1"})
	require.NoError(t, err)
	broken := sampleDocument()
	broken.Date = "someday"
	invalid, err := f.drafts.AppendOffline(ctx, "client-1", models.OfflineBulletin{Document: broken, OwnerID: "owner-1"})
	require.NoError(t, err)
	_, err = f.drafts.AppendOffline(ctx, "client-1", models.OfflineBulletin{Document: sampleDocument(), OwnerID: "owner-2"})
	require.NoError(t, err)

	result, err := f.svc.SyncOffline(ctx, signedIn())
	require.NoError(t, err)
	require.Len(t, result.Synced, 1)
	assert.True(t, result.Synced[0].Saved)
	require.Len(t, result.Remaining, 1)
	assert.Equal(t, invalid.ID, result.Remaining[0].ID)
	assert.Contains(t, result.Remaining[0].LastError, "date")
	assert.Equal(t, 1, f.sessions.calls)

	all, err := f.drafts.ListOffline(ctx, "client-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, entry := range all {
		assert.NotEqual(t, valid.ID, entry.ID)
	}
}

func TestEditorSyncOfflineRequiresFreshSession(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	_, err := f.drafts.AppendOffline(ctx, "client-1", models.OfflineBulletin{Document: sampleDocument(), OwnerID: "owner-1"})
	require.NoError(t, err)
	f.sessions.err = errors.New("token revoked")

	_, err = f.svc.SyncOffline(ctx, signedIn())
	assert.True(t, errors.Is(err, appErrors.ErrSessionExpired))
	assert.Zero(t, f.bulletins.upserts)
}

func TestEditorConsolidateAnnouncements(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	session := signedIn()
	doc := sampleDocument()
	doc.Announcements = []models.Announcement{
		{ID: "1", Title: "Potluck", Content: "Bring a dish", Audience: models.AudienceWard},
		{ID: "2", Title: "Youth camp", Content: "Sign up", Audience: models.AudienceYouth},
		{ID: "3", Title: "Choir", Content: "Thursdays", Audience: models.AudienceWard},
	}
	_, err := f.svc.UpdateDraft(ctx, session, doc, "b1")
	require.NoError(t, err)

	draft, err := f.svc.ConsolidateAnnouncements(ctx, session)
	require.NoError(t, err)
	require.Len(t, draft.Document.Announcements, 2)
	merged := draft.Document.Announcements[0]
	assert.Equal(t, models.AudienceWard, merged.Audience)
	assert.Empty(t, merged.Title)
	assert.True(t, strings.Contains(merged.Content, "Potluck") && strings.Contains(merged.Content, "Choir"))
	assert.Equal(t, "2", draft.Document.Announcements[1].ID)
	assert.Equal(t, "b1", draft.RemoteID)
}

func TestEditorAppendAnnouncementSkipsDuplicates(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	ann := models.Announcement{Title: "Food drive", Content: "Saturday", Audience: models.AudienceWard}

	appended, err := f.svc.AppendAnnouncement(ctx, signedIn(), ann)
	require.NoError(t, err)
	assert.True(t, appended)

	appended, err = f.svc.AppendAnnouncement(ctx, signedIn(), ann)
	require.NoError(t, err)
	assert.False(t, appended)

	draft, err := f.drafts.LoadDraft(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Len(t, draft.Document.Announcements, 1)
}

func TestEditorTerminology(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	ctx := context.Background()
	f.users.users["owner-1"].Terminology = "branch"

	term, err := f.svc.Terminology(ctx, anonymous())
	require.NoError(t, err)
	assert.Equal(t, models.TerminologyWard, term.Key)

	term, err = f.svc.Terminology(ctx, signedIn())
	require.NoError(t, err)
	assert.Equal(t, models.TerminologyBranch, term.Key)

	_, err = f.svc.SetTerminology(ctx, signedIn(), "stake")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.SetTerminology(ctx, signedIn(), models.TerminologyWard)
	require.NoError(t, err)
	term, err = f.svc.Terminology(ctx, signedIn())
	require.NoError(t, err)
	assert.Equal(t, "Bishop", term.Leader)
}

func TestEditorTerminologyLogsAccountLookupFailure(t *testing.T) {
	f := newEditorFixture(t, EditorServiceConfig{})
	core, logs := observer.New(zapcore.WarnLevel)
	f.svc.logger = zap.New(core)
	delete(f.users.users, "owner-1")

	term, err := f.svc.Terminology(context.Background(), signedIn())
	require.NoError(t, err)
	assert.Equal(t, models.TerminologyWard, term.Key)

	entries := logs.FilterMessage("account terminology unavailable, using default").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "owner-1", entries[0].ContextMap()["owner_id"])
}
