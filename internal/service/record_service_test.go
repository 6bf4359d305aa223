package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

type fakeBulletinRepo struct {
	mu         sync.Mutex
	records    map[string]models.BulletinRecord
	upsertErrs []error
	upserts    int
	gate       chan struct{}
	findErr    error
	findCalls  int
}

func newFakeBulletinRepo() *fakeBulletinRepo {
	return &fakeBulletinRepo{records: make(map[string]models.BulletinRecord)}
}

func (f *fakeBulletinRepo) Upsert(ctx context.Context, record *models.BulletinRecord) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if len(f.upsertErrs) > 0 {
		err := f.upsertErrs[0]
		f.upsertErrs = f.upsertErrs[1:]
		if err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	if existing, ok := f.records[record.ID]; ok {
		record.CreatedAt = existing.CreatedAt
	} else if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	f.records[record.ID] = *record
	return nil
}

func (f *fakeBulletinRepo) FindByID(ctx context.Context, id string) (*models.BulletinRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	record, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &record, nil
}

func (f *fakeBulletinRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.BulletinRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BulletinRecord
	for _, record := range f.records {
		if record.OwnerID == ownerID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeBulletinRepo) LatestByOwner(ctx context.Context, ownerID string) (*models.BulletinRecord, error) {
	list, _ := f.ListByOwner(ctx, ownerID)
	if len(list) == 0 {
		return nil, sql.ErrNoRows
	}
	return &list[0], nil
}

func (f *fakeBulletinRepo) Delete(ctx context.Context, id, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok || record.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(f.records, id)
	return nil
}

func (f *fakeBulletinRepo) put(record models.BulletinRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.ID] = record
}

type fakeFieldRepo struct {
	mu     sync.Mutex
	values map[string]models.KeyedField
}

func newFakeFieldRepo() *fakeFieldRepo {
	return &fakeFieldRepo{values: make(map[string]models.KeyedField)}
}

func (f *fakeFieldRepo) Upsert(ctx context.Context, field *models.KeyedField) error {
	return f.UpsertBatch(ctx, []models.KeyedField{*field})
}

func (f *fakeFieldRepo) UpsertBatch(ctx context.Context, fields []models.KeyedField) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range fields {
		f.values[field.OwnerID+"|"+field.Key] = field
	}
	return nil
}

func (f *fakeFieldRepo) Get(ctx context.Context, ownerID, key string) (*models.KeyedField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	field, ok := f.values[ownerID+"|"+key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &field, nil
}

func (f *fakeFieldRepo) ListByPrefix(ctx context.Context, ownerID, prefix string) ([]models.KeyedField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.KeyedField
	for _, field := range f.values {
		if field.OwnerID == ownerID && strings.HasPrefix(field.Key, prefix) {
			out = append(out, field)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*models.User)}
	for i := range users {
		user := users[i]
		repo.users[user.ID] = &user
	}
	return repo
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) FindByProfileSlug(ctx context.Context, slug string) (*models.ProfileOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ProfileSlug == slug && user.Active {
			return &models.ProfileOwner{OwnerID: user.ID, ActiveBulletinID: user.ActiveBulletinID}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) SetActiveBulletinID(ctx context.Context, ownerID, bulletinID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[ownerID]
	if !ok {
		return sql.ErrNoRows
	}
	id := bulletinID
	user.ActiveBulletinID = &id
	return nil
}

func (f *fakeUserRepo) activeID(ownerID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[ownerID]; ok && user.ActiveBulletinID != nil {
		return *user.ActiveBulletinID
	}
	return ""
}

func sampleDocument() models.BulletinDocument {
	return NormalizeDocument(models.BulletinDocument{
		WardName:          "Maple Grove Ward",
		Date:              "2024-03-10",
		MeetingType:       models.MeetingSacrament,
		Theme:             "Faith in every footstep",
		LeadershipMessage: "<p>Welcome <strong>home</strong></p>",
		Announcements: []models.Announcement{
			{ID: "a1", Title: "Potluck", Content: "Bring a dish", Audience: models.AudienceWard, Category: "social"},
			{ID: "a2", Title: "RS Lunch", Content: "Noon", Audience: models.AudienceReliefSociety},
		},
		Meetings:      []models.Meeting{{ID: "m1", Title: "Choir practice", Day: "Thursday", Time: "19:00"}},
		SpecialEvents: []models.SpecialEvent{{ID: "e1", Title: "Service day", Date: "2024-03-16"}},
		Agenda: []models.AgendaItem{
			{ID: "g1", Type: models.AgendaSacrament},
			{ID: "g2", Type: models.AgendaSpeaker, Name: "Sister Lee", Topic: "Gratitude"},
			{ID: "g3", Type: models.AgendaMusical, Title: "Be Still My Soul", Performers: "Primary choir"},
			{ID: "g4", Type: models.AgendaSpeaker, Name: "Brother Diaz", Topic: "Service"},
		},
		Prayers:      models.Prayers{Invocation: "Sister Ito", Benediction: "Brother Ray"},
		MusicProgram: models.MusicProgram{Opening: models.Hymn{Number: "2", Title: "The Spirit of God"}},
		Leadership: models.Leadership{
			Presiding:  "Bishop Hale",
			Conducting: "Brother Kim",
			Organist:   "Sister Park",
			Other:      map[string]string{"stake": "North Stake"},
		},
		LeadershipRoster: []models.LeadershipRosterEntry{{ID: "r1", Title: "Bishop", Name: "Bishop Hale"}},
		Missionaries:     []models.MissionaryEntry{{ID: "x1", Name: "Elder Young", Mission: "Peru Lima"}},
		BackgroundImage:  "https://cdn.example.com/chapel.jpg",
		ImagePosition:    &models.ImagePosition{X: 40, Y: 60},
	})
}

func newTestRecordService() (*RecordService, *fakeBulletinRepo, *fakeFieldRepo, *fakeUserRepo) {
	bulletins := newFakeBulletinRepo()
	fields := newFakeFieldRepo()
	users := newFakeUserRepo(models.User{ID: "owner-1", ProfileSlug: "maple-grove", Active: true, Terminology: "ward"})
	return NewRecordService(bulletins, fields, users, nil, time.Second), bulletins, fields, users
}

func TestRecordServiceSaveLoadRoundTrip(t *testing.T) {
	svc, _, fields, _ := newTestRecordService()
	ctx := context.Background()
	doc := sampleDocument()

	record, err := svc.PrepareRecord(ctx, "owner-1", "", doc)
	require.NoError(t, err)
	require.NoError(t, svc.SaveDocument(ctx, record, doc))

	assert.Len(t, fields.values, len(bulletinFields))
	_, err = svc.GetKeyedField(ctx, "owner-1", models.BulletinFieldKey(record.Slug, "announcements"))
	require.NoError(t, err)

	stored, err := svc.LoadDocument(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, doc, stored.Document)
	assert.Equal(t, record.Slug, stored.Record.Slug)
	assert.Equal(t, []string{"g1", "g2", "g3", "g4"}, agendaIDs(stored.Document.Agenda))
}

func agendaIDs(items []models.AgendaItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func TestRecordServiceLoadSkipsCorruptField(t *testing.T) {
	svc, _, fields, _ := newTestRecordService()
	ctx := context.Background()
	doc := sampleDocument()
	record, err := svc.PrepareRecord(ctx, "owner-1", "", doc)
	require.NoError(t, err)
	require.NoError(t, svc.SaveDocument(ctx, record, doc))

	require.NoError(t, svc.UpsertKeyedField(ctx, "owner-1", models.BulletinFieldKey(record.Slug, "prayers"), "{not json"))

	stored, err := svc.LoadDocument(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Prayers{}, stored.Document.Prayers)
	assert.Equal(t, doc.Announcements, stored.Document.Announcements)
	assert.NotEmpty(t, fields.values)
}

func TestRecordServicePrepareRecordReusesSlug(t *testing.T) {
	svc, bulletins, _, _ := newTestRecordService()
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bulletins.put(models.BulletinRecord{ID: "b1", Slug: "owner-1-2024-03-03-1", OwnerID: "owner-1", CreatedAt: created})

	record, err := svc.PrepareRecord(ctx, "owner-1", "b1", sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "b1", record.ID)
	assert.Equal(t, "owner-1-2024-03-03-1", record.Slug)
	assert.Equal(t, "2024-03-10", record.Date)

	_, err = svc.PrepareRecord(ctx, "owner-2", "b1", sampleDocument())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	fresh, err := svc.PrepareRecord(ctx, "owner-1", "missing", sampleDocument())
	require.NoError(t, err)
	assert.NotEqual(t, "missing", fresh.ID)
	assert.True(t, ValidSlug(fresh.Slug, 200))
}

func TestRecordServicePrepareRecordPropagatesBackendFailure(t *testing.T) {
	svc, bulletins, _, _ := newTestRecordService()
	bulletins.findErr = errors.New("connection refused")

	_, err := svc.PrepareRecord(context.Background(), "owner-1", "b1", sampleDocument())
	require.Error(t, err)
	assert.True(t, appErrors.Retryable(err))
}

func TestRecordServiceLoadOwnedDocumentHidesOtherOwners(t *testing.T) {
	svc, bulletins, _, _ := newTestRecordService()
	bulletins.put(models.BulletinRecord{ID: "b1", Slug: "s", OwnerID: "owner-2"})

	_, err := svc.LoadOwnedDocument(context.Background(), "owner-1", "b1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestRecordServiceUserLookups(t *testing.T) {
	svc, _, _, users := newTestRecordService()
	ctx := context.Background()

	owner, err := svc.GetUserByProfileHandle(ctx, "maple-grove")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", owner.OwnerID)

	_, err = svc.GetUserByProfileHandle(ctx, "unknown")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.SetActiveBulletinID(ctx, "owner-1", "b9"))
	assert.Equal(t, "b9", users.activeID("owner-1"))

	err = svc.CreateOrUpdateBulletin(ctx, &models.BulletinRecord{ID: "x"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestNewSlug(t *testing.T) {
	now := time.UnixMilli(1710000000123)
	slug := NewSlug("3F2A9C1E-aaaa-bbbb", "2024-03-10", now)
	assert.Equal(t, "3f2a9c1e-2024-03-10-1710000000123", slug)
	assert.True(t, slugPattern.MatchString(slug))

	noon := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fmt.Sprintf("user-2024-03-09-%d", noon.UnixMilli()), NewSlug("", "", noon))
}

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("maple-grove-2", 50))
	assert.False(t, ValidSlug("", 50))
	assert.False(t, ValidSlug("../etc", 50))
	assert.False(t, ValidSlug("Upper", 50))
	assert.False(t, ValidSlug(strings.Repeat("a", 51), 50))
}

func TestStoreErrorMapping(t *testing.T) {
	assert.True(t, errors.Is(storeError(sql.ErrNoRows, "gone", "x"), appErrors.ErrNotFound))
	assert.True(t, errors.Is(storeError(context.DeadlineExceeded, "", "x"), appErrors.ErrTimeout))
	assert.True(t, errors.Is(storeError(errors.New("boom"), "", "x"), appErrors.ErrDatabase))
	assert.Equal(t, context.Canceled, storeError(context.Canceled, "", "x"))
	assert.Nil(t, storeError(nil, "", ""))
}

func sampleRecord(id, ownerID string) models.BulletinRecord {
	return models.BulletinRecord{
		ID:          id,
		Slug:        ownerID + "-2024-03-10-1",
		Date:        "2024-03-10",
		MeetingType: models.MeetingSacrament,
		OwnerID:     ownerID,
		CreatedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}
