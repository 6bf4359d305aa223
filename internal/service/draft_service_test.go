package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

type memoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string][]byte)}
}

func (m *memoryStore) Get(ctx context.Context, clientID, slot string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	raw, ok := m.values[clientID+"/"+slot]
	return raw, ok, nil
}

func (m *memoryStore) Put(ctx context.Context, clientID, slot string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[clientID+"/"+slot] = append([]byte(nil), value...)
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, clientID, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.values, clientID+"/"+slot)
	return nil
}

func TestDraftServiceDraftLifecycle(t *testing.T) {
	drafts := NewDraftService(newMemoryStore(), nil)
	ctx := context.Background()

	draft, err := drafts.LoadDraft(ctx, "client-1")
	require.NoError(t, err)
	assert.Nil(t, draft)

	doc := sampleDocument()
	require.NoError(t, drafts.SaveDraft(ctx, "client-1", models.DraftRecord{Document: doc, RemoteID: "b1"}))

	draft, err = drafts.LoadDraft(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, doc, draft.Document)
	assert.Equal(t, "b1", draft.RemoteID)
	assert.False(t, draft.SavedAt.IsZero())

	other, err := drafts.LoadDraft(ctx, "client-2")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, drafts.ClearDraft(ctx, "client-1"))
	draft, err = drafts.LoadDraft(ctx, "client-1")
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestDraftServicePendingIsTakenOnce(t *testing.T) {
	drafts := NewDraftService(newMemoryStore(), nil)
	ctx := context.Background()

	require.NoError(t, drafts.StashPending(ctx, "client-1", models.DraftRecord{Document: sampleDocument()}))

	pending, err := drafts.TakePending(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "Maple Grove Ward", pending.Document.WardName)

	pending, err = drafts.TakePending(ctx, "client-1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestDraftServiceDefaultsMerge(t *testing.T) {
	drafts := NewDraftService(newMemoryStore(), nil)
	ctx := context.Background()

	_, err := drafts.SaveDefaults(ctx, "client-1", models.FieldDefaults{WardName: "Maple Grove Ward", Organist: "Sister Park"})
	require.NoError(t, err)
	merged, err := drafts.SaveDefaults(ctx, "client-1", models.FieldDefaults{Organist: "Brother Lund"})
	require.NoError(t, err)

	assert.Equal(t, "Maple Grove Ward", merged.WardName)
	assert.Equal(t, "Brother Lund", merged.Organist)

	stored, err := drafts.Defaults(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, merged, stored)
}

func TestDraftServiceActiveTemplateAndTerminology(t *testing.T) {
	drafts := NewDraftService(newMemoryStore(), nil)
	ctx := context.Background()

	id, err := drafts.ActiveTemplate(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, drafts.SetActiveTemplate(ctx, "client-1", "tpl-1"))
	id, err = drafts.ActiveTemplate(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", id)

	require.NoError(t, drafts.ClearActiveTemplate(ctx, "client-1"))
	id, err = drafts.ActiveTemplate(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, id)

	term, err := drafts.Terminology(ctx, "client-1", "branch")
	require.NoError(t, err)
	assert.Equal(t, "Branch", term.Unit)

	require.NoError(t, drafts.SetTerminology(ctx, "client-1", models.TerminologyWard))
	term, err = drafts.Terminology(ctx, "client-1", "branch")
	require.NoError(t, err)
	assert.Equal(t, "Bishop", term.Leader)
}

func TestDraftServiceOfflineList(t *testing.T) {
	drafts := NewDraftService(newMemoryStore(), nil)
	fixed := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	drafts.now = func() time.Time { return fixed }
	ctx := context.Background()

	first, err := drafts.AppendOffline(ctx, "client-1", models.OfflineBulletin{Document: sampleDocument(), OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, fixed, first.QueuedAt)

	_, err = drafts.AppendOffline(ctx, "client-1", models.OfflineBulletin{Document: sampleDocument(), OwnerID: "owner-2"})
	require.NoError(t, err)

	all, err := drafts.ListOffline(ctx, "client-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := drafts.ListOffline(ctx, "client-1", "owner-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	first.LastError = "timeout"
	updated, err := drafts.UpdateOffline(ctx, "client-1", first)
	require.NoError(t, err)
	assert.True(t, updated)
	mine, err = drafts.ListOffline(ctx, "client-1", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "timeout", mine[0].LastError)

	removed, err := drafts.RemoveOffline(ctx, "client-1", first.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = drafts.RemoveOffline(ctx, "client-1", first.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	all, err = drafts.ListOffline(ctx, "client-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDraftServiceConcurrentAppendsKeepEveryEntry(t *testing.T) {
	drafts := NewDraftService(newMemoryStore(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := drafts.AppendOffline(ctx, "client-1", models.OfflineBulletin{OwnerID: "owner-1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := drafts.ListOffline(ctx, "client-1", "owner-1")
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestDraftServiceLastOwner(t *testing.T) {
	drafts := NewDraftService(newMemoryStore(), nil)
	ctx := context.Background()

	owner, err := drafts.LastOwner(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, owner)

	require.NoError(t, drafts.RememberOwner(ctx, "client-1", "owner-1"))
	owner, err = drafts.LastOwner(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", owner)
}

func TestDraftServiceStoreFailures(t *testing.T) {
	store := newMemoryStore()
	drafts := NewDraftService(store, nil)
	ctx := context.Background()

	store.values["client-1/draft"] = []byte("{broken")
	_, err := drafts.LoadDraft(ctx, "client-1")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))

	store.err = errors.New("disk full")
	err = drafts.SaveDraft(ctx, "client-1", models.DraftRecord{})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
