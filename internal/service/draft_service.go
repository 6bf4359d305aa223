package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/models"
	"github.com/noah-isme/bulletin-api/internal/repository"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

// LocalStore persists raw per-client values. Missing slots report ok=false.
type LocalStore interface {
	Get(ctx context.Context, clientID, slot string) ([]byte, bool, error)
	Put(ctx context.Context, clientID, slot string, value []byte) error
	Delete(ctx context.Context, clientID, slot string) error
}

// DraftService keeps the state an editor client holds locally: the working draft, a
// pending draft stashed before sign-in, the active template, field defaults, the offline
// list and the last known owner. Values never expire and the last write wins.
type DraftService struct {
	store  LocalStore
	logger *zap.Logger
	now    func() time.Time

	// offlineMu serialises read-modify-write cycles on offline lists.
	offlineMu sync.Mutex
}

// NewDraftService constructs a DraftService.
func NewDraftService(store LocalStore, logger *zap.Logger) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{store: store, logger: logger, now: time.Now}
}

func readSlot[T any](ctx context.Context, store LocalStore, clientID, slot string) (*T, error) {
	raw, ok, err := store.Get(ctx, clientID, slot)
	if err != nil {
		return nil, localError(err, "read "+slot)
	}
	if !ok {
		return nil, nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("corrupt local %s", slot))
	}
	return &value, nil
}

func writeSlot(ctx context.Context, store LocalStore, clientID, slot string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("encode local %s", slot))
	}
	if err := store.Put(ctx, clientID, slot, raw); err != nil {
		return localError(err, "write "+slot)
	}
	return nil
}

func (s *DraftService) remove(ctx context.Context, clientID, slot string) error {
	if err := s.store.Delete(ctx, clientID, slot); err != nil {
		return localError(err, "delete "+slot)
	}
	return nil
}

// SaveDraft overwrites the client's draft.
func (s *DraftService) SaveDraft(ctx context.Context, clientID string, draft models.DraftRecord) error {
	if draft.SavedAt.IsZero() {
		draft.SavedAt = s.now().UTC()
	}
	return writeSlot(ctx, s.store, clientID, repository.SlotDraft, draft)
}

// LoadDraft returns the client's draft, or nil when there is none.
func (s *DraftService) LoadDraft(ctx context.Context, clientID string) (*models.DraftRecord, error) {
	return readSlot[models.DraftRecord](ctx, s.store, clientID, repository.SlotDraft)
}

// ClearDraft deletes the client's draft.
func (s *DraftService) ClearDraft(ctx context.Context, clientID string) error {
	return s.remove(ctx, clientID, repository.SlotDraft)
}

// StashPending keeps a draft aside until the client signs in.
func (s *DraftService) StashPending(ctx context.Context, clientID string, draft models.DraftRecord) error {
	if draft.SavedAt.IsZero() {
		draft.SavedAt = s.now().UTC()
	}
	return writeSlot(ctx, s.store, clientID, repository.SlotPendingDraft, draft)
}

// TakePending returns and removes the stashed pending draft.
func (s *DraftService) TakePending(ctx context.Context, clientID string) (*models.DraftRecord, error) {
	pending, err := readSlot[models.DraftRecord](ctx, s.store, clientID, repository.SlotPendingDraft)
	if err != nil || pending == nil {
		return pending, err
	}
	if err := s.remove(ctx, clientID, repository.SlotPendingDraft); err != nil {
		return nil, err
	}
	return pending, nil
}

// SetActiveTemplate records the template the editor should start from.
func (s *DraftService) SetActiveTemplate(ctx context.Context, clientID, templateID string) error {
	return writeSlot(ctx, s.store, clientID, repository.SlotActiveTemplate, templateID)
}

// ActiveTemplate returns the recorded template id, or "" when none is set.
func (s *DraftService) ActiveTemplate(ctx context.Context, clientID string) (string, error) {
	id, err := readSlot[string](ctx, s.store, clientID, repository.SlotActiveTemplate)
	if err != nil || id == nil {
		return "", err
	}
	return *id, nil
}

// ClearActiveTemplate forgets the active template.
func (s *DraftService) ClearActiveTemplate(ctx context.Context, clientID string) error {
	return s.remove(ctx, clientID, repository.SlotActiveTemplate)
}

// SaveDefaults merges the non-empty values into the stored field defaults.
func (s *DraftService) SaveDefaults(ctx context.Context, clientID string, defaults models.FieldDefaults) (models.FieldDefaults, error) {
	current, err := s.Defaults(ctx, clientID)
	if err != nil {
		return models.FieldDefaults{}, err
	}
	merged := current.Merge(defaults)
	if err := writeSlot(ctx, s.store, clientID, repository.SlotDefaults, merged); err != nil {
		return models.FieldDefaults{}, err
	}
	return merged, nil
}

// Defaults returns the stored field defaults; unset fields are empty.
func (s *DraftService) Defaults(ctx context.Context, clientID string) (models.FieldDefaults, error) {
	defaults, err := readSlot[models.FieldDefaults](ctx, s.store, clientID, repository.SlotDefaults)
	if err != nil || defaults == nil {
		return models.FieldDefaults{}, err
	}
	return *defaults, nil
}

// SetTerminology stores the client's unit wording preference.
func (s *DraftService) SetTerminology(ctx context.Context, clientID string, key models.TerminologyKey) error {
	return writeSlot(ctx, s.store, clientID, repository.SlotTerminology, key)
}

// Terminology returns the stored wording preference or fallback.
func (s *DraftService) Terminology(ctx context.Context, clientID, fallback string) (models.Terminology, error) {
	key, err := readSlot[string](ctx, s.store, clientID, repository.SlotTerminology)
	if err != nil {
		return models.Terminology{}, err
	}
	if key == nil {
		return models.LookupTerminology(fallback), nil
	}
	return models.LookupTerminology(*key), nil
}

// AppendOffline adds a bulletin to the client's offline list and returns the stored entry.
func (s *DraftService) AppendOffline(ctx context.Context, clientID string, entry models.OfflineBulletin) (models.OfflineBulletin, error) {
	s.offlineMu.Lock()
	defer s.offlineMu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.QueuedAt.IsZero() {
		entry.QueuedAt = s.now().UTC()
	}
	list, err := s.offlineList(ctx, clientID)
	if err != nil {
		return models.OfflineBulletin{}, err
	}
	list = append(list, entry)
	if err := writeSlot(ctx, s.store, clientID, repository.SlotOffline, list); err != nil {
		return models.OfflineBulletin{}, err
	}
	return entry, nil
}

// ListOffline returns the offline list, restricted to ownerID when it is non-empty.
func (s *DraftService) ListOffline(ctx context.Context, clientID, ownerID string) ([]models.OfflineBulletin, error) {
	s.offlineMu.Lock()
	defer s.offlineMu.Unlock()

	list, err := s.offlineList(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if ownerID == "" {
		return list, nil
	}
	filtered := make([]models.OfflineBulletin, 0, len(list))
	for _, entry := range list {
		if entry.OwnerID == ownerID {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// RemoveOffline deletes the entry with the given id and reports whether it existed.
func (s *DraftService) RemoveOffline(ctx context.Context, clientID, entryID string) (bool, error) {
	return s.rewriteOffline(ctx, clientID, func(list []models.OfflineBulletin) ([]models.OfflineBulletin, bool) {
		for i, entry := range list {
			if entry.ID == entryID {
				return append(list[:i:i], list[i+1:]...), true
			}
		}
		return list, false
	})
}

// UpdateOffline replaces the stored entry sharing entry.ID.
func (s *DraftService) UpdateOffline(ctx context.Context, clientID string, entry models.OfflineBulletin) (bool, error) {
	return s.rewriteOffline(ctx, clientID, func(list []models.OfflineBulletin) ([]models.OfflineBulletin, bool) {
		for i := range list {
			if list[i].ID == entry.ID {
				list[i] = entry
				return list, true
			}
		}
		return list, false
	})
}

func (s *DraftService) rewriteOffline(ctx context.Context, clientID string, edit func([]models.OfflineBulletin) ([]models.OfflineBulletin, bool)) (bool, error) {
	s.offlineMu.Lock()
	defer s.offlineMu.Unlock()

	list, err := s.offlineList(ctx, clientID)
	if err != nil {
		return false, err
	}
	list, changed := edit(list)
	if !changed {
		return false, nil
	}
	if len(list) == 0 {
		return true, s.remove(ctx, clientID, repository.SlotOffline)
	}
	return true, writeSlot(ctx, s.store, clientID, repository.SlotOffline, list)
}

func (s *DraftService) offlineList(ctx context.Context, clientID string) ([]models.OfflineBulletin, error) {
	list, err := readSlot[[]models.OfflineBulletin](ctx, s.store, clientID, repository.SlotOffline)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return []models.OfflineBulletin{}, nil
	}
	return *list, nil
}

// RememberOwner records the last signed-in owner of this client.
func (s *DraftService) RememberOwner(ctx context.Context, clientID, ownerID string) error {
	return writeSlot(ctx, s.store, clientID, repository.SlotLastOwner, ownerID)
}

// LastOwner returns the last signed-in owner of this client, or "".
func (s *DraftService) LastOwner(ctx context.Context, clientID string) (string, error) {
	owner, err := readSlot[string](ctx, s.store, clientID, repository.SlotLastOwner)
	if err != nil || owner == nil {
		return "", err
	}
	return *owner, nil
}

func localError(err error, op string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "local state "+op+" failed")
}
