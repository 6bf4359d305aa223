package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/bulletin-api/pkg/storage"
)

// Local state slots held per client.
const (
	SlotDraft          = "draft"
	SlotPendingDraft   = "pending-draft"
	SlotActiveTemplate = "active-template"
	SlotDefaults       = "defaults"
	SlotOffline        = "offline"
	SlotLastOwner      = "last-owner"
	SlotTerminology    = "terminology"
)

var slotPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

func checkSlot(clientID, slot string) error {
	if clientID == "" {
		return fmt.Errorf("client id required")
	}
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("invalid local state slot %q", slot)
	}
	return nil
}

// RedisLocalStore keeps per-client local state in Redis without expiry.
type RedisLocalStore struct {
	client *redis.Client
	prefix string
}

// NewRedisLocalStore constructs a Redis-backed local store.
func NewRedisLocalStore(client *redis.Client) *RedisLocalStore {
	return &RedisLocalStore{client: client, prefix: "bulletin:local"}
}

func (s *RedisLocalStore) key(clientID, slot string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, clientID, slot)
}

// Get returns the raw slot value and whether it was present.
func (s *RedisLocalStore) Get(ctx context.Context, clientID, slot string) ([]byte, bool, error) {
	if err := checkSlot(clientID, slot); err != nil {
		return nil, false, err
	}
	raw, err := s.client.Get(ctx, s.key(clientID, slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get local %s: %w", slot, err)
	}
	return raw, true, nil
}

// Put overwrites the slot value.
func (s *RedisLocalStore) Put(ctx context.Context, clientID, slot string, value []byte) error {
	if err := checkSlot(clientID, slot); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(clientID, slot), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set local %s: %w", slot, err)
	}
	return nil
}

// Delete removes the slot.
func (s *RedisLocalStore) Delete(ctx context.Context, clientID, slot string) error {
	if err := checkSlot(clientID, slot); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(clientID, slot)).Err(); err != nil {
		return fmt.Errorf("redis delete local %s: %w", slot, err)
	}
	return nil
}

// FileLocalStore keeps per-client local state as JSON files on disk.
type FileLocalStore struct {
	files *storage.LocalStorage
}

// NewFileLocalStore wraps a disk store.
func NewFileLocalStore(files *storage.LocalStorage) *FileLocalStore {
	return &FileLocalStore{files: files}
}

func fileName(clientID, slot string) string {
	return clientID + "/" + slot + ".json"
}

// Get returns the raw slot value and whether it was present.
func (s *FileLocalStore) Get(_ context.Context, clientID, slot string) ([]byte, bool, error) {
	if err := checkSlot(clientID, slot); err != nil {
		return nil, false, err
	}
	raw, err := s.files.Read(fileName(clientID, slot))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

// Put overwrites the slot value.
func (s *FileLocalStore) Put(_ context.Context, clientID, slot string, value []byte) error {
	if err := checkSlot(clientID, slot); err != nil {
		return err
	}
	return s.files.Save(fileName(clientID, slot), value)
}

// Delete removes the slot.
func (s *FileLocalStore) Delete(_ context.Context, clientID, slot string) error {
	if err := checkSlot(clientID, slot); err != nil {
		return err
	}
	return s.files.Delete(fileName(clientID, slot))
}
