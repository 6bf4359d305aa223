package models

import (
	"fmt"
	"time"
)

// KeyedField is an auxiliary string value stored beside a bulletin row, unique per (key, owner).
type KeyedField struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BulletinFieldKey builds the storage key of a bulletin's auxiliary field.
func BulletinFieldKey(slug, field string) string {
	return fmt.Sprintf("bulletin-%s-%s", slug, field)
}

// BulletinFieldPrefix returns the key prefix shared by every field of a bulletin.
func BulletinFieldPrefix(slug string) string {
	return fmt.Sprintf("bulletin-%s-", slug)
}
