package models

import "time"

// DraftRecord is the most recent unsaved document mirrored to the local store.
type DraftRecord struct {
	Document BulletinDocument `json:"document"`
	SavedAt  time.Time        `json:"saved_at"`
	OwnerID  string           `json:"owner_id,omitempty"`
	RemoteID string           `json:"remote_id,omitempty"`
}

// OfflineBulletin is a document that could not reach the remote store.
type OfflineBulletin struct {
	ID        string           `json:"id"`
	Document  BulletinDocument `json:"document"`
	OwnerID   string           `json:"owner_id"`
	RemoteID  string           `json:"remote_id,omitempty"`
	QueuedAt  time.Time        `json:"queued_at"`
	LastError string           `json:"last_error,omitempty"`
}

// FieldDefaults are per-field values seeded into blank documents. Empty fields are unset.
type FieldDefaults struct {
	WardName   string `json:"ward_name,omitempty"`
	Presiding  string `json:"presiding,omitempty"`
	Conducting string `json:"conducting,omitempty"`
	Organist   string `json:"organist,omitempty"`
	Chorister  string `json:"chorister,omitempty"`
	Bishop     string `json:"bishop,omitempty"`
	StakeName  string `json:"stake_name,omitempty"`
}

// Merge overlays the non-empty fields of other onto d.
func (d FieldDefaults) Merge(other FieldDefaults) FieldDefaults {
	pick := func(current, next string) string {
		if next != "" {
			return next
		}
		return current
	}
	return FieldDefaults{
		WardName:   pick(d.WardName, other.WardName),
		Presiding:  pick(d.Presiding, other.Presiding),
		Conducting: pick(d.Conducting, other.Conducting),
		Organist:   pick(d.Organist, other.Organist),
		Chorister:  pick(d.Chorister, other.Chorister),
		Bishop:     pick(d.Bishop, other.Bishop),
		StakeName:  pick(d.StakeName, other.StakeName),
	}
}
