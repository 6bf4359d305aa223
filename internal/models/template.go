package models

import "time"

// Template is a named snapshot used as the starting point for new bulletins.
type Template struct {
	ID        string           `db:"id" json:"id"`
	OwnerID   string           `db:"owner_id" json:"owner_id"`
	Name      string           `db:"name" json:"name"`
	Snapshot  BulletinDocument `db:"-" json:"snapshot"`
	RawData   []byte           `db:"snapshot" json:"-"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// CreateTemplateRequest captures a new template. A nil snapshot uses the caller's draft.
type CreateTemplateRequest struct {
	Name     string            `json:"name" validate:"required,max=120"`
	Snapshot *BulletinDocument `json:"snapshot"`
}

// RenameTemplateRequest renames an existing template.
type RenameTemplateRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}
