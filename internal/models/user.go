package models

import "time"

// User is a bulletin editor account stored in the users table.
type User struct {
	ID               string     `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	DisplayName      string     `db:"display_name" json:"display_name"`
	ProfileSlug      string     `db:"profile_slug" json:"profile_slug"`
	ActiveBulletinID *string    `db:"active_bulletin_id" json:"active_bulletin_id,omitempty"`
	Terminology      string     `db:"terminology" json:"terminology"`
	Active           bool       `db:"active" json:"active"`
	LastLogin        *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ProfileOwner is the public projection of a user resolved from a profile handle.
type ProfileOwner struct {
	OwnerID          string  `db:"id" json:"owner_id"`
	ActiveBulletinID *string `db:"active_bulletin_id" json:"active_bulletin_id,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
