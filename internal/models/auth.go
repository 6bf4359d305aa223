package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken   string      `json:"access_token"`
	ExpiresIn     int64       `json:"expires_in"`
	User          UserInfo    `json:"user"`
	IssuedAt      time.Time   `json:"issued_at"`
	Resumed       *SaveResult `json:"resumed,omitempty"`
	ResumeWarning string      `json:"resume_warning,omitempty"`
	Session       *Session    `json:"-"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	ProfileSlug string `json:"profile_slug"`
}

// Session is a freshly issued credential.
type Session struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Claims      *JWTClaims `json:"-"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	ProfileSlug string `json:"profile_slug"`
	jwt.RegisteredClaims
}
