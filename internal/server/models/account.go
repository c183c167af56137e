// Package models defines server-side data models persisted in the database.
package models

import (
	"strings"
	"time"
)

// Account is the full stored account record. It carries the password hash
// and the current refresh token and must never be serialized to clients;
// use Profile for that.
type Account struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	AvatarURL     string
	AvatarKey     string
	CoverImageURL string
	CoverImageKey string
	PasswordHash  string `json:"-"`
	// RefreshToken is the only refresh token currently accepted for the
	// account; empty means no active session.
	RefreshToken string `json:"-"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the sanitized projection of an Account.
type Profile struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (a *Account) Profile() *Profile {
	return &Profile{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		FullName:      a.FullName,
		AvatarURL:     a.AvatarURL,
		CoverImageURL: a.CoverImageURL,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// Avatar returns the stored avatar as an Asset.
func (a *Account) Avatar() Asset {
	return Asset{URL: a.AvatarURL, Key: a.AvatarKey}
}

// CoverImage returns the stored cover image; the zero Asset when unset.
func (a *Account) CoverImage() Asset {
	return Asset{URL: a.CoverImageURL, Key: a.CoverImageKey}
}

// NormalizeIdentity trims and lower-cases a username or email.
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsEmail reports whether s has a single '@' with text on both sides.
// Usernames must never pass this check, which keeps the two namespaces
// apart for lookups by either.
func IsEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && strings.LastIndexByte(s, '@') == at
}
