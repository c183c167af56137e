// Package accounts is the credential store: persistence of accounts,
// password digests and the current refresh token.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/mediashare/internal/server/models"
)

// Repository persists accounts. Username and email are matched
// case-insensitively and are unique; the store, not the caller, is the
// authority on uniqueness.
type Repository interface {
	// Create hashes password, inserts the account and returns it with the
	// generated ID and timestamps. Duplicates fail with common.ErrConflict.
	Create(ctx context.Context, account *models.Account, password string) (*models.Account, error)
	// FindByUsernameOrEmail returns the account matching either value,
	// preferring an email match.
	// An empty argument is ignored.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	// GetProfile returns the sanitized projection without credentials.
	GetProfile(ctx context.Context, id string) (*models.Profile, error)

	SetRefreshToken(ctx context.Context, id, token string) error
	// RotateRefreshToken replaces the stored token with next only if it
	// still equals presented. It reports whether the swap happened.
	RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error

	// UpdatePassword stores a new digest and ends the current session.
	UpdatePassword(ctx context.Context, id, password string) error
	UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Profile, error)
	// UpdateAvatar and UpdateCoverImage lock the row, store asset and return
	// the asset they replaced. Call them inside a transaction.
	UpdateAvatar(ctx context.Context, id string, asset models.Asset) (models.Asset, error)
	UpdateCoverImage(ctx context.Context, id string, asset models.Asset) (models.Asset, error)
}
