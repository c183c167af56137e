// Package auth holds the credential primitives: password hashing and the
// access/refresh token service.
package auth

import (
	"errors"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes passwords one way and compares candidates against
// stored digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, digest string) bool
}

var _ PasswordHasher = (*BcryptHasher)(nil)

// BcryptHasher implements PasswordHasher with bcrypt. The salt is embedded
// in the digest.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given cost, clamped to the range
// bcrypt accepts.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.DefaultCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", common.NewError(common.ErrValidation, "password is required")
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", common.Wrap(common.ErrValidation, err, "password is too long")
		}
		return "", err
	}
	return string(digest), nil
}

// Compare reports whether password matches digest. Malformed digests never
// match.
func (h *BcryptHasher) Compare(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
