package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/server/config"
	"github.com/dmitrijs2005/mediashare/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind tells access and refresh tokens apart inside the claims, so a
// token of one kind is never accepted as the other even if secrets leak
// across configurations.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims are the JWT claims of both token kinds. Refresh tokens carry only
// the registered claims and Kind.
type Claims struct {
	jwt.RegisteredClaims
	Kind     TokenKind `json:"kind"`
	Email    string    `json:"email,omitempty"`
	Username string    `json:"username,omitempty"`
	FullName string    `json:"fullName,omitempty"`
}

// AccountID is the id of the account the token was issued to.
func (c *Claims) AccountID() string {
	return c.Subject
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService signs and verifies tokens. It holds no state besides the
// secrets and lifetimes; persisting the refresh token is the caller's job.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenValidityDuration,
		refreshTTL:    cfg.RefreshTokenValidityDuration,
		now:           time.Now,
	}
}

func (s *TokenService) secretFor(kind TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case AccessToken:
		return s.accessSecret, s.accessTTL, nil
	case RefreshToken:
		return s.refreshSecret, s.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token kind %q", kind)
	}
}

func (s *TokenService) sign(claims *Claims) (string, error) {
	secret, ttl, err := s.secretFor(claims.Kind)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	// jti makes every issued token unique, even within the same second.
	claims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// IssuePair mints a new access and refresh token for account.
func (s *TokenService) IssuePair(account *models.Account) (*TokenPair, error) {
	access, err := s.sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: account.ID},
		Kind:             AccessToken,
		Email:            account.Email,
		Username:         account.Username,
		FullName:         account.FullName,
	})
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}

	refresh, err := s.sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: account.ID},
		Kind:             RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("error signing refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

const msgInvalidToken = "invalid or expired token"

var (
	errWrongKind = errors.New("token kind mismatch")
	errNoSubject = errors.New("token has no subject")
	errNotValid  = errors.New("token not valid")
)

// Verify checks the signature, algorithm, expiry and kind of tokenString.
// Every failure is reported as common.ErrInvalidToken with the same message;
// the underlying reason is only reachable through errors.Is/As for logging.
func (s *TokenService) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	secret, _, err := s.secretFor(kind)
	if err != nil {
		return nil, common.Wrap(common.ErrInvalidToken, err, msgInvalidToken)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, common.Wrap(common.ErrInvalidToken, err, msgInvalidToken)
	}
	if !token.Valid {
		return nil, common.Wrap(common.ErrInvalidToken, errNotValid, msgInvalidToken)
	}
	if claims.Kind != kind {
		return nil, common.Wrap(common.ErrInvalidToken, errWrongKind, msgInvalidToken)
	}
	if claims.Subject == "" {
		return nil, common.Wrap(common.ErrInvalidToken, errNoSubject, msgInvalidToken)
	}

	return claims, nil
}
