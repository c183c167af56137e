package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/logging"
	"github.com/dmitrijs2005/mediashare/internal/server/auth"
	"github.com/dmitrijs2005/mediashare/internal/server/metrics"
	"github.com/dmitrijs2005/mediashare/internal/server/models"
	"github.com/dmitrijs2005/mediashare/internal/server/repositories/repomanager"
)

// LoginInput identifies the account by Username, Email or Identifier; at
// least one must be set. An Identifier containing '@' is matched as an email,
// anything else as a username.
type LoginInput struct {
	Username   string
	Email      string
	Identifier string
	Password   string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Account *models.Profile
	Tokens  *auth.TokenPair
}

// SessionService handles login, token refresh with replay detection and
// logout. An account has at most one valid refresh token: logging in again
// ends the previous session.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	hasher      auth.PasswordHasher
	logger      logging.Logger
}

func NewSessionService(db *sql.DB, rm repomanager.RepositoryManager, tokens *auth.TokenService, hasher auth.PasswordHasher, logger logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: rm,
		tokens:      tokens,
		hasher:      hasher,
		logger:      logger.With("module", "session"),
	}
}

func (s *SessionService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username, email := strings.TrimSpace(in.Username), strings.TrimSpace(in.Email)
	if username == "" && email == "" {
		// Usernames never contain '@', so the identifier names one field only.
		id := strings.TrimSpace(in.Identifier)
		if strings.ContainsRune(id, '@') {
			email = id
		} else {
			username = id
		}
	}
	if username == "" && email == "" {
		return nil, common.NewError(common.ErrValidation, "username or email is required")
	}
	if in.Password == "" {
		return nil, common.NewError(common.ErrValidation, "password is required")
	}

	repo := s.repomanager.Accounts(s.db)

	account, err := repo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("not_found").Inc()
			return nil, common.NewError(common.ErrNotFound, "user does not exist")
		}
		s.logger.Error(ctx, "error looking up user", "error", err)
		return nil, common.Wrap(common.ErrInternal, err, "error looking up user")
	}

	if !s.hasher.Compare(in.Password, account.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues("bad_credentials").Inc()
		return nil, common.NewError(common.ErrUnauthorized, "invalid user credentials")
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return nil, common.Wrap(common.ErrInternal, err, "error issuing tokens")
	}

	// Overwriting the stored token ends any other active session.
	if err := repo.SetRefreshToken(ctx, account.ID, pair.RefreshToken); err != nil {
		s.logger.Error(ctx, "error storing refresh token", "account_id", account.ID, "error", err)
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, common.Wrap(common.ErrInternal, err, "error storing refresh token")
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	s.logger.Info(ctx, "user logged in", "account_id", account.ID)

	return &LoginResult{Account: account.Profile(), Tokens: pair}, nil
}

func (s *SessionService) reject(ctx context.Context, reason string, err error) error {
	metrics.RefreshRejectionsTotal.WithLabelValues(reason).Inc()
	s.logger.Warn(ctx, "refresh rejected", "reason", reason, "error", err)
	return err
}

// Refresh exchanges presented for a new token pair. Only the token currently
// stored for the account is accepted, and only once: concurrent refreshes
// with the same token have a single winner.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*auth.TokenPair, error) {
	if presented == "" {
		return nil, common.NewError(common.ErrValidation, "refresh token is required")
	}

	claims, err := s.tokens.Verify(presented, auth.RefreshToken)
	if err != nil {
		return nil, s.reject(ctx, "invalid", err)
	}

	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByID(ctx, claims.AccountID())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, s.reject(ctx, "unknown_account", err)
		}
		return nil, common.Wrap(common.ErrInternal, err, "error loading user")
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(account.RefreshToken)) != 1 {
		return nil, s.reject(ctx, "replayed",
			common.NewError(common.ErrInvalidToken, "refresh token is expired or used"))
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return nil, common.Wrap(common.ErrInternal, err, "error issuing tokens")
	}

	swapped, err := repo.RotateRefreshToken(ctx, account.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, common.Wrap(common.ErrInternal, err, "error storing refresh token")
	}
	if !swapped {
		return nil, s.reject(ctx, "race",
			common.NewError(common.ErrInvalidToken, "refresh token is expired or used"))
	}

	return pair, nil
}

// Logout ends the session of accountID. It is a no-op if none is active.
func (s *SessionService) Logout(ctx context.Context, accountID string) error {
	if err := s.repomanager.Accounts(s.db).ClearRefreshToken(ctx, accountID); err != nil {
		return common.Wrap(common.ErrInternal, err, "error clearing session")
	}
	s.logger.Info(ctx, "user logged out", "account_id", accountID)
	return nil
}

// Authenticate verifies an access token and checks that its account still
// exists.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	if accessToken == "" {
		return nil, common.NewError(common.ErrUnauthorized, "unauthorized request")
	}

	claims, err := s.tokens.Verify(accessToken, auth.AccessToken)
	if err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Accounts(s.db).GetProfile(ctx, claims.AccountID()); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Wrap(common.ErrInvalidToken, err, "invalid access token")
		}
		return nil, common.Wrap(common.ErrInternal, err, "error loading user")
	}

	return claims, nil
}
