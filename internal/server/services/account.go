package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/dbx"
	"github.com/dmitrijs2005/mediashare/internal/logging"
	"github.com/dmitrijs2005/mediashare/internal/server/auth"
	"github.com/dmitrijs2005/mediashare/internal/server/media"
	"github.com/dmitrijs2005/mediashare/internal/server/models"
	"github.com/dmitrijs2005/mediashare/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/mediashare/internal/server/repositories/repomanager"
)

// AccountService implements the profile operations of a signed-in account.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	media       media.Gateway
	hasher      auth.PasswordHasher
	logger      logging.Logger
}

func NewAccountService(db *sql.DB, rm repomanager.RepositoryManager, gw media.Gateway, hasher auth.PasswordHasher, logger logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: rm,
		media:       gw,
		hasher:      hasher,
		logger:      logger.With("module", "account"),
	}
}

// internal keeps categorized errors and hides everything else behind msg.
func internal(err error, msg string) error {
	var e *common.Error
	if errors.As(err, &e) {
		return err
	}
	return common.Wrap(common.ErrInternal, err, msg)
}

func (s *AccountService) CurrentAccount(ctx context.Context, accountID string) (*models.Profile, error) {
	p, err := s.repomanager.Accounts(s.db).GetProfile(ctx, accountID)
	if err != nil {
		return nil, internal(err, "error loading user")
	}
	return p, nil
}

// ChangePassword replaces the password after checking the old one. The
// current session is ended, so the caller has to log in again.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return common.NewError(common.ErrValidation, "old and new password are required")
	}
	if len(newPassword) > maxPasswordBytes {
		return common.NewError(common.ErrValidation, "password is too long")
	}

	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByID(ctx, accountID)
	if err != nil {
		return internal(err, "error loading user")
	}
	if !s.hasher.Compare(oldPassword, account.PasswordHash) {
		return common.NewError(common.ErrUnauthorized, "invalid old password")
	}

	if err := repo.UpdatePassword(ctx, accountID, newPassword); err != nil {
		return internal(err, "error updating password")
	}

	s.logger.Info(ctx, "password changed", "account_id", accountID)
	return nil
}

func (s *AccountService) UpdateDetails(ctx context.Context, accountID, fullName, email string) (*models.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	email = models.NormalizeIdentity(email)
	if fullName == "" || email == "" {
		return nil, common.NewError(common.ErrValidation, "all fields are required")
	}
	if !models.IsEmail(email) {
		return nil, common.NewError(common.ErrValidation, "email is invalid")
	}

	p, err := s.repomanager.Accounts(s.db).UpdateDetails(ctx, accountID, fullName, email)
	if err != nil {
		return nil, internal(err, "error updating account details")
	}
	return p, nil
}

type swapFunc func(repo accounts.Repository, ctx context.Context, id string, asset models.Asset) (models.Asset, error)

// replaceImage uploads src, stores it in place of the current image and
// deletes the image it replaced. If the store update fails the new upload
// is deleted instead.
func (s *AccountService) replaceImage(ctx context.Context, accountID, what string, src *media.Source, swap swapFunc) (*models.Profile, error) {
	if src == nil {
		return nil, common.Errorf(common.ErrMissingAsset, "%s file is missing", what)
	}

	uploaded, err := s.media.Upload(ctx, src)
	if err != nil {
		return nil, common.Wrap(common.ErrUpstream, err, "error while uploading "+what)
	}

	var previous models.Asset
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		previous, err = swap(s.repomanager.Accounts(tx), ctx, accountID, uploaded)
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "error storing "+what, "account_id", accountID, "error", err)
		return nil, compensate(ctx, s.media, s.logger, internal(err, "error updating "+what), uploaded)
	}

	if previous.Key != "" && previous.Key != uploaded.Key {
		media.DeleteBestEffort(ctx, s.media, s.logger, previous.Key)
	}

	p, err := s.repomanager.Accounts(s.db).GetProfile(ctx, accountID)
	if err != nil {
		return nil, internal(err, "error loading user")
	}
	return p, nil
}

func (s *AccountService) UpdateAvatar(ctx context.Context, accountID string, src *media.Source) (*models.Profile, error) {
	return s.replaceImage(ctx, accountID, "avatar", src, accounts.Repository.UpdateAvatar)
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, accountID string, src *media.Source) (*models.Profile, error) {
	return s.replaceImage(ctx, accountID, "cover image", src, accounts.Repository.UpdateCoverImage)
}
