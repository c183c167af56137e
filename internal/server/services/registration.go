// Package services contains server-side business logic: the registration
// saga, the session lifecycle and the profile operations of an account.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/logging"
	"github.com/dmitrijs2005/mediashare/internal/server/media"
	"github.com/dmitrijs2005/mediashare/internal/server/metrics"
	"github.com/dmitrijs2005/mediashare/internal/server/models"
	"github.com/dmitrijs2005/mediashare/internal/server/repositories/repomanager"
)

// maxPasswordBytes is the longest password bcrypt accepts.
const maxPasswordBytes = 72

// RegisterInput is the account candidate of a registration request.
type RegisterInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// Validate trims the fields in place and checks that none is empty. A
// username may not contain '@' and an email must have one, so no username
// can ever equal an email.
func (in *RegisterInput) Validate() error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = models.NormalizeIdentity(in.Username)
	in.Email = models.NormalizeIdentity(in.Email)

	if in.FullName == "" || in.Username == "" || in.Email == "" || strings.TrimSpace(in.Password) == "" {
		return common.NewError(common.ErrValidation, "all fields are required")
	}
	if strings.ContainsRune(in.Username, '@') {
		return common.NewError(common.ErrValidation, "username must not contain @")
	}
	if !models.IsEmail(in.Email) {
		return common.NewError(common.ErrValidation, "email is invalid")
	}
	if len(in.Password) > maxPasswordBytes {
		return common.NewError(common.ErrValidation, "password is too long")
	}
	return nil
}

// RegistrationService creates accounts together with their images. Images
// are uploaded before the account is written; when a later step fails the
// uploaded images are deleted before the error is returned.
type RegistrationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	media       media.Gateway
	logger      logging.Logger
}

func NewRegistrationService(db *sql.DB, rm repomanager.RepositoryManager, gw media.Gateway, logger logging.Logger) *RegistrationService {
	return &RegistrationService{
		db:          db,
		repomanager: rm,
		media:       gw,
		logger:      logger.With("module", "registration"),
	}
}

// Register validates in, uploads avatar and the optional cover, creates the
// account and returns its sanitized profile. A cover with the same origin as
// the avatar is not uploaded and the account is left without one.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput, avatar, cover *media.Source) (*models.Profile, error) {
	profile, outcome, err := s.register(ctx, in, avatar, cover)
	metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	return profile, err
}

func (s *RegistrationService) register(ctx context.Context, in RegisterInput, avatar, cover *media.Source) (*models.Profile, string, error) {
	if err := in.Validate(); err != nil {
		return nil, metrics.OutcomeRejected, err
	}
	if avatar == nil {
		return nil, metrics.OutcomeRejected, common.NewError(common.ErrMissingAsset, "avatar file is required")
	}

	repo := s.repomanager.Accounts(s.db)

	_, err := repo.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		return nil, metrics.OutcomeRejected, common.NewError(common.ErrConflict, "user with email or username already exists")
	case !errors.Is(err, common.ErrNotFound):
		s.logger.Error(ctx, "error checking existing user", "error", err)
		return nil, metrics.OutcomeFailed, common.Wrap(common.ErrInternal, err, "error checking existing user")
	}

	avatarAsset, err := s.media.Upload(ctx, avatar)
	if err != nil {
		return nil, metrics.OutcomeFailed, common.Wrap(common.ErrUpstream, err, "avatar upload failed")
	}

	var coverAsset models.Asset
	if cover != nil && !avatar.SameOrigin(cover) {
		coverAsset, err = s.media.Upload(ctx, cover)
		if err != nil {
			cause := common.Wrap(common.ErrUpstream, err, "cover upload failed")
			return nil, metrics.OutcomeCompensated, compensate(ctx, s.media, s.logger, cause, avatarAsset)
		}
	}

	account := &models.Account{
		Username:      in.Username,
		Email:         in.Email,
		FullName:      in.FullName,
		AvatarURL:     avatarAsset.URL,
		AvatarKey:     avatarAsset.Key,
		CoverImageURL: coverAsset.URL,
		CoverImageKey: coverAsset.Key,
	}

	created, err := repo.Create(ctx, account, in.Password)
	if err != nil {
		cause := err
		if !errors.Is(err, common.ErrConflict) {
			s.logger.Error(ctx, "error creating user", "error", err)
			cause = common.Wrap(common.ErrInternal, err, "something went wrong while registering the user")
		}
		return nil, metrics.OutcomeCompensated, compensate(ctx, s.media, s.logger, cause, avatarAsset, coverAsset)
	}

	// The account now references the images; they are no longer orphans.
	profile, err := repo.GetProfile(ctx, created.ID)
	if err != nil {
		s.logger.Error(ctx, "error reading created user", "account_id", created.ID, "error", err)
		return nil, metrics.OutcomeFailed, common.Wrap(common.ErrInternal, err, "something went wrong while registering the user")
	}

	s.logger.Info(ctx, "account registered", "account_id", profile.ID, "username", profile.Username)
	return profile, metrics.OutcomeCreated, nil
}
