// Package httpapi exposes the account services over REST using fiber.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediashare/internal/filex"
	"github.com/dmitrijs2005/mediashare/internal/logging"
	"github.com/dmitrijs2005/mediashare/internal/server/auth"
	"github.com/dmitrijs2005/mediashare/internal/server/config"
	"github.com/dmitrijs2005/mediashare/internal/server/media"
	"github.com/dmitrijs2005/mediashare/internal/server/models"
	"github.com/dmitrijs2005/mediashare/internal/server/services"
	"github.com/gofiber/fiber/v3"
)

const (
	bodyLimit       = 16 << 20
	shutdownTimeout = 10 * time.Second
)

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, in services.RegisterInput, avatar, cover *media.Source) (*models.Profile, error)
}

// Sessions manages login state.
type Sessions interface {
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	Refresh(ctx context.Context, presented string) (*auth.TokenPair, error)
	Logout(ctx context.Context, accountID string) error
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// Accounts serves the profile of the signed-in account.
type Accounts interface {
	CurrentAccount(ctx context.Context, accountID string) (*models.Profile, error)
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
	UpdateDetails(ctx context.Context, accountID, fullName, email string) (*models.Profile, error)
	UpdateAvatar(ctx context.Context, accountID string, src *media.Source) (*models.Profile, error)
	UpdateCoverImage(ctx context.Context, accountID string, src *media.Source) (*models.Profile, error)
}

type HTTPServer struct {
	address   string
	app       *fiber.App
	registrar Registrar
	sessions  Sessions
	accounts  Accounts
	logger    logging.Logger
	cookies   cookieSettings
	uploadDir string
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, r Registrar, s Sessions, a Accounts) (*HTTPServer, error) {
	dir, err := filex.EnsureSubdDir(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	srv := &HTTPServer{
		address:   cfg.EndpointAddrHTTP,
		registrar: r,
		sessions:  s,
		accounts:  a,
		logger:    l.With("module", "http_server"),
		cookies: cookieSettings{
			secure:     cfg.SecureCookies,
			accessTTL:  cfg.AccessTokenValidityDuration,
			refreshTTL: cfg.RefreshTokenValidityDuration,
		},
		uploadDir: dir,
	}

	srv.app = fiber.New(fiber.Config{
		AppName:      "mediashare",
		BodyLimit:    bodyLimit,
		ErrorHandler: srv.errorHandler,
	})
	srv.routes()

	return srv, nil
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	return s.app.Listen(s.address, fiber.ListenConfig{DisableStartupMessage: true})
}
