package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/server/media"
	"github.com/dmitrijs2005/mediashare/internal/server/models"
	"github.com/dmitrijs2005/mediashare/internal/server/services"
	"github.com/gofiber/fiber/v3"
)

type loginRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	User         *models.Profile `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func bindJSON(c fiber.Ctx, out any) error {
	if err := c.Bind().Body(out); err != nil {
		return common.Wrap(common.ErrValidation, err, "invalid request body")
	}
	return nil
}

func (s *HTTPServer) register(c fiber.Ctx) error {
	in := services.RegisterInput{
		FullName: c.FormValue("fullName"),
		Username: c.FormValue("username"),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
	}

	avatar, cleanupAvatar, err := s.spool(c, "avatar")
	defer cleanupAvatar()
	if err != nil {
		return err
	}
	cover, cleanupCover, err := s.spool(c, "coverImage")
	defer cleanupCover()
	if err != nil {
		return err
	}

	profile, err := s.registrar.Register(c.Context(), in, avatar, cover)
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, profile, "user registered successfully")
}

func (s *HTTPServer) login(c fiber.Ctx) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	res, err := s.sessions.Login(c.Context(), services.LoginInput{
		Username:   req.Username,
		Email:      req.Email,
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		return err
	}

	s.setSessionCookies(c, res.Tokens)
	return respond(c, http.StatusOK, loginResponse{
		User:         res.Account,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "user logged in successfully")
}

func (s *HTTPServer) refreshToken(c fiber.Ctx) error {
	presented := c.Cookies(common.RefreshTokenCookieName)
	if presented == "" && len(c.Body()) > 0 {
		var req refreshRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		presented = req.RefreshToken
	}

	pair, err := s.sessions.Refresh(c.Context(), presented)
	if err != nil {
		return err
	}

	s.setSessionCookies(c, pair)
	return respond(c, http.StatusOK, pair, "access token refreshed")
}

func (s *HTTPServer) logout(c fiber.Ctx) error {
	if err := s.sessions.Logout(c.Context(), accountID(c)); err != nil {
		return err
	}

	s.clearSessionCookies(c)
	return respond(c, http.StatusOK, fiber.Map{}, "user logged out")
}

func (s *HTTPServer) currentUser(c fiber.Ctx) error {
	profile, err := s.accounts.CurrentAccount(c.Context(), accountID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, "current user fetched successfully")
}

func (s *HTTPServer) changePassword(c fiber.Ctx) error {
	var req changePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	if err := s.accounts.ChangePassword(c.Context(), accountID(c), req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	// The stored session was ended along with the password change.
	s.clearSessionCookies(c)
	return respond(c, http.StatusOK, fiber.Map{}, "password changed successfully")
}

func (s *HTTPServer) updateAccount(c fiber.Ctx) error {
	var req updateAccountRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	profile, err := s.accounts.UpdateDetails(c.Context(), accountID(c), req.FullName, req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, "account details updated successfully")
}

type imageUpdater func(c fiber.Ctx, src *media.Source) (*models.Profile, error)

func (s *HTTPServer) updateImage(c fiber.Ctx, field, message string, update imageUpdater) error {
	src, cleanup, err := s.spool(c, field)
	defer cleanup()
	if err != nil {
		return err
	}

	profile, err := update(c, src)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, message)
}

func (s *HTTPServer) updateAvatar(c fiber.Ctx) error {
	return s.updateImage(c, "avatar", "avatar image updated successfully",
		func(c fiber.Ctx, src *media.Source) (*models.Profile, error) {
			return s.accounts.UpdateAvatar(c.Context(), accountID(c), src)
		})
}

func (s *HTTPServer) updateCoverImage(c fiber.Ctx) error {
	return s.updateImage(c, "coverImage", "cover image updated successfully",
		func(c fiber.Ctx, src *media.Source) (*models.Profile, error) {
			return s.accounts.UpdateCoverImage(c.Context(), accountID(c), src)
		})
}
