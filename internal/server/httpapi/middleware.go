package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/server/auth"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// extractToken reads the access token from the Authorization header, then
// from the session cookie.
func extractToken(c fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return c.Cookies(common.AccessTokenCookieName)
}

func (s *HTTPServer) requireAuth(c fiber.Ctx) error {
	claims, err := s.sessions.Authenticate(c.Context(), extractToken(c))
	if err != nil {
		return err
	}
	c.Locals(claimsKey, claims)
	return c.Next()
}

// accountID returns the id of the authenticated caller.
func accountID(c fiber.Ctx) string {
	if claims, ok := c.Locals(claimsKey).(*auth.Claims); ok {
		return claims.AccountID()
	}
	return ""
}

func (s *HTTPServer) requestLogger(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status, _, _ = mapError(err)
	}
	s.logger.Debug(c.Context(), "request",
		"request_id", requestid.FromContext(c),
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"latency", time.Since(start),
	)
	return err
}
