package httpapi

import (
	"time"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/server/auth"
	"github.com/gofiber/fiber/v3"
)

type cookieSettings struct {
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func (s *HTTPServer) sessionCookie(name, value string, ttl time.Duration) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   s.cookies.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func (s *HTTPServer) setSessionCookies(c fiber.Ctx, pair *auth.TokenPair) {
	c.Cookie(s.sessionCookie(common.AccessTokenCookieName, pair.AccessToken, s.cookies.accessTTL))
	c.Cookie(s.sessionCookie(common.RefreshTokenCookieName, pair.RefreshToken, s.cookies.refreshTTL))
}

func (s *HTTPServer) clearSessionCookies(c fiber.Ctx) {
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		ck := s.sessionCookie(name, "", 0)
		ck.Expires = time.Unix(0, 0)
		c.Cookie(ck)
	}
}
