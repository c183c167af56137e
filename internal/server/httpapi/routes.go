package httpapi

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *HTTPServer) routes() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.requestLogger)

	s.app.Get("/healthz", s.healthz)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	users := s.app.Group("/api/v1/users")

	users.Post("/register", s.register)
	users.Post("/login", s.login)
	users.Post("/refresh-token", s.refreshToken)

	users.Post("/logout", s.requireAuth, s.logout)
	users.Get("/current-user", s.requireAuth, s.currentUser)
	users.Post("/change-password", s.requireAuth, s.changePassword)
	users.Patch("/update-account", s.requireAuth, s.updateAccount)
	users.Patch("/avatar", s.requireAuth, s.updateAvatar)
	users.Patch("/cover-image", s.requireAuth, s.updateCoverImage)
}

func (s *HTTPServer) healthz(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
