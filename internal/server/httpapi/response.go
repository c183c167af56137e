package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/gofiber/fiber/v3"
)

// apiResponse is the envelope of every successful response.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// apiError is the envelope of every failed response.
type apiError struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c fiber.Ctx, status int, data any, message string) error {
	return c.Status(status).JSON(apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

type errorMapping struct {
	status int
	code   string
}

var errorMappings = map[error]errorMapping{
	common.ErrValidation:   {http.StatusBadRequest, "validation_error"},
	common.ErrMissingAsset: {http.StatusBadRequest, "missing_asset"},
	common.ErrConflict:     {http.StatusConflict, "conflict"},
	common.ErrNotFound:     {http.StatusNotFound, "not_found"},
	common.ErrUnauthorized: {http.StatusUnauthorized, "unauthorized"},
	common.ErrInvalidToken: {http.StatusUnauthorized, "invalid_token"},
	common.ErrUpstream:     {http.StatusBadGateway, "upstream_error"},
	common.ErrInternal:     {http.StatusInternalServerError, "internal_error"},
}

// mapError resolves err to a status code, an error code and a client-safe
// message.
func mapError(err error) (int, string, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "http_error"
		if fe.Code < http.StatusInternalServerError {
			code = "request_error"
		}
		return fe.Code, code, fe.Message
	}

	m, ok := errorMappings[common.KindOf(err)]
	if !ok {
		m = errorMappings[common.ErrInternal]
	}
	return m.status, m.code, common.MessageOf(err)
}

func (s *HTTPServer) errorHandler(c fiber.Ctx, err error) error {
	status, code, message := mapError(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Context(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}

	// A rejected token means the client has to log in again.
	if errors.Is(err, common.ErrInvalidToken) {
		s.clearSessionCookies(c)
	}

	return c.Status(status).JSON(apiError{
		StatusCode: status,
		Error:      code,
		Message:    message,
		Success:    false,
	})
}
