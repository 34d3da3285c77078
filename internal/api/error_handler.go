package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/onboardhq/account-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. It keeps
// the same {"message": ...} shape as success responses.
type errorResponse struct {
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"message": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Message: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrNoAccounts):
		return http.StatusNotFound, "No User found"
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, "User with this Email already exist."
	case errors.Is(err, domain.ErrNotVerified):
		return http.StatusBadRequest, "User not verified"
	case errors.Is(err, domain.ErrIncorrectPassword):
		return http.StatusBadRequest, "Incorrect Password"
	case errors.Is(err, domain.ErrNotAdmin):
		return http.StatusBadRequest, "You are not an Admin, Therefore you are not allowed to access this"
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusBadRequest, "This Link is Expired"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
