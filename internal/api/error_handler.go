package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/panelprompt/auth-api/internal/core/domain"
)

const rlsGuidance = "Profile storage rejected the write. " +
	"Use a service role key or relax the RLS policy for the KYC table."

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error   string                  `json:"error"`
	Details []domain.FieldViolation `json:"details,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (404 from router, 415, 429 from middleware, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Debug().Err(he.Internal).Int("status", he.Code).Msg("http error")
		}
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorResponse{Error: "invalid request", Details: ve.Violations}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrDuplicateAccount):
		return http.StatusBadRequest, errorResponse{Error: "User already registered. Try logging in instead."}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "Invalid username or password."}
	case errors.Is(err, domain.ErrEmailUnconfirmed):
		return http.StatusForbidden, errorResponse{Error: "Please confirm your email before logging in."}
	}

	// Server-side failures: log the real cause, return a fixed message.
	code, msg := http.StatusInternalServerError, "Something went wrong. Please try again."
	switch {
	case errors.Is(err, domain.ErrAuthorizationDenied):
		code, msg = http.StatusForbidden, rlsGuidance
	case errors.Is(err, domain.ErrIdentityProvider):
		code, msg = http.StatusBadGateway, "Unable to create user with the identity provider. Try again later."
	case errors.Is(err, domain.ErrStorage):
		msg = "Failed to save KYC profile."
	case errors.Is(err, domain.ErrConfiguration):
		msg = "Service is not configured."
	}

	log.Error().
		Err(err).
		Int("status", code).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("request failed")

	return code, errorResponse{Error: msg}
}
