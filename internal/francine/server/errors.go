package server

import (
	"net/http"

	"github.com/tansive/francine/internal/common/apperrors"
)

var (
	ErrServerError apperrors.Error = apperrors.New("server error").SetStatusCode(http.StatusInternalServerError)

	ErrBadRequest apperrors.Error = ErrServerError.New("bad request").SetStatusCode(http.StatusBadRequest)

	ErrUnauthorized apperrors.Error = ErrServerError.New("unauthorized").SetStatusCode(http.StatusUnauthorized)

	ErrInvalidToken apperrors.Error = ErrUnauthorized.New("invalid token")

	ErrClarificationNotFound apperrors.Error = ErrServerError.New("clarification not found").SetStatusCode(http.StatusNotFound)

	ErrClarificationTimeout apperrors.Error = ErrServerError.New("no answer to clarification").SetStatusCode(http.StatusGatewayTimeout)

	ErrSchedulerUnavailable apperrors.Error = ErrServerError.New("scheduler unavailable").SetStatusCode(http.StatusServiceUnavailable)

	ErrMCPError apperrors.Error = ErrServerError.New("mcp error")
)
