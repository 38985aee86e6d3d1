package toolset

import (
	"net/http"

	"github.com/tansive/francine/internal/common/apperrors"
)

var (
	// ErrToolsetError is the base error for built-in tool failures.
	ErrToolsetError apperrors.Error = apperrors.New("tool failed").SetStatusCode(http.StatusInternalServerError)

	// ErrAccessDenied is returned for paths outside the managed directory.
	ErrAccessDenied apperrors.Error = ErrToolsetError.New("access denied").SetStatusCode(http.StatusForbidden)

	// ErrFileOperation covers file manager failures inside the sandbox.
	ErrFileOperation apperrors.Error = ErrToolsetError.New("file operation failed").SetStatusCode(http.StatusBadRequest)

	// ErrFetchFailed is returned when a remote page or API cannot be read.
	ErrFetchFailed apperrors.Error = ErrToolsetError.New("fetch failed").SetStatusCode(http.StatusBadGateway).SetExpandError(true)

	// ErrInvalidInput is returned for arguments that pass the schema but make
	// no sense to the tool.
	ErrInvalidInput apperrors.Error = ErrToolsetError.New("invalid input").SetStatusCode(http.StatusBadRequest)

	// ErrNotConfigured is returned by tools that need credentials or an index
	// that are not available.
	ErrNotConfigured apperrors.Error = ErrToolsetError.New("tool not configured").SetStatusCode(http.StatusServiceUnavailable)
)
