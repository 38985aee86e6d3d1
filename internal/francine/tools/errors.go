package tools

import (
	"net/http"

	"github.com/tansive/francine/internal/common/apperrors"
)

var (
	// ErrToolError is the base error for the package.
	ErrToolError apperrors.Error = apperrors.New("tool error").SetStatusCode(http.StatusBadRequest)

	// ErrDuplicateTool is returned when two tools share a name.
	ErrDuplicateTool apperrors.Error = ErrToolError.New("duplicate tool name")

	// ErrInvalidSchema is returned when a parameter schema does not compile.
	ErrInvalidSchema apperrors.Error = ErrToolError.New("invalid parameter schema")

	// ErrUnknownTool is returned by Validate for names not in the registry.
	ErrUnknownTool apperrors.Error = ErrToolError.New("unknown tool").SetStatusCode(http.StatusNotFound)

	// ErrInvalidArgs is returned when arguments do not satisfy the schema.
	ErrInvalidArgs apperrors.Error = ErrToolError.New("invalid arguments").SetExpandError(true)
)
