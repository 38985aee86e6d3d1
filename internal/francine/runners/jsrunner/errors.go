package jsrunner

import (
	"net/http"

	"github.com/tansive/francine/internal/common/apperrors"
)

var (
	ErrJSRuntime         apperrors.Error = apperrors.New("jsruntime error")
	ErrJSRuntimeTimeout  apperrors.Error = ErrJSRuntime.New("javascript tool timed out").SetStatusCode(http.StatusGatewayTimeout)
	ErrInvalidJSFunction apperrors.Error = ErrJSRuntime.New("invalid javascript function")
	ErrJSThrown          apperrors.Error = ErrJSRuntime.New("javascript tool raised an error").SetStatusCode(http.StatusBadRequest)
	ErrJSExecutionError  apperrors.Error = ErrJSRuntime.New("js execution error").SetStatusCode(http.StatusUnprocessableEntity).SetExpandError(true)
)
