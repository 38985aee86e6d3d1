package invoker

import (
	"errors"
	"net/http"

	"github.com/tansive/francine/internal/common/apperrors"
)

var (
	ErrInvokerError apperrors.Error = apperrors.New("invoker error").SetStatusCode(http.StatusInternalServerError)
	ErrToolPanic    apperrors.Error = ErrInvokerError.New("tool panicked")
	ErrToolTimeout  apperrors.Error = ErrInvokerError.New("tool timed out").SetStatusCode(http.StatusGatewayTimeout)
	ErrSaveResult   apperrors.Error = ErrInvokerError.New("unable to save tool result")
)

// errorText renders err for the model, expanding attached causes of
// application errors so validation details reach the reflector.
func errorText(err error) string {
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.ErrorAll()
	}
	return err.Error()
}
