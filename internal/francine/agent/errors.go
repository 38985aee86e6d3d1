package agent

import (
	"net/http"

	"github.com/tansive/francine/internal/common/apperrors"
)

var (
	ErrAgentError    apperrors.Error = apperrors.New("agent error").SetStatusCode(http.StatusInternalServerError)
	ErrInvalidDeps   apperrors.Error = ErrAgentError.New("invalid agent dependencies")
	ErrNoClarifier   apperrors.Error = ErrAgentError.New("no clarification channel available")
	ErrLoopPanic     apperrors.Error = ErrAgentError.New("panic during prompt processing")
	ErrInvalidChoice apperrors.Error = ErrAgentError.New("invalid choice").SetStatusCode(http.StatusBadRequest)
	ErrFeedback      apperrors.Error = ErrAgentError.New("feedback mode failed")
)
