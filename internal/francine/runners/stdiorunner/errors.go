package stdiorunner

import "github.com/tansive/francine/internal/common/apperrors"

var (
	ErrStdioRunnerError apperrors.Error = apperrors.New("command runner error")
	ErrInvalidRuntime   apperrors.Error = ErrStdioRunnerError.New("invalid runtime")
	ErrInvalidSecurity  apperrors.Error = ErrStdioRunnerError.New("invalid security")
	ErrInvalidScript    apperrors.Error = ErrStdioRunnerError.New("invalid script")
	ErrInvalidVersion   apperrors.Error = ErrStdioRunnerError.New("invalid version")
	ErrInvalidConfig    apperrors.Error = ErrStdioRunnerError.New("invalid config")
	ErrExecutionFailed  apperrors.Error = ErrStdioRunnerError.New("execution failed").SetExpandError(true)
)
