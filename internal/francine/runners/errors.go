package runners

import "github.com/tansive/francine/internal/common/apperrors"

var (
	ErrRunnerError       apperrors.Error = apperrors.New("configured tool error")
	ErrInvalidDefinition apperrors.Error = ErrRunnerError.New("invalid tool definition")
	ErrManifest          apperrors.Error = ErrInvalidDefinition.New("unable to load tool manifest")
)
