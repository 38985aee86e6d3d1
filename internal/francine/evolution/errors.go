package evolution

import "github.com/tansive/francine/internal/common/apperrors"

var (
	ErrEvolutionError    apperrors.Error = apperrors.New("evolution error")
	ErrConstitution      apperrors.Error = ErrEvolutionError.New("constitution error")
	ErrReflectionFailed  apperrors.Error = ErrEvolutionError.New("memory reflection failed")
	ErrInsightsNotArray  apperrors.Error = ErrReflectionFailed.New("LLM did not return a JSON array")
	ErrFeedbackLogFailed apperrors.Error = ErrEvolutionError.New("unable to log feedback")
)
