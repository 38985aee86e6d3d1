package memory

import "github.com/tansive/francine/internal/common/apperrors"

var ErrMemoryError apperrors.Error = apperrors.New("memory error")
