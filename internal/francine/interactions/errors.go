package interactions

import "github.com/tansive/francine/internal/common/apperrors"

var (
	ErrInteractionLog apperrors.Error = apperrors.New("interaction log error")
	ErrSinkWrite      apperrors.Error = ErrInteractionLog.New("unable to write interaction")
	ErrSinkOpen       apperrors.Error = ErrInteractionLog.New("unable to open interaction sink")
	ErrInvalidTable   apperrors.Error = ErrSinkOpen.New("invalid table name")
)
