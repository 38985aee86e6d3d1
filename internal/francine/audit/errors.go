package audit

import "github.com/tansive/francine/internal/common/apperrors"

var (
	ErrAuditError   apperrors.Error = apperrors.New("audit log error")
	ErrInvalidKey   apperrors.Error = ErrAuditError.New("invalid signing key")
	ErrWriterClosed apperrors.Error = ErrAuditError.New("audit log is closed")
	ErrVerifyFailed apperrors.Error = ErrAuditError.New("audit log verification failed")
	ErrExportFailed apperrors.Error = ErrAuditError.New("audit log export failed")
)
