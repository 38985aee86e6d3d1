package scheduler

import (
	"net/http"

	"github.com/tansive/francine/internal/common/apperrors"
)

var (
	ErrSchedulerError   apperrors.Error = apperrors.New("scheduler error")
	ErrInvalidTimeOfDay apperrors.Error = ErrSchedulerError.New("invalid time of day, expected HH:MM").SetStatusCode(http.StatusBadRequest)
	ErrEmptyCommand     apperrors.Error = ErrSchedulerError.New("command is empty").SetStatusCode(http.StatusBadRequest)
	ErrJobNotFound      apperrors.Error = ErrSchedulerError.New("job not found").SetStatusCode(http.StatusNotFound)
	ErrAlreadyRunning   apperrors.Error = ErrSchedulerError.New("scheduler is already running")
)
