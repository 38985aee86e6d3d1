package llm

import (
	"net/http"

	"github.com/tansive/francine/internal/common/apperrors"
)

var (
	ErrLLMError          apperrors.Error = apperrors.New("llm error").SetStatusCode(http.StatusBadGateway)
	ErrUnknownProvider   apperrors.Error = ErrLLMError.New("unknown llm provider").SetStatusCode(http.StatusBadRequest)
	ErrMissingAPIKey     apperrors.Error = ErrLLMError.New("missing api key").SetStatusCode(http.StatusBadRequest)
	ErrEmptyEmbedding    apperrors.Error = ErrLLMError.New("empty embedding")
	ErrEmbedNotSupported apperrors.Error = ErrLLMError.New("provider does not support embeddings").SetStatusCode(http.StatusNotImplemented)
)
