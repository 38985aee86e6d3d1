package rag

import "github.com/tansive/francine/internal/common/apperrors"

var (
	ErrRAGError       apperrors.Error = apperrors.New("rag error")
	ErrIndexOpen      apperrors.Error = ErrRAGError.New("unable to open index")
	ErrIndexBuild     apperrors.Error = ErrRAGError.New("unable to build index")
	ErrNothingToEmbed apperrors.Error = ErrIndexBuild.New("no text content found to index")
	ErrNoEmbeddings   apperrors.Error = ErrIndexBuild.New("no embeddings could be generated")
	ErrQuery          apperrors.Error = ErrRAGError.New("unable to query index")
)
