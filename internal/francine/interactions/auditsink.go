package interactions

import (
	"context"

	"github.com/tansive/francine/internal/francine/audit"
)

// AuditSink appends records to the signed hash log.
type AuditSink struct {
	w *audit.Writer
}

func NewAuditSink(w *audit.Writer) *AuditSink {
	return &AuditSink{w: w}
}

func (s *AuditSink) Name() string { return "audit" }

func (s *AuditSink) Write(_ context.Context, rec Record) error {
	if err := s.w.Append(rec.Payload()); err != nil {
		return ErrSinkWrite.Err(err)
	}
	return nil
}

func (s *AuditSink) Close() error {
	return s.w.Close()
}
