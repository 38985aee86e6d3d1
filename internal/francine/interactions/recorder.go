// Package interactions fans each finished request out to its sinks. The
// memlog append is synchronous; everything else consumes the event bus.
package interactions

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/common/uuid"
	"github.com/tansive/francine/internal/francine/agent"
	"github.com/tansive/francine/internal/francine/eventbus"
)

const (
	TopicPrefix  = "interaction."
	TopicPattern = "interaction.*"
)

// Record is one logged (prompt, response) pair.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Payload is the record as a generic map, the form the audit log signs.
func (r Record) Payload() map[string]any {
	return map[string]any{
		"id":         r.ID,
		"session_id": r.SessionID,
		"prompt":     r.Prompt,
		"response":   r.Response,
		"timestamp":  r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// Recorder implements agent.InteractionLog.
type Recorder struct {
	primary agent.InteractionLog
	bus     *eventbus.Bus
}

var _ agent.InteractionLog = (*Recorder)(nil)

// NewRecorder writes to primary and then publishes on bus. A nil bus
// disables publishing.
func NewRecorder(primary agent.InteractionLog, bus *eventbus.Bus) *Recorder {
	return &Recorder{primary: primary, bus: bus}
}

func (r *Recorder) Append(ctx context.Context, prompt, response string) error {
	if err := r.primary.Append(ctx, prompt, response); err != nil {
		return err
	}
	if r.bus == nil {
		return nil
	}
	session := agent.SessionIDFromContext(ctx)
	if session == "" {
		session = "none"
	}
	rec := Record{
		ID:        uuid.NewString(),
		SessionID: session,
		Prompt:    prompt,
		Response:  response,
		Timestamp: time.Now(),
	}
	if n := r.bus.Publish(TopicPrefix+session, rec); n == 0 {
		log.Ctx(ctx).Debug().Str("record_id", rec.ID).Msg("no interaction subscribers")
	}
	return nil
}
