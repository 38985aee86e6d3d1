package agent

import (
	"context"

	"github.com/tansive/francine/internal/common/uuid"
)

// InitialPlan is the plan every session starts with.
const InitialPlan = "Initial user request."

// Session is the state of one request. It is owned by a single Handle call.
type Session struct {
	ID             string
	OriginalPrompt string
	CurrentPrompt  string
	Plan           string
	RetryCount     int
	MaxRetries     int
	Attempts       int

	finished bool
	result   Result
}

func newSession(prompt string, maxRetries int) *Session {
	return &Session{
		ID:             uuid.NewString(),
		OriginalPrompt: prompt,
		CurrentPrompt:  prompt,
		Plan:           InitialPlan,
		MaxRetries:     maxRetries,
	}
}

type sessionKey struct{}

// WithSessionID returns a context carrying the session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionIDFromContext returns the ID set by Handle, or "".
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
