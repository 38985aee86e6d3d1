// Package agent implements the request loop: ask the model for an intent,
// run the tool it names, reflect on failures, and finish with exactly one
// delivered and logged answer per request.
package agent

import (
	"context"

	"github.com/tansive/francine/internal/francine/invoker"
	"github.com/tansive/francine/internal/francine/llm"
	"github.com/tansive/francine/internal/francine/reflector"
)

// ContextProvider returns retrieval context for a query, or "".
type ContextProvider interface {
	GetContext(ctx context.Context, query string) string
}

// InteractionLog is the append-only record of (prompt, response) pairs.
type InteractionLog interface {
	Append(ctx context.Context, prompt, response string) error
}

// Clarifier delivers a question to the human and blocks for the reply.
type Clarifier interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Responder delivers the final answer to wherever the request came from.
type Responder interface {
	Deliver(ctx context.Context, text string)
}

// ToolInvoker runs a tool and reports the outcome.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) invoker.Outcome
}

// Reflector decides what to do after a tool failure.
type Reflector interface {
	Reflect(ctx context.Context, f reflector.Failure) (reflector.Decision, error)
}

// Toolbox is the part of the tool registry the loop needs.
type Toolbox interface {
	Has(name string) bool
	SchemaJSON() string
}

// Deps are the collaborators of a Loop. LLM, Tools, Invoker, Reflector and
// Log are required; the rest may be nil. Persona, Chooser and FeedbackLog are
// only used by Feedback.
type Deps struct {
	LLM       llm.Client
	Tools     Toolbox
	Invoker   ToolInvoker
	Reflector Reflector
	Log       InteractionLog
	Context   ContextProvider
	Clarifier Clarifier
	Responder Responder

	Persona     Persona
	Chooser     Chooser
	FeedbackLog FeedbackLog
}

const (
	DefaultMaxRetries     = 2
	DefaultMaxPromptChars = 8000
)

// Loop handles requests. It holds no per-request state and is safe for
// concurrent use.
type Loop struct {
	deps           Deps
	maxRetries     int
	maxPromptChars int
}

type Option func(*Loop)

// WithMaxRetries sets the retry budget; a request gets at most n+1 attempts.
func WithMaxRetries(n int) Option {
	return func(l *Loop) {
		if n >= 0 {
			l.maxRetries = n
		}
	}
}

// WithMaxPromptChars bounds how much of the previous model prompt is carried
// into a retry prompt. Zero disables the bound.
func WithMaxPromptChars(n int) Option {
	return func(l *Loop) {
		if n >= 0 {
			l.maxPromptChars = n
		}
	}
}

func New(deps Deps, opts ...Option) (*Loop, error) {
	switch {
	case deps.LLM == nil:
		return nil, ErrInvalidDeps.Msg("llm client is required")
	case deps.Tools == nil:
		return nil, ErrInvalidDeps.Msg("tool registry is required")
	case deps.Invoker == nil:
		return nil, ErrInvalidDeps.Msg("tool invoker is required")
	case deps.Reflector == nil:
		return nil, ErrInvalidDeps.Msg("reflector is required")
	case deps.Log == nil:
		return nil, ErrInvalidDeps.Msg("interaction log is required")
	}
	l := &Loop{
		deps:           deps,
		maxRetries:     DefaultMaxRetries,
		maxPromptChars: DefaultMaxPromptChars,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Loop) MaxRetries() int { return l.maxRetries }
