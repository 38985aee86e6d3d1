// Package llm provides the language model backends. Every backend implements
// Client; backends that can produce vectors also implement Embedder.
//
// Transport and API failures do not surface as Go errors from Complete.
// They come back as the text "Error: Could not get a response from the
// LLM. <cause>", which the agent's parser delivers to the user as a direct
// answer. Complete only returns an error when the caller's context ends.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client produces a completion for a single prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrorPrefix starts every error-flavored completion.
const ErrorPrefix = "Error: "

// InvalidResponse is returned as the completion when the backend answered
// with something that could not be decoded.
const InvalidResponse = "Error: Invalid response from LLM."

// ErrorResponse renders a backend failure as completion text.
func ErrorResponse(err error) string {
	return fmt.Sprintf("Error: Could not get a response from the LLM. %v", err)
}

// settle applies the error policy shared by all backends.
func settle(ctx context.Context, text string, err error) (string, error) {
	if err == nil {
		return text, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return "", ctxErr
	}
	return ErrorResponse(err), nil
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt string) (string, error)

func (f ClientFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
