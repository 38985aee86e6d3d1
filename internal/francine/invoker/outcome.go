package invoker

import "time"

// Outcome is the result of one tool invocation: a Success carrying the raw
// value and its user-facing text, or a Failure carrying the error message.
type Outcome struct {
	Tool         string
	Success      bool
	Value        any
	Text         string
	ErrorMessage string
	Duration     time.Duration
}

func success(tool string, value any, text string) Outcome {
	return Outcome{Tool: tool, Success: true, Value: value, Text: text}
}

func failure(tool, msg string) Outcome {
	return Outcome{Tool: tool, ErrorMessage: msg}
}
