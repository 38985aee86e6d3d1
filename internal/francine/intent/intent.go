// Package intent turns raw model output into a structured decision: call a
// tool, or answer directly. Parsing never fails; anything that is not a well
// formed tool call is delivered to the user as a direct answer.
package intent

import (
	"encoding/json"
	"io"
	"strings"
)

// NoneFunction is the sentinel the model uses to answer without a tool.
const NoneFunction = "none"

// Kind discriminates Intent.
type Kind int

const (
	KindDirectAnswer Kind = iota
	KindToolCall
)

func (k Kind) String() string {
	if k == KindToolCall {
		return "tool_call"
	}
	return "direct_answer"
}

// Intent is either a ToolCall (Name, Args) or a DirectAnswer (Text).
type Intent struct {
	Kind Kind
	Name string
	Args map[string]any
	Text string
}

// ToolCall builds a tool-call intent.
func ToolCall(name string, args map[string]any) Intent {
	if args == nil {
		args = map[string]any{}
	}
	return Intent{Kind: KindToolCall, Name: name, Args: args}
}

// DirectAnswer builds a direct-answer intent.
func DirectAnswer(text string) Intent {
	return Intent{Kind: KindDirectAnswer, Text: text}
}

func (i Intent) IsToolCall() bool { return i.Kind == KindToolCall }

// Parse decodes raw model output. known reports whether a function name is a
// registered tool; unknown names fall back to a direct answer with raw text.
func Parse(raw string, known func(name string) bool) Intent {
	obj, ok := DecodeObject(raw)
	if !ok {
		return DirectAnswer(raw)
	}

	fn, _ := obj["function"].(string)
	if fn == "" || fn == NoneFunction {
		if answer, ok := obj["answer"].(string); ok {
			return DirectAnswer(answer)
		}
		return DirectAnswer(raw)
	}

	if known == nil || !known(fn) {
		return DirectAnswer(raw)
	}

	args, _ := obj["args"].(map[string]any)
	return ToolCall(fn, args)
}

// DecodeObject strictly decodes raw as a single JSON object. Surrounding
// whitespace and one markdown code fence are tolerated.
func DecodeObject(raw string) (map[string]any, bool) {
	text := stripFence(strings.TrimSpace(raw))
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(text))
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return obj, true
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		first := strings.TrimSpace(inner[:nl])
		if first == "" || first == "json" || first == "JSON" {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}
