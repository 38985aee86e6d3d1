// Package reflector asks the model what to do after a tool failure. The
// answer is one of three decisions: retry with new arguments, ask the user a
// question, or give up with an explanation. Output that cannot be read as a
// decision becomes a GiveUp that carries the tool error.
package reflector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/francine/intent"
	"github.com/tansive/francine/internal/francine/llm"
)

// Action names the decision kinds in the model's JSON.
type Action string

const (
	ActionRetryWithArgs Action = "retry_with_new_args"
	ActionAskUser       Action = "ask_user"
	ActionGiveUp        Action = "give_up"
)

// Decision is RetryWithArgs (Function, Args, Reason), AskUser (Question,
// Reason) or GiveUp (Answer, Reason).
type Decision struct {
	Action   Action
	Function string
	Args     map[string]any
	Question string
	Answer   string
	Reason   string
}

// Failure describes the failed attempt the model reflects on.
type Failure struct {
	Tool    string
	Args    map[string]any
	Error   string
	Plan    string
	Context string
}

const (
	defaultRetryReason  = "LLM suggested retry"
	defaultAskReason    = "LLM needed clarification"
	defaultGiveUpReason = "LLM gave up"
	fallbackReason      = "LLM failed to provide a valid reflection plan."
)

// Reflector turns failures into decisions.
type Reflector struct {
	client llm.Client
	schema string
}

// New returns a Reflector that shows schema (the registry's TOOL_SCHEMA
// rendering) to the model.
func New(client llm.Client, schema string) *Reflector {
	return &Reflector{client: client, schema: schema}
}

// Reflect asks the model for a decision. It only returns an error when the
// model client does, which happens when ctx ends.
func (r *Reflector) Reflect(ctx context.Context, f Failure) (Decision, error) {
	raw, err := r.client.Complete(ctx, r.Prompt(f))
	if err != nil {
		return Decision{}, err
	}
	d, ok := ParseDecision(raw)
	if !ok {
		log.Ctx(ctx).Warn().Str("tool", f.Tool).Str("raw", raw).Msg("unable to parse reflection response")
		return Fallback(f), nil
	}
	if !d.valid() {
		if d.Action != ActionRetryWithArgs && d.Action != ActionAskUser && d.Action != ActionGiveUp {
			log.Ctx(ctx).Warn().Str("tool", f.Tool).Str("action", string(d.Action)).Msg("unknown reflection action")
			return Decision{
				Action: ActionGiveUp,
				Answer: fmt.Sprintf("I encountered an unexpected issue while trying to self-correct for the failure of '%s'. Error: %s. Please try rephrasing your request.", f.Tool, f.Error),
				Reason: fallbackReason,
			}, nil
		}
		log.Ctx(ctx).Warn().Str("tool", f.Tool).Str("action", string(d.Action)).Msg("incomplete reflection response")
		return Fallback(f), nil
	}
	d.fillReason()
	return d, nil
}

// Fallback is the GiveUp used when the model's reflection is unusable.
func Fallback(f Failure) Decision {
	return Decision{
		Action: ActionGiveUp,
		Answer: fmt.Sprintf("I encountered an unrecoverable error trying to use the tool '%s'. Error: %s", f.Tool, f.Error),
		Reason: fallbackReason,
	}
}

// ParseDecision reads a decision object. ok is false when raw is not a JSON
// object with a string "action".
func ParseDecision(raw string) (Decision, bool) {
	obj, ok := intent.DecodeObject(raw)
	if !ok {
		return Decision{}, false
	}
	action, ok := obj["action"].(string)
	if !ok {
		return Decision{}, false
	}
	d := Decision{Action: Action(action)}
	d.Function, _ = obj["function"].(string)
	d.Args, _ = obj["args"].(map[string]any)
	d.Question, _ = obj["question"].(string)
	d.Answer, _ = obj["answer"].(string)
	d.Reason, _ = obj["reason"].(string)
	return d, true
}

func (d Decision) valid() bool {
	switch d.Action {
	case ActionRetryWithArgs:
		return true
	case ActionAskUser:
		return strings.TrimSpace(d.Question) != ""
	case ActionGiveUp:
		return strings.TrimSpace(d.Answer) != ""
	}
	return false
}

func (d *Decision) fillReason() {
	if d.Reason != "" {
		return
	}
	switch d.Action {
	case ActionRetryWithArgs:
		d.Reason = defaultRetryReason
	case ActionAskUser:
		d.Reason = defaultAskReason
	case ActionGiveUp:
		d.Reason = defaultGiveUpReason
	}
}

// Prompt renders the reflection request for f.
func (r *Reflector) Prompt(f Failure) string {
	args := f.Args
	if args == nil {
		args = map[string]any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		argsJSON = []byte(fmt.Sprintf("%v", args))
	}

	var b strings.Builder
	b.WriteString("You attempted to use a tool, but it failed. Analyze the failure and suggest a new approach. ")
	b.WriteString("Your response should be a JSON object with either:\n")
	b.WriteString(`1. {"action": "retry_with_new_args", "function": "<tool_name>", "args": {...}, "reason": "<why_this_new_attempt>"}` + "\n")
	b.WriteString(`2. {"action": "ask_user", "question": "<clarifying_question_for_user>", "reason": "<why_asking>"}` + "\n")
	b.WriteString(`3. {"action": "give_up", "answer": "<explanation_to_user>", "reason": "<why_giving_up>"}` + "\n\n")
	b.WriteString("If suggesting a retry, ensure the 'function' and 'args' are valid for the tool. Use the TOOL_SCHEMA below for reference.\n\n")
	fmt.Fprintf(&b, "Tool Name: %s\n", f.Tool)
	fmt.Fprintf(&b, "Arguments Used: %s\n", argsJSON)
	fmt.Fprintf(&b, "Error Message: %s\n", f.Error)
	fmt.Fprintf(&b, "Current Plan/Goal: %s\n", f.Plan)
	fmt.Fprintf(&b, "Relevant Context: %s\n\n", f.Context)
	fmt.Fprintf(&b, "--- TOOL_SCHEMA ---\n%s\n--- END TOOL_SCHEMA ---\n", r.schema)
	b.WriteString("Suggest a new action:")
	return b.String()
}
