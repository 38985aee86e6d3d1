package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const framing = "You are Francine, a helpful local AI assistant. Your primary goal is to fulfill user requests by calling internal functions. " +
	`Respond with JSON like {"function":<name>, "args":{...}} or {"function":"none", "answer":"<your_answer>"}. ` +
	"Use the TOOL_SCHEMA below to understand available functions and their parameters.\n\n"

// BuildInstruction renders the framing, the tool schema and any retrieved
// context.
func BuildInstruction(schema, retrieved string) string {
	var b strings.Builder
	b.WriteString(framing)
	b.WriteString("--- TOOL_SCHEMA ---\n")
	b.WriteString(schema)
	b.WriteString("\n--- END TOOL_SCHEMA ---\n")
	if retrieved != "" {
		b.WriteString("\n\n")
		b.WriteString(retrieved)
	}
	return b.String()
}

// BuildPrompt appends the user turn to an instruction.
func BuildPrompt(instruction, current string) string {
	return instruction + "\nUser: " + current
}

func retryPrompt(original, tool string, args map[string]any, toolErr, reason, previous string) string {
	return fmt.Sprintf("User originally asked: '%s'. Previous attempt to use '%s' with args %s failed: '%s'. Reason for retry: %s. Now try again based on this. Original prompt for LLM was: '%s'",
		original, tool, renderArgs(args), toolErr, reason, previous)
}

func clarifiedPrompt(original, clarification, reason, previous string) string {
	return fmt.Sprintf("User originally asked: '%s'. My previous attempt failed. User clarified: '%s'. Reason for asking: %s. Now try again based on this clarification. Original prompt for LLM was: '%s'",
		original, clarification, reason, previous)
}

func exhaustedMessage(prompt string) string {
	return fmt.Sprintf("I'm sorry, I tried to fulfill your request '%s' multiple times but encountered persistent issues. Please try rephrasing your request or check the logs for more details.", prompt)
}

func unhandledMessage(err error) string {
	return fmt.Sprintf("An unhandled error occurred during prompt processing: %v. Please try again.", err)
}

func unhandledLogEntry(err error) string {
	return fmt.Sprintf("Unhandled Error: %v", err)
}

func renderArgs(args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}

// truncateTail keeps the last max runes of s, marking the cut. A max of
// zero leaves s unchanged.
func truncateTail(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return "..." + string(r[len(r)-max:])
}
