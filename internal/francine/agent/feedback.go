package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var styleGuidelines = [2]string{
	"Be extremely concise and direct.",
	"Be more detailed and provide explanations.",
}

// Persona supplies the standing instructions shown in feedback mode.
type Persona interface {
	Constitution(ctx context.Context) string
	CoreMemory(ctx context.Context) string
}

// Chooser shows the candidates to the human and returns the raw reply,
// expected to be "1" or "2".
type Chooser interface {
	Choose(ctx context.Context, prompt string, candidates []string) (string, error)
}

// FeedbackEntry is one line of the feedback log.
type FeedbackEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	OriginalPrompt string    `json:"original_prompt"`
	ChosenResponse string    `json:"chosen_response"`
	AllResponses   []string  `json:"all_responses"`
}

// FeedbackLog records the user's preferences.
type FeedbackLog interface {
	Append(ctx context.Context, entry FeedbackEntry) error
}

// FeedbackResult reports what was shown and what the user picked.
type FeedbackResult struct {
	Candidates []string
	Choice     int
	Chosen     string
}

// Feedback generates two styled answers concurrently, asks the user to pick
// one and logs the preference. It does not touch the retry budget or the
// interaction log. An answer other than "1" or "2" logs nothing and returns
// ErrInvalidChoice.
func (l *Loop) Feedback(ctx context.Context, prompt string) (FeedbackResult, error) {
	if l.deps.Chooser == nil || l.deps.FeedbackLog == nil {
		return FeedbackResult{}, ErrFeedback.Msg("feedback mode needs a chooser and a feedback log")
	}
	constitution, coreMemory := "", ""
	if l.deps.Persona != nil {
		constitution = l.deps.Persona.Constitution(ctx)
		coreMemory = l.deps.Persona.CoreMemory(ctx)
	}

	var (
		wg         sync.WaitGroup
		candidates [2]string
		errs       [2]error
	)
	for i, style := range styleGuidelines {
		wg.Add(1)
		go func(i int, style string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = ErrFeedback.Msg(fmt.Sprintf("completion panicked: %v", r))
				}
			}()
			candidates[i], errs[i] = l.deps.LLM.Complete(ctx, FeedbackInstruction(constitution, coreMemory, style, prompt))
		}(i, style)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return FeedbackResult{}, ErrFeedback.MsgErr("unable to generate candidate responses", err)
		}
	}

	result := FeedbackResult{Candidates: candidates[:]}
	choice, err := l.deps.Chooser.Choose(ctx, ChoicePrompt(result.Candidates), result.Candidates)
	if err != nil {
		return result, ErrFeedback.MsgErr("unable to read choice", err)
	}
	switch strings.TrimSpace(choice) {
	case "1":
		result.Choice = 1
	case "2":
		result.Choice = 2
	default:
		log.Ctx(ctx).Info().Str("choice", choice).Msg("invalid feedback choice, nothing logged")
		return result, ErrInvalidChoice.Msg("invalid choice: " + choice)
	}
	result.Chosen = result.Candidates[result.Choice-1]

	entry := FeedbackEntry{
		Timestamp:      time.Now(),
		OriginalPrompt: prompt,
		ChosenResponse: result.Chosen,
		AllResponses:   result.Candidates,
	}
	if err := l.deps.FeedbackLog.Append(ctx, entry); err != nil {
		return result, ErrFeedback.MsgErr("unable to log feedback", err)
	}
	return result, nil
}

// FeedbackInstruction builds one styled candidate prompt.
func FeedbackInstruction(constitution, coreMemory, style, prompt string) string {
	return fmt.Sprintf("--- CONSTITUTION ---\n%s\n--- CORE MEMORY ---\n%s\nStyle guideline: %s\nUser query: %s",
		constitution, coreMemory, style, prompt)
}

// ChoicePrompt is the text shown to the user in feedback mode.
func ChoicePrompt(candidates []string) string {
	var b strings.Builder
	b.WriteString("I have two possible responses for you. Please choose the one you prefer:\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, c)
	}
	b.WriteString("Please enter 1 or 2:")
	return b.String()
}
