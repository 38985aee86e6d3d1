package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	profitCall  = `{"function":"profit_calc","args":{"revenue":100,"cogs":40,"ship":10,"ads":5}}`
	domainCall  = `{"function":"recon_domain","args":{"dom":"exampl.com"}}`
	askDomain   = `{"action":"ask_user","question":"Which domain did you mean?","reason":"domain did not resolve"}`
	retryDomain = `{"action":"retry_with_new_args","function":"recon_domain","args":{"dom":"example.com"},"reason":"fix typo"}`
	giveUp      = `{"action":"give_up","answer":"That domain cannot be reached right now.","reason":"network"}`
)

func assertSingleEntry(t *testing.T, h *harness, prompt, response string) {
	t.Helper()
	require.Len(t, h.log.entries, 1)
	assert.Equal(t, prompt, h.log.entries[0].prompt)
	assert.Equal(t, response, h.log.entries[0].response)
	require.Len(t, h.responder.delivered, 1)
}

func TestProfitScenario(t *testing.T) {
	prompt := "what's my profit on $100 revenue, $40 cogs, $10 ship, $5 ads?"
	h := newHarness([]string{profitCall}, nil)

	res := h.loop.Handle(context.Background(), prompt)

	assert.Equal(t, TerminalToolSuccess, res.Terminal)
	assert.Contains(t, res.Text, "45")
	assert.Equal(t, 1, res.Attempts)
	assert.NotEmpty(t, res.SessionID)
	assertSingleEntry(t, h, prompt, res.Text)
	assert.Equal(t, res.Text, h.responder.delivered[0])
}

func TestDirectAnswer(t *testing.T) {
	h := newHarness([]string{`{"function":"none","answer":"Hello! How can I help?"}`}, nil)
	res := h.loop.Handle(context.Background(), "hi")
	assert.Equal(t, TerminalDirectAnswer, res.Terminal)
	assert.Equal(t, "Hello! How can I help?", res.Text)
	assertSingleEntry(t, h, "hi", "Hello! How can I help?")
}

func TestPlainTextIsDirectAnswer(t *testing.T) {
	h := newHarness([]string{"Sure thing."}, nil)
	res := h.loop.Handle(context.Background(), "hi")
	assert.Equal(t, TerminalDirectAnswer, res.Terminal)
	assert.Equal(t, "Sure thing.", res.Text)
}

func TestUnknownToolIsDirectAnswer(t *testing.T) {
	raw := `{"function":"launch_rocket","args":{"target":"moon"}}`
	h := newHarness([]string{raw}, nil)
	res := h.loop.Handle(context.Background(), "go to the moon")
	assert.Equal(t, TerminalDirectAnswer, res.Terminal)
	assert.Equal(t, raw, res.Text)
	assertSingleEntry(t, h, "go to the moon", raw)
}

func TestAskUserScenario(t *testing.T) {
	h := newHarness(
		[]string{domainCall, `{"function":"none","answer":"example.com is registered."}`},
		[]string{askDomain},
	)
	res := h.loop.Handle(context.Background(), "look up exampl.com")

	require.Equal(t, []string{"Which domain did you mean?"}, h.clarifier.questions)
	assert.Equal(t, TerminalDirectAnswer, res.Terminal)
	assert.Equal(t, "example.com is registered.", res.Text)
	assert.Equal(t, 2, res.Attempts)
	assertSingleEntry(t, h, "look up exampl.com", "example.com is registered.")

	require.Equal(t, 2, h.llm.calls())
	second := h.llm.prompts[1]
	assert.Contains(t, second, "User: User originally asked: 'look up exampl.com'. My previous attempt failed. User clarified: 'example.com'. Reason for asking: domain did not resolve.")
	assert.Contains(t, second, "Original prompt for LLM was: '")
}

func TestInvalidReflectionGivesUpWithToolError(t *testing.T) {
	h := newHarness([]string{domainCall}, []string{"this is not json"})
	res := h.loop.Handle(context.Background(), "look up exampl.com")

	assert.Equal(t, TerminalGaveUp, res.Terminal)
	assert.Contains(t, res.Text, "ConnectionError: failed to resolve exampl.com")
	assert.Contains(t, res.Text, "recon_domain")
	assert.Equal(t, 1, h.domain.count())
	assertSingleEntry(t, h, "look up exampl.com", res.Text)
}

func TestGiveUpShortCircuits(t *testing.T) {
	h := newHarness([]string{domainCall}, []string{giveUp}, WithMaxRetries(2))
	res := h.loop.Handle(context.Background(), "look up exampl.com")

	assert.Equal(t, TerminalGaveUp, res.Terminal)
	assert.Equal(t, "That domain cannot be reached right now.", res.Text)
	assert.Equal(t, 1, h.domain.count())
	assert.Equal(t, 1, h.llm.calls())
	assert.Equal(t, 1, res.Attempts)
}

func TestRetriesExhausted(t *testing.T) {
	prompt := "look up exampl.com"
	h := newHarness([]string{domainCall}, []string{retryDomain})
	res := h.loop.Handle(context.Background(), prompt)

	want := "I'm sorry, I tried to fulfill your request 'look up exampl.com' multiple times but encountered persistent issues. Please try rephrasing your request or check the logs for more details."
	assert.Equal(t, TerminalExhausted, res.Terminal)
	assert.Equal(t, want, res.Text)
	assert.Equal(t, 3, h.domain.count())
	assert.Equal(t, 3, h.llm.calls())
	assert.Equal(t, 3, res.Attempts)
	assertSingleEntry(t, h, prompt, want)

	assert.Contains(t, h.llm.prompts[1], "Previous attempt to use 'recon_domain' with args {\"dom\":\"exampl.com\"} failed: 'ConnectionError: failed to resolve exampl.com'. Reason for retry: fix typo.")
}

func TestZeroRetriesStillAsks(t *testing.T) {
	h := newHarness([]string{domainCall}, []string{askDomain}, WithMaxRetries(0))
	res := h.loop.Handle(context.Background(), "look up exampl.com")
	assert.Equal(t, TerminalExhausted, res.Terminal)
	assert.Equal(t, 1, h.domain.count())
	assert.Equal(t, 1, h.llm.calls())
	assert.Equal(t, []string{"Which domain did you mean?"}, h.clarifier.questions)
	assertSingleEntry(t, h, "look up exampl.com", res.Text)
}

func TestClarifiesOnEveryAttempt(t *testing.T) {
	h := newHarness([]string{domainCall}, []string{askDomain})
	res := h.loop.Handle(context.Background(), "look up exampl.com")
	assert.Equal(t, TerminalExhausted, res.Terminal)
	assert.Equal(t, 3, h.domain.count())
	assert.Len(t, h.clarifier.questions, 3)
}

func TestRetryThenSuccess(t *testing.T) {
	prompt := "look up exampl.com then work out my profit"
	h := newHarness([]string{domainCall, profitCall}, []string{retryDomain})
	res := h.loop.Handle(context.Background(), prompt)

	assert.Equal(t, TerminalToolSuccess, res.Terminal)
	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, res.Text, "45")
	assert.Equal(t, 1, h.domain.count())
	assert.Equal(t, 1, h.reflect.calls())
	assertSingleEntry(t, h, prompt, res.Text)
	assert.Equal(t, res.Text, h.responder.delivered[0])

	require.Equal(t, 2, h.llm.calls())
	assert.Contains(t, h.llm.prompts[1], "Reason for retry: fix typo")
}

func TestAskThenGiveUp(t *testing.T) {
	h := newHarness([]string{domainCall}, []string{askDomain, giveUp})
	res := h.loop.Handle(context.Background(), "look up exampl.com")

	assert.Equal(t, TerminalGaveUp, res.Terminal)
	assert.Equal(t, "That domain cannot be reached right now.", res.Text)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, h.domain.count())
	assert.Equal(t, 2, h.reflect.calls())
	assert.Equal(t, []string{"Which domain did you mean?"}, h.clarifier.questions)
	assertSingleEntry(t, h, "look up exampl.com", res.Text)
}

func TestUnhandledLLMError(t *testing.T) {
	h := newHarness(nil, nil)
	h.llm.err = errors.New("connection reset")
	res := h.loop.Handle(context.Background(), "hi")

	assert.Equal(t, TerminalUnhandled, res.Terminal)
	assert.Equal(t, "An unhandled error occurred during prompt processing: connection reset. Please try again.", res.Text)
	assertSingleEntry(t, h, "hi", "Unhandled Error: connection reset")
	assert.Equal(t, res.Text, h.responder.delivered[0])
}

func TestUnhandledPanic(t *testing.T) {
	h := newHarness([]string{profitCall}, nil)
	h.loop.deps.Context = panicContext{}
	res := h.loop.Handle(context.Background(), "hi")

	assert.Equal(t, TerminalUnhandled, res.Terminal)
	assert.Contains(t, res.Text, "index corrupted")
	require.Len(t, h.log.entries, 1)
	assert.True(t, strings.HasPrefix(h.log.entries[0].response, "Unhandled Error: "))
}

func TestClarifierFailureIsUnhandled(t *testing.T) {
	h := newHarness([]string{domainCall}, []string{askDomain})
	h.clarifier.err = errors.New("stdin closed")
	res := h.loop.Handle(context.Background(), "look up exampl.com")
	assert.Equal(t, TerminalUnhandled, res.Terminal)
	assert.Contains(t, res.Text, "stdin closed")
	require.Len(t, h.log.entries, 1)
}

func TestMissingClarifier(t *testing.T) {
	h := newHarness([]string{domainCall}, []string{askDomain})
	h.loop.deps.Clarifier = nil
	res := h.loop.Handle(context.Background(), "look up exampl.com")
	assert.Equal(t, TerminalUnhandled, res.Terminal)
	assert.Contains(t, res.Text, "no clarification channel available")
}

func TestRetrievedContextInPrompt(t *testing.T) {
	h := newHarness([]string{"ok"}, nil)
	h.loop.deps.Context = staticContext("\n\n--- Retrieved Context ---\nuser likes tea\n--- End Retrieved Context ---")
	h.loop.Handle(context.Background(), "drink?")

	p := h.llm.prompts[0]
	assert.True(t, strings.HasPrefix(p, "You are Francine, a helpful local AI assistant."))
	assert.Contains(t, p, "--- TOOL_SCHEMA ---\n[")
	assert.Contains(t, p, "--- END TOOL_SCHEMA ---\n\n\n\n\n--- Retrieved Context ---\nuser likes tea")
	assert.True(t, strings.HasSuffix(p, "\nUser: drink?"))
}

func TestRetryPromptIsBounded(t *testing.T) {
	h := newHarness([]string{domainCall}, []string{retryDomain}, WithMaxPromptChars(120))
	h.loop.Handle(context.Background(), "look up exampl.com")

	require.Equal(t, 3, h.llm.calls())
	first := len(h.llm.prompts[0])
	for _, p := range h.llm.prompts[1:] {
		_, embedded, found := strings.Cut(p, "Original prompt for LLM was: '")
		require.True(t, found)
		assert.LessOrEqual(t, len([]rune(embedded)), 120+len("...")+1)
		assert.Less(t, len(p), first*2)
	}
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrInvalidDeps)
}

func TestSessionIDInContext(t *testing.T) {
	var seen string
	h := newHarness([]string{"ok"}, nil)
	h.loop.deps.Log = logFunc(func(ctx context.Context, prompt, response string) error {
		seen = SessionIDFromContext(ctx)
		return nil
	})
	res := h.loop.Handle(context.Background(), "hi")
	assert.Equal(t, res.SessionID, seen)
}

type logFunc func(ctx context.Context, prompt, response string) error

func (f logFunc) Append(ctx context.Context, prompt, response string) error {
	return f(ctx, prompt, response)
}

func TestExactlyOneLogEntryProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	first := []string{profitCall, domainCall, "plain text", `{"function":"nope"}`}
	reflections := []string{askDomain, retryDomain, giveUp, "garbage", `{"action":"dance"}`}

	// For any retry budget, first reply and reflection, one entry is logged,
	// one answer is delivered and the tool runs at most maxRetries+1 times.
	properties.Property("one log entry per request", prop.ForAll(
		func(maxRetries, fi, ri int) bool {
			h := newHarness([]string{first[fi]}, []string{reflections[ri]}, WithMaxRetries(maxRetries))
			res := h.loop.Handle(context.Background(), "request")
			return len(h.log.entries) == 1 &&
				len(h.responder.delivered) == 1 &&
				h.domain.count() <= maxRetries+1 &&
				res.Attempts <= maxRetries+1 &&
				res.Text != ""
		},
		gen.IntRange(0, 4),
		gen.IntRange(0, len(first)-1),
		gen.IntRange(0, len(reflections)-1),
	))
	properties.TestingRun(t)
}
