package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/tansive/francine/internal/francine/invoker"
	"github.com/tansive/francine/internal/francine/reflector"
	"github.com/tansive/francine/internal/francine/tools"
)

// scriptedLLM returns its replies in order and repeats the last one.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	prompts []string
	err     error
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	i := len(s.prompts) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i], nil
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type entry struct{ prompt, response string }

type memoryLog struct {
	mu      sync.Mutex
	entries []entry
}

func (m *memoryLog) Append(ctx context.Context, prompt, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{prompt, response})
	return nil
}

type recordingResponder struct {
	delivered []string
}

func (r *recordingResponder) Deliver(ctx context.Context, text string) {
	r.delivered = append(r.delivered, text)
}

type scriptedClarifier struct {
	questions []string
	reply     string
	err       error
}

func (c *scriptedClarifier) Ask(ctx context.Context, question string) (string, error) {
	c.questions = append(c.questions, question)
	return c.reply, c.err
}

type staticContext string

func (s staticContext) GetContext(ctx context.Context, query string) string { return string(s) }

type panicContext struct{}

func (panicContext) GetContext(ctx context.Context, query string) string { panic("index corrupted") }

// countingTool counts calls and returns the configured value or error.
type countingTool struct {
	mu    sync.Mutex
	n     int
	value any
	err   error
}

func (c *countingTool) Call(ctx context.Context, args map[string]any) (any, error) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return c.value, c.err
}

func (c *countingTool) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type harness struct {
	llm       *scriptedLLM
	reflect   *scriptedLLM
	log       *memoryLog
	responder *recordingResponder
	clarifier *scriptedClarifier
	domain    *countingTool
	loop      *Loop
}

func newHarness(replies, reflections []string, opts ...Option) *harness {
	h := &harness{
		llm:       &scriptedLLM{replies: replies},
		reflect:   &scriptedLLM{replies: reflections},
		log:       &memoryLog{},
		responder: &recordingResponder{},
		clarifier: &scriptedClarifier{reply: "example.com"},
		domain:    &countingTool{err: errors.New("ConnectionError: failed to resolve exampl.com")},
	}
	profit := tools.New("profit_calc", "Calculate profit", tools.FamilyCalc,
		tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
			return args["revenue"].(float64) - (args["cogs"].(float64) + args["ship"].(float64) + args["ads"].(float64)), nil
		}),
		tools.Required("revenue", "number", ""),
		tools.Required("cogs", "number", ""),
		tools.Required("ship", "number", ""),
		tools.Required("ads", "number", ""),
	)
	domain := tools.New("recon_domain", "Domain recon", tools.FamilyRawHits, h.domain,
		tools.Required("dom", "string", ""))
	registry := tools.MustNewRegistry(profit, domain)

	loop, err := New(Deps{
		LLM:       h.llm,
		Tools:     registry,
		Invoker:   invoker.New(registry),
		Reflector: reflector.New(h.reflect, registry.SchemaJSON()),
		Log:       h.log,
		Clarifier: h.clarifier,
		Responder: h.responder,
	}, opts...)
	if err != nil {
		panic(err)
	}
	h.loop = loop
	return h
}
