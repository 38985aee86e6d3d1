package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/francine/internal/common/middleware"
	"github.com/tansive/francine/internal/francine/agent"
	"github.com/tansive/francine/internal/francine/invoker"
	"github.com/tansive/francine/internal/francine/scheduler"
	"github.com/tansive/francine/internal/francine/tools"
)

type fakeAgent struct {
	handle func(ctx context.Context, prompt string) agent.Result
}

func (f *fakeAgent) Handle(ctx context.Context, prompt string) agent.Result {
	if f.handle != nil {
		return f.handle(ctx, prompt)
	}
	return agent.Result{Text: "echo: " + prompt, Terminal: agent.TerminalDirectAnswer, Attempts: 1, SessionID: "s-1"}
}

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	echo := tools.New("echo", "Repeats text back.", tools.FamilyMessage,
		tools.CapabilityFunc(func(_ context.Context, args map[string]any) (any, error) {
			return "you said " + tools.StringArg(args, "text", ""), nil
		}),
		tools.Required("text", "string", "Text to repeat."),
	)
	slow := tools.New("lookup", "Looks something up.", tools.FamilyRawHits,
		tools.CapabilityFunc(func(_ context.Context, _ map[string]any) (any, error) {
			return nil, nil
		}),
	).WithBlocking()
	reg, err := tools.NewRegistry(echo, slow)
	require.NoError(t, err)
	return reg
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Agent:     &fakeAgent{},
		Tools:     invoker.New(testRegistry(t)),
		Scheduler: scheduler.New(),
		Broker:    NewBroker(0),
		EnableMCP: true,
	}
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	s, err := New(context.Background(), opts)
	require.NoError(t, err, "create new server")
	s.MountHandlers()
	return s
}

func executeTestRequest(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func newRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func checkHeader(t *testing.T, h http.Header) {
	t.Helper()
	assert.True(t, strings.HasPrefix(h.Get("Content-Type"), "application/json"), "Content-Type %q", h.Get("Content-Type"))
	assert.NotEmpty(t, h.Get(middleware.RequestIDHeader), "No Request Id")
}
