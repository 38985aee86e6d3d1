package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/francine/internal/common"
	"github.com/tansive/francine/internal/francine/agent"
	"github.com/tansive/francine/pkg/api"
)

func TestBrokerAnswer(t *testing.T) {
	b := NewBroker(time.Second)
	ctx := agent.WithSessionID(context.Background(), "s-9")

	got := make(chan string, 1)
	go func() {
		answer, err := b.Ask(ctx, "Which folder?")
		assert.NoError(t, err)
		got <- answer
	}()

	var pending []api.Clarification
	require.Eventually(t, func() bool {
		pending = b.Pending()
		return len(pending) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Which folder?", pending[0].Question)
	assert.Equal(t, "s-9", pending[0].SessionID)
	assert.Len(t, pending[0].ID, 1+common.ShortCodeLen)

	require.NoError(t, b.Answer(pending[0].ID, "reports"))
	assert.Equal(t, "reports", <-got)
	assert.Empty(t, b.Pending())

	assert.ErrorIs(t, b.Answer(pending[0].ID, "again"), ErrClarificationNotFound)
}

func TestBrokerTimeoutAndCancel(t *testing.T) {
	b := NewBroker(20 * time.Millisecond)
	_, err := b.Ask(context.Background(), "anyone?")
	assert.ErrorIs(t, err, ErrClarificationTimeout)
	assert.Empty(t, b.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewBroker(0).Ask(ctx, "anyone?")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClarificationOverHTTP(t *testing.T) {
	broker := NewBroker(5 * time.Second)
	opts := testOptions(t)
	opts.Broker = broker
	opts.Agent = &fakeAgent{handle: func(ctx context.Context, prompt string) agent.Result {
		answer, err := broker.Ask(agent.WithSessionID(ctx, "s-2"), "Which report?")
		if err != nil {
			return agent.Result{Text: err.Error(), Terminal: agent.TerminalUnhandled, SessionID: "s-2"}
		}
		return agent.Result{Text: "opening " + answer, Terminal: agent.TerminalToolSuccess, Attempts: 2, SessionID: "s-2"}
	}}
	s := newTestServer(t, opts)
	ts := httptest.NewServer(s.Router)
	defer ts.Close()

	client, err := api.NewClient(ts.URL)
	require.NoError(t, err)

	done := make(chan *api.AskResponse, 1)
	go func() {
		rsp, err := client.Ask(context.Background(), "open the report")
		assert.NoError(t, err)
		done <- rsp
	}()

	var pending []api.Clarification
	require.Eventually(t, func() bool {
		pending, err = client.Clarifications(context.Background())
		return err == nil && len(pending) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Which report?", pending[0].Question)

	require.NoError(t, client.Answer(context.Background(), pending[0].ID, "q3.pdf"))
	select {
	case rsp := <-done:
		require.NotNil(t, rsp)
		assert.Equal(t, "opening q3.pdf", rsp.Text)
		assert.Equal(t, "tool_success", rsp.Terminal)
	case <-time.After(2 * time.Second):
		t.Fatal("ask did not return after the clarification was answered")
	}

	rsp := executeTestRequest(t, s, newRequest(t, "POST", "/clarifications/Q000000", `{"answer":"x"}`))
	assert.Equal(t, http.StatusNotFound, rsp.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rsp.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "Q000000")
}
