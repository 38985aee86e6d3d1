package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/francine/internal/francine/config"
)

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])
		assert.Equal(t, false, req["stream"])
		w.Write([]byte(`{"model":"test-model","response":"{\"function\":\"none\",\"answer\":\"hi\"}","done":true}`))
	}))
	defer srv.Close()

	o := NewOllama(OllamaOptions{Host: srv.URL, Model: "test-model"})
	out, err := o.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"function":"none","answer":"hi"}`, out)
}

func TestOllamaRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	o := NewOllama(OllamaOptions{Host: srv.URL, Retries: 2, RetryDelay: time.Millisecond})
	out, err := o.Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOllamaFailureBecomesErrorText(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer srv.Close()

	o := NewOllama(OllamaOptions{Host: srv.URL, Model: "nope", Retries: 2, RetryDelay: time.Millisecond})
	out, err := o.Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Error: Could not get a response from the LLM. "))
	assert.Contains(t, out, "model 'nope' not found")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")
}

func TestOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	o := NewOllama(OllamaOptions{Host: url, Retries: 0})
	out, err := o.Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Error: Could not get a response from the LLM."))
}

func TestOllamaInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>proxy error</html>`))
	}))
	defer srv.Close()

	out, err := NewOllama(OllamaOptions{Host: srv.URL}).Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, InvalidResponse, out)
}

func TestOllamaCanceledContextIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOllama(OllamaOptions{Host: srv.URL}).Complete(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		if strings.Contains(r.URL.RawQuery, "empty") {
			w.Write([]byte(`{"embedding":[]}`))
			return
		}
		w.Write([]byte(`{"embedding":[0.5,-1,2]}`))
	}))
	defer srv.Close()

	vec, err := NewOllama(OllamaOptions{Host: srv.URL}).Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 2}, vec)
}

func TestNewFromConfig(t *testing.T) {
	c := config.Default().LLM
	b, err := NewFromConfig(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "ollama", b.Provider)
	assert.IsType(t, &Ollama{}, b.Client)

	c.Provider = "anthropic"
	c.APIKey = ""
	_, err = NewFromConfig(context.Background(), c)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	c.APIKey = "sk-test"
	b, err = NewFromConfig(context.Background(), c)
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, b.Client)
	assert.IsType(t, &Ollama{}, b.Embedder)

	c.Provider = "mystery"
	_, err = NewFromConfig(context.Background(), c)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
