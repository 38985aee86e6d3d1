package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/echo":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			assert.Equal(t, "v", r.URL.Query().Get("k"))
			b, _ := io.ReadAll(r.Body)
			w.Write(b)
		case "/api/fail":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad input"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		}
	}))
	defer srv.Close()

	c := NewClient(StaticConfig{ServerURL: srv.URL + "/api", Token: "tok"})
	ctx := context.Background()

	body, err := c.DoRequest(ctx, RequestOptions{Method: http.MethodPost, Path: "echo", QueryParams: map[string]string{"k": "v"}, Body: []byte(`{"a":1}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(body))

	_, err = c.GetJSON(ctx, "fail", nil)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "bad input", httpErr.Message)
	assert.False(t, httpErr.Retryable())

	_, err = c.GetJSON(ctx, srv.URL+"/other", nil)
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "upstream down", httpErr.Message)
	assert.True(t, httpErr.Retryable())
}

func TestInvalidServerURL(t *testing.T) {
	c := NewClient(StaticConfig{})
	_, err := c.GetJSON(context.Background(), "x", nil)
	assert.Error(t, err)
}
