package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/francine/internal/common/apperrors"
)

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestWrapHttpRspJSON(t *testing.T) {
	h := WrapHttpRsp(func(r *http.Request) (*Response, error) {
		return &Response{StatusCode: http.StatusCreated, Location: "/schedule/j1", Response: map[string]string{"id": "j1"}}, nil
	})
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/schedule", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/schedule/j1", rec.Header().Get("Location"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"j1"}`, rec.Body.String())
}

func TestWrapHttpRspText(t *testing.T) {
	h := WrapHttpRsp(func(r *http.Request) (*Response, error) {
		return &Response{StatusCode: http.StatusOK, ContentType: "text/plain", Response: "ready"}, nil
	})
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "ready", rec.Body.String())

	bad := WrapHttpRsp(func(r *http.Request) (*Response, error) {
		return &Response{StatusCode: http.StatusOK, ContentType: "text/plain", Response: 42}, nil
	})
	assert.Equal(t, http.StatusInternalServerError, serve(bad, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestWrapHttpRspErrors(t *testing.T) {
	notFound := apperrors.New("missing").SetStatusCode(http.StatusNotFound)
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"app error", notFound.Msg("job j9"), http.StatusNotFound, "job j9"},
		{"app error without status", apperrors.New("plain"), http.StatusInternalServerError, "plain"},
		{"http error", ErrUnAuthorized(), http.StatusUnauthorized, "unable to authenticate request"},
		{"wrapped http error", fmt.Errorf("auth: %w", ErrUnAuthorized("bad token")), http.StatusUnauthorized, "bad token"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := WrapHttpRsp(func(r *http.Request) (*Response, error) { return nil, tt.err })
			rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), `"result":0`)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}

	h := WrapHttpRsp(func(r *http.Request) (*Response, error) { return nil, nil })
	assert.Equal(t, http.StatusInternalServerError, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestAsErrorDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()
	assert.Equal(t, http.StatusGatewayTimeout, AsError(ctx, ctx.Err()).StatusCode)
}

func TestGetRequestData(t *testing.T) {
	var v struct {
		Prompt string `json:"prompt"`
	}
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"prompt":"hi"}`))
	require.NoError(t, GetRequestData(req, &v))
	assert.Equal(t, "hi", v.Prompt)

	err := GetRequestData(httptest.NewRequest(http.MethodGet, "/ask", nil), &v)
	var httpErr *Error
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusMethodNotAllowed, httpErr.StatusCode)

	err = GetRequestData(httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{`)), &v)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)

	big := `{"prompt":"` + strings.Repeat("a", int(MaxRequestBytes)) + `"}`
	err = GetRequestData(httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(big)), &v)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, httpErr.StatusCode)
}

func TestSendJsonRspPassesRawJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	SendJsonRsp(context.Background(), rec, http.StatusOK, `{"a":1}`)
	assert.JSONEq(t, `{"a":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	SendJsonRsp(context.Background(), rec, http.StatusOK, "not json")
	assert.Equal(t, `"not json"`, rec.Body.String())
}

func TestResponseWriterAbandon(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)
	assert.True(t, rw.Abandon())
	_, err := rw.Write([]byte("late"))
	assert.ErrorIs(t, err, http.ErrHandlerTimeout)
	assert.Empty(t, rec.Body.String())

	rw = NewResponseWriter(httptest.NewRecorder())
	rw.WriteHeader(http.StatusAccepted)
	assert.False(t, rw.Abandon())
	assert.Equal(t, http.StatusAccepted, rw.Status())
}
