package httpclient

import "context"

// Doer is the subset of HTTPClient that API wrappers depend on, so tests can
// substitute an httptest-backed client.
type Doer interface {
	DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error)
}

var _ Doer = &HTTPClient{}
