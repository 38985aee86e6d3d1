// Package middleware holds francine's chi middleware.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/common/httpx"
	"github.com/tansive/francine/internal/common/logtrace"
)

// PanicHandler turns a handler panic into a logged 500.
func PanicHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := httpx.NewResponseWriter(w)
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			answerPanic(r.Context(), rw, p)
		}()
		next.ServeHTTP(rw, r)
	})
}

// answerPanic logs p and writes a 500 unless the handler already responded.
func answerPanic(ctx context.Context, rw *httpx.ResponseWriter, p any) {
	log.Ctx(ctx).Error().
		Str("request_id", logtrace.RequestIDFromContext(ctx)).
		Str("panic", fmt.Sprintf("%v", p)).
		Bytes("stack", debug.Stack()).
		Msg("handler panicked")
	if !rw.Written() {
		httpx.ErrApplicationError("unable to process request").Send(rw)
	}
}
