package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/common/httpx"
)

// TimeoutHeader reports the route's deadline to the client.
const TimeoutHeader = "X-Francine-Timeout"

// SetTimeout answers 504 once timeout passes; whatever the handler writes
// afterwards is dropped.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			w.Header().Set(TimeoutHeader, timeout.String())
			rw := httpx.NewResponseWriter(w)

			done := make(chan struct{})
			go func() {
				defer close(done)
				defer func() {
					// The handler runs on its own goroutine, so an abort
					// cannot be re-raised here.
					if p := recover(); p != nil && p != http.ErrAbortHandler {
						answerPanic(ctx, rw, p)
					}
				}()
				next.ServeHTTP(rw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if rw.Abandon() {
					httpx.ErrRequestTimeout().Send(w)
				}
				log.Ctx(ctx).Warn().Dur("timeout", timeout).Str("path", r.URL.Path).Msg("request timed out")
			}
		})
	}
}
