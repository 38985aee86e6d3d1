package httpx

import (
	"net/http"
	"sync"
)

// ResponseWriter records whether a response has started so middleware can
// avoid writing a second one. Once abandoned, every write fails with
// http.ErrHandlerTimeout and never reaches the wrapped writer.
type ResponseWriter struct {
	http.ResponseWriter
	mu        sync.Mutex
	written   bool
	abandoned bool
	status    int
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.writeHeaderLocked(code)
}

func (rw *ResponseWriter) writeHeaderLocked(code int) {
	if rw.written || rw.abandoned {
		return
	}
	rw.status = code
	rw.written = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.abandoned {
		return 0, http.ErrHandlerTimeout
	}
	rw.writeHeaderLocked(http.StatusOK)
	return rw.ResponseWriter.Write(b)
}

// Written reports whether the status line has been sent.
func (rw *ResponseWriter) Written() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.written
}

// Abandon stops all further writes and reports whether nothing had been
// written yet, in which case the caller owns the response.
func (rw *ResponseWriter) Abandon() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.abandoned = true
	return !rw.written
}

// Status returns the sent status, or 200 if none was.
func (rw *ResponseWriter) Status() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *ResponseWriter) Flush() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.abandoned {
		return
	}
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
