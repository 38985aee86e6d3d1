package francinecommon

import (
	"bytes"
	"io"
	"sync"
)

// IOWriters pairs the stdout and stderr sinks of an external command.
type IOWriters struct {
	Out io.Writer
	Err io.Writer
}

// BufferedWriter accumulates writes in memory. It is safe for concurrent use
// because stdout and stderr of a command are copied from separate goroutines.
type BufferedWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func NewBufferedWriter() *BufferedWriter {
	return &BufferedWriter{}
}

func (b *BufferedWriter) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *BufferedWriter) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *BufferedWriter) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *BufferedWriter) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *BufferedWriter) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
