package stdiorunner

import (
	"io"

	"github.com/tansive/francine/internal/francine/francinecommon"
)

type streamType int

const (
	stdoutStream streamType = iota
	stderrStream
)

// teeWriter copies one stream of a command to the matching side of every
// IOWriters target. Short writes are reported as io.ErrShortWrite.
type teeWriter struct {
	stream  streamType
	targets []*francinecommon.IOWriters
}

func newTeeWriter(stream streamType, targets ...*francinecommon.IOWriters) io.Writer {
	return &teeWriter{stream: stream, targets: targets}
}

func (w *teeWriter) Write(p []byte) (int, error) {
	var firstErr error
	for _, t := range w.targets {
		dst := t.Out
		if w.stream == stderrStream {
			dst = t.Err
		}
		if dst == nil {
			continue
		}
		n, err := dst.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return 0, firstErr
	}
	return len(p), nil
}
