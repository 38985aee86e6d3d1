package memory

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Memlog is the plain-text interaction log. Each entry is
//
//	USER: <prompt>
//	AI: <response>
//
// followed by a blank line.
type Memlog struct {
	path string
	mu   sync.Mutex
}

func (s *Store) Memlog() *Memlog {
	return &Memlog{path: s.Path(MemlogFile)}
}

func (m *Memlog) Path() string { return m.path }

// Append writes one entry.
func (m *Memlog) Append(ctx context.Context, prompt, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return ErrMemoryError.MsgErr("unable to open memlog", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "USER: %s\nAI: %s\n\n", prompt, response); err != nil {
		return ErrMemoryError.MsgErr("unable to append to memlog", err)
	}
	return nil
}

// Tail returns the last n lines of the log. A missing log has no lines.
func (m *Memlog) Tail(n int) ([]string, error) {
	m.mu.Lock()
	data, err := os.ReadFile(m.path)
	m.mu.Unlock()
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, ErrMemoryError.MsgErr("unable to read memlog", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
