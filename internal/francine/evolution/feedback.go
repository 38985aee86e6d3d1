package evolution

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/francine/agent"
	"github.com/tansive/francine/internal/francine/memory"
)

// FeedbackLog appends preference entries as JSON lines.
type FeedbackLog struct {
	path string
	mu   sync.Mutex
}

func NewFeedbackLog(store *memory.Store) *FeedbackLog {
	return &FeedbackLog{path: store.Path(memory.FeedbackLogFile)}
}

func (f *FeedbackLog) Append(ctx context.Context, entry agent.FeedbackEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return ErrFeedbackLogFailed.Err(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return ErrFeedbackLogFailed.Err(err)
	}
	defer fh.Close()
	if _, err := fh.Write(append(line, '\n')); err != nil {
		return ErrFeedbackLogFailed.Err(err)
	}
	log.Ctx(ctx).Info().Msg("feedback logged")
	return nil
}

// Persona reads the constitution and core memory for feedback prompts.
type Persona struct {
	store        *memory.Store
	constitution *Constitution
}

var _ agent.Persona = (*Persona)(nil)

func NewPersona(store *memory.Store, constitution *Constitution) *Persona {
	return &Persona{store: store, constitution: constitution}
}

func (p *Persona) Constitution(ctx context.Context) string {
	text, err := p.constitution.Text()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("unable to read constitution")
	}
	return strings.TrimSpace(text)
}

// CoreMemory renders the insights one per line.
func (p *Persona) CoreMemory(ctx context.Context) string {
	cm := p.store.LoadCoreMemory()
	lines := make([]string, 0, len(cm.CoreInsights))
	for _, insight := range cm.CoreInsights {
		lines = append(lines, "- "+insight)
	}
	return strings.Join(lines, "\n")
}
