// Package evolution holds the parts of francine that change with use: the
// constitution, core memory reflection and the feedback log.
package evolution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tansive/francine/internal/francine/memory"
)

const constitutionHeader = "Francine's Core Principles:\n"

var defaultPrinciples = []string{
	"Always be helpful and polite.",
	"Prioritize local and free solutions.",
	"Be concise unless more detail is requested.",
	"Provide clear paths to saved files.",
	"Do not lie.",
	"Do not run repetitive messages.",
	"Never imply the user is upset or frustrated.",
	"Do not use the word 'understand' when speaking to the user.",
}

// DefaultConstitution is written when no constitution exists yet.
func DefaultConstitution() string {
	var b strings.Builder
	b.WriteString(constitutionHeader)
	for _, p := range defaultPrinciples {
		b.WriteString("- " + p + "\n")
	}
	return b.String()
}

// Constitution is the plain-text rule list kept in the data directory.
type Constitution struct {
	path string
	mu   sync.Mutex
}

func NewConstitution(store *memory.Store) *Constitution {
	return &Constitution{path: store.Path(memory.ConstitutionFile)}
}

// EnsureDefault writes the default constitution if the file is missing.
func (c *Constitution) EnsureDefault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return ErrConstitution.MsgErr("unable to create constitution", err)
	}
	defer f.Close()
	if _, err := f.WriteString(DefaultConstitution()); err != nil {
		return ErrConstitution.MsgErr("unable to write constitution", err)
	}
	log.Info().Str("path", c.path).Msg("initial constitution created")
	return nil
}

// Text returns the constitution, or "" if none exists.
func (c *Constitution) Text() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

func (c *Constitution) read() (string, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", ErrConstitution.MsgErr("unable to read constitution", err)
	}
	return string(data), nil
}

// Add appends "- rule" unless the rule text already appears. It reports
// whether the file changed.
func (c *Constitution) Add(rule string) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return false, ErrConstitution.Msg("rule is empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.read()
	if err != nil {
		return false, err
	}
	if strings.Contains(current, rule) {
		return false, nil
	}
	if err := os.WriteFile(c.path, []byte(current+"\n- "+rule), 0o644); err != nil {
		return false, ErrConstitution.MsgErr("unable to write constitution", err)
	}
	return true, nil
}

// UpdateMessage adds rule and reports the result as a user-facing sentence.
// It backs the update_constitution tool.
func (c *Constitution) UpdateMessage(ctx context.Context, rule string) string {
	added, err := c.Add(rule)
	switch {
	case err != nil:
		log.Ctx(ctx).Error().Err(err).Msg("constitution update failed")
		return fmt.Sprintf("Failed to update constitution: %v", err)
	case added:
		log.Ctx(ctx).Info().Str("rule", rule).Msg("constitution updated")
		return fmt.Sprintf("Constitution updated with new rule: '%s'.", rule)
	default:
		return fmt.Sprintf("Rule '%s' already exists in constitution.", rule)
	}
}
