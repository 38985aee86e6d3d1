package memory

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// CoreMemory holds long-lived insights distilled from past interactions.
type CoreMemory struct {
	CoreInsights []string `json:"core_insights"`
	LastUpdated  string   `json:"last_updated,omitempty"`
}

// LoadCoreMemory returns the saved insights. A missing or corrupt file yields
// an empty CoreMemory.
func (s *Store) LoadCoreMemory() CoreMemory {
	data, err := os.ReadFile(s.Path(CoreMemoryFile))
	if err != nil {
		return CoreMemory{CoreInsights: []string{}}
	}
	var cm CoreMemory
	if err := json.Unmarshal(data, &cm); err != nil {
		log.Warn().Err(err).Msg("core_memory.json is corrupted, starting fresh")
		return CoreMemory{CoreInsights: []string{}}
	}
	if cm.CoreInsights == nil {
		cm.CoreInsights = []string{}
	}
	return cm
}

// SaveCoreMemory stamps LastUpdated and writes cm.
func (s *Store) SaveCoreMemory(cm CoreMemory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cm.LastUpdated = time.Now().Format(time.RFC3339)
	return writeJSON(s.Path(CoreMemoryFile), cm)
}

// MergeInsights appends the insights not already present, keeping order.
func MergeInsights(existing, fresh []string) []string {
	seen := make(map[string]bool, len(existing)+len(fresh))
	out := make([]string, 0, len(existing)+len(fresh))
	for _, list := range [][]string{existing, fresh} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
