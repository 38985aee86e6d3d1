package rag

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/francine/memory"
)

// MemlogLines is how much of the interaction log is indexed.
const MemlogLines = 50

// Chunk is one unit of indexed text.
type Chunk struct {
	Source string
	Text   string
}

// CollectChunks gathers the text francine retrieves from: *.txt documents
// in docsDir, the constitution, each core memory insight and the tail of
// the memlog. Unreadable sources are skipped with a warning.
func CollectChunks(store *memory.Store, docsDir string) []Chunk {
	var chunks []Chunk

	if !filepath.IsAbs(docsDir) {
		docsDir = store.Path(docsDir)
	}
	files, _ := filepath.Glob(filepath.Join(docsDir, "*.txt"))
	sort.Strings(files)
	if len(files) == 0 {
		log.Info().Str("dir", docsDir).Msg("no user documents to index")
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Warn().Err(err).Str("file", f).Msg("error loading document")
			continue
		}
		name := filepath.Base(f)
		chunks = append(chunks, Chunk{
			Source: "document:" + name,
			Text:   "--- User Document: " + name + " ---\n" + string(data),
		})
	}

	if data, err := os.ReadFile(store.Path(memory.ConstitutionFile)); err == nil {
		chunks = append(chunks, Chunk{
			Source: "constitution",
			Text:   "--- Francine's Constitution ---\n" + string(data),
		})
	}

	for _, insight := range store.LoadCoreMemory().CoreInsights {
		chunks = append(chunks, Chunk{
			Source: "core_memory",
			Text:   "--- Core Memory Insight ---\n" + insight,
		})
	}

	lines, err := store.Memlog().Tail(MemlogLines)
	if err != nil {
		log.Warn().Err(err).Msg("error loading recent memlog")
	}
	if recent := strings.Join(lines, "\n"); strings.TrimSpace(recent) != "" {
		chunks = append(chunks, Chunk{
			Source: "memlog",
			Text:   "--- Recent Conversation Log ---\n" + recent,
		})
	}
	return chunks
}
