// Package memory owns francine's data directory: the user profile, the
// interaction log (memlog), core memory insights and the fixed layout other
// packages write into.
package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	ProfileFile      = "user_profile.json"
	MemlogFile       = "memlog.txt"
	CoreMemoryFile   = "core_memory.json"
	ConstitutionFile = "constitution.txt"
	FeedbackLogFile  = "feedback_log.jsonl"
	RAGDBFile        = "rag.db"
	RawHitsDir       = "raw_hits"
	ManagedFilesDir  = "ManagedFiles"
	AuditDir         = "audit"
)

// Store is rooted at the data directory.
type Store struct {
	dir string
	mu  sync.Mutex // serialises profile and core memory rewrites
}

// NewStore creates the data directory and its fixed subdirectories.
func NewStore(dir string) (*Store, error) {
	for _, d := range []string{dir, filepath.Join(dir, RawHitsDir), filepath.Join(dir, ManagedFilesDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, ErrMemoryError.MsgErr("unable to create data directory", err)
		}
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Path joins elem onto the data directory.
func (s *Store) Path(elem ...string) string {
	return filepath.Join(append([]string{s.dir}, elem...)...)
}

// Profile is the free-form user profile.
type Profile map[string]any

// LoadProfile returns the saved profile. A missing or corrupt file yields an
// empty profile.
func (s *Store) LoadProfile() Profile {
	data, err := os.ReadFile(s.Path(ProfileFile))
	if err != nil {
		return Profile{}
	}
	p := Profile{}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Msg("user_profile.json is corrupted, returning empty profile")
		return Profile{}
	}
	return p
}

func (s *Store) SaveProfile(p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.Path(ProfileFile), p)
}

// writeJSON replaces path atomically with the indented encoding of v.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrMemoryError.MsgErr("unable to encode "+filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return ErrMemoryError.MsgErr("unable to write "+filepath.Base(path), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return ErrMemoryError.MsgErr("unable to write "+filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return ErrMemoryError.MsgErr("unable to write "+filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return ErrMemoryError.MsgErr("unable to write "+filepath.Base(path), err)
	}
	return nil
}
