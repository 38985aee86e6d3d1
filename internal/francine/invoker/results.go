package invoker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/sjson"
)

// ResultStore persists tool output so the user gets a file path instead of a
// wall of text.
type ResultStore interface {
	SaveJSON(tool, prefix string, data any) (string, error)
	SaveText(prefix, text string) (string, error)
}

// DirStore writes results under a single directory, normally
// <data_dir>/raw_hits.
type DirStore struct {
	Dir string
	now func() time.Time
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{Dir: dir, now: time.Now}
}

// SaveJSON wraps data in an envelope {"tool", "saved_at", "results"} and
// writes it to <prefix>_<unix>.json.
func (s *DirStore) SaveJSON(tool, prefix string, data any) (string, error) {
	results, err := json.Marshal(data)
	if err != nil {
		return "", ErrSaveResult.MsgErr("results are not JSON encodable", err)
	}
	now := s.clock()
	doc := `{}`
	doc, _ = sjson.Set(doc, "tool", tool)
	doc, _ = sjson.Set(doc, "saved_at", now.UTC().Format(time.RFC3339))
	doc, err = sjson.SetRaw(doc, "results", string(results))
	if err != nil {
		return "", ErrSaveResult.Err(err)
	}
	var pretty json.RawMessage = []byte(doc)
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return "", ErrSaveResult.Err(err)
	}
	return s.write(prefix, ".json", out, now)
}

// SaveText writes text to <prefix>_<unix>.txt.
func (s *DirStore) SaveText(prefix, text string) (string, error) {
	return s.write(prefix, ".txt", []byte(text), s.clock())
}

func (s *DirStore) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *DirStore) write(prefix, ext string, data []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", ErrSaveResult.Err(err)
	}
	base := fmt.Sprintf("%s_%d", SafeName(prefix), now.Unix())
	for i := 0; i < 100; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		path := filepath.Join(s.Dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", ErrSaveResult.Err(err)
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return "", ErrSaveResult.Err(werr)
		}
		if cerr != nil {
			return "", ErrSaveResult.Err(cerr)
		}
		return path, nil
	}
	return "", ErrSaveResult.Msg("too many results saved in the same second for " + prefix)
}

// SafeName maps s to a file-name friendly token.
func SafeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "result"
	}
	out := b.String()
	if len(out) > 80 {
		out = out[:80]
	}
	return out
}
