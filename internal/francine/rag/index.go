// Package rag is francine's retrieval index. Chunks and their embeddings
// live in a sqlite table; similarity ranking happens in process.
package rag

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/tansive/francine/internal/francine/llm"
)

const (
	DefaultTopK         = 3
	defaultEmbedWorkers = 4
)

// Hit is one ranked chunk.
type Hit struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// Index stores embedded chunks.
type Index struct {
	db       *sql.DB
	embedder llm.Embedder
	topK     int
	workers  int
}

type Option func(*Index)

// WithTopK sets the number of chunks GetContext retrieves.
func WithTopK(k int) Option {
	return func(ix *Index) {
		if k > 0 {
			ix.topK = k
		}
	}
}

// WithEmbedWorkers bounds concurrent embedding requests during Build.
func WithEmbedWorkers(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// Open opens or creates the index database at dbPath.
func Open(dbPath string, embedder llm.Embedder, opts ...Option) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, ErrIndexOpen.MsgErr("create database directory", err)
	}
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ErrIndexOpen.MsgErr("open database", err)
	}
	db.SetMaxOpenConns(4)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ErrIndexOpen.MsgErr("ping database", err)
	}
	ix := &Index{db: db, embedder: embedder, topK: DefaultTopK, workers: defaultEmbedWorkers}
	for _, opt := range opts {
		opt(ix)
	}
	if err := ix.initSchema(); err != nil {
		db.Close()
		return nil, ErrIndexOpen.MsgErr("initialize schema", err)
	}
	return ix, nil
}

func (ix *Index) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		text TEXT NOT NULL,
		embedding BLOB NOT NULL
	);
	`
	_, err := ix.db.Exec(query)
	return err
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

// Count returns the number of indexed chunks.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, ErrQuery.Err(err)
	}
	return n, nil
}

// Build embeds chunks concurrently and replaces the index contents with the
// ones that embedded successfully. It returns how many were stored. The
// previous contents survive if nothing could be embedded.
func (ix *Index) Build(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, ErrNothingToEmbed
	}
	logger := log.Ctx(ctx)
	logger.Info().Int("chunks", len(chunks)).Msg("generating embeddings")

	vectors := make([][]float32, len(chunks))
	sem := make(chan struct{}, ix.workers)
	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			v, err := ix.embedder.Embed(ctx, chunks[i].Text)
			if err != nil || len(v) == 0 {
				logger.Warn().Err(err).Int("chunk", i).Str("source", chunks[i].Source).Msg("failed to get embedding, skipping")
				return
			}
			vectors[i] = v
		}(i)
	}
	wg.Wait()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, ErrIndexBuild.Err(err)
	}
	defer tx.Rollback()

	stored := 0
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return 0, ErrIndexBuild.Err(err)
	}
	for i, v := range vectors {
		if v == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (source, text, embedding) VALUES (?, ?, ?)`,
			chunks[i].Source, chunks[i].Text, encodeVector(v)); err != nil {
			return 0, ErrIndexBuild.Err(err)
		}
		stored++
	}
	if stored == 0 {
		return 0, ErrNoEmbeddings
	}
	if err := tx.Commit(); err != nil {
		return 0, ErrIndexBuild.Err(err)
	}
	logger.Info().Int("indexed", stored).Msg("rag index built")
	return stored, nil
}

// Query returns up to k chunks ranked by cosine similarity to question.
func (ix *Index) Query(ctx context.Context, question string, k int) ([]Hit, error) {
	if k <= 0 {
		k = ix.topK
	}
	q, err := ix.embedder.Embed(ctx, question)
	if err != nil {
		return nil, ErrQuery.MsgErr("unable to embed query", err)
	}
	if len(q) == 0 {
		return nil, ErrQuery.Msg("empty query embedding")
	}

	rows, err := ix.db.QueryContext(ctx, `SELECT source, text, embedding FROM chunks ORDER BY id`)
	if err != nil {
		return nil, ErrQuery.Err(err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h    Hit
			blob []byte
		)
		if err := rows.Scan(&h.Source, &h.Text, &blob); err != nil {
			return nil, ErrQuery.Err(err)
		}
		v := decodeVector(blob)
		if len(v) != len(q) {
			continue
		}
		h.Score = cosine(q, v)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrQuery.Err(err)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// GetContext returns the retrieved-context block for query, or "" when the
// index is empty or retrieval fails.
func (ix *Index) GetContext(ctx context.Context, query string) string {
	hits, err := ix.Query(ctx, query, ix.topK)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("unable to retrieve context")
		return ""
	}
	return FormatContext(hits)
}

// FormatContext renders hits as the block appended to the instruction.
func FormatContext(hits []Hit) string {
	if len(hits) == 0 {
		return ""
	}
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	return "\n\n--- Retrieved Context ---\n" + strings.Join(texts, "\n\n") + "\n--- End Retrieved Context ---"
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
