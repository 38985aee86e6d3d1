package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/francine/internal/francine/memory"
)

// keywordEmbedder maps text onto counts of a fixed vocabulary.
type keywordEmbedder struct {
	vocab []string
	fail  func(text string) bool
	calls atomic.Int32
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.fail != nil && e.fail(text) {
		return nil, errors.New("embedding service unavailable")
	}
	lower := strings.ToLower(text)
	v := make([]float32, len(e.vocab))
	for i, w := range e.vocab {
		v[i] = float32(strings.Count(lower, w))
	}
	return v, nil
}

func newEmbedder() *keywordEmbedder {
	return &keywordEmbedder{vocab: []string{"candle", "shipping", "vin", "polite", "weather"}}
}

func openIndex(t *testing.T, e *keywordEmbedder, opts ...Option) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "rag.db"), e, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestBuildAndQuery(t *testing.T) {
	ctx := context.Background()
	e := newEmbedder()
	ix := openIndex(t, e)

	chunks := []Chunk{
		{Source: "a", Text: "candle candle wax supplier"},
		{Source: "b", Text: "shipping rates for parcels, shipping zones"},
		{Source: "c", Text: "always be polite"},
		{Source: "d", Text: "vin decoding notes"},
	}
	n, err := ix.Build(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	hits, err := ix.Query(ctx, "what does candle shipping cost", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, []string{hits[0].Source, hits[1].Source})
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	// Rebuilding replaces the contents.
	n, err = ix.Build(ctx, chunks[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	count, _ = ix.Count(ctx)
	assert.Equal(t, 1, count)
}

func TestBuildSkipsFailedEmbeddings(t *testing.T) {
	ctx := context.Background()
	e := newEmbedder()
	e.fail = func(text string) bool { return strings.Contains(text, "vin") }
	ix := openIndex(t, e, WithEmbedWorkers(2))

	n, err := ix.Build(ctx, []Chunk{
		{Source: "a", Text: "candle"},
		{Source: "b", Text: "vin"},
		{Source: "c", Text: "shipping"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.EqualValues(t, 3, e.calls.Load())
}

func TestBuildNothingEmbedded(t *testing.T) {
	ctx := context.Background()
	e := newEmbedder()
	ix := openIndex(t, e)
	_, err := ix.Build(ctx, []Chunk{{Source: "a", Text: "candle"}})
	require.NoError(t, err)

	e.fail = func(string) bool { return true }
	_, err = ix.Build(ctx, []Chunk{{Source: "b", Text: "shipping"}})
	assert.True(t, errors.Is(err, ErrNoEmbeddings))

	count, _ := ix.Count(ctx)
	assert.Equal(t, 1, count, "failed rebuild keeps the old index")

	_, err = ix.Build(ctx, nil)
	assert.True(t, errors.Is(err, ErrNothingToEmbed))
}

func TestGetContext(t *testing.T) {
	ctx := context.Background()
	e := newEmbedder()
	ix := openIndex(t, e, WithTopK(1))

	assert.Equal(t, "", ix.GetContext(ctx, "candle"), "empty index")

	_, err := ix.Build(ctx, []Chunk{
		{Source: "a", Text: "--- Core Memory Insight ---\nUser sells candle sets"},
		{Source: "b", Text: "--- Core Memory Insight ---\nUser checks the weather"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"\n\n--- Retrieved Context ---\n--- Core Memory Insight ---\nUser sells candle sets\n--- End Retrieved Context ---",
		ix.GetContext(ctx, "candle"))

	e.fail = func(string) bool { return true }
	assert.Equal(t, "", ix.GetContext(ctx, "candle"), "embed failure")
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil))
	assert.Equal(t, "\n\n--- Retrieved Context ---\nx\n\ny\n--- End Retrieved Context ---",
		FormatContext([]Hit{{Text: "x"}, {Text: "y"}}))
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3e-7}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
	assert.InDelta(t, 1.0, cosine(v, v), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestCollectChunks(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewStore(t.TempDir())
	require.NoError(t, err)

	docs := store.Path("documents_to_index")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "b.txt"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "skip.md"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(store.Path(memory.ConstitutionFile), []byte("- Do not lie."), 0o644))
	require.NoError(t, store.SaveCoreMemory(memory.CoreMemory{CoreInsights: []string{"i1", "i2"}}))
	require.NoError(t, store.Memlog().Append(ctx, "hi", "hello"))

	chunks := CollectChunks(store, "documents_to_index")
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	assert.Equal(t, []string{
		"--- User Document: a.txt ---\nfirst",
		"--- User Document: b.txt ---\nsecond",
		"--- Francine's Constitution ---\n- Do not lie.",
		"--- Core Memory Insight ---\ni1",
		"--- Core Memory Insight ---\ni2",
		"--- Recent Conversation Log ---\nUSER: hi\nAI: hello",
	}, texts)
}

func TestCollectChunksEmpty(t *testing.T) {
	store, err := memory.NewStore(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, CollectChunks(store, "documents_to_index"))
}
