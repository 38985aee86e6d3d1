package interactions

import (
	"context"
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/francine/internal/common/uuid"
	"github.com/tansive/francine/internal/francine/agent"
	"github.com/tansive/francine/internal/francine/audit"
	"github.com/tansive/francine/internal/francine/eventbus"
	"github.com/tansive/francine/internal/francine/memory"
)

type memorySink struct {
	mu      sync.Mutex
	records []Record
	closed  bool
	fail    bool
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Write(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *memorySink) snapshot() ([]Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...), s.closed
}

type failingLog struct{}

func (failingLog) Append(context.Context, string, string) error { return errors.New("read-only") }

func TestRecorderWritesMemlogThenPublishes(t *testing.T) {
	store, err := memory.NewStore(t.TempDir())
	require.NoError(t, err)
	bus := eventbus.New()
	sub := bus.Subscribe(TopicPattern, 4)
	defer sub.Close()

	rec := NewRecorder(store.Memlog(), bus)
	ctx := agent.WithSessionID(context.Background(), "abc")
	require.NoError(t, rec.Append(ctx, "hi", "hello"))

	data, err := os.ReadFile(store.Memlog().Path())
	require.NoError(t, err)
	assert.Equal(t, "USER: hi\nAI: hello\n\n", string(data))

	select {
	case ev := <-sub.C():
		assert.Equal(t, "interaction.abc", ev.Topic)
		r := ev.Data.(Record)
		assert.Equal(t, "abc", r.SessionID)
		assert.Equal(t, "hi", r.Prompt)
		assert.Equal(t, "hello", r.Response)
		assert.NotEmpty(t, r.ID)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestRecorderPrimaryFailureSkipsPublish(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(TopicPattern, 4)
	defer sub.Close()

	err := NewRecorder(failingLog{}, bus).Append(context.Background(), "p", "r")
	assert.Error(t, err)
	assert.Len(t, sub.C(), 0)
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	bus := eventbus.New()
	fan := NewFanout(bus)
	a, b := &memorySink{}, &memorySink{fail: true}
	ctx := context.Background()
	fan.Start(ctx, a)
	fan.Start(ctx, b)

	store, err := memory.NewStore(t.TempDir())
	require.NoError(t, err)
	rec := NewRecorder(store.Memlog(), bus)
	for i := 0; i < 3; i++ {
		require.NoError(t, rec.Append(agent.WithSessionID(ctx, "s"), "p", "r"))
	}
	fan.Stop()

	got, closed := a.snapshot()
	assert.Len(t, got, 3)
	assert.True(t, closed)
	_, closed = b.snapshot()
	assert.True(t, closed, "failing sink still closed")
}

func TestFanoutStopsWithContext(t *testing.T) {
	bus := eventbus.New()
	fan := NewFanout(bus)
	sink := &memorySink{}
	ctx, cancel := context.WithCancel(context.Background())
	fan.Start(ctx, sink)

	bus.Publish("interaction.x", Record{ID: "1"})
	cancel()
	fan.Stop()
	got, closed := sink.snapshot()
	assert.True(t, closed)
	assert.LessOrEqual(t, len(got), 1)
}

func TestAuditSinkChainVerifies(t *testing.T) {
	dir := t.TempDir()
	key, err := audit.LoadKey(dir, "secret")
	require.NoError(t, err)
	path := filepath.Join(dir, "interactions.tlog")
	w, err := audit.OpenWriter(path, 1, key)
	require.NoError(t, err)

	bus := eventbus.New()
	fan := NewFanout(bus)
	fan.Start(context.Background(), NewAuditSink(w))
	for i := 0; i < 4; i++ {
		bus.Publish("interaction.s", Record{ID: string(rune('a' + i)), SessionID: "s", Prompt: "p", Response: "r", Timestamp: time.Now()})
	}
	fan.Stop()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n, err := audit.Verify(f, key.Public().(ed25519.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestPostgresSink(t *testing.T) {
	dsn := os.Getenv("FRANCINE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FRANCINE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	sink, err := OpenPostgres(ctx, dsn, "francine_test_interactions")
	require.NoError(t, err)
	defer sink.Close()

	session := "pg-" + time.Now().Format("150405.000000")
	rec := Record{ID: uuid.NewString(), SessionID: session, Prompt: "p", Response: "r", Timestamp: time.Now()}
	require.NoError(t, sink.Write(ctx, rec))
	require.NoError(t, sink.Write(ctx, rec), "duplicate insert is ignored")
	n, err := sink.Count(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenPostgresRejectsBadTable(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "postgres://localhost/none", "bad;drop")
	assert.True(t, errors.Is(err, ErrInvalidTable))
}

func TestQuoteTable(t *testing.T) {
	assert.Equal(t, `"interactions"`, quoteTable("interactions"))
	assert.Equal(t, `"audit"."interactions"`, quoteTable("audit.interactions"))
}
