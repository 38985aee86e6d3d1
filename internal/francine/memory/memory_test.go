package memory

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLayout(t *testing.T) {
	s := newStore(t)
	for _, d := range []string{RawHitsDir, ManagedFilesDir} {
		info, err := os.Stat(s.Path(d))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestProfile(t *testing.T) {
	s := newStore(t)
	assert.Empty(t, s.LoadProfile())

	require.NoError(t, s.SaveProfile(Profile{"last_message": "hello"}))
	assert.Equal(t, "hello", s.LoadProfile()["last_message"])

	require.NoError(t, os.WriteFile(s.Path(ProfileFile), []byte("{broken"), 0o644))
	assert.Empty(t, s.LoadProfile())
}

func TestMemlog(t *testing.T) {
	s := newStore(t)
	m := s.Memlog()

	lines, err := m.Tail(10)
	require.NoError(t, err)
	assert.Empty(t, lines)

	ctx := context.Background()
	require.NoError(t, m.Append(ctx, "hi", "hello"))
	require.NoError(t, m.Append(ctx, "profit?", "The calculated value is: 45"))

	data, err := os.ReadFile(m.Path())
	require.NoError(t, err)
	assert.Equal(t, "USER: hi\nAI: hello\n\nUSER: profit?\nAI: The calculated value is: 45\n\n", string(data))

	lines, err = m.Tail(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"USER: profit?", "AI: The calculated value is: 45"}, lines)

	lines, err = m.Tail(0)
	require.NoError(t, err)
	assert.Len(t, lines, 5)
}

func TestCoreMemory(t *testing.T) {
	s := newStore(t)
	assert.Empty(t, s.LoadCoreMemory().CoreInsights)

	require.NoError(t, s.SaveCoreMemory(CoreMemory{CoreInsights: []string{"User sells candles"}}))
	cm := s.LoadCoreMemory()
	assert.Equal(t, []string{"User sells candles"}, cm.CoreInsights)
	assert.NotEmpty(t, cm.LastUpdated)
}

func TestMergeInsights(t *testing.T) {
	got := MergeInsights([]string{"a", "b"}, []string{"b", "c", "", "a", "d"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}
