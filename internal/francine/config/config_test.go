package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	c, err := Parse(`format_version = "0.1.0"
[data]
dir = "/tmp/francine-test"
`)
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.LLM.Provider)
	assert.Equal(t, "gemma3:12b-it-q4_K_M", c.LLM.Model)
	assert.Equal(t, "http://localhost:11434", c.LLM.OllamaHost)
	assert.Equal(t, 2, c.AgentMaxRetries())
	assert.Equal(t, 8000, c.Agent.MaxRetryPromptChars)
	assert.Equal(t, "8627", c.Server.Port)
	assert.Equal(t, 3, c.RAG.TopK)
	assert.Equal(t, filepath.Join("/tmp/francine-test", "memlog.txt"), c.DataPath("memlog.txt"))
	assert.Equal(t, "http://127.0.0.1:8627", c.GetURL())
}

func TestParseExplicitZeroRetries(t *testing.T) {
	c, err := Parse(`format_version = "0.1.0"
[agent]
max_retries = 0
`)
	require.NoError(t, err)
	assert.Equal(t, 0, c.AgentMaxRetries())
}

func TestParseEnvOverlay(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FRANCINE_API_SECRET", "secret")
	c, err := Parse(`format_version = "0.1.0"
[llm]
provider = "openai"
`)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", c.LLM.Model)
	assert.Equal(t, "sk-test", c.LLM.APIKey)
	assert.Equal(t, "secret", c.Server.APISecret)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing version", `[llm]
provider = "ollama"`},
		{"unsupported version", `format_version = "1.0.0"`},
		{"unknown provider", `format_version = "0.1.0"
[llm]
provider = "llamafile"`},
		{"bad duration", `format_version = "0.1.0"
[agent]
tool_timeout = "soon"`},
		{"postgres without dsn", `format_version = "0.1.0"
[postgres]
enabled = true`},
		{"too many retries", `format_version = "0.1.0"
[agent]
max_retries = 50`},
		{"not toml", `format_version = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			assert.Error(t, err)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"30s", 30 * time.Second, true},
		{"2m", 2 * time.Minute, true},
		{"1h", time.Hour, true},
		{"7d", 7 * 24 * time.Hour, true},
		{"1y", 365 * 24 * time.Hour, true},
		{"5w", 0, false},
		{"x", 0, false},
		{"abcm", 0, false},
		{"-1s", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestWriteDefaultAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "francine.toml")
	require.NoError(t, WriteDefault(path))
	assert.Error(t, WriteDefault(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, LoadConfig(path))
	require.NotNil(t, Config())
	assert.True(t, Config().MCP.Enabled)
	assert.True(t, Config().Audit.Enabled)
}
