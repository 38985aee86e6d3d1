package stdiorunner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/francine/internal/francine/francinecommon"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr error
	}{
		{"defaults", map[string]any{"runtime": "bash", "script": "x.sh"}, nil},
		{"bad runtime", map[string]any{"runtime": "ruby", "script": "x.rb"}, ErrInvalidRuntime},
		{"bad version", map[string]any{"version": "1.0.0", "runtime": "bash", "script": "x.sh"}, ErrInvalidVersion},
		{"no script", map[string]any{"runtime": "bash"}, ErrInvalidScript},
		{"bad security", map[string]any{"runtime": "bash", "script": "x.sh", "security": map[string]any{"type": "sandboxed"}}, ErrInvalidSecurity},
		{"undecodable", map[string]any{"runtime": []int{1}}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.config, t.TempDir())
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "0.1.0", r.Config().Version)
			assert.Equal(t, SecurityTypeDefault, r.Config().Security.Type)
		})
	}
}

func TestRunBashJSON(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "echo.sh", `#!/bin/bash
printf '{"received": %s, "greeting": "%s"}' "$1" "$GREETING"
`)
	r, err := New(map[string]any{
		"runtime": "bash",
		"script":  "echo.sh",
		"env":     map[string]any{"GREETING": "hi"},
	}, dir)
	require.NoError(t, err)

	out, err := r.Run(context.Background(), map[string]any{"path": "report.pdf"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"received": map[string]any{"path": "report.pdf"},
		"greeting": "hi",
	}, out)
}

func TestRunPlainTextAndWriters(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "text.sh", "#!/bin/bash\necho '  extracted text  '\necho 'progress' >&2\n")
	var out, errOut bytes.Buffer
	r, err := New(map[string]any{"runtime": "bash", "script": "text.sh"}, dir,
		&francinecommon.IOWriters{Out: &out, Err: &errOut})
	require.NoError(t, err)

	v, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "extracted text", v)
	assert.Contains(t, out.String(), "extracted text")
	assert.Equal(t, "progress\n", errOut.String())
}

func TestRunFailureCarriesStderr(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "fail.sh", "#!/bin/bash\necho 'file not found: a.pdf' >&2\nexit 2\n")
	r, err := New(map[string]any{"runtime": "bash", "script": "fail.sh"}, dir)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecutionFailed))
	assert.Equal(t, "command fail.sh failed: file not found: a.pdf", err.Error())
}

func TestRunHonorsContext(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "slow.sh", "#!/bin/bash\nsleep 5\n")
	r, err := New(map[string]any{"runtime": "bash", "script": "slow.sh"}, dir)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = r.Run(ctx, nil)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestScriptMustStayInDir(t *testing.T) {
	dir := t.TempDir()
	r, err := New(map[string]any{"runtime": "bash", "script": "../outside.sh"}, dir)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrInvalidScript))

	r, err = New(map[string]any{"runtime": "bash", "script": "missing.sh"}, dir)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrInvalidScript))
}

func TestBinaryRuntimeRejectsScripts(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "notbinary", "#!/bin/bash\necho hi\n")
	r, err := New(map[string]any{"runtime": "binary", "script": "notbinary"}, dir)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrInvalidScript))
}

func TestDecodeOutput(t *testing.T) {
	assert.Equal(t, "", decodeOutput(nil))
	assert.Equal(t, []any{"a", float64(1)}, decodeOutput([]byte(`["a", 1]`)))
	assert.Equal(t, "not {json", decodeOutput([]byte("not {json\n")))
}
