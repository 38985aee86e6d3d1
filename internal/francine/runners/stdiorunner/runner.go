package stdiorunner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/tansive/francine/internal/common/uuid"
	"github.com/tansive/francine/internal/francine/francinecommon"
)

const waitDelay = time.Second

// Runner executes one configured script.
type Runner struct {
	config    Config
	scriptDir string
	writers   []*francinecommon.IOWriters
}

// New decodes configMap into a Config. Scripts are resolved inside
// scriptDir. Extra writers receive a copy of the command's output.
func New(configMap map[string]any, scriptDir string, writers ...*francinecommon.IOWriters) (*Runner, error) {
	var config Config
	if err := mapstructure.Decode(configMap, &config); err != nil {
		return nil, ErrInvalidConfig.MsgErr("unable to decode runner config", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	for _, w := range writers {
		if w == nil || w.Out == nil || w.Err == nil {
			return nil, ErrInvalidConfig.Msg("writers must set Out and Err")
		}
	}
	return &Runner{config: config, scriptDir: scriptDir, writers: writers}, nil
}

func (r *Runner) Config() Config { return r.config }

// Run executes the script with args. Stdout that is valid JSON is decoded;
// anything else is returned as trimmed text. A non-zero exit fails with the
// command's stderr attached.
func (r *Runner) Run(ctx context.Context, args map[string]any) (any, error) {
	scriptPath, err := r.resolveScript()
	if err != nil {
		return nil, err
	}
	argv, err := r.commandLine(scriptPath, args)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.MkdirTemp("", "francine-run-"+uuid.Short(uuid.New())+"-")
	if err != nil {
		return nil, ErrExecutionFailed.MsgErr("failed to create working directory", err)
	}
	defer os.RemoveAll(homeDir)

	env := appendOrReplaceEnv(os.Environ(), "HOME", homeDir)
	for k, v := range r.config.Env {
		env = appendOrReplaceEnv(env, k, v)
	}

	stdout := francinecommon.NewBufferedWriter()
	stderr := francinecommon.NewBufferedWriter()
	targets := append([]*francinecommon.IOWriters{{Out: stdout, Err: stderr}}, r.writers...)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = homeDir
	cmd.Env = env
	cmd.Stdout = newTeeWriter(stdoutStream, targets...)
	cmd.Stderr = newTeeWriter(stderrStream, targets...)
	// Children that inherit the pipes must not hold Wait open after a kill.
	cmd.WaitDelay = waitDelay
	err = cmd.Run()

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		log.Ctx(ctx).Error().Err(err).Str("script", r.config.Script).Str("stderr", msg).Msg("command failed")
		return nil, ErrExecutionFailed.Msg(fmt.Sprintf("command %s failed: %s", r.config.Script, msg))
	}
	return decodeOutput(stdout.Bytes()), nil
}

func decodeOutput(out []byte) any {
	text := strings.TrimSpace(string(out))
	if text != "" && gjson.Valid(text) {
		var v any
		if err := json.Unmarshal([]byte(text), &v); err == nil {
			return v
		}
	}
	return text
}

func (r *Runner) resolveScript() (string, error) {
	dir := filepath.Clean(r.scriptDir)
	scriptPath := filepath.Join(dir, filepath.Clean(r.config.Script))
	if !strings.HasPrefix(scriptPath, dir+string(os.PathSeparator)) {
		return "", ErrInvalidScript.Msg("script path escapes the script directory")
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return "", ErrInvalidScript.Msg("script not found: " + err.Error())
	}
	return scriptPath, nil
}

func (r *Runner) commandLine(scriptPath string, args map[string]any) ([]string, error) {
	if args == nil {
		args = map[string]any{}
	}
	jsonArgs, err := json.Marshal(args)
	if err != nil {
		return nil, ErrExecutionFailed.MsgErr("could not encode args", err)
	}
	if r.config.Runtime == RuntimeBinary {
		ok, err := isBinaryExecutable(scriptPath)
		if err != nil {
			return nil, ErrInvalidScript.MsgErr("unable to inspect binary", err)
		}
		if !ok {
			return nil, ErrInvalidScript.Msg("script is not a binary: " + scriptPath)
		}
		return []string{scriptPath, string(jsonArgs)}, nil
	}
	interp := runtimeCommand(r.config.Runtime)
	return append(interp, scriptPath, string(jsonArgs)), nil
}

func runtimeCommand(rt Runtime) []string {
	switch rt {
	case RuntimeBash:
		return []string{"/bin/bash"}
	case RuntimePython:
		return []string{"python3", "-u"}
	case RuntimeNode:
		return []string{"node"}
	default:
		return nil
	}
}

func appendOrReplaceEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

var binaryTypes = map[string]bool{
	"elf":   true,
	"macho": true,
	"exe":   true,
}

func isBinaryExecutable(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	header := make([]byte, 261)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return false, err
	}
	kind, err := filetype.Match(header[:n])
	if err != nil || kind == filetype.Unknown {
		return false, nil
	}
	return binaryTypes[kind.Extension], nil
}
