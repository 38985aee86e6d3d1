package runners

import (
	"context"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/francine/config"
	"github.com/tansive/francine/internal/francine/runners/jsrunner"
	"github.com/tansive/francine/internal/francine/runners/stdiorunner"
	"github.com/tansive/francine/internal/francine/tools"
)

// CommandTools builds one blocking tool per [[tools.command]] entry. Scripts
// and manifests resolve against scriptDir.
func CommandTools(ctx context.Context, entries []map[string]any, scriptDir string) ([]tools.Tool, error) {
	var out []tools.Tool
	for _, entry := range entries {
		def, err := DecodeDefinition(entry, scriptDir)
		if err != nil {
			return nil, err
		}
		r, err := stdiorunner.New(entry, scriptDir)
		if err != nil {
			return nil, ErrInvalidDefinition.MsgErr("tool "+def.Name, err)
		}
		def.Blocking = true
		t, err := def.Tool(tools.CapabilityFunc(r.Run))
		if err != nil {
			return nil, err
		}
		log.Ctx(ctx).Debug().Str("tool", def.Name).Str("runtime", string(r.Config().Runtime)).Msg("command tool configured")
		out = append(out, t)
	}
	return out, nil
}

type jsEntry struct {
	Code    string `mapstructure:"code"`
	Timeout string `mapstructure:"timeout"`
}

// JSTools builds one tool per [[tools.js]] entry. caller, if set, backs
// Francine.callTool inside the scripts.
func JSTools(ctx context.Context, entries []map[string]any, baseDir string, caller jsrunner.ToolCaller) ([]tools.Tool, error) {
	var out []tools.Tool
	for _, entry := range entries {
		def, err := DecodeDefinition(entry, baseDir)
		if err != nil {
			return nil, err
		}
		var je jsEntry
		if err := mapstructure.Decode(entry, &je); err != nil {
			return nil, ErrInvalidDefinition.MsgErr("tool "+def.Name, err)
		}
		var opts []jsrunner.Option
		if caller != nil {
			opts = append(opts, jsrunner.WithToolCaller(caller))
		}
		if je.Timeout != "" {
			d, err := config.ParseDuration(je.Timeout)
			if err != nil {
				return nil, ErrInvalidDefinition.MsgErr("tool "+def.Name+": invalid timeout", err)
			}
			opts = append(opts, jsrunner.WithTimeout(d))
		}
		fn, err := jsrunner.New(ctx, def.Name, je.Code, opts...)
		if err != nil {
			return nil, ErrInvalidDefinition.MsgErr("tool "+def.Name, err)
		}
		t, err := def.Tool(tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
			return fn.Run(ctx, args)
		}))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
