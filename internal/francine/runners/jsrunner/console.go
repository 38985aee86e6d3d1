package jsrunner

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func bindConsole(ctx context.Context, vm *goja.Runtime, tool string) {
	console := vm.NewObject()
	logAt := func(level zerolog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]any, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.Export()
			}
			log.Ctx(ctx).WithLevel(level).Str("js_tool", tool).Msg(fmt.Sprint(args...))
			return goja.Undefined()
		}
	}
	_ = console.Set("log", logAt(zerolog.InfoLevel))
	_ = console.Set("warn", logAt(zerolog.WarnLevel))
	_ = console.Set("error", logAt(zerolog.ErrorLevel))
	_ = vm.Set("console", console)
}
