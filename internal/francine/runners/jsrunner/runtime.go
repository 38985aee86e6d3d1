// Package jsrunner runs tools written as a single JavaScript function:
//
//	function(args) { return { total: args.a + args.b }; }
//
// Each call gets a fresh goja VM. The function may call other tools through
// Francine.callTool(name, args).
package jsrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 2 * time.Second

// ToolCaller runs another tool on behalf of a script.
type ToolCaller func(ctx context.Context, name string, args map[string]any) (any, error)

type Function struct {
	name    string
	code    string
	timeout time.Duration
	caller  ToolCaller
}

type Option func(*Function)

func WithTimeout(d time.Duration) Option {
	return func(f *Function) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithToolCaller exposes Francine.callTool to the script.
func WithToolCaller(c ToolCaller) Option {
	return func(f *Function) { f.caller = c }
}

// New compiles code once to check that it is a function.
func New(ctx context.Context, name, code string, opts ...Option) (*Function, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrInvalidJSFunction.Msg("script is empty")
	}
	vm := goja.New()
	bindConsole(ctx, vm, name)
	v, err := vm.RunString("(" + code + ")")
	if err != nil {
		return nil, ErrInvalidJSFunction.MsgErr("unable to compile "+name, err)
	}
	if _, ok := goja.AssertFunction(v); !ok {
		return nil, ErrInvalidJSFunction.Msg("script is not a function")
	}
	f := &Function{name: name, code: code, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Run calls the function with args and returns the object it produces.
// A script that runs past the timeout is interrupted.
func (f *Function) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	bindConsole(ctx, vm, f.name)
	if f.caller != nil {
		bindToolCaller(ctx, vm, f.caller)
	}
	v, err := vm.RunString("(" + f.code + ")")
	if err != nil {
		return nil, ErrJSExecutionError.Err(err)
	}
	fn, _ := goja.AssertFunction(v)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { vm.Interrupt("timeout") })
	defer stop()

	if args == nil {
		args = map[string]any{}
	}
	result, callErr := safeCall(fn, vm.ToValue(args))
	if callErr != nil {
		if _, ok := callErr.(*goja.InterruptedError); ok {
			return nil, ErrJSRuntimeTimeout.Msg(fmt.Sprintf("%s timed out after %s", f.name, f.timeout))
		}
		if ex, ok := callErr.(*goja.Exception); ok {
			return nil, ErrJSThrown.Msg(ex.Value().String())
		}
		return nil, ErrJSExecutionError.Err(callErr)
	}

	exported := result.Export()
	m, ok := exported.(map[string]any)
	if !ok {
		return nil, ErrJSExecutionError.Msg(fmt.Sprintf("expected function to return object, got %T", exported))
	}
	return m, nil
}

func safeCall(fn goja.Callable, arg goja.Value) (result goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(goja.Undefined(), arg)
}

func bindToolCaller(ctx context.Context, vm *goja.Runtime, caller ToolCaller) {
	obj := vm.NewObject()
	_ = obj.Set("callTool", func(call goja.FunctionCall) goja.Value {
		name, ok := call.Argument(0).Export().(string)
		if !ok {
			panic(vm.NewTypeError("callTool: tool name must be a string"))
		}
		args, _ := call.Argument(1).Export().(map[string]any)
		ret, err := caller(ctx, name, args)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("tool", name).Msg("tool call from script failed")
			panic(vm.NewGoError(err))
		}
		return toValue(vm, ret)
	})
	_ = vm.Set("Francine", obj)
}

// toValue round-trips Go results through JSON so scripts see plain objects.
func toValue(vm *goja.Runtime, v any) goja.Value {
	switch t := v.(type) {
	case nil:
		return goja.Null()
	case string:
		return vm.ToValue(t)
	case []byte:
		if utf8.Valid(t) {
			return vm.ToValue(string(t))
		}
		return vm.ToValue(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return vm.ToValue(fmt.Sprint(v))
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return vm.ToValue(string(data))
	}
	return vm.ToValue(plain)
}
