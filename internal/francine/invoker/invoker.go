// Package invoker executes registry tools on behalf of the agent loop. Every
// call produces an Outcome: capability errors, panics, invalid arguments and
// timeouts all become Failures that the loop can reflect on.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tansive/francine/internal/francine/tools"
)

const (
	DefaultTimeout            = 2 * time.Minute
	DefaultMaxBlockingWorkers = 4
)

// Invoker runs tools from one registry. It is safe for concurrent use.
type Invoker struct {
	registry *tools.Registry
	timeout  time.Duration
	workers  chan struct{}
	limiter  *rate.Limiter
	format   formatter
}

type Option func(*Invoker)

// WithTimeout bounds each call. Zero disables the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) { i.timeout = d }
}

// WithMaxBlockingWorkers sets how many blocking tools may run at once.
func WithMaxBlockingWorkers(n int) Option {
	return func(i *Invoker) {
		if n > 0 {
			i.workers = make(chan struct{}, n)
		}
	}
}

// WithRateLimit throttles all tool calls with a token bucket. A non-positive
// rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(i *Invoker) {
		if perSecond <= 0 {
			i.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		i.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithResultStore sets where raw hits, scrapes and document text are saved.
func WithResultStore(store ResultStore) Option {
	return func(i *Invoker) { i.format.store = store }
}

func New(registry *tools.Registry, opts ...Option) *Invoker {
	i := &Invoker{
		registry: registry,
		timeout:  DefaultTimeout,
		workers:  make(chan struct{}, DefaultMaxBlockingWorkers),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Invoker) Registry() *tools.Registry {
	return i.registry
}

// Invoke validates args, runs the named tool and formats its result.
func (i *Invoker) Invoke(ctx context.Context, name string, args map[string]any) Outcome {
	start := time.Now()
	out := i.invoke(ctx, name, args)
	out.Duration = time.Since(start)

	logger := log.Ctx(ctx).With().Str("tool", name).Dur("duration", out.Duration).Logger()
	if out.Success {
		logger.Info().Msg("tool completed")
	} else {
		logger.Warn().Str("error", out.ErrorMessage).Msg("tool failed")
	}
	return out
}

func (i *Invoker) invoke(ctx context.Context, name string, args map[string]any) Outcome {
	tool, ok := i.registry.Lookup(name)
	if !ok {
		return failure(name, "unknown tool: "+name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := i.registry.Validate(name, args); err != nil {
		return failure(name, errorText(err))
	}

	if i.limiter != nil {
		if err := i.limiter.Wait(ctx); err != nil {
			return failure(name, "tool call was not started: "+err.Error())
		}
	}

	release := func() {}
	if tool.Blocking {
		select {
		case i.workers <- struct{}{}:
			release = func() { <-i.workers }
		case <-ctx.Done():
			return failure(name, "tool call was not started: "+ctx.Err().Error())
		}
	}

	value, err := i.call(ctx, tool, args, release)
	if err != nil {
		return failure(name, errorText(err))
	}
	return success(name, value, i.format.format(tool, args, value))
}

type callResult struct {
	value any
	err   error
}

// call runs the capability in its own goroutine so a panic or a hung tool
// cannot take the caller down with it. release runs once the capability
// returns, even if the caller has already timed out.
func (i *Invoker) call(ctx context.Context, tool tools.Tool, args map[string]any, release func()) (any, error) {
	callCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	done := make(chan callResult, 1)
	go func() {
		defer release()
		defer func() {
			if r := recover(); r != nil {
				log.Ctx(ctx).Error().
					Str("tool", tool.Spec.Name).
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("tool panicked")
				done <- callResult{err: ErrToolPanic.Msg(fmt.Sprintf("tool %s panicked: %v", tool.Spec.Name, r))}
			}
		}()
		v, err := tool.Capability.Call(callCtx, args)
		done <- callResult{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrToolTimeout.Msg(fmt.Sprintf("%s timed out after %s", tool.Spec.Name, i.timeout))
		}
		return nil, callCtx.Err()
	}
}
