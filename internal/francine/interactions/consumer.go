package interactions

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/francine/eventbus"
)

// Sink receives records asynchronously.
type Sink interface {
	Name() string
	Write(ctx context.Context, rec Record) error
	Close() error
}

const sinkBuffer = 100

// Fanout runs one consumer goroutine per sink.
type Fanout struct {
	bus  *eventbus.Bus
	wg   sync.WaitGroup
	subs []*eventbus.Subscription
	mu   sync.Mutex
}

func NewFanout(bus *eventbus.Bus) *Fanout {
	return &Fanout{bus: bus}
}

// Start subscribes sink and consumes until ctx ends or Stop is called. The
// sink is closed when its consumer exits.
func (f *Fanout) Start(ctx context.Context, sink Sink) {
	sub := f.bus.Subscribe(TopicPattern, sinkBuffer)
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	logger := log.Ctx(ctx).With().Str("sink", sink.Name()).Logger()
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Msgf("panic in interaction sink: %v", r)
			}
			if err := sink.Close(); err != nil {
				logger.Error().Err(err).Msg("unable to close sink")
			}
		}()
		for {
			select {
			case <-ctx.Done():
				drain(ctx, sub, sink)
				return
			case ev, ok := <-sub.C():
				if !ok {
					return
				}
				write(ctx, sink, ev)
			}
		}
	}()
	logger.Info().Msg("interaction sink started")
}

// drain writes whatever is already buffered when the consumer stops.
func drain(ctx context.Context, sub *eventbus.Subscription, sink Sink) {
	sub.Close()
	for ev := range sub.C() {
		write(context.WithoutCancel(ctx), sink, ev)
	}
}

func write(ctx context.Context, sink Sink, ev eventbus.Event) {
	rec, ok := ev.Data.(Record)
	if !ok {
		return
	}
	if err := sink.Write(ctx, rec); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("sink", sink.Name()).Str("record_id", rec.ID).Msg("unable to write interaction")
	}
}

// Stop closes the subscriptions and waits for every consumer to finish
// writing what it has buffered.
func (f *Fanout) Stop() {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
	f.wg.Wait()
}
