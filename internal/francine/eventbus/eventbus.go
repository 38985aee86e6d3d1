// Package eventbus is an in-memory publish/subscribe bus. Topics are
// dot-separated; a subscription pattern may use "*" for one segment, or be
// "*" alone to receive everything.
package eventbus

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPublishTimeout bounds how long Publish waits on one full subscriber.
const DefaultPublishTimeout = 100 * time.Millisecond

// Event is one published message.
type Event struct {
	Topic     string
	Data      any
	Published time.Time
}

// Subscription receives events on C until Close.
type Subscription struct {
	id      uint64
	pattern string
	ch      chan Event
	bus     *Bus

	mu     sync.Mutex
	closed bool
}

// C returns the delivery channel. It is closed by Close or Bus.Shutdown.
func (s *Subscription) C() <-chan Event { return s.ch }

func (s *Subscription) Pattern() string { return s.pattern }

// Close detaches the subscription from the bus and closes its channel.
func (s *Subscription) Close() {
	s.bus.remove(s)
	s.close()
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func (s *Subscription) send(ev Event, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s.ch <- ev:
		return true
	case <-t.C:
		return false
	}
}

type Bus struct {
	mu      sync.RWMutex
	subs    map[string]map[uint64]*Subscription // pattern -> id -> subscription
	nextID  atomic.Uint64
	dropped atomic.Uint64
	timeout time.Duration
}

type Option func(*Bus)

// WithPublishTimeout sets how long Publish blocks on a full subscriber
// before dropping the event for it.
func WithPublishTimeout(d time.Duration) Option {
	return func(b *Bus) { b.timeout = d }
}

func New(opts ...Option) *Bus {
	b := &Bus{
		subs:    make(map[string]map[uint64]*Subscription),
		timeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers pattern with a channel of the given buffer size.
func (b *Bus) Subscribe(pattern string, buffer int) *Subscription {
	s := &Subscription{
		id:      b.nextID.Add(1),
		pattern: pattern,
		ch:      make(chan Event, buffer),
		bus:     b,
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[pattern] == nil {
		b.subs[pattern] = make(map[uint64]*Subscription)
	}
	b.subs[pattern][s.id] = s
	return s
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.subs[s.pattern]; ok {
		delete(m, s.id)
		if len(m) == 0 {
			delete(b.subs, s.pattern)
		}
	}
}

// Publish delivers data to every matching subscription and returns how many
// received it. Subscribers that stay full past the publish timeout miss the
// event; the miss is counted in Dropped.
func (b *Bus) Publish(topic string, data any) int {
	ev := Event{Topic: topic, Data: data, Published: time.Now()}
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for pattern, m := range b.subs {
		if !MatchTopic(pattern, topic) {
			continue
		}
		for _, s := range m {
			if s.send(ev, b.timeout) {
				delivered++
			} else {
				b.dropped.Add(1)
			}
		}
	}
	return delivered
}

// Dropped is the number of deliveries lost to full or closed subscribers.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Shutdown closes every subscription.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.subs {
		for _, s := range m {
			s.close()
		}
	}
	b.subs = make(map[string]map[uint64]*Subscription)
}

// MatchTopic reports whether topic matches pattern.
func MatchTopic(pattern, topic string) bool {
	if pattern == "" || topic == "" {
		return false
	}
	if pattern == "*" || pattern == topic {
		return true
	}
	pp := strings.Split(pattern, ".")
	tp := strings.Split(topic, ".")
	if len(pp) != len(tp) {
		return false
	}
	for i := range pp {
		if pp[i] != "*" && pp[i] != tp[i] {
			return false
		}
	}
	return true
}
