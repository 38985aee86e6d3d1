package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/common"
	"github.com/tansive/francine/internal/francine/agent"
	"github.com/tansive/francine/pkg/api"
)

// Broker routes agent clarification questions to HTTP clients. Ask blocks
// until Answer is called with the question's ID, the wait times out or the
// request context ends.
type Broker struct {
	mu      sync.Mutex
	pending map[string]*pendingQuestion
	timeout time.Duration
	now     func() time.Time
}

type pendingQuestion struct {
	info   api.Clarification
	answer chan string
}

// NewBroker returns a broker whose questions expire after timeout. A zero
// timeout waits for as long as the request lives.
func NewBroker(timeout time.Duration) *Broker {
	return &Broker{
		pending: make(map[string]*pendingQuestion),
		timeout: timeout,
		now:     time.Now,
	}
}

var _ agent.Clarifier = (*Broker)(nil)

// Ask publishes question and waits for the answer.
func (b *Broker) Ask(ctx context.Context, question string) (string, error) {
	q, err := b.add(agent.SessionIDFromContext(ctx), question)
	if err != nil {
		return "", err
	}
	defer b.remove(q.info.ID)
	log.Ctx(ctx).Info().Str("clarification_id", q.info.ID).Str("question", question).Msg("waiting for clarification")

	var expired <-chan time.Time
	if b.timeout > 0 {
		timer := time.NewTimer(b.timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case answer := <-q.answer:
		return answer, nil
	case <-expired:
		return "", ErrClarificationTimeout.Msg("no answer to clarification " + q.info.ID + " within " + b.timeout.String())
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (b *Broker) add(sessionID, question string) (*pendingQuestion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		id, err := common.NewShortID(common.IDClarification)
		if err != nil {
			return nil, ErrServerError.MsgErr("unable to create clarification id", err)
		}
		if _, taken := b.pending[id]; taken {
			continue
		}
		q := &pendingQuestion{
			info: api.Clarification{
				ID:        id,
				SessionID: sessionID,
				Question:  question,
				AskedAt:   b.now().UTC(),
			},
			answer: make(chan string, 1),
		}
		b.pending[id] = q
		return q, nil
	}
}

func (b *Broker) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
}

// Pending lists open questions, oldest first.
func (b *Broker) Pending() []api.Clarification {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := make([]api.Clarification, 0, len(b.pending))
	for _, q := range b.pending {
		list = append(list, q.info)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AskedAt.Equal(list[j].AskedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].AskedAt.Before(list[j].AskedAt)
	})
	return list
}

// Answer delivers answer to the question with id. Each question accepts one
// answer.
func (b *Broker) Answer(id, answer string) error {
	b.mu.Lock()
	q, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()
	if !ok {
		return ErrClarificationNotFound.Msg("no pending clarification " + id)
	}
	q.answer <- answer
	return nil
}
