package agent

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/francine/intent"
	"github.com/tansive/francine/internal/francine/reflector"
)

// Terminal names the branch that ended a request.
type Terminal string

const (
	TerminalDirectAnswer Terminal = "direct_answer"
	TerminalToolSuccess  Terminal = "tool_success"
	TerminalGaveUp       Terminal = "gave_up"
	TerminalExhausted    Terminal = "retries_exhausted"
	TerminalUnhandled    Terminal = "unhandled_error"
)

// Result is the single outcome of a request.
type Result struct {
	Text      string
	Terminal  Terminal
	Attempts  int
	SessionID string
}

// Handle processes one request to completion. It never panics and always
// delivers and logs exactly one answer.
func (l *Loop) Handle(ctx context.Context, prompt string) (res Result) {
	sess := newSession(prompt, l.maxRetries)
	logger := log.Ctx(ctx).With().Str("session_id", sess.ID).Logger()
	ctx = WithSessionID(logger.WithContext(ctx), sess.ID)

	defer func() {
		if r := recover(); r != nil {
			if sess.finished {
				res = sess.result
				return
			}
			err := ErrLoopPanic.Msg(fmt.Sprintf("%v", r))
			log.Ctx(ctx).Error().Err(err).Bytes("stack", debug.Stack()).Msg("panic during prompt processing")
			res = l.finish(ctx, sess, unhandledMessage(err), unhandledLogEntry(err), TerminalUnhandled)
		}
	}()

	text, terminal, err := l.run(ctx, sess)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unhandled error during prompt processing")
		return l.finish(ctx, sess, unhandledMessage(err), unhandledLogEntry(err), TerminalUnhandled)
	}
	return l.finish(ctx, sess, text, text, terminal)
}

func (l *Loop) run(ctx context.Context, sess *Session) (string, Terminal, error) {
	logger := log.Ctx(ctx)
	schema := l.deps.Tools.SchemaJSON()

	for sess.RetryCount = 0; sess.RetryCount <= sess.MaxRetries; sess.RetryCount++ {
		sess.Attempts++
		retrieved := ""
		if l.deps.Context != nil {
			retrieved = l.deps.Context.GetContext(ctx, sess.CurrentPrompt)
		}
		modelPrompt := BuildPrompt(BuildInstruction(schema, retrieved), sess.CurrentPrompt)

		raw, err := l.deps.LLM.Complete(ctx, modelPrompt)
		if err != nil {
			return "", "", err
		}

		in := intent.Parse(raw, l.deps.Tools.Has)
		if !in.IsToolCall() {
			logger.Debug().Int("attempt", sess.Attempts).Msg("direct answer")
			return in.Text, TerminalDirectAnswer, nil
		}

		logger.Info().Int("attempt", sess.Attempts).Str("tool", in.Name).Msg("calling tool")
		out := l.deps.Invoker.Invoke(ctx, in.Name, in.Args)
		if out.Success {
			return out.Text, TerminalToolSuccess, nil
		}

		decision, err := l.deps.Reflector.Reflect(ctx, reflector.Failure{
			Tool:    in.Name,
			Args:    in.Args,
			Error:   out.ErrorMessage,
			Plan:    sess.Plan,
			Context: retrieved,
		})
		if err != nil {
			return "", "", err
		}

		previous := truncateTail(modelPrompt, l.maxPromptChars)

		switch decision.Action {
		case reflector.ActionGiveUp:
			logger.Info().Str("tool", in.Name).Str("reason", decision.Reason).Msg("giving up on task")
			return decision.Answer, TerminalGaveUp, nil

		case reflector.ActionAskUser:
			if l.deps.Clarifier == nil {
				return "", "", ErrNoClarifier
			}
			clarification, err := l.deps.Clarifier.Ask(ctx, decision.Question)
			if err != nil {
				return "", "", err
			}
			sess.CurrentPrompt = clarifiedPrompt(sess.OriginalPrompt, clarification, decision.Reason, previous)

		case reflector.ActionRetryWithArgs:
			logger.Info().Str("tool", in.Name).Interface("args", decision.Args).Str("reason", decision.Reason).Msg("retrying with new arguments")
			sess.CurrentPrompt = retryPrompt(sess.OriginalPrompt, in.Name, in.Args, out.ErrorMessage, decision.Reason, previous)
			sess.Plan = decision.Reason
		}
	}

	// The loop post-increments past MaxRetries; report the attempts actually made.
	sess.RetryCount = sess.MaxRetries
	return exhaustedMessage(sess.OriginalPrompt), TerminalExhausted, nil
}

// finish is the only exit: one interaction-log append, one delivery.
func (l *Loop) finish(ctx context.Context, sess *Session, delivered, logged string, terminal Terminal) Result {
	if sess.finished {
		return sess.result
	}
	sess.finished = true
	sess.result = Result{
		Text:      delivered,
		Terminal:  terminal,
		Attempts:  sess.Attempts,
		SessionID: sess.ID,
	}

	if err := l.deps.Log.Append(ctx, sess.OriginalPrompt, logged); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to append interaction log")
	}
	if l.deps.Responder != nil {
		l.deps.Responder.Deliver(ctx, delivered)
	}
	log.Ctx(ctx).Info().
		Str("terminal", string(terminal)).
		Int("attempts", sess.Attempts).
		Msg("request finished")
	return sess.result
}
