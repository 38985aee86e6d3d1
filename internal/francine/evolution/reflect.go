package evolution

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/tansive/francine/internal/francine/llm"
	"github.com/tansive/francine/internal/francine/memory"
)

// ReflectLines is how much of the memlog a reflection pass reads.
const ReflectLines = 100

const reflectionPrompt = "Based on the following recent interactions, extract 3-5 concise, high-level core insights " +
	"about the user's preferences, goals, or recurring themes. " +
	"Focus on long-term memory points. Respond as a JSON array of strings, e.g., " +
	"[\"User prefers concise answers\", \"User is working on the Francine AI project\"].\n\n" +
	"Recent Interactions:\n"

// ReflectionPrompt returns the prompt sent for a reflection pass.
func ReflectionPrompt(recent string) string {
	return reflectionPrompt + recent
}

// ReflectOnMemory distills the recent memlog into core insights and merges
// them into core memory. It returns the insights added. An empty memlog is
// not an error.
func ReflectOnMemory(ctx context.Context, client llm.Client, store *memory.Store) ([]string, error) {
	logger := log.Ctx(ctx)
	lines, err := store.Memlog().Tail(ReflectLines)
	if err != nil {
		return nil, ErrReflectionFailed.Err(err)
	}
	recent := strings.Join(lines, "\n")
	if strings.TrimSpace(recent) == "" {
		logger.Info().Msg("no recent interactions to reflect on")
		return nil, nil
	}

	raw, err := client.Complete(ctx, ReflectionPrompt(recent))
	if err != nil {
		return nil, ErrReflectionFailed.Err(err)
	}
	insights, err := ParseInsights(raw)
	if err != nil {
		logger.Warn().Err(err).Str("response", raw).Msg("unable to parse reflection response")
		return nil, err
	}

	cm := store.LoadCoreMemory()
	before := len(cm.CoreInsights)
	cm.CoreInsights = memory.MergeInsights(cm.CoreInsights, insights)
	if err := store.SaveCoreMemory(cm); err != nil {
		return nil, ErrReflectionFailed.Err(err)
	}
	added := cm.CoreInsights[before:]
	logger.Info().Int("added", len(added)).Int("total", len(cm.CoreInsights)).Msg("core memory updated")
	return added, nil
}

// ParseInsights reads a JSON array of strings. A surrounding code fence is
// tolerated; non-string elements are dropped.
func ParseInsights(raw string) ([]string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if !gjson.Valid(text) {
		return nil, ErrInsightsNotArray.Msg("response is not valid JSON")
	}
	res := gjson.Parse(text)
	if !res.IsArray() {
		return nil, ErrInsightsNotArray
	}
	var out []string
	res.ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			out = append(out, strings.TrimSpace(v.Str))
		}
		return true
	})
	return out, nil
}
