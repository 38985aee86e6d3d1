package intent

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownTools(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestParse(t *testing.T) {
	known := knownTools("profit_calc", "recon_domain")

	tests := []struct {
		name string
		raw  string
		want Intent
	}{
		{
			name: "tool call",
			raw:  `{"function":"profit_calc","args":{"revenue":100,"cogs":40,"ship":10,"ads":5}}`,
			want: ToolCall("profit_calc", map[string]any{"revenue": 100.0, "cogs": 40.0, "ship": 10.0, "ads": 5.0}),
		},
		{
			name: "tool call without args",
			raw:  `{"function":"recon_domain"}`,
			want: ToolCall("recon_domain", map[string]any{}),
		},
		{
			name: "tool call in code fence",
			raw:  "```json\n{\"function\":\"recon_domain\",\"args\":{\"dom\":\"example.com\"}}\n```",
			want: ToolCall("recon_domain", map[string]any{"dom": "example.com"}),
		},
		{
			name: "none with answer",
			raw:  `{"function":"none","answer":"Hello there"}`,
			want: DirectAnswer("Hello there"),
		},
		{
			name: "empty function with answer",
			raw:  `{"function":"","answer":"Hi"}`,
			want: DirectAnswer("Hi"),
		},
		{
			name: "missing function uses answer",
			raw:  `{"answer":"Only an answer"}`,
			want: DirectAnswer("Only an answer"),
		},
		{
			name: "none without answer keeps raw",
			raw:  `{"function":"none"}`,
			want: DirectAnswer(`{"function":"none"}`),
		},
		{
			name: "unknown tool keeps raw",
			raw:  `{"function":"launch_rocket","args":{}}`,
			want: DirectAnswer(`{"function":"launch_rocket","args":{}}`),
		},
		{
			name: "plain prose",
			raw:  "Sure, your profit is 45.",
			want: DirectAnswer("Sure, your profit is 45."),
		},
		{
			name: "truncated json",
			raw:  `{"function":"profit_calc","args":{"revenue":`,
			want: DirectAnswer(`{"function":"profit_calc","args":{"revenue":`),
		},
		{
			name: "trailing garbage",
			raw:  `{"function":"profit_calc"}}`,
			want: DirectAnswer(`{"function":"profit_calc"}}`),
		},
		{
			name: "json array",
			raw:  `[1,2,3]`,
			want: DirectAnswer(`[1,2,3]`),
		},
		{
			name: "args not an object",
			raw:  `{"function":"profit_calc","args":"revenue=100"}`,
			want: ToolCall("profit_calc", map[string]any{}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw, known))
		})
	}
}

func TestParseNilKnown(t *testing.T) {
	raw := `{"function":"profit_calc","args":{}}`
	assert.Equal(t, DirectAnswer(raw), Parse(raw, nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "tool_call", KindToolCall.String())
	assert.Equal(t, "direct_answer", KindDirectAnswer.String())
	assert.True(t, ToolCall("x", nil).IsToolCall())
	assert.NotNil(t, ToolCall("x", nil).Args)
}

func TestParseProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	known := knownTools("profit_calc")

	// For any text that is not a JSON object, the raw text is the answer.
	properties.Property("non-object output is delivered verbatim", prop.ForAll(
		func(s string) bool {
			if strings.HasPrefix(strings.TrimSpace(s), "{") || strings.HasPrefix(strings.TrimSpace(s), "```") {
				return true
			}
			got := Parse(s, known)
			return got.Kind == KindDirectAnswer && got.Text == s
		},
		gen.AnyString(),
	))

	// For any prefix of a valid tool call, parsing never yields a tool call
	// unless the prefix is the whole object.
	full := `{"function":"profit_calc","args":{"revenue":100,"cogs":40,"ship":10,"ads":5}}`
	properties.Property("truncated tool calls degrade to the raw text", prop.ForAll(
		func(n int) bool {
			s := full[:n]
			got := Parse(s, known)
			return got.Kind == KindDirectAnswer && got.Text == s
		},
		gen.IntRange(0, len(full)-1),
	))

	// For any answer string, the none sentinel returns it unchanged.
	properties.Property("none sentinel returns the answer field", prop.ForAll(
		func(answer string) bool {
			b, err := json.Marshal(map[string]any{"function": NoneFunction, "answer": answer})
			if err != nil {
				return false
			}
			got := Parse(string(b), known)
			return got.Kind == KindDirectAnswer && got.Text == answer
		},
		gen.AnyString(),
	))

	// For any function name the registry does not know, the raw text wins.
	properties.Property("unknown function names fall back to raw text", prop.ForAll(
		func(name string) bool {
			if name == "" || name == NoneFunction || name == "profit_calc" {
				return true
			}
			b, err := json.Marshal(map[string]any{"function": name, "args": map[string]any{}})
			if err != nil {
				return false
			}
			got := Parse(string(b), known)
			return got.Kind == KindDirectAnswer && got.Text == string(b)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestDecodeObject(t *testing.T) {
	obj, ok := DecodeObject("  {\"a\": 1}\n")
	require.True(t, ok)
	assert.Equal(t, 1.0, obj["a"])

	_, ok = DecodeObject("null")
	assert.False(t, ok)
	_, ok = DecodeObject("{} {}")
	assert.False(t, ok)
}
