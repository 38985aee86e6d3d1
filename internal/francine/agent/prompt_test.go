package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildInstruction(t *testing.T) {
	got := BuildInstruction(`[]`, "")
	assert.True(t, strings.HasSuffix(got, "--- TOOL_SCHEMA ---\n[]\n--- END TOOL_SCHEMA ---\n"))
	assert.Contains(t, got, `{"function":"none", "answer":"<your_answer>"}`)
	assert.Equal(t, got+"\nUser: hi", BuildPrompt(got, "hi"))
}

func TestTruncateTail(t *testing.T) {
	assert.Equal(t, "abc", truncateTail("abc", 0))
	assert.Equal(t, "abc", truncateTail("abc", 3))
	assert.Equal(t, "...cd", truncateTail("abcd", 2))
	assert.Equal(t, "...é!", truncateTail("ééé!", 2))
}

func TestRetryPrompt(t *testing.T) {
	got := retryPrompt("orig", "recon_ip", map[string]any{"ip": "1.1.1.1"}, "timeout", "use another ip", "PREV")
	assert.Equal(t, `User originally asked: 'orig'. Previous attempt to use 'recon_ip' with args {"ip":"1.1.1.1"} failed: 'timeout'. Reason for retry: use another ip. Now try again based on this. Original prompt for LLM was: 'PREV'`, got)
}
