package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/francine/internal/francine/agent"
)

func TestConsoleAsk(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("  tomorrow morning \n"), &out)

	reply, err := c.Ask(context.Background(), "When should it run?")
	require.NoError(t, err)
	assert.Equal(t, "tomorrow morning", reply)
	assert.Contains(t, out.String(), "Francine needs clarification: When should it run?")
	assert.Contains(t, out.String(), "Your clarification: ")
}

func TestConsoleAskCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsole(strings.NewReader("ignored\n"), io.Discard)
	_, err := c.Ask(ctx, "?")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsoleReadLine(t *testing.T) {
	c := NewConsole(strings.NewReader("first\nlast without newline"), io.Discard)

	line, err := c.ReadLine("You")
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	line, err = c.ReadLine("You")
	require.NoError(t, err)
	assert.Equal(t, "last without newline", line)

	_, err = c.ReadLine("You")
	assert.ErrorIs(t, err, io.EOF)
}

func TestConsoleChooseAndDeliver(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("2\n"), &out)

	choice, err := c.Choose(context.Background(), "Option 1: short\nOption 2: long", []string{"short", "long"})
	require.NoError(t, err)
	assert.Equal(t, "2", choice)
	assert.Contains(t, out.String(), "Option 2: long")

	c.Deliver(context.Background(), "done")
	assert.Contains(t, out.String(), "Francine: done\n")
}

func TestReportFeedback(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out)

	require.NoError(t, reportFeedback(c, agent.FeedbackResult{}, agent.ErrInvalidChoice.Msg("invalid choice: 7")))
	assert.Contains(t, out.String(), "Invalid choice. No feedback will be logged.")

	require.NoError(t, reportFeedback(c, agent.FeedbackResult{Choice: 1, Chosen: "a"}, nil))
	assert.Contains(t, out.String(), "You chose: a")

	boom := errors.New("boom")
	assert.ErrorIs(t, reportFeedback(c, agent.FeedbackResult{}, boom), boom)
}
