package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/tansive/francine/internal/francine/agent"
)

var (
	francineLabel = color.New(color.FgHiMagenta, color.Bold)
	youLabel      = color.New(color.FgCyan, color.Bold)
	questionLabel = color.New(color.FgYellow)
	faintLabel    = color.New(color.FgHiWhite, color.Faint)
)

// Console is the terminal surface of the agent. It reads replies line by
// line from in and writes to out.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

var (
	_ agent.Clarifier = (*Console)(nil)
	_ agent.Responder = (*Console)(nil)
	_ agent.Chooser   = (*Console)(nil)
)

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// ReadLine prompts with label and returns the trimmed reply. io.EOF is
// returned once input is exhausted.
func (c *Console) ReadLine(label string) (string, error) {
	if label != "" {
		youLabel.Fprintf(c.out, "%s: ", label)
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Ask shows a clarification question and waits for the reply.
func (c *Console) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	questionLabel.Fprintf(c.out, "Francine needs clarification: %s\n", question)
	return c.ReadLine("Your clarification")
}

// Deliver prints the final answer.
func (c *Console) Deliver(_ context.Context, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	francineLabel.Fprint(c.out, "Francine: ")
	fmt.Fprintln(c.out, text)
}

// Choose prints both candidates and reads "1" or "2".
func (c *Console) Choose(ctx context.Context, prompt string, _ []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, prompt)
	return c.ReadLine("Choice")
}

// Info prints a status line.
func (c *Console) Info(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	faintLabel.Fprintf(c.out, format+"\n", args...)
}

// reportFeedback prints the outcome of a feedback round.
func reportFeedback(c *Console, res agent.FeedbackResult, err error) error {
	switch {
	case errors.Is(err, agent.ErrInvalidChoice):
		c.Info("Invalid choice. No feedback will be logged.")
		return nil
	case err != nil:
		return err
	}
	c.Info("You chose: %s", res.Chosen)
	return nil
}
