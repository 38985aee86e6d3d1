package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	sessionLabel = color.New(color.FgHiMagenta, color.Bold)
	startLabel   = color.New(color.FgGreen).Add(color.Bold)
	promptColor  = color.New(color.FgCyan)
	warnColor    = color.New(color.FgHiRed)
)

// Palette cycled per session so interleaved sessions stay readable.
var colorPalette = []*color.Color{
	color.New(color.FgGreen),
	color.New(color.FgCyan),
	color.New(color.FgMagenta),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
}

type sessionState struct {
	start time.Time
	color *color.Color
}

// logPrinter renders audit log lines grouped by session with timestamps
// relative to the first interaction of each session.
type logPrinter struct {
	w        io.Writer
	sessions map[string]*sessionState
	next     int
}

func newLogPrinter(w io.Writer) *logPrinter {
	return &logPrinter{w: w, sessions: map[string]*sessionState{}}
}

// PrintLine formats one audit log line. Lines that are not valid entries
// are flagged and skipped.
func (p *logPrinter) PrintLine(line []byte) {
	var e struct {
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(line, &e); err != nil || e.Payload == nil {
		warnColor.Fprintf(p.w, "invalid entry: %s\n", strings.TrimSpace(string(line)))
		return
	}
	m := e.Payload
	sessionID := str(m["session_id"])
	if sessionID == "" {
		sessionID = "-"
	}
	ts, _ := time.Parse(time.RFC3339Nano, str(m["timestamp"]))

	sess := p.sessions[sessionID]
	if sess == nil {
		sess = &sessionState{start: ts, color: colorPalette[p.next%len(colorPalette)]}
		p.next++
		p.sessions[sessionID] = sess
		sessionLabel.Fprintf(p.w, "\nSession ID: %s\n", sessionID)
		startLabel.Fprintf(p.w, "    Start: %s\n\n", ts.Local().Format("2006-01-02 15:04:05.000 MST"))
	}

	relative := ts.Sub(sess.start)
	if relative < 0 {
		relative = 0
	}
	timestamp := fmt.Sprintf("[%02d:%02d.%03d]",
		int(relative.Minutes()),
		int(relative.Seconds())%60,
		relative.Milliseconds()%1000,
	)
	const indent = "                 "
	fmt.Fprint(p.w, "  "+timestamp+" ")
	promptColor.Fprint(p.w, "you ")
	fmt.Fprintln(p.w, indentMultiline(str(m["prompt"]), indent))
	fmt.Fprint(p.w, "  "+strings.Repeat(" ", len(timestamp))+" ")
	sess.color.Fprint(p.w, "francine ")
	fmt.Fprintln(p.w, indentMultiline(str(m["response"]), indent))
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// indentMultiline indents every line after the first.
func indentMultiline(text, indent string) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= 1 {
		return text
	}
	for i := 1; i < len(lines); i++ {
		lines[i] = indent + lines[i]
	}
	return strings.Join(lines, "\n")
}
