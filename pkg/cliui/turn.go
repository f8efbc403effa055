package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/stream"
)

// TurnPrinter writes a streaming assistant turn to a terminal. It consumes
// progress snapshots and prints only what changed since the last one, so
// it can be handed straight to stream.Options.OnProgress. It also acts as a
// stream.ToolPhaseSink and prints one line per tool phase.
type TurnPrinter struct {
	w  io.Writer
	mu sync.Mutex

	reasoning       string
	reasoningClosed bool
	answer          string
	started         bool
}

// NewTurnPrinter returns a printer writing to w.
func NewTurnPrinter(w io.Writer) *TurnPrinter {
	return &TurnPrinter{w: w}
}

// Update prints the part of p not yet written.
func (t *TurnPrinter) Update(p stream.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	reasoning, complete := stream.SplitReasoning(p.ReasoningText)
	if !t.reasoningClosed {
		// A terminal override may replace the text outright; only the
		// extension of what is already on screen can be printed.
		if delta, ok := strings.CutPrefix(reasoning, t.reasoning); ok && delta != "" {
			t.begin()
			fmt.Fprint(t.w, ReasoningStyle.Render(delta))
			t.reasoning = reasoning
		}
		if complete || p.ReasoningComplete {
			t.reasoningClosed = true
			if t.reasoning != "" {
				fmt.Fprint(t.w, "\n\n")
			}
		}
	}

	if delta, ok := strings.CutPrefix(p.AnswerText, t.answer); ok && delta != "" {
		t.begin()
		fmt.Fprint(t.w, delta)
		t.answer = p.AnswerText
	}
}

// ApplyToolPhase prints a status line for tool activity.
func (t *TurnPrinter) ApplyToolPhase(ev stream.ToolPhaseEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var line string
	switch ev.Kind {
	case stream.ToolPhaseDetected:
		line = fmt.Sprintf("⚙ calling %s", orUnknown(ev.FunctionType))
	case stream.ToolPhaseStatus:
		status := ev.Status
		if status == "" {
			status = strings.ReplaceAll(string(ev.Step), "_", " ")
		}
		if status == "" {
			return
		}
		line = "⚙ " + status
	case stream.ToolPhaseResult:
		line = fmt.Sprintf("⚙ %s returned", orUnknown(ev.FunctionType))
		if ev.Output != nil && ev.Output.Query != "" {
			line += fmt.Sprintf(" results for %q", ev.Output.Query)
		}
	case stream.ToolPhaseError:
		msg := ""
		if ev.Output != nil {
			msg = ev.Output.Error
		}
		line = fmt.Sprintf("%s %s failed: %s", FailMark, orUnknown(ev.FunctionType), msg)
	default:
		return
	}

	t.begin()
	if t.answer != "" || (t.reasoning != "" && !t.reasoningClosed) {
		fmt.Fprint(t.w, "\n")
	}
	fmt.Fprintln(t.w, ToolStyle.Render(line))
}

// Answer returns the answer text printed so far.
func (t *TurnPrinter) Answer() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.answer
}

func (t *TurnPrinter) begin() {
	if t.started {
		return
	}
	t.started = true
	fmt.Fprint(t.w, AssistantPrompt)
}

// MessageMarkdown formats a reconciled message for RenderMarkdown. Reasoning
// is quoted above the answer together with its duration.
func MessageMarkdown(m chat.Message) string {
	var b strings.Builder

	switch m.Role {
	case chat.RoleUser:
		b.WriteString("**you**\n\n")
	default:
		fmt.Fprintf(&b, "**%s**\n\n", m.Role)
	}

	if m.Reasoning != nil && *m.Reasoning != "" {
		if m.Duration != nil {
			fmt.Fprintf(&b, "_thought for %.1fs_\n\n", *m.Duration)
		}
		for line := range strings.SplitSeq(strings.TrimRight(*m.Reasoning, "\n"), "\n") {
			b.WriteString("> ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.Content)
	b.WriteString("\n")
	return b.String()
}
