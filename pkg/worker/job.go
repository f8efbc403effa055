package worker

import (
	"time"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/eventstream"
	"github.com/papercomputeco/turntable/pkg/stream"
)

// Job is one completed turn handed off for persistence.
type Job struct {
	ConversationID string

	// Token is the turn token the stream was consumed with. It doubles as
	// the turn id of the stored rows.
	Token string

	Prompt   string
	Model    string
	Provider string

	Turn stream.LiveTurn

	StartedAt   time.Time
	CompletedAt time.Time
}

// TurnID is the id shared by every row of the turn.
func (j Job) TurnID() string {
	return j.Token
}

// Rows flattens the turn into the rows the backend would have stored for
// it: the user prompt, then reasoning, function result and answer parts.
func (j Job) Rows() []chat.RawRow {
	turn := chat.ID(j.TurnID())
	var started int64
	if !j.StartedAt.IsZero() {
		started = j.StartedAt.UnixMilli()
	}
	completed := started
	if !j.CompletedAt.IsZero() {
		completed = j.CompletedAt.UnixMilli()
	}

	part := func(suffix, role string, t chat.RowType, content string, at int64) chat.RawRow {
		return chat.RawRow{
			ID:        chat.ID(j.TurnID() + "-" + suffix),
			TurnID:    turn,
			Role:      role,
			Type:      t,
			Content:   chat.Text(content),
			CreatedAt: at,
		}
	}

	var rows []chat.RawRow
	if j.Prompt != "" {
		rows = append(rows, part("user", chat.RoleUser, "", j.Prompt, started))
	}

	if j.Turn.ReasoningText != "" {
		r := part("reasoning", chat.RoleAssistant, chat.RowTypeReasoning, j.Turn.ReasoningText, completed)
		if !j.CompletedAt.IsZero() && !j.StartedAt.IsZero() {
			d := j.CompletedAt.Sub(j.StartedAt).Seconds()
			r.Duration = &d
		}
		rows = append(rows, r)
	}

	if out := j.Turn.FunctionResult; out != nil && out.Error == "" && len(out.Data) > 0 {
		rows = append(rows, part("function", chat.RoleFunction, chat.RowTypeFunctionResult, string(out.Data), completed))
	}

	if j.Turn.AnswerText != "" {
		rows = append(rows, part("answer", chat.RoleAssistant, chat.RowTypeAssistant, j.Turn.AnswerText, completed))
	}

	return rows
}

func (j Job) meta(inserted int) eventstream.TurnMeta {
	return eventstream.TurnMeta{
		ConversationID: j.ConversationID,
		TurnID:         j.TurnID(),
		Token:          j.Token,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
		FunctionType:   j.Turn.ActiveFunctionType,
		NewRows:        inserted,
	}
}
