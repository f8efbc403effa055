// Package reconcile rebuilds structured chat messages from the flat rows the
// backend persists.
//
// The backend stores one row per part of a turn (user input, reasoning,
// function call, function result, answer) tied together only by a turn id.
// The reconciler collapses each turn back into at most one user message and
// at most one assistant message, which is the same shape the live stream
// produces. Function results are not chat messages; the most recent one is
// surfaced separately as tool output.
package reconcile

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/utils"
)

// Result is the outcome of reconciling one batch of rows.
type Result struct {
	Messages []chat.Message

	// ToolOutput is the most recent parsable function result in the batch,
	// nil when there is none.
	ToolOutput *chat.ToolOutput

	// Malformed lists the ids of function_result rows whose content could
	// not be parsed. They are skipped.
	Malformed []chat.ID
}

// Messages reconciles rows and returns only the chat messages.
func Messages(rows []chat.RawRow) []chat.Message {
	return Rows(rows).Messages
}

// Rows reconciles rows into messages ordered by timestamp. Messages with
// equal timestamps are ordered user, system, assistant; remaining ties keep
// turn order. Rows is pure: the same input always yields the same output.
func Rows(rows []chat.RawRow) *Result {
	res := &Result{Messages: make([]chat.Message, 0, len(rows))}

	for _, g := range groupByTurn(rows) {
		if len(g.rows) == 1 {
			res.Messages = append(res.Messages, single(g.turn, g.rows[0]))
			continue
		}
		res.merge(g)
	}

	sort.SliceStable(res.Messages, func(i, j int) bool {
		a, b := res.Messages[i], res.Messages[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return chat.RolePriority(a.Role) < chat.RolePriority(b.Role)
	})

	return res
}

// Conversation reconciles a conversation fetched from the backend.
func Conversation(sc *chat.ServerConversation) *chat.Conversation {
	res := Rows(sc.Messages)
	return &chat.Conversation{
		ID:         sc.ID,
		Title:      sc.Title,
		Model:      sc.Model,
		Provider:   sc.Provider,
		CreatedAt:  utils.ParseTimestamp(sc.CreatedAt),
		UpdatedAt:  utils.ParseTimestamp(sc.UpdatedAt),
		Messages:   res.Messages,
		ToolOutput: res.ToolOutput,
	}
}

type turnGroup struct {
	turn chat.ID
	rows []chat.RawRow
}

// groupByTurn groups rows by turn id, keeping the order in which each turn
// was first seen.
func groupByTurn(rows []chat.RawRow) []*turnGroup {
	index := make(map[chat.ID]*turnGroup, len(rows))
	groups := make([]*turnGroup, 0, len(rows))

	for _, r := range rows {
		turn := r.Turn()
		g, ok := index[turn]
		if !ok {
			g = &turnGroup{turn: turn}
			index[turn] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, r)
	}
	return groups
}

func single(turn chat.ID, r chat.RawRow) chat.Message {
	return chat.Message{
		ID:        r.ID,
		Role:      r.Role,
		Content:   string(r.Content),
		Timestamp: r.Timestamp(),
		TurnID:    turn,
	}
}

// turnParts holds the first row of each kind found in a turn.
type turnParts struct {
	user           *chat.RawRow
	reasoning      *chat.RawRow
	assistant      *chat.RawRow
	functionCall   *chat.RawRow
	functionResult *chat.RawRow
}

func partsOf(rows []chat.RawRow) turnParts {
	var p turnParts
	for i := range rows {
		r := &rows[i]
		if r.Role == chat.RoleUser && p.user == nil {
			p.user = r
		}

		switch r.Type {
		case chat.RowTypeReasoning:
			if p.reasoning == nil {
				p.reasoning = r
			}
		case chat.RowTypeAssistant:
			if p.assistant == nil {
				p.assistant = r
			}
		case chat.RowTypeFunctionCall:
			if p.functionCall == nil {
				p.functionCall = r
			}
		case chat.RowTypeFunctionResult:
			if p.functionResult == nil {
				p.functionResult = r
			}
		}
	}
	return p
}

func (res *Result) merge(g *turnGroup) {
	p := partsOf(g.rows)

	if p.user != nil {
		res.Messages = append(res.Messages, single(g.turn, *p.user))
	}

	if p.functionResult != nil && p.functionResult.Content != "" {
		out, err := toolOutput(*p.functionResult)
		if err != nil {
			res.Malformed = append(res.Malformed, p.functionResult.ID)
		} else if res.ToolOutput == nil || out.Timestamp >= res.ToolOutput.Timestamp {
			res.ToolOutput = out
		}
	}

	if p.functionCall == nil && p.assistant == nil {
		return
	}

	msg := chat.Message{
		Role:   chat.RoleAssistant,
		TurnID: g.turn,
	}

	if p.functionCall != nil {
		msg.Content = string(p.functionCall.Content)
		msg.ID = p.functionCall.ID
		msg.Timestamp = p.functionCall.Timestamp()
	}
	if p.assistant != nil {
		if msg.Content != "" {
			msg.Content += "\n\n"
		}
		msg.Content += string(p.assistant.Content)
		msg.ID = p.assistant.ID
		msg.Timestamp = p.assistant.Timestamp()
	}

	if p.reasoning != nil {
		reasoning := string(p.reasoning.Content)
		msg.Reasoning = &reasoning
		if p.reasoning.Duration != nil {
			d := *p.reasoning.Duration
			msg.Duration = &d
		}
	}

	res.Messages = append(res.Messages, msg)
}

// toolOutput parses a persisted function result. The function type is not
// stored, so it is inferred from the shape of the data.
func toolOutput(r chat.RawRow) (*chat.ToolOutput, error) {
	raw := string(r.Content)
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsObject() {
		return nil, fmt.Errorf("function result %s is not a JSON object", r.ID)
	}

	out := &chat.ToolOutput{
		Type:      chat.FunctionUnknown,
		Data:      json.RawMessage(raw),
		Timestamp: r.Timestamp(),
	}

	switch {
	case gjson.Get(raw, "results").IsArray():
		out.Type = chat.FunctionWebSearch
		out.Query = gjson.Get(raw, "query").String()
	case gjson.Get(raw, "topics").IsArray():
		out.Type = chat.FunctionHotTopics
	}

	return out, nil
}
