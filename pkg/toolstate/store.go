// Package toolstate keeps per-conversation tool output state. It is the
// subscriber that applies the stream dispatcher's tool phase events.
package toolstate

import (
	"sync"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/stream"
)

// State is the tool output shown next to a conversation.
type State struct {
	InProgress   bool
	FunctionType string

	// Status is the latest "what is happening now" message.
	Status string
	Step   stream.Kind

	Output *chat.ToolOutput
}

// Store holds State per conversation. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	states map[string]*State
}

var _ stream.ToolPhaseSink = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{states: make(map[string]*State)}
}

// ApplyToolPhase implements stream.ToolPhaseSink.
func (s *Store) ApplyToolPhase(ev stream.ToolPhaseEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Kind == stream.ToolPhaseClear {
		s.states[ev.ConversationID] = &State{InProgress: true, FunctionType: ev.FunctionType}
		return
	}

	st := s.stateLocked(ev.ConversationID)
	switch ev.Kind {
	case stream.ToolPhaseDetected:
		st.InProgress = true
		st.FunctionType = ev.FunctionType
		if ev.Status != "" {
			st.Status = ev.Status
		}
	case stream.ToolPhaseStatus:
		st.InProgress = true
		st.Step = ev.Step
		st.Status = ev.Status
		if ev.FunctionType != "" {
			st.FunctionType = ev.FunctionType
		}
	case stream.ToolPhaseResult, stream.ToolPhaseError:
		st.InProgress = false
		st.Status = ""
		st.Step = ""
		st.FunctionType = ev.FunctionType
		st.Output = copyOutput(ev.Output)
	}
}

// Set replaces the tool output of a conversation, as after loading it from
// the server. A nil output clears it.
func (s *Store) Set(conversationID string, out *chat.ToolOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out == nil {
		delete(s.states, conversationID)
		return
	}
	s.states[conversationID] = &State{FunctionType: out.Type, Output: copyOutput(out)}
}

// Clear forgets a conversation.
func (s *Store) Clear(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, conversationID)
}

// Get returns a copy of the state of a conversation.
func (s *Store) Get(conversationID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[conversationID]
	if !ok {
		return State{}, false
	}
	cp := *st
	cp.Output = copyOutput(st.Output)
	return cp, true
}

func (s *Store) stateLocked(conversationID string) *State {
	st, ok := s.states[conversationID]
	if !ok {
		st = &State{}
		s.states[conversationID] = st
	}
	return st
}

func copyOutput(out *chat.ToolOutput) *chat.ToolOutput {
	if out == nil {
		return nil
	}
	cp := *out
	cp.Data = append([]byte(nil), out.Data...)
	return &cp
}
