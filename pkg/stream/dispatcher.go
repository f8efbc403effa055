package stream

import (
	"io"
	"log/slog"
	"time"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/logger"
)

// Options configures a Dispatcher and Consume.
type Options struct {
	// Token identifies the turn on the caller side. It is echoed on every
	// Progress and ToolPhaseEvent so callers can discard cross-talk.
	Token string

	// ConversationID is the id the stream was opened with. Any
	// conversation_id in the stream supersedes it.
	ConversationID string

	// OnProgress receives a snapshot after every state change.
	OnProgress func(Progress)

	// Sink receives side-channel tool phase events. Optional.
	Sink ToolPhaseSink

	// Tee receives a verbatim copy of the raw stream. Optional.
	Tee io.Writer

	Logger *slog.Logger

	// Clock stamps function results. Defaults to time.Now.
	Clock func() time.Time
}

// Dispatcher folds Events into a LiveTurn. It is owned by a single stream
// and is not safe for concurrent use.
type Dispatcher struct {
	opts   Options
	logger *slog.Logger

	turn           LiveTurn
	conversationID string
	reasoningSeen  bool
	clearedTools   bool
	done           bool
	errs           []error
}

// NewDispatcher returns a Dispatcher for one turn.
func NewDispatcher(opts Options) *Dispatcher {
	l := opts.Logger
	if l == nil {
		l = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Dispatcher{
		opts:           opts,
		logger:         l.With("token", opts.Token),
		conversationID: opts.ConversationID,
	}
}

// Dispatch applies ev. It reports done=true once the turn is finished; any
// later events are ignored. A non-nil error fails the whole turn.
func (d *Dispatcher) Dispatch(ev *Event) (bool, error) {
	if d.done {
		return true, nil
	}

	if ev.ConversationID != "" {
		d.conversationID = string(ev.ConversationID)
	}

	switch ev.Type {
	case KindReasoningContent:
		d.reasoningContent(ev)

	case KindReasoningEnd, KindReasoningComplete:
		d.reasoningEnd(ev)

	case KindAnsweringContent:
		if text, ok := ev.Text(); ok && text != "" {
			d.appendAnswer(text)
		}

	case KindFunctionCallDetected:
		d.functionCallDetected(ev)

	case KindFunctionResult, KindFunctionExecuted:
		d.functionResult(ev)

	case KindDone:
		d.finish()
		return true, nil

	case KindError:
		msg, _ := ev.Text()
		return false, &ServerError{ConversationID: d.conversationID, Message: msg}

	case KindReasoningStart, KindAnsweringStart, KindAnsweringComplete, KindFunctionStreamStart:
		d.logger.Debug("stream phase", "kind", ev.Type)

	default:
		if ev.Type.IsStep() {
			d.step(ev)
			break
		}
		return d.legacy(ev), nil
	}

	return false, nil
}

// Finish ends the turn if no done event was seen, emitting the final
// progress snapshot exactly once.
func (d *Dispatcher) Finish() {
	if !d.done {
		d.finish()
	}
}

// Turn returns a copy of the accumulated turn.
func (d *Dispatcher) Turn() LiveTurn {
	t := d.turn
	if t.FunctionResult != nil {
		fr := *t.FunctionResult
		t.FunctionResult = &fr
	}
	return t
}

// ConversationID is the authoritative conversation id seen so far.
func (d *Dispatcher) ConversationID() string {
	return d.conversationID
}

// Errors returns the recoverable errors recorded during the turn.
func (d *Dispatcher) Errors() []error {
	return append([]error(nil), d.errs...)
}

func (d *Dispatcher) reasoningContent(ev *Event) {
	text, ok := ev.Text()
	if !ok || text == "" {
		return
	}
	if d.turn.ReasoningComplete {
		d.logger.Debug("ignoring reasoning after reasoning phase ended")
		return
	}

	if !d.reasoningSeen {
		d.reasoningSeen = true
		// An empty reasoning snapshot tells the caller the phase has begun.
		d.emitWith("", false)
	}

	d.turn.ReasoningText += text
	d.emit(false)
}

func (d *Dispatcher) reasoningEnd(ev *Event) {
	if d.turn.ReasoningComplete {
		d.logger.Debug("ignoring repeated reasoning terminal event", "kind", ev.Type)
		return
	}

	// The terminal event's full text is authoritative and replaces what was
	// streamed. Without it the streamed text stands.
	if ev.Reasoning != nil {
		d.turn.ReasoningText = *ev.Reasoning
	}
	d.turn.ReasoningComplete = true
	d.emit(false)
}

func (d *Dispatcher) appendAnswer(text string) {
	d.turn.AnswerText += text
	d.emit(false)
}

func (d *Dispatcher) functionCallDetected(ev *Event) {
	functionType, description, err := detectedFunction(ev.Content)
	if err != nil {
		d.logger.Warn("unreadable function call detection", "error", err)
		return
	}

	if chat.ClearsToolOutput(functionType) && !d.clearedTools && d.turn.FunctionResult == nil {
		d.clearedTools = true
		d.side(ToolPhaseEvent{Kind: ToolPhaseClear, FunctionType: functionType})
	}

	if d.turn.ActiveFunctionType == "" {
		d.turn.ActiveFunctionType = functionType
	}

	d.side(ToolPhaseEvent{
		Kind:         ToolPhaseDetected,
		FunctionType: d.turn.ActiveFunctionType,
		Status:       description,
	})
}

func (d *Dispatcher) functionResult(ev *Event) {
	now := d.opts.Clock().UnixMilli()

	functionType, data, err := functionResult(ev.Content)
	if err != nil {
		ferr := &FunctionResultError{
			Token:          d.opts.Token,
			ConversationID: d.conversationID,
			Raw:            string(ev.Content),
			Err:            err,
		}
		d.errs = append(d.errs, ferr)
		d.logger.Warn("malformed function result", "conversation_id", d.conversationID, "error", err)

		failedType := d.turn.ActiveFunctionType
		if failedType == "" {
			failedType = chat.FunctionUnknown
		}
		d.turn.FunctionResult = &chat.ToolOutput{
			Type:      failedType,
			Error:     ferr.Error(),
			Timestamp: now,
		}
		d.side(ToolPhaseEvent{Kind: ToolPhaseError, FunctionType: failedType, Output: d.turn.FunctionResult})
		return
	}

	if d.turn.ActiveFunctionType == "" {
		d.turn.ActiveFunctionType = functionType
	}
	d.turn.FunctionResult = &chat.ToolOutput{
		Type:      functionType,
		Query:     searchQuery(functionType, data),
		Data:      data,
		Timestamp: now,
	}
	d.side(ToolPhaseEvent{Kind: ToolPhaseResult, FunctionType: functionType, Output: d.turn.FunctionResult})
}

func (d *Dispatcher) step(ev *Event) {
	status, functionType := stepStatus(ev)
	if functionType == "" {
		functionType = d.turn.ActiveFunctionType
	}
	d.side(ToolPhaseEvent{
		Kind:         ToolPhaseStatus,
		FunctionType: functionType,
		Step:         ev.Type,
		Status:       status,
	})
}

// legacy handles records from older backends that only carried content:
// "[DONE]" ends the stream, any other string is answer text.
func (d *Dispatcher) legacy(ev *Event) bool {
	text, ok := ev.Text()
	if !ok {
		d.logger.Debug("ignoring unrecognized stream event", "kind", ev.Type)
		return false
	}

	if text == legacyDone {
		d.finish()
		return true
	}

	d.appendAnswer(text)
	return false
}

func (d *Dispatcher) finish() {
	d.done = true
	d.emit(true)
}

func (d *Dispatcher) emit(done bool) {
	reasoning := d.turn.ReasoningText
	if d.turn.ReasoningComplete {
		reasoning += ReasoningCompleteMarker
	}
	d.emitWith(reasoning, done)
}

func (d *Dispatcher) emitWith(reasoning string, done bool) {
	if d.opts.OnProgress == nil {
		return
	}
	d.opts.OnProgress(Progress{
		Token:             d.opts.Token,
		ConversationID:    d.conversationID,
		AnswerText:        d.turn.AnswerText,
		ReasoningText:     reasoning,
		ReasoningComplete: d.turn.ReasoningComplete,
		Done:              done,
	})
}

func (d *Dispatcher) side(ev ToolPhaseEvent) {
	if d.opts.Sink == nil {
		return
	}
	ev.Token = d.opts.Token
	ev.ConversationID = d.conversationID
	d.opts.Sink.ApplyToolPhase(ev)
}
