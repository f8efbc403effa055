package stream

import "fmt"

// ServerError is returned when the backend reports a failure in-band through
// an "error" event. The turn is failed as a whole.
type ServerError struct {
	ConversationID string
	Message        string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return "backend reported an error"
	}
	return "backend reported an error: " + e.Message
}

// FunctionResultError describes a function_result payload that could not be
// parsed. It is recorded on the turn and reported on the side channel; it
// does not stop the stream.
type FunctionResultError struct {
	Token          string
	ConversationID string
	Raw            string
	Err            error
}

func (e *FunctionResultError) Error() string {
	return fmt.Sprintf("malformed function result in conversation %q: %v", e.ConversationID, e.Err)
}

func (e *FunctionResultError) Unwrap() error {
	return e.Err
}
