// Package sse reads the line-oriented, field-prefixed record stream the chat
// backend answers with. It follows the Server-Sent Events framing rules but
// is purpose-built for consuming one response body: there is no writer,
// reconnection or retry support.
//
// See https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "strings"

// Event is one record block, delimited by a blank line in the stream.
type Event struct {
	// Type comes from the "event:" field. Empty means the default "message".
	Type string

	// Data holds every "data:" line of the block joined with "\n".
	Data string

	// ID is the last "id:" field seen in the block.
	ID string

	// Dropped counts data lines left out of Data for exceeding the
	// reader's line size limit.
	Dropped int
}

// Records splits Data back into its individual data lines. The chat backend
// sends one JSON record per data line, so callers decode each entry on its
// own rather than the joined payload.
func (e *Event) Records() []string {
	if e == nil || e.Data == "" {
		return nil
	}
	return strings.Split(e.Data, "\n")
}
