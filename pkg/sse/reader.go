package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

const (
	readBufferSize = 64 * 1024

	// headSize is how much of an oversized line is kept to tell its field.
	headSize = 16

	// DefaultMaxLineSize bounds a single line. Longer lines are skipped.
	DefaultMaxLineSize = 8 * 1024 * 1024
)

// Reader parses record blocks out of a response body. When constructed
// WithTee it also copies every raw byte, verbatim, to a second writer so the
// exact wire bytes can be recorded while events are consumed.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────┐
// │   Reader.Next()  │──▶│ tee io.Writer     │ (optional)
// └──────────────────┘   └───────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Event       │
// └──────────────────┘
type Reader struct {
	src         *bufio.Reader
	tee         io.Writer
	maxLineSize int

	current *Event
	pending bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithTee writes every raw byte read from the source to w.
func WithTee(w io.Writer) ReaderOption {
	return func(r *Reader) {
		r.tee = w
	}
}

// WithMaxLineSize overrides DefaultMaxLineSize.
func WithMaxLineSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxLineSize = n
		}
	}
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:         bufio.NewReaderSize(src, readBufferSize),
		maxLineSize: DefaultMaxLineSize,
		current:     &Event{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next blocks until a complete block has been read and returns it. It
// returns nil, nil once the source is exhausted. A block still open when
// the source ends is returned as if it had been terminated. A data line
// over the size limit is left out of the block and counted in Dropped.
func (r *Reader) Next() (*Event, error) {
	for {
		line, tooLong, err := r.readLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if tooLong {
			if strings.HasPrefix(line, "data") {
				r.current.Dropped++
				r.pending = true
			}
			continue
		}

		if line == "" {
			if r.pending {
				return r.take(), nil
			}
			// Keep-alive or leading blank line.
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		r.field(line)
	}

	if r.pending {
		return r.take(), nil
	}
	return nil, nil
}

// readLine returns the next line without its terminator, or io.EOF when
// the source is exhausted. A line over maxLineSize is still consumed in
// full; only its first bytes are returned, with tooLong set.
func (r *Reader) readLine() (line string, tooLong bool, err error) {
	var (
		buf  []byte
		read bool
	)

	for {
		frag, rerr := r.src.ReadSlice('\n')
		if len(frag) > 0 {
			read = true
			if r.tee != nil {
				if _, werr := r.tee.Write(frag); werr != nil {
					return "", false, werr
				}
			}
			switch {
			case tooLong:
			case len(buf)+len(frag) > r.maxLineSize+len("\r\n"):
				tooLong = true
				head := append(buf, frag[:min(len(frag), headSize)]...)
				buf = head[:min(len(head), headSize)]
			default:
				buf = append(buf, frag...)
			}
		}

		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return "", false, rerr
		}
		if rerr != nil && !read {
			return "", false, io.EOF
		}
		break
	}

	line = strings.TrimSuffix(string(buf), "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, tooLong, nil
}

// field folds one "name:value" line into the open block. A single space
// after the colon is part of the framing, not the value.
func (r *Reader) field(line string) {
	name, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}

	switch name {
	case "data":
		if r.pending && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.pending = true
	case "event":
		r.current.Type = value
		r.pending = true
	case "id":
		r.current.ID = value
		r.pending = true
	}
}

func (r *Reader) take() *Event {
	ev := r.current
	r.current = &Event{}
	r.pending = false
	return ev
}
