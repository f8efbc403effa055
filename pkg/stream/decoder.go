package stream

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/papercomputeco/turntable/pkg/logger"
	"github.com/papercomputeco/turntable/pkg/sse"
	"github.com/papercomputeco/turntable/pkg/utils"
)

// Decoder yields typed Events from a response body. Records that fail to
// parse or exceed the line size limit are logged and skipped; they never
// end the stream.
type Decoder struct {
	reader *sse.Reader
	logger *slog.Logger

	queue     []string
	malformed int
}

// NewDecoder returns a Decoder reading from src.
func NewDecoder(src io.Reader, l *slog.Logger, opts ...sse.ReaderOption) *Decoder {
	if l == nil {
		l = logger.Nop()
	}
	return &Decoder{
		reader: sse.NewReader(src, opts...),
		logger: l,
	}
}

// Next returns the next well-formed Event, or nil, nil at end of stream.
// Read errors from the underlying source are returned as-is.
func (d *Decoder) Next() (*Event, error) {
	for {
		if len(d.queue) == 0 {
			block, err := d.reader.Next()
			if err != nil {
				return nil, err
			}
			if block == nil {
				return nil, nil
			}
			if block.Dropped > 0 {
				d.malformed += block.Dropped
				d.logger.Warn("skipping oversized stream records", "count", block.Dropped)
			}
			d.queue = block.Records()
			continue
		}

		record := strings.TrimSpace(d.queue[0])
		d.queue = d.queue[1:]
		if record == "" {
			continue
		}

		ev := &Event{}
		if err := json.Unmarshal([]byte(record), ev); err != nil {
			d.malformed++
			d.logger.Warn("skipping malformed stream record",
				"error", err,
				"record", utils.Truncate(record, 200),
			)
			continue
		}

		return ev, nil
	}
}

// Malformed is the number of records skipped so far.
func (d *Decoder) Malformed() int {
	return d.malformed
}
