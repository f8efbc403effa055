package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/turntable/pkg/eventstream"
	"github.com/papercomputeco/turntable/pkg/eventstream/kafka"
	"github.com/papercomputeco/turntable/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	// Publisher is one of "nop" or "kafka".
	Publisher string
	Brokers   []string
	Topic     string
	ClientID  string
	Logger    *slog.Logger
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.Publisher {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(&kafka.Config{
			Brokers:  o.Brokers,
			Topic:    o.Topic,
			ClientID: o.ClientID,
			Logger:   o.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported event publisher: %s", o.Publisher)
	}
}
