package stream

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/sse"
)

type failingSource struct{}

func (failingSource) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func drain(d *Decoder) []*Event {
	var events []*Event
	for {
		ev, err := d.Next()
		Expect(err).NotTo(HaveOccurred())
		if ev == nil {
			return events
		}
		events = append(events, ev)
	}
}

var _ = Describe("Decoder", func() {
	It("decodes each data line of a block as its own record", func() {
		body := "data: {\"type\":\"answering_start\"}\n" +
			"data: {\"type\":\"answering_content\",\"content\":\"hi\"}\n\n"

		events := drain(NewDecoder(strings.NewReader(body), nil))
		Expect(events).To(HaveLen(2))
		Expect(events[0].Type).To(Equal(KindAnsweringStart))
		Expect(events[1].Type).To(Equal(KindAnsweringContent))

		text, ok := events[1].Text()
		Expect(ok).To(BeTrue())
		Expect(text).To(Equal("hi"))
	})

	It("skips malformed records and counts them", func() {
		body := frame(`{"type":`, `{"type":"done"}`)

		d := NewDecoder(strings.NewReader(body), nil)
		events := drain(d)
		Expect(events).To(HaveLen(1))
		Expect(events[0].Type).To(Equal(KindDone))
		Expect(d.Malformed()).To(Equal(1))
	})

	It("skips a record over the line size limit", func() {
		body := frame(`{"type":"function_result","content":{"result":"`+strings.Repeat("z", 512)+`"}}`, `{"type":"done"}`)

		d := NewDecoder(strings.NewReader(body), nil, sse.WithMaxLineSize(128))
		events := drain(d)
		Expect(events).To(HaveLen(1))
		Expect(events[0].Type).To(Equal(KindDone))
		Expect(d.Malformed()).To(Equal(1))
	})

	It("ignores comments and blank records", func() {
		body := ": keep-alive\n\ndata: \n\n" + frame(`{"type":"done"}`)

		events := drain(NewDecoder(strings.NewReader(body), nil))
		Expect(events).To(HaveLen(1))
	})

	It("reads the conversation id and reasoning override", func() {
		body := frame(`{"type":"reasoning_end","conversation_id":42,"reasoning":"full"}`)

		events := drain(NewDecoder(strings.NewReader(body), nil))
		Expect(events).To(HaveLen(1))
		Expect(events[0].ConversationID).To(Equal(chat.ID("42")))
		Expect(events[0].Reasoning).NotTo(BeNil())
		Expect(*events[0].Reasoning).To(Equal("full"))
	})

	It("does not report object content as text", func() {
		ev := &Event{Type: KindFunctionResult, Content: []byte(`{"a":1}`)}
		_, ok := ev.Text()
		Expect(ok).To(BeFalse())
	})

	It("returns read errors from the source", func() {
		_, err := NewDecoder(failingSource{}, nil).Next()
		Expect(err).To(MatchError("connection reset"))
	})
})
