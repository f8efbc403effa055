package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// failingReader returns its payload and then a transport error.
type failingReader struct {
	payload io.Reader
	err     error
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.payload.Read(p)
	if errors.Is(err, io.EOF) {
		return n, f.err
	}
	return n, err
}

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		It("reads backend records one block at a time", func() {
			input := `data: {"type":"reasoning_content","content":"think"}` + "\n\n" +
				`data: {"type":"answering_content","content":"hi"}` + "\n\n" +
				`data: {"type":"done"}` + "\n\n"
			r := NewReader(strings.NewReader(input))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal(`{"type":"reasoning_content","content":"think"}`))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(ContainSubstring("answering_content"))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal(`{"type":"done"}`))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("captures event and id fields", func() {
			r := NewReader(strings.NewReader("event: turn\nid: 9\ndata: {}\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal("turn"))
			Expect(ev.ID).To(Equal("9"))
			Expect(ev.Data).To(Equal("{}"))
		})

		It("joins several data lines and splits them back as records", func() {
			r := NewReader(strings.NewReader("data: {\"a\":1}\ndata: {\"b\":2}\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("{\"a\":1}\n{\"b\":2}"))
			Expect(ev.Records()).To(Equal([]string{`{"a":1}`, `{"b":2}`}))
		})

		It("skips comments, keep-alives and unknown fields", func() {
			r := NewReader(strings.NewReader(": ping\n\n\nretry: 10\nbogus\ndata: x\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("x"))
		})

		It("accepts data without a space after the colon", func() {
			r := NewReader(strings.NewReader("data:{}\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("{}"))
		})

		It("returns a block left open at end of stream", func() {
			r := NewReader(strings.NewReader(`data: {"type":"done"}`))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal(`{"type":"done"}`))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("returns nil for an empty body", func() {
			ev, err := NewReader(strings.NewReader("")).Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("skips an oversized data line and keeps reading", func() {
			big := "data: " + strings.Repeat("x", 200) + "\n"
			input := big + "\n" + "data: {\"type\":\"done\"}\n\n"
			var recorded bytes.Buffer
			r := NewReader(strings.NewReader(input), WithMaxLineSize(64), WithTee(&recorded))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(BeEmpty())
			Expect(ev.Dropped).To(Equal(1))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal(`{"type":"done"}`))
			Expect(ev.Dropped).To(BeZero())

			Expect(recorded.String()).To(Equal(input))
		})

		It("reads lines longer than the read buffer", func() {
			payload := strings.Repeat("y", 200*1024)
			r := NewReader(strings.NewReader("data: " + payload + "\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal(payload))
		})

		It("strips CRLF line endings", func() {
			r := NewReader(strings.NewReader("data: {}\r\n\r\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("{}"))
		})

		It("surfaces transport errors", func() {
			src := &failingReader{payload: strings.NewReader("data: partial"), err: errors.New("connection reset")}
			r := NewReader(src)

			_, err := r.Next()
			Expect(err).To(MatchError("connection reset"))
		})
	})

	Describe("WithTee", func() {
		It("copies the raw stream verbatim", func() {
			input := ": keep-alive\ndata: {\"type\":\"answering_content\",\"content\":\"a\"}\n\ndata: {\"type\":\"done\"}\n\n"
			var recorded bytes.Buffer
			r := NewReader(strings.NewReader(input), WithTee(&recorded))

			for {
				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				if ev == nil {
					break
				}
			}

			Expect(recorded.String()).To(Equal(input))
		})
	})

	Describe("Records", func() {
		It("is empty for a nil or data-less event", func() {
			var ev *Event
			Expect(ev.Records()).To(BeNil())
			Expect((&Event{Type: "ping"}).Records()).To(BeNil())
		})
	})
})
