package ingest_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/ingest"
	"github.com/papercomputeco/turntable/pkg/poller"
)

// fakeClient hands out one file id per path and replays a scripted status
// sequence per id; the last status repeats.
type fakeClient struct {
	mu        sync.Mutex
	uploadErr error
	ids       []string
	script    map[string][]chat.FileProcessingStatus
	calls     map[string]int
	block     chan struct{}
}

func (f *fakeClient) UploadFiles(_ context.Context, _ string, _ []string) ([]string, error) {
	return f.ids, f.uploadErr
}

func (f *fakeClient) FileStatus(ctx context.Context, id string) (*chat.FileStatus, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	seq := f.script[id]
	n := f.calls[id]
	f.calls[id]++
	if n >= len(seq) {
		n = len(seq) - 1
	}
	return &chat.FileStatus{ID: id, Status: seq[n]}, nil
}

var fast = poller.Config{
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
	MaxRetries:      5,
}

var _ = Describe("Files", func() {
	var client *fakeClient

	BeforeEach(func() {
		client = &fakeClient{
			ids: []string{"f1", "f2"},
			script: map[string][]chat.FileProcessingStatus{
				"f1": {chat.FilePending, chat.FileParsing, chat.FileProcessed},
				"f2": {chat.FileParsing, chat.FileError},
			},
			calls: map[string]int{},
		}
	})

	It("waits for every file and reports outcomes in upload order", func() {
		var mu sync.Mutex
		var seen []poller.StatusUpdate

		out, err := ingest.Files(context.Background(), client, "c1", []string{"a.pdf", "b.txt"}, ingest.Options{
			Poller: fast,
			OnStatus: func(u poller.StatusUpdate) {
				mu.Lock()
				seen = append(seen, u)
				mu.Unlock()
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]ingest.Outcome{
			{FileID: "f1", Path: "a.pdf", Status: chat.FileProcessed},
			{FileID: "f2", Path: "b.txt", Status: chat.FileError},
		}))
		Expect(ingest.ProcessedIDs(out)).To(Equal([]string{"f1"}))

		mu.Lock()
		defer mu.Unlock()
		Expect(seen).To(HaveLen(5))
		for _, u := range seen {
			Expect(u.ConversationID).To(Equal("c1"))
		}
	})

	It("reports a timeout when a file never settles", func() {
		client.ids = []string{"f1"}
		client.script["f1"] = []chat.FileProcessingStatus{chat.FilePending}

		out, err := ingest.Files(context.Background(), client, "c1", []string{"a.pdf"}, ingest.Options{Poller: fast})
		Expect(err).NotTo(HaveOccurred())
		Expect(out[0].Status).To(Equal(chat.FileError))
		Expect(out[0].ErrorMessage).To(Equal("file processing timed out"))
		Expect(out[0].Processed()).To(BeFalse())
	})

	It("returns upload failures without polling", func() {
		client.uploadErr = errors.New("413 too large")

		_, err := ingest.Files(context.Background(), client, "c1", []string{"a.pdf"}, ingest.Options{Poller: fast})
		Expect(err).To(MatchError(ContainSubstring("413 too large")))
		Expect(client.calls).To(BeEmpty())
	})

	It("requires a conversation", func() {
		_, err := ingest.Files(context.Background(), client, "", []string{"a.pdf"}, ingest.Options{})
		Expect(err).To(MatchError("uploading files requires a conversation id"))
	})

	It("does nothing for an empty path list", func() {
		out, err := ingest.Files(context.Background(), client, "c1", nil, ingest.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeNil())
	})

	It("stops polling when the context is cancelled", func() {
		client.block = make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		var out []ingest.Outcome
		var err error
		go func() {
			defer close(done)
			out, err = ingest.Files(ctx, client, "c1", []string{"a.pdf", "b.txt"}, ingest.Options{Poller: fast})
		}()

		cancel()
		Eventually(done).Should(BeClosed())
		Expect(err).To(MatchError(context.Canceled))
		Expect(out).To(HaveLen(2))
		Expect(out[0].Status).To(Equal(chat.FilePending))
	})
})
