package historycmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	historycmder "github.com/papercomputeco/turntable/cmd/turntable/history"
	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/dotdir"
	"github.com/papercomputeco/turntable/pkg/storage/sqlite"
)

const serverConversation = `{
	"id": "c1",
	"title": "Why gophers",
	"model": "qwen3",
	"created_at": "2026-01-01T10:00:00Z",
	"updated_at": "2026-01-01T10:00:02Z",
	"messages": [
		{"id":"u1","turn_id":"t1","role":"user","content":"why gophers","created_at":"2026-01-01T10:00:00Z"},
		{"id":"r1","turn_id":"t1","role":"assistant","type":"reasoning_content","content":"thinking","duration":1.5,"created_at":"2026-01-01T10:00:01Z"},
		{"id":"a1","turn_id":"t1","role":"assistant","type":"assistant_content","content":"Because mascots","created_at":"2026-01-01T10:00:02Z"}
	]
}`

func newCmd(args ...string) (*cobra.Command, *bytes.Buffer) {
	cmd := historycmder.NewHistoryCmd()
	cmd.PersistentFlags().String("config-dir", "", "Override path to .turntable/ config directory")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	return cmd, out
}

var _ = Describe("NewHistoryCmd", func() {
	It("has list and delete subcommands", func() {
		cmd := historycmder.NewHistoryCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("list", "delete"))
		Expect(cmd.Flags().Lookup("local")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("json")).NotTo(BeNil())
	})
})

var _ = Describe("History command execution", func() {
	var (
		srv     *httptest.Server
		dir     string
		mu      sync.Mutex
		deleted []string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		deleted = nil

		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/chat/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("id") != "c1" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"detail":"Conversation not found"}`)
				return
			}
			_, _ = io.WriteString(w, serverConversation)
		})
		mux.HandleFunc("GET /api/chat/conversations", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"conversations":[
				{"id":"c1","title":"Why gophers","updated_at":"2026-01-01T10:00:02Z"},
				{"id":"c2","title":"","updated_at":1767261600000}
			]}`)
		})
		mux.HandleFunc("DELETE /api/chat/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			deleted = append(deleted, r.PathValue("id"))
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		})
		srv = httptest.NewServer(mux)
		DeferCleanup(srv.Close)
	})

	Describe("show", func() {
		It("prints the reconciled conversation as JSON", func() {
			cmd, out := newCmd("--config-dir", dir, "--base-url", srv.URL, "--json", "c1")
			Expect(cmd.Execute()).To(Succeed())

			var conv chat.Conversation
			Expect(json.Unmarshal(out.Bytes(), &conv)).To(Succeed())
			Expect(conv.ID).To(Equal("c1"))
			Expect(conv.Messages).To(HaveLen(2))
			Expect(conv.Messages[1].Content).To(Equal("Because mascots"))
			Expect(conv.Messages[1].Reasoning).To(HaveValue(Equal("thinking")))
			Expect(conv.UpdatedAt).To(Equal(int64(1767261602000)))
		})

		It("defaults to the session conversation", func() {
			Expect(dotdir.NewManager().SaveSession(&dotdir.SessionState{ConversationID: "c1"}, dir)).To(Succeed())

			cmd, out := newCmd("--config-dir", dir, "--base-url", srv.URL)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Why gophers"))
			Expect(out.String()).To(ContainSubstring("mascots"))
		})

		It("errors without an id or a session", func() {
			cmd, _ := newCmd("--config-dir", dir, "--base-url", srv.URL)
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("no conversation id")))
		})

		It("surfaces backend not found errors", func() {
			cmd, _ := newCmd("--config-dir", dir, "--base-url", srv.URL, "missing")
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("Conversation not found")))
		})

		It("reads rows from local storage with --local", func() {
			ctx := context.Background()
			driver, err := sqlite.NewDriver(ctx, filepath.Join(dir, "turntable.sqlite"))
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.PutRows(ctx, "local1", []chat.RawRow{
				{ID: "u", TurnID: "t", Role: chat.RoleUser, Content: "stored question", CreatedAt: int64(1000)},
				{ID: "a", TurnID: "t", Role: chat.RoleAssistant, Type: chat.RowTypeAssistant, Content: "stored answer", CreatedAt: int64(2000)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Close()).To(Succeed())

			cmd, out := newCmd("--config-dir", dir, "--storage", "sqlite", "--local", "--json", "local1")
			Expect(cmd.Execute()).To(Succeed())

			var conv chat.Conversation
			Expect(json.Unmarshal(out.Bytes(), &conv)).To(Succeed())
			Expect(conv.Title).To(Equal("stored question"))
			Expect(conv.Messages).To(HaveLen(2))
			Expect(conv.Messages[1].Content).To(Equal("stored answer"))
			Expect(conv.CreatedAt).To(Equal(int64(1000)))
			Expect(conv.UpdatedAt).To(Equal(int64(2000)))
		})
	})

	Describe("list", func() {
		It("lists backend conversations and marks the session", func() {
			Expect(dotdir.NewManager().SaveSession(&dotdir.SessionState{ConversationID: "c1"}, dir)).To(Succeed())

			cmd, out := newCmd("list", "--config-dir", dir, "--base-url", srv.URL)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("c1"))
			Expect(out.String()).To(ContainSubstring("Why gophers"))
			Expect(out.String()).To(ContainSubstring("c2"))
			Expect(out.String()).To(ContainSubstring("untitled"))
			Expect(out.String()).To(ContainSubstring("●"))
		})

		It("reports an empty local store", func() {
			cmd, out := newCmd("list", "--config-dir", dir, "--storage", "sqlite", "--local")
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No conversations yet."))
		})
	})

	Describe("delete", func() {
		It("deletes on the backend and ends a matching session", func() {
			Expect(dotdir.NewManager().SaveSession(&dotdir.SessionState{ConversationID: "c1"}, dir)).To(Succeed())

			cmd, out := newCmd("delete", "--config-dir", dir, "--base-url", srv.URL, "c1")
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Deleted conversation"))

			mu.Lock()
			Expect(deleted).To(Equal([]string{"c1"}))
			mu.Unlock()

			state, err := dotdir.NewManager().LoadSession(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("fails for a conversation missing from local storage", func() {
			cmd, _ := newCmd("delete", "--config-dir", dir, "--storage", "sqlite", "--local", "nope")
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("conversation not found")))
		})

		It("requires an id", func() {
			cmd, _ := newCmd("delete", "--config-dir", dir)
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})
})
