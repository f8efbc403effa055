package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/turntable/pkg/dotdir"
)

var _ = Describe("dotdir.Manager session", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-session-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadSession", func() {
		It("returns nil when no session file exists", func() {
			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("loads a session written by hand", func() {
			data := `{"conversation_id":"42","model":"qwen3","updated_at":"2026-01-02T03:04:05Z"}`
			Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(data), 0o600)).To(Succeed())

			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.ConversationID).To(Equal("42"))
			Expect(state.Model).To(Equal("qwen3"))
			Expect(state.UpdatedAt).To(Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
		})

		It("treats a session without a conversation id as absent", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(`{"model":"x"}`), 0o600)).To(Succeed())

			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("returns error for invalid JSON", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("not json"), 0o600)).To(Succeed())

			state, err := m.LoadSession(tmpDir)
			Expect(err).To(MatchError(ContainSubstring("parsing session state")))
			Expect(state).To(BeNil())
		})
	})

	Describe("SaveSession", func() {
		It("round-trips through LoadSession", func() {
			in := &dotdir.SessionState{
				ConversationID: "c-1",
				Provider:       "ollama",
				Title:          "hello",
				UpdatedAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			}
			Expect(m.SaveSession(in, tmpDir)).To(Succeed())

			out, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(in))
		})

		It("rejects nil and anonymous sessions", func() {
			Expect(m.SaveSession(nil, tmpDir)).To(MatchError("cannot save nil session state"))
			Expect(m.SaveSession(&dotdir.SessionState{}, tmpDir)).To(HaveOccurred())
		})
	})

	Describe("ClearSession", func() {
		It("removes a saved session", func() {
			Expect(m.SaveSession(&dotdir.SessionState{ConversationID: "c-1"}, tmpDir)).To(Succeed())
			Expect(m.ClearSession(tmpDir)).To(Succeed())

			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("is a no-op when nothing is saved", func() {
			Expect(m.ClearSession(tmpDir)).To(Succeed())
		})
	})
})
