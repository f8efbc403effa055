package testutils

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/reconcile"
	"github.com/papercomputeco/turntable/pkg/storage"
)

// DescribeDriver registers the behavior every storage.Driver shares.
// newDriver is called before each test and the driver is closed after it.
func DescribeDriver(newDriver func(ctx context.Context) storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver(ctx)
		DeferCleanup(func() {
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("PutRows and Rows", func() {
		It("stores rows in insertion order", func() {
			n, err := driver.PutRows(ctx, "c1", NewTurnRows("t1", "question", "answer", 1000))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			rows, err := driver.Rows(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].Content).To(Equal(chat.Text("question")))
			Expect(rows[1].Type).To(Equal(chat.RowTypeAssistant))
			Expect(rows[1].TurnID).To(Equal(chat.ID("t1")))
			Expect(rows[1].CreatedAt).To(Equal(int64(1001)))
		})

		It("skips rows that are already stored", func() {
			rows := NewTurnRows("t1", "q", "a", 1)
			_, err := driver.PutRows(ctx, "c1", rows)
			Expect(err).NotTo(HaveOccurred())

			n, err := driver.PutRows(ctx, "c1", rows)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			stored, err := driver.Rows(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(2))
		})

		It("normalizes timestamps and keeps durations", func() {
			d := 1.5
			reasoning := NewRow("r", "t1", chat.RoleAssistant, chat.RowTypeReasoning, "hmm", "2024-05-01 10:00:00")
			reasoning.Duration = &d

			_, err := driver.PutRows(ctx, "c1", []chat.RawRow{reasoning})
			Expect(err).NotTo(HaveOccurred())

			rows, err := driver.Rows(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows[0].CreatedAt).To(Equal(int64(1714557600000)))
			Expect(rows[0].Duration).To(HaveValue(Equal(1.5)))
		})

		It("falls back to the row id for the turn id", func() {
			_, err := driver.PutRows(ctx, "c1", []chat.RawRow{NewRow("solo", "", chat.RoleUser, "", "hi", 1)})
			Expect(err).NotTo(HaveOccurred())

			rows, err := driver.Rows(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows[0].TurnID).To(Equal(chat.ID("solo")))
		})

		It("rejects rows without ids", func() {
			_, err := driver.PutRows(ctx, "c1", []chat.RawRow{{Role: chat.RoleUser}})
			Expect(err).To(HaveOccurred())
		})

		It("reports unknown conversations", func() {
			_, err := driver.Rows(ctx, "missing")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})

		It("round-trips through the reconciler", func() {
			rows := NewTurnRows("t1", "q1", "a1", 1000)
			rows = append(rows, NewTurnRows("t2", "q2", "a2", 2000)...)
			_, err := driver.PutRows(ctx, "c1", rows)
			Expect(err).NotTo(HaveOccurred())

			stored, err := driver.Rows(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(reconcile.Messages(stored)).To(Equal(reconcile.Messages(rows)))
		})
	})

	Describe("Conversations", func() {
		It("titles conversations after the first user message", func() {
			_, err := driver.PutRows(ctx, "c1", NewTurnRows("t1", "What is   the weather?", "sunny", 1))
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.PutRows(ctx, "c1", NewTurnRows("t2", "And tomorrow?", "rain", 2))
			Expect(err).NotTo(HaveOccurred())

			list, err := driver.Conversations(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal("c1"))
			Expect(list[0].Title).To(Equal("What is the weather?"))
		})
	})

	Describe("DeleteConversation", func() {
		It("removes the conversation and its rows", func() {
			_, err := driver.PutRows(ctx, "c1", NewTurnRows("t1", "q", "a", 1))
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.DeleteConversation(ctx, "c1")).To(Succeed())

			_, err = driver.Rows(ctx, "c1")
			Expect(err).To(MatchError(storage.ErrNotFound))

			list, err := driver.Conversations(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})

		It("reports unknown conversations", func() {
			Expect(driver.DeleteConversation(ctx, "missing")).To(MatchError(storage.ErrNotFound))
		})
	})
}
