package reconcile_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/reconcile"
)

func decodeRows(raw string) []chat.RawRow {
	var rows []chat.RawRow
	Expect(json.Unmarshal([]byte(raw), &rows)).To(Succeed())
	return rows
}

var _ = Describe("Rows", func() {
	It("merges a function call and its answer into one assistant message", func() {
		rows := decodeRows(`[
			{"id":1,"turn_id":1,"role":"user","content":"q"},
			{"id":2,"turn_id":1,"type":"function_call","content":"call"},
			{"id":3,"turn_id":1,"type":"assistant_content","content":"ans"}
		]`)

		msgs := reconcile.Messages(rows)
		Expect(msgs).To(HaveLen(2))

		Expect(msgs[0].Role).To(Equal(chat.RoleUser))
		Expect(msgs[0].Content).To(Equal("q"))

		Expect(msgs[1].Role).To(Equal(chat.RoleAssistant))
		Expect(msgs[1].Content).To(Equal("call\n\nans"))
		Expect(msgs[1].ID).To(Equal(chat.ID("3")))
		Expect(msgs[1].TurnID).To(Equal(chat.ID("1")))
		Expect(msgs[1].IsReasoningVisible).To(BeFalse())
	})

	It("takes the id and timestamp from the function call when there is no answer", func() {
		rows := decodeRows(`[
			{"id":"u","turn_id":"t","role":"user","content":"q","created_at":"2024-05-01 10:00:00"},
			{"id":"fc","turn_id":"t","role":"assistant","type":"function_call","content":"{\"name\":\"web_search\"}","created_at":"2024-05-01 10:00:02"}
		]`)

		msgs := reconcile.Messages(rows)
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[1].ID).To(Equal(chat.ID("fc")))
		Expect(msgs[1].Content).To(Equal(`{"name":"web_search"}`))
		Expect(msgs[1].Timestamp).To(Equal(int64(1714557602000)))
	})

	It("attaches reasoning and duration to the assistant message", func() {
		rows := decodeRows(`[
			{"id":1,"turn_id":9,"role":"user","content":"why"},
			{"id":2,"turn_id":9,"role":"assistant","type":"reasoning_content","content":"thinking","duration":2.5},
			{"id":3,"turn_id":9,"role":"assistant","type":"assistant_content","content":"because"}
		]`)

		msgs := reconcile.Messages(rows)
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[1].Reasoning).To(HaveValue(Equal("thinking")))
		Expect(msgs[1].Duration).To(HaveValue(Equal(2.5)))
	})

	It("maps single-row turns directly and falls back to the row id", func() {
		rows := decodeRows(`[
			{"id":10,"role":"user","content":"hello","created_at":1000},
			{"id":11,"role":"assistant","content":"hi","created_at":2000}
		]`)

		msgs := reconcile.Messages(rows)
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[0].TurnID).To(Equal(chat.ID("10")))
		Expect(msgs[1].TurnID).To(Equal(chat.ID("11")))
		Expect(msgs[1].Timestamp).To(Equal(int64(2000)))
	})

	It("orders by timestamp and puts users first on ties", func() {
		rows := decodeRows(`[
			{"id":1,"turn_id":2,"role":"user","content":"second q","created_at":"2024-05-01T10:05:00Z"},
			{"id":2,"turn_id":2,"type":"assistant_content","content":"second a","created_at":"2024-05-01T10:05:00Z"},
			{"id":3,"turn_id":1,"role":"user","content":"first q","created_at":"2024-05-01T12:00:00+02:00"},
			{"id":4,"turn_id":1,"type":"assistant_content","content":"first a","created_at":"2024-05-01 10:00:01"}
		]`)

		msgs := reconcile.Messages(rows)
		contents := make([]string, 0, len(msgs))
		for _, m := range msgs {
			contents = append(contents, m.Content)
		}
		Expect(contents).To(Equal([]string{"first q", "first a", "second q", "second a"}))
	})

	It("sorts messages with unparsable timestamps first", func() {
		rows := decodeRows(`[
			{"id":1,"role":"user","content":"dated","created_at":"2024-05-01T10:00:00Z"},
			{"id":2,"role":"user","content":"broken","created_at":"yesterday"}
		]`)

		msgs := reconcile.Messages(rows)
		Expect(msgs[0].Content).To(Equal("broken"))
		Expect(msgs[0].Timestamp).To(BeZero())
	})

	It("emits at most one user and one assistant message per turn", func() {
		rows := decodeRows(`[
			{"id":1,"turn_id":1,"role":"user","content":"a"},
			{"id":2,"turn_id":1,"role":"user","content":"b"},
			{"id":3,"turn_id":1,"type":"assistant_content","content":"c"},
			{"id":4,"turn_id":1,"type":"assistant_content","content":"d"},
			{"id":5,"turn_id":1,"type":"reasoning_content","content":"r"}
		]`)

		msgs := reconcile.Messages(rows)
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[0].Content).To(Equal("a"))
		Expect(msgs[1].Content).To(Equal("c"))
	})

	It("drops turns that only hold reasoning or results", func() {
		rows := decodeRows(`[
			{"id":1,"turn_id":1,"type":"reasoning_content","content":"r"},
			{"id":2,"turn_id":1,"type":"function_result","content":{"topics":["x"]}}
		]`)

		res := reconcile.Rows(rows)
		Expect(res.Messages).To(BeEmpty())
		Expect(res.ToolOutput).NotTo(BeNil())
	})

	Describe("tool output", func() {
		It("infers the function type from the result shape", func() {
			rows := decodeRows(`[
				{"id":1,"turn_id":1,"role":"user","content":"news?"},
				{"id":2,"turn_id":1,"type":"function_result","content":"{\"query\":\"news\",\"results\":[{\"title\":\"t\"}]}","created_at":5},
				{"id":3,"turn_id":1,"type":"assistant_content","content":"here"}
			]`)

			res := reconcile.Rows(rows)
			Expect(res.Messages).To(HaveLen(2))
			Expect(res.ToolOutput.Type).To(Equal(chat.FunctionWebSearch))
			Expect(res.ToolOutput.Query).To(Equal("news"))
			Expect(res.ToolOutput.Timestamp).To(Equal(int64(5)))
		})

		It("keeps only the most recent result", func() {
			rows := decodeRows(`[
				{"id":1,"turn_id":1,"role":"user","content":"a"},
				{"id":2,"turn_id":1,"type":"function_result","content":{"topics":[]},"created_at":"2024-05-02T00:00:00Z"},
				{"id":3,"turn_id":2,"role":"user","content":"b"},
				{"id":4,"turn_id":2,"type":"function_result","content":{"other":true},"created_at":"2024-05-01T00:00:00Z"}
			]`)

			res := reconcile.Rows(rows)
			Expect(res.ToolOutput.Type).To(Equal(chat.FunctionHotTopics))
		})

		It("skips results that are not JSON objects", func() {
			rows := decodeRows(`[
				{"id":1,"turn_id":1,"role":"user","content":"a"},
				{"id":2,"turn_id":1,"type":"function_result","content":"{not json"},
				{"id":3,"turn_id":1,"type":"assistant_content","content":"fine"}
			]`)

			res := reconcile.Rows(rows)
			Expect(res.ToolOutput).To(BeNil())
			Expect(res.Malformed).To(Equal([]chat.ID{"2"}))
			Expect(res.Messages).To(HaveLen(2))
		})
	})

	It("is deterministic", func() {
		rows := decodeRows(`[
			{"id":1,"turn_id":1,"role":"user","content":"q","created_at":"2024-05-01 10:00:00"},
			{"id":2,"turn_id":1,"type":"reasoning_content","content":"r","duration":1},
			{"id":3,"turn_id":1,"type":"function_result","content":{"results":[],"query":"x"}},
			{"id":4,"turn_id":1,"type":"assistant_content","content":"a","created_at":"2024-05-01 10:00:00"},
			{"id":5,"role":"system","content":"s","created_at":"2024-05-01 10:00:00"}
		]`)

		first, err := json.Marshal(reconcile.Rows(rows))
		Expect(err).NotTo(HaveOccurred())
		second, err := json.Marshal(reconcile.Rows(rows))
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("never produces more messages than rows or assistants than turns", func() {
		rows := decodeRows(`[
			{"id":1,"turn_id":1,"role":"user","content":"q"},
			{"id":2,"turn_id":1,"type":"function_call","content":"c"},
			{"id":3,"turn_id":2,"role":"user","content":"q2"},
			{"id":4,"turn_id":2,"type":"reasoning_content","content":"r"},
			{"id":5,"turn_id":2,"type":"assistant_content","content":"a2"},
			{"id":6,"role":"assistant","content":"lone"}
		]`)

		msgs := reconcile.Messages(rows)
		Expect(len(msgs)).To(BeNumerically("<=", len(rows)))

		assistants := 0
		for _, m := range msgs {
			if m.Role == chat.RoleAssistant {
				assistants++
			}
		}
		Expect(assistants).To(BeNumerically("<=", 3))
	})
})

var _ = Describe("Conversation", func() {
	It("maps conversation metadata and tool output", func() {
		var sc chat.ServerConversation
		Expect(json.Unmarshal([]byte(`{
			"id":"c1","title":"Weather","model":"m","provider":"p",
			"created_at":"2024-05-01 10:00:00","updated_at":"2024-05-01T10:00:05Z",
			"messages":[
				{"id":1,"turn_id":1,"role":"user","content":"weather?"},
				{"id":2,"turn_id":1,"type":"function_result","content":{"results":[],"query":"weather"}},
				{"id":3,"turn_id":1,"type":"assistant_content","content":"sunny"}
			]
		}`), &sc)).To(Succeed())

		conv := reconcile.Conversation(&sc)
		Expect(conv.ID).To(Equal("c1"))
		Expect(conv.Title).To(Equal("Weather"))
		Expect(conv.CreatedAt).To(Equal(int64(1714557600000)))
		Expect(conv.UpdatedAt).To(Equal(int64(1714557605000)))
		Expect(conv.Messages).To(HaveLen(2))
		Expect(conv.ToolOutput.Query).To(Equal("weather"))
	})
})
