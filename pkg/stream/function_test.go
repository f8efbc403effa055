package stream

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("function payloads", func() {
	DescribeTable("functionResult rejects unusable payloads",
		func(raw string, want error) {
			_, _, err := functionResult(json.RawMessage(raw))
			Expect(err).To(MatchError(want))
		},
		Entry("empty", ``, errEmptyPayload),
		Entry("null", `null`, errEmptyPayload),
		Entry("broken string", `"{not json"`, errNotObject),
		Entry("array", `[1,2]`, errNotObject),
		Entry("no function type", `{"result":{}}`, errMissingType),
		Entry("numeric function type", `{"function_type":3,"result":{}}`, errMissingType),
		Entry("no result", `{"function_type":"web_search"}`, errMissingResult),
		Entry("result string not JSON", `{"function_type":"web_search","result":"nope"}`, errResultNotJSONText),
	)

	It("unwraps a doubly encoded payload", func() {
		raw := `"{\"function_type\":\"web_search\",\"result\":\"{\\\"query\\\":\\\"q\\\"}\"}"`
		ft, data, err := functionResult(json.RawMessage(raw))
		Expect(err).NotTo(HaveOccurred())
		Expect(ft).To(Equal("web_search"))
		Expect(searchQuery(ft, data)).To(Equal("q"))
	})

	It("only reads a query for web searches", func() {
		Expect(searchQuery("hot_topics", json.RawMessage(`{"query":"q"}`))).To(BeEmpty())
	})

	It("reads status from content_direct objects", func() {
		status, ft := stepStatus(&Event{
			Type:    KindContentDirect,
			Content: json.RawMessage(`{"function_type":"hot_topics","status":"Fetching topics"}`),
		})
		Expect(status).To(Equal("Fetching topics"))
		Expect(ft).To(Equal("hot_topics"))
	})
})
