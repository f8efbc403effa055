package utils

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseTimestamp", func() {
	utcMillis := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC).UnixMilli()

	It("parses a Z-suffixed timestamp as UTC", func() {
		Expect(ParseTimestamp("2024-05-01T12:30:00Z")).To(Equal(utcMillis))
	})

	It("honors an explicit offset", func() {
		Expect(ParseTimestamp("2024-05-01T20:30:00+08:00")).To(Equal(utcMillis))
		Expect(ParseTimestamp("2024-05-01T07:30:00-05:00")).To(Equal(utcMillis))
	})

	It("treats naive timestamps as UTC", func() {
		Expect(ParseTimestamp("2024-05-01T12:30:00")).To(Equal(utcMillis))
		Expect(ParseTimestamp("2024-05-01 12:30:00")).To(Equal(utcMillis))
	})

	It("keeps fractional seconds", func() {
		Expect(ParseTimestamp("2024-05-01 12:30:00.250")).To(Equal(utcMillis + 250))
	})

	It("returns numbers as-is", func() {
		Expect(ParseTimestamp(int64(1714566600000))).To(Equal(int64(1714566600000)))
		Expect(ParseTimestamp(1714566600000.0)).To(Equal(int64(1714566600000)))
		Expect(ParseTimestamp(json.Number("42"))).To(Equal(int64(42)))
	})

	It("treats a string of digits as a naive timestamp that does not parse", func() {
		Expect(ParseTimestamp("1700000000000")).To(BeZero())
		Expect(ParseTimestamp("42")).To(BeZero())
	})

	It("returns 0 for anything unparsable", func() {
		Expect(ParseTimestamp("yesterday")).To(BeZero())
		Expect(ParseTimestamp("")).To(BeZero())
		Expect(ParseTimestamp(nil)).To(BeZero())
		Expect(ParseTimestamp(true)).To(BeZero())
		Expect(ParseTimestamp(map[string]any{})).To(BeZero())
	})
})
