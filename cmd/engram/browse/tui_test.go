package browsecmder

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
)

var _ = Describe("Browse TUI helpers", func() {
	var records []memory.Record

	BeforeEach(func() {
		base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		records = []memory.Record{
			{
				ID:          "r1",
				Type:        memory.TypeFact,
				Content:     "Maya lives in Portland",
				RelatedUser: "maya",
				Tags:        []string{"home"},
				Importance:  3,
				AccessCount: 5,
				CreatedAt:   base.Add(1 * time.Second),
			},
			{
				ID:          "r2",
				Type:        memory.TypePreference,
				Content:     "loves fresh sourdough bread",
				RelatedUser: "maya",
				Tags:        []string{"food"},
				Importance:  9,
				AccessCount: 1,
				CreatedAt:   base.Add(2 * time.Second),
			},
			{
				ID:          "r3",
				Type:        memory.TypeEvent,
				Content:     "went hiking at Forest Park",
				Context:     "sunny weekend",
				RelatedUser: "theo",
				Importance:  3,
				AccessCount: 5,
				CreatedAt:   base.Add(3 * time.Second),
			},
		}
	})

	Describe("filterRecords", func() {
		It("returns everything when no filters are set", func() {
			Expect(filterRecords(records, "", "", "")).To(HaveLen(3))
		})

		It("filters by type", func() {
			out := filterRecords(records, memory.TypeFact, "", "")
			Expect(out).To(HaveLen(1))
			Expect(out[0].ID).To(Equal("r1"))
		})

		It("filters by related user case-insensitively", func() {
			out := filterRecords(records, "", "Maya", "")
			Expect(out).To(HaveLen(2))
		})

		It("matches text against content", func() {
			out := filterRecords(records, "", "", "BREAD")
			Expect(out).To(HaveLen(1))
			Expect(out[0].ID).To(Equal("r2"))
		})

		It("matches text against context", func() {
			out := filterRecords(records, "", "", "sunny")
			Expect(out).To(HaveLen(1))
			Expect(out[0].ID).To(Equal("r3"))
		})

		It("matches text against tags", func() {
			out := filterRecords(records, "", "", "food")
			Expect(out).To(HaveLen(1))
			Expect(out[0].ID).To(Equal("r2"))
		})

		It("matches text against the related user", func() {
			out := filterRecords(records, "", "", "theo")
			Expect(out).To(HaveLen(1))
			Expect(out[0].ID).To(Equal("r3"))
		})

		It("combines type and text filters", func() {
			Expect(filterRecords(records, memory.TypeFact, "", "bread")).To(BeEmpty())
		})
	})

	Describe("sortRecords", func() {
		It("sorts newest first by default", func() {
			out := sortRecords(records, "recent")
			Expect(out[0].ID).To(Equal("r3"))
			Expect(out[1].ID).To(Equal("r2"))
			Expect(out[2].ID).To(Equal("r1"))
		})

		It("sorts by importance with recency breaking ties", func() {
			out := sortRecords(records, "importance")
			Expect(out[0].ID).To(Equal("r2"))
			Expect(out[1].ID).To(Equal("r3"))
			Expect(out[2].ID).To(Equal("r1"))
		})

		It("sorts by access count with recency breaking ties", func() {
			out := sortRecords(records, "accessed")
			Expect(out[0].ID).To(Equal("r3"))
			Expect(out[1].ID).To(Equal("r1"))
			Expect(out[2].ID).To(Equal("r2"))
		})

		It("leaves the input untouched", func() {
			sortRecords(records, "importance")
			Expect(records[0].ID).To(Equal("r1"))
		})
	})

	Describe("visible", func() {
		It("applies the starting type filter", func() {
			model := newBrowseModel(nil, records, memory.TypePreference, "")
			out := model.visible()
			Expect(out).To(HaveLen(1))
			Expect(out[0].ID).To(Equal("r2"))
		})

		It("applies the text filter on top of the user filter", func() {
			model := newBrowseModel(nil, records, "", "maya")
			model.filter = "bread"
			out := model.visible()
			Expect(out).To(HaveLen(1))
			Expect(out[0].ID).To(Equal("r2"))
		})
	})

	Describe("dropRecord", func() {
		It("removes the matching record and keeps order", func() {
			out := dropRecord(records, "r2")
			Expect(out).To(HaveLen(2))
			Expect(out[0].ID).To(Equal("r1"))
			Expect(out[1].ID).To(Equal("r3"))
		})

		It("returns everything when the id is unknown", func() {
			Expect(dropRecord(records, "nope")).To(HaveLen(3))
		})
	})

	Describe("visibleRange", func() {
		It("shows everything when it fits", func() {
			start, end := visibleRange(3, 0, 5)
			Expect(start).To(Equal(0))
			Expect(end).To(Equal(3))
		})

		It("centers the window on the cursor", func() {
			start, end := visibleRange(20, 10, 5)
			Expect(start).To(Equal(8))
			Expect(end).To(Equal(13))
		})

		It("clamps to the start", func() {
			start, end := visibleRange(20, 0, 5)
			Expect(start).To(Equal(0))
			Expect(end).To(Equal(5))
		})

		It("clamps to the end", func() {
			start, end := visibleRange(20, 19, 5)
			Expect(start).To(Equal(15))
			Expect(end).To(Equal(20))
		})

		It("returns an empty window for zero sizes", func() {
			start, end := visibleRange(0, 0, 5)
			Expect(start).To(Equal(0))
			Expect(end).To(Equal(0))
		})
	})

	Describe("formatAge", func() {
		It("treats zero times as now", func() {
			Expect(formatAge(time.Time{})).To(Equal("now"))
		})

		It("renders minutes, hours, days, weeks, and years", func() {
			now := time.Now()
			Expect(formatAge(now.Add(-30 * time.Second))).To(Equal("now"))
			Expect(formatAge(now.Add(-5 * time.Minute))).To(Equal("5m"))
			Expect(formatAge(now.Add(-3 * time.Hour))).To(Equal("3h"))
			Expect(formatAge(now.Add(-48 * time.Hour))).To(Equal("2d"))
			Expect(formatAge(now.Add(-21 * 24 * time.Hour))).To(Equal("3w"))
			Expect(formatAge(now.Add(-2 * 365 * 24 * time.Hour))).To(Equal("2y"))
		})
	})

	Describe("formatWeight", func() {
		It("signs positive weights", func() {
			Expect(formatWeight(2)).To(Equal("+2"))
			Expect(formatWeight(-3)).To(Equal("-3"))
			Expect(formatWeight(0)).To(Equal("0"))
		})
	})

	Describe("truncateText", func() {
		It("passes short values through", func() {
			Expect(truncateText("short", 10)).To(Equal("short"))
		})

		It("truncates with an ellipsis", func() {
			Expect(truncateText("memories", 5)).To(Equal("me..."))
		})

		It("hard-cuts when there is no room for the ellipsis", func() {
			Expect(truncateText("abcdef", 3)).To(Equal("abc"))
		})
	})

	Describe("wrapText", func() {
		It("wraps on word boundaries", func() {
			Expect(wrapText("one two three four", 9)).To(Equal([]string{"one two", "three", "four"}))
		})

		It("returns a single blank line for empty text", func() {
			Expect(wrapText("", 10)).To(Equal([]string{""}))
		})
	})

	Describe("renderBar", func() {
		It("fills proportionally", func() {
			Expect(renderBar(5, 10, 10)).To(Equal("█████░░░░░"))
		})

		It("clamps past the ceiling", func() {
			Expect(renderBar(12, 10, 4)).To(Equal("████"))
		})

		It("renders empty at zero", func() {
			Expect(renderBar(0, 10, 4)).To(Equal("░░░░"))
		})
	})
})
