package upkeep_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/inmemory"
	"github.com/papercomputeco/engram/pkg/upkeep"
)

var _ = Describe("Similarity", func() {
	It("scores identical content as 1", func() {
		Expect(upkeep.Similarity("loves hiking trails", "loves hiking trails")).To(Equal(1.0))
	})

	It("scores near-duplicates by shared significant words", func() {
		Expect(upkeep.Similarity("I love pizza", "I really love pizza")).To(BeNumerically("~", 0.8, 1e-12))
	})

	It("scores disjoint content as 0", func() {
		Expect(upkeep.Similarity("loves hiking trails", "prefers quiet evenings")).To(BeZero())
	})

	It("ignores case and punctuation", func() {
		Expect(upkeep.Similarity("Loves PIZZA!!!", "loves pizza")).To(Equal(1.0))
	})

	It("ignores words of two characters or fewer", func() {
		Expect(upkeep.Similarity("go far away", "be far away")).To(Equal(1.0))
	})

	It("treats two contentless texts as identical", func() {
		Expect(upkeep.Similarity("!!", "a an")).To(Equal(1.0))
	})

	It("treats one contentless text as unrelated", func() {
		Expect(upkeep.Similarity("", "loves pizza")).To(BeZero())
	})
})

var _ = Describe("Dedup", func() {
	var (
		ctx    context.Context
		clock  *fakeClock
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
		driver = inmemory.NewDriver(inmemory.WithClock(clock.Now))
	})

	AfterEach(func() {
		driver.Close()
	})

	create := func(content string, importance float64, tags ...string) memory.Record {
		rec, err := driver.Create(ctx, memory.Draft{
			Type:       memory.TypeFact,
			Content:    content,
			Importance: f64(importance),
			Tags:       tags,
		})
		Expect(err).NotTo(HaveOccurred())
		clock.Advance(time.Minute)
		return rec
	}

	It("deletes the later record on an importance tie and unions its tags", func() {
		original := create("I love pizza", 5, "food")
		duplicate := create("I really love pizza", 5, "food", "italian")

		res, err := upkeep.Dedup(ctx, driver, upkeep.DedupOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Scanned).To(Equal(2))
		Expect(res.Removed).To(Equal(1))

		_, found, err := driver.Get(ctx, duplicate.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())

		survivor, found, err := driver.Get(ctx, original.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(survivor.Tags).To(Equal([]string{"food", "italian"}))
	})

	It("keeps the more important record regardless of age", func() {
		weak := create("loves hiking trails", 3)
		strong := create("loves hiking trails", 7)

		res, err := upkeep.Dedup(ctx, driver, upkeep.DedupOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Removed).To(Equal(1))

		_, found, err := driver.Get(ctx, weak.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())

		_, found, err = driver.Get(ctx, strong.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
	})

	It("collapses a cluster of duplicates onto one survivor", func() {
		first := create("drinks oat milk lattes", 5)
		create("drinks oat milk lattes", 5)
		create("drinks oat milk lattes", 5)

		res, err := upkeep.Dedup(ctx, driver, upkeep.DedupOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Removed).To(Equal(2))

		remaining, err := driver.All(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(remaining).To(HaveLen(1))
		Expect(remaining[0].ID).To(Equal(first.ID))
	})

	It("leaves distinct records alone", func() {
		create("loves hiking trails", 5)
		create("prefers quiet evenings", 5)

		res, err := upkeep.Dedup(ctx, driver, upkeep.DedupOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Removed).To(BeZero())
	})

	It("honors a stricter threshold", func() {
		create("I love pizza", 5)
		create("I really love pizza", 5)

		res, err := upkeep.Dedup(ctx, driver, upkeep.DedupOptions{Threshold: 0.9})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Removed).To(BeZero())
	})

	It("does not count the scan as an access", func() {
		created := create("loves hiking trails", 5)
		create("prefers quiet evenings", 5)

		_, err := upkeep.Dedup(ctx, driver, upkeep.DedupOptions{})
		Expect(err).NotTo(HaveOccurred())

		got, found, err := driver.Get(ctx, created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(got.AccessCount).To(Equal(1))
		Expect(got.LastAccessedAt).To(Equal(created.LastAccessedAt))
	})
})

var _ = Describe("FindDuplicates", func() {
	var (
		ctx    context.Context
		clock  *fakeClock
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
		driver = inmemory.NewDriver(inmemory.WithClock(clock.Now))
	})

	AfterEach(func() {
		driver.Close()
	})

	It("reports candidate pairs without touching the store", func() {
		first, err := driver.Create(ctx, memory.Draft{Type: memory.TypeFact, Content: "I love pizza"})
		Expect(err).NotTo(HaveOccurred())
		clock.Advance(time.Minute)
		second, err := driver.Create(ctx, memory.Draft{Type: memory.TypeFact, Content: "I really love pizza"})
		Expect(err).NotTo(HaveOccurred())

		pairs, err := upkeep.FindDuplicates(ctx, driver, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(pairs).To(HaveLen(1))
		Expect(pairs[0].A.ID).To(Equal(first.ID))
		Expect(pairs[0].B.ID).To(Equal(second.ID))
		Expect(pairs[0].Score).To(BeNumerically("~", 0.8, 1e-12))

		remaining, err := driver.All(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(remaining).To(HaveLen(2))
	})
})
