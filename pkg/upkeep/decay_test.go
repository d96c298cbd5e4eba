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

var _ = Describe("Decay", func() {
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

	create := func(recType memory.Type, content string, importance float64) memory.Record {
		rec, err := driver.Create(ctx, memory.Draft{
			Type:       recType,
			Content:    content,
			Importance: f64(importance),
		})
		Expect(err).NotTo(HaveOccurred())
		return rec
	}

	It("removes stale low-importance records and nothing else", func() {
		stale := create(memory.TypeFact, "old trivia", 2)
		keeper := create(memory.TypeFact, "old but important", 8)
		milestone := create(memory.TypeMilestone, "first anniversary", 2)
		request := create(memory.TypeRequest, "remind me to stretch", 2)
		clock.Advance(40 * 24 * time.Hour)
		fresh := create(memory.TypeFact, "fresh trivia", 2)

		res, err := upkeep.Decay(ctx, driver, upkeep.DecayOptions{Clock: clock.Now})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Scanned).To(Equal(5))
		Expect(res.Removed).To(Equal(1))

		_, found, err := driver.Get(ctx, stale.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())

		for _, id := range []string{keeper.ID, milestone.ID, request.ID, fresh.ID} {
			_, found, err := driver.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		}
	})

	It("honors the importance cutoff inclusively", func() {
		atCutoff := create(memory.TypeFact, "at the cutoff", 3)
		above := create(memory.TypeFact, "just above", 4)
		clock.Advance(40 * 24 * time.Hour)

		res, err := upkeep.Decay(ctx, driver, upkeep.DecayOptions{Clock: clock.Now})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Removed).To(Equal(1))

		_, found, err := driver.Get(ctx, atCutoff.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())

		_, found, err = driver.Get(ctx, above.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
	})

	It("measures staleness against last access, not creation", func() {
		rec := create(memory.TypeFact, "kept alive by reads", 2)
		clock.Advance(25 * 24 * time.Hour)
		_, _, err := driver.Get(ctx, rec.ID)
		Expect(err).NotTo(HaveOccurred())
		clock.Advance(25 * 24 * time.Hour)

		res, err := upkeep.Decay(ctx, driver, upkeep.DecayOptions{Clock: clock.Now})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Removed).To(BeZero())
	})

	It("does not count the scan as an access", func() {
		created := create(memory.TypeFact, "untouched by decay", 8)
		clock.Advance(40 * 24 * time.Hour)

		_, err := upkeep.Decay(ctx, driver, upkeep.DecayOptions{Clock: clock.Now})
		Expect(err).NotTo(HaveOccurred())

		got, found, err := driver.Get(ctx, created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(got.AccessCount).To(Equal(1))
		Expect(got.LastAccessedAt).To(Equal(created.LastAccessedAt))
	})

	It("respects a custom age window", func() {
		create(memory.TypeFact, "a week old", 2)
		clock.Advance(7 * 24 * time.Hour)

		res, err := upkeep.Decay(ctx, driver, upkeep.DecayOptions{
			MaxAge: 3 * 24 * time.Hour,
			Clock:  clock.Now,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Removed).To(Equal(1))
	})
})
