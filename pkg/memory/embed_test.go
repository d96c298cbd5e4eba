package memory_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/inmemory"
)

// stubEmbedder returns a fixed vector or a fixed error.
type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) Close() error { return nil }

var _ = Describe("CreateWithEmbedding", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	AfterEach(func() {
		driver.Close()
	})

	It("attaches the vector when embedding succeeds", func() {
		emb := &stubEmbedder{vec: []float32{0.5, 0.5}}

		rec, err := memory.CreateWithEmbedding(ctx, driver, memory.Draft{
			Type:    memory.TypeFact,
			Content: "vectorized",
		}, emb)
		Expect(err).NotTo(HaveOccurred())
		Expect(emb.calls).To(Equal(1))
		Expect(rec.Embedding).To(Equal([]float32{0.5, 0.5}))
	})

	It("still creates the record when embedding fails", func() {
		emb := &stubEmbedder{err: errors.New("model offline")}

		rec, err := memory.CreateWithEmbedding(ctx, driver, memory.Draft{
			Type:    memory.TypeFact,
			Content: "kept anyway",
		}, emb)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Embedding).To(BeNil())

		stored, ok, err := driver.Get(ctx, rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(stored.Content).To(Equal("kept anyway"))
	})

	It("creates without a vector when no embedder is given", func() {
		rec, err := memory.CreateWithEmbedding(ctx, driver, memory.Draft{
			Type:    memory.TypeFact,
			Content: "no embedder",
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Embedding).To(BeNil())
	})
})
