package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/inmemory"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func f64(v float64) *float64 { return &v }

var _ = Describe("Export", func() {
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
		Expect(driver.Close()).To(Succeed())
	})

	It("writes one record per line in creation order", func() {
		first, err := driver.Create(ctx, memory.Draft{
			Type:    memory.TypePreference,
			Content: "likes rye bread",
		})
		Expect(err).ToNot(HaveOccurred())
		clock.Advance(time.Minute)

		second, err := driver.Create(ctx, memory.Draft{
			Type:    memory.TypeMilestone,
			Content: "shipped the importer",
		})
		Expect(err).ToNot(HaveOccurred())

		var buf bytes.Buffer
		n, err := Export(ctx, driver, &buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(2))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(2))

		var rec memory.Record
		Expect(json.Unmarshal([]byte(lines[0]), &rec)).To(Succeed())
		Expect(rec.ID).To(Equal(first.ID))
		Expect(rec.Content).To(Equal("likes rye bread"))
		Expect(rec.Type).To(Equal(memory.TypePreference))

		Expect(json.Unmarshal([]byte(lines[1]), &rec)).To(Succeed())
		Expect(rec.ID).To(Equal(second.ID))
		Expect(rec.Type).To(Equal(memory.TypeMilestone))
	})

	It("writes nothing for an empty store", func() {
		var buf bytes.Buffer
		n, err := Export(ctx, driver, &buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(BeZero())
		Expect(buf.Len()).To(BeZero())
	})

	It("surfaces store failures", func() {
		Expect(driver.Close()).To(Succeed())
		_, err := Export(ctx, driver, &bytes.Buffer{})
		Expect(err).To(MatchError(memory.ErrClosed))
	})
})

var _ = Describe("Import", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	importString := func(s string) Result {
		res, err := Import(ctx, driver, strings.NewReader(s))
		Expect(err).ToNot(HaveOccurred())
		return res
	}

	It("stores each line as a record", func() {
		res := importString(
			`{"type":"preference","content":"likes rye bread","importance":8,"tags":["food"]}` + "\n" +
				`{"content":"plain fact"}` + "\n",
		)
		Expect(res).To(Equal(Result{Imported: 2}))

		records, err := driver.Query(ctx, memory.Query{SearchText: "rye"})
		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Type).To(Equal(memory.TypePreference))
		Expect(records[0].Importance).To(Equal(8))
		Expect(records[0].Tags).To(ConsistOf("food"))
	})

	It("replays an export under fresh identity", func() {
		source := inmemory.NewDriver()
		defer source.Close()

		original, err := source.Create(ctx, memory.Draft{
			Type:            memory.TypeEvent,
			Content:         "moved to lisbon",
			Context:         "chat on 2025-05-01",
			Importance:      f64(9),
			EmotionalWeight: f64(3),
			Tags:            []string{"life"},
			RelatedUser:     "sam",
		})
		Expect(err).ToNot(HaveOccurred())

		var buf bytes.Buffer
		_, err = Export(ctx, source, &buf)
		Expect(err).ToNot(HaveOccurred())

		res := importString(buf.String())
		Expect(res).To(Equal(Result{Imported: 1}))

		records, err := driver.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(HaveLen(1))

		imported := records[0]
		Expect(imported.ID).ToNot(Equal(original.ID))
		Expect(imported.Content).To(Equal("moved to lisbon"))
		Expect(imported.Context).To(Equal("chat on 2025-05-01"))
		Expect(imported.Importance).To(Equal(9))
		Expect(imported.EmotionalWeight).To(Equal(3))
		Expect(imported.Tags).To(ConsistOf("life"))
		Expect(imported.RelatedUser).To(Equal("sam"))
		Expect(imported.AccessCount).To(Equal(1))
	})

	It("skips malformed lines and keeps going", func() {
		res := importString(`{"content":"good one"}
not json at all
{"content": 12}

{"content":"good two"}
`)
		Expect(res).To(Equal(Result{Imported: 2, Skipped: 2}))
	})

	It("skips lines that fail draft validation", func() {
		res := importString(`{"type":"fact","content":""}
{"type":"opinion","content":"subjective"}
{"content":"valid"}
`)
		Expect(res).To(Equal(Result{Imported: 1, Skipped: 2}))
	})

	It("applies draft defaults to sparse lines", func() {
		importString(`{"content":"plain"}` + "\n")

		records, err := driver.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Type).To(Equal(memory.TypeFact))
		Expect(records[0].Importance).To(Equal(memory.DefaultImportance))
		Expect(records[0].EmotionalWeight).To(BeZero())
	})

	It("aborts when the store fails", func() {
		Expect(driver.Close()).To(Succeed())
		_, err := Import(ctx, driver, strings.NewReader(`{"content":"lost"}`+"\n"))
		Expect(err).To(MatchError(memory.ErrClosed))
	})
})

var _ = Describe("ImportFile", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("imports a file from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "memories.jsonl")
		data := `{"content":"from a file"}` + "\n" + `{"content":"another"}` + "\n"
		Expect(os.WriteFile(path, []byte(data), 0o600)).To(Succeed())

		res, err := ImportFile(ctx, driver, path)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(Result{Imported: 2}))
	})

	It("fails when the file does not exist", func() {
		_, err := ImportFile(ctx, driver, filepath.Join(GinkgoT().TempDir(), "missing.jsonl"))
		Expect(err).To(HaveOccurred())
	})
})
