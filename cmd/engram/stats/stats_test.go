package statscmder_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statscmder "github.com/papercomputeco/engram/cmd/engram/stats"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/sqlite"
)

var _ = Describe("Stats command", func() {
	var (
		tmpDir   string
		origDir  string
		origHome string
		origEnv  map[string]string
		dbPath   string
		out      *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "engram-stats-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		emptyHome, err := os.MkdirTemp("", "engram-stats-home-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(emptyHome) })

		origHome = os.Getenv("HOME")
		os.Setenv("HOME", emptyHome)

		origEnv = map[string]string{}
		for _, key := range []string{"XDG_DATA_HOME", "ENGRAM_DB", "ENGRAM_SQLITE"} {
			origEnv[key] = os.Getenv(key)
			os.Unsetenv(key)
		}

		Expect(os.Chdir(tmpDir)).To(Succeed())

		dbPath = filepath.Join(tmpDir, "engram.sqlite")
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		os.Setenv("HOME", origHome)
		for key, val := range origEnv {
			if val != "" {
				os.Setenv(key, val)
			}
		}
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("prints totals and the per-type breakdown", func() {
		ctx := context.Background()

		driver, err := sqlite.NewDriver(ctx, sqlite.Config{Target: dbPath})
		Expect(err).NotTo(HaveOccurred())

		importance := func(v float64) *float64 { return &v }
		drafts := []memory.Draft{
			{Type: memory.TypeFact, Content: "likes the window seat", Importance: importance(4)},
			{Type: memory.TypeFact, Content: "allergic to shellfish", Importance: importance(10)},
			{Type: memory.TypePreference, Content: "prefers tea over coffee", Importance: importance(4)},
		}
		for _, draft := range drafts {
			_, err := driver.Create(ctx, draft)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(driver.Close()).To(Succeed())

		cmd := statscmder.NewStatsCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"--sqlite", dbPath})
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Memories:"))
		Expect(out.String()).To(ContainSubstring("3"))
		Expect(out.String()).To(ContainSubstring("fact"))
		Expect(out.String()).To(ContainSubstring("preference"))
		Expect(out.String()).To(ContainSubstring("6.0"))
	})

	It("errors when no store exists", func() {
		cmd := statscmder.NewStatsCmd()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{})

		err := cmd.Execute()
		Expect(err).To(MatchError(ContainSubstring("could not find an engram database")))
	})
})
