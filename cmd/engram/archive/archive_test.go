package archivecmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	archivecmder "github.com/papercomputeco/engram/cmd/engram/archive"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/sqlite"
)

var _ = Describe("Archive command", func() {
	var (
		tmpDir   string
		origDir  string
		origHome string
		origEnv  map[string]string
		out      *bytes.Buffer
		dbPath   string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "engram-archive-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		emptyHome, err := os.MkdirTemp("", "engram-archive-home-*")
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
		out = &bytes.Buffer{}
		dbPath = filepath.Join(tmpDir, "store.sqlite")
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

	// seedStore creates a sqlite store at dbPath holding the given contents.
	seedStore := func(contents ...string) {
		ctx := context.Background()
		driver, err := sqlite.NewDriver(ctx, sqlite.Config{Target: dbPath})
		Expect(err).NotTo(HaveOccurred())
		for _, content := range contents {
			_, err := driver.Create(ctx, memory.Draft{Type: memory.TypeFact, Content: content})
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(driver.Close()).To(Succeed())
	}

	Describe("export", func() {
		It("streams the store to stdout as JSON lines", func() {
			seedStore("likes rye bread", "walks the dog at dawn")

			cmd := archivecmder.NewArchiveCmd()
			cmd.SetOut(out)
			cmd.SetArgs([]string{"export", "--sqlite", dbPath})
			Expect(cmd.Execute()).To(Succeed())

			lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
			Expect(lines).To(HaveLen(2))

			var rec memory.Record
			Expect(json.Unmarshal([]byte(lines[0]), &rec)).To(Succeed())
			Expect(rec.Content).To(Equal("likes rye bread"))
			Expect(out.String()).NotTo(ContainSubstring("Exported:"))
		})

		It("writes an archive file and reports the count", func() {
			seedStore("likes rye bread", "walks the dog at dawn")
			outFile := filepath.Join(tmpDir, "memories.jsonl")

			cmd := archivecmder.NewArchiveCmd()
			cmd.SetOut(out)
			cmd.SetArgs([]string{"export", "--sqlite", dbPath, "-o", outFile})
			Expect(cmd.Execute()).To(Succeed())

			data, err := os.ReadFile(outFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(string(data), "\n")).To(Equal(2))

			Expect(out.String()).To(ContainSubstring("Exported:"))
			Expect(out.String()).To(ContainSubstring("2 memories"))
		})

		It("rejects positional arguments", func() {
			cmd := archivecmder.NewArchiveCmd()
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs([]string{"export", "extra"})
			Expect(cmd.Execute()).NotTo(Succeed())
		})
	})

	Describe("import", func() {
		It("replays an archive and reports skipped lines", func() {
			archiveFile := filepath.Join(tmpDir, "drop.jsonl")
			data := `{"type":"preference","content":"likes rye bread"}` + "\n" +
				"not json at all\n" +
				`{"content":"walks the dog at dawn"}` + "\n"
			Expect(os.WriteFile(archiveFile, []byte(data), 0o600)).To(Succeed())

			cmd := archivecmder.NewArchiveCmd()
			cmd.SetOut(out)
			cmd.SetArgs([]string{"import", archiveFile, "--sqlite", dbPath})
			Expect(cmd.Execute()).To(Succeed())

			Expect(out.String()).To(ContainSubstring("Imported:"))
			Expect(out.String()).To(ContainSubstring("2 memories"))
			Expect(out.String()).To(ContainSubstring("1 skipped"))

			ctx := context.Background()
			driver, err := sqlite.NewDriver(ctx, sqlite.Config{Target: dbPath})
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			records, err := driver.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
		})

		It("omits the skip count for a clean import", func() {
			archiveFile := filepath.Join(tmpDir, "drop.jsonl")
			Expect(os.WriteFile(archiveFile, []byte(`{"content":"clean line"}`+"\n"), 0o600)).To(Succeed())

			cmd := archivecmder.NewArchiveCmd()
			cmd.SetOut(out)
			cmd.SetArgs([]string{"import", archiveFile, "--sqlite", dbPath})
			Expect(cmd.Execute()).To(Succeed())

			Expect(out.String()).To(ContainSubstring("1 memories"))
			Expect(out.String()).NotTo(ContainSubstring("skipped"))
		})

		It("fails when the archive does not exist", func() {
			cmd := archivecmder.NewArchiveCmd()
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs([]string{"import", filepath.Join(tmpDir, "missing.jsonl"), "--sqlite", dbPath})

			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("opening archive"))
		})

		It("requires a path", func() {
			cmd := archivecmder.NewArchiveCmd()
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs([]string{"import"})
			Expect(cmd.Execute()).NotTo(Succeed())
		})

		It("registers the watch flag", func() {
			cmd := archivecmder.NewArchiveCmd()
			importCmd, _, err := cmd.Find([]string{"import"})
			Expect(err).NotTo(HaveOccurred())
			Expect(importCmd.Flags().Lookup("watch")).NotTo(BeNil())
		})
	})
})
