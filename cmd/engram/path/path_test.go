package pathcmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	pathcmder "github.com/papercomputeco/engram/cmd/engram/path"
	"github.com/papercomputeco/engram/pkg/config"
)

var _ = Describe("Path command", func() {
	var (
		tmpDir   string
		origDir  string
		origHome string
		origEnv  map[string]string
		out      *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "engram-path-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Point HOME at an empty directory so a developer's real
		// ~/.engram store cannot leak into resolution.
		emptyHome, err := os.MkdirTemp("", "engram-path-home-*")
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

	It("prints the local store path when one exists", func() {
		Expect(os.MkdirAll(".engram", 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(".engram", "engram.sqlite"), []byte{}, 0o644)).To(Succeed())

		cmd := pathcmder.NewPathCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		Expect(strings.TrimSpace(out.String())).To(Equal(filepath.Join(".engram", "engram.sqlite")))
	})

	It("prints the configured storage target", func() {
		Expect(os.MkdirAll(".engram", 0o755)).To(Succeed())

		c, err := config.NewConfiger(".engram")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.SetConfigValue("storage.target", "/var/lib/engram/engram.sqlite")).To(Succeed())

		cmd := pathcmder.NewPathCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		Expect(strings.TrimSpace(out.String())).To(Equal("/var/lib/engram/engram.sqlite"))
	})

	It("prints the DSN for non-sqlite providers", func() {
		Expect(os.MkdirAll(".engram", 0o755)).To(Succeed())

		c, err := config.NewConfiger(".engram")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.SetConfigValue("storage.provider", "postgres")).To(Succeed())
		Expect(c.SetConfigValue("storage.target", "postgres://localhost:5432/engram")).To(Succeed())

		cmd := pathcmder.NewPathCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		Expect(strings.TrimSpace(out.String())).To(Equal("postgres://localhost:5432/engram"))
	})

	It("errors when no store can be resolved", func() {
		cmd := pathcmder.NewPathCmd()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{})

		err := cmd.Execute()
		Expect(err).To(MatchError(ContainSubstring("could not find an engram database")))
	})
})
