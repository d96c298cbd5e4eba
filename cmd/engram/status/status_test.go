package statuscmder_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statuscmder "github.com/papercomputeco/engram/cmd/engram/status"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/dotdir"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/sqlite"
)

var _ = Describe("Status command", func() {
	var (
		tmpDir   string
		origDir  string
		origHome string
		origEnv  map[string]string
		out      *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "engram-status-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		emptyHome, err := os.MkdirTemp("", "engram-status-home-*")
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

	// writeConfig saves cfg into a local .engram/ so the command resolves it.
	writeConfig := func(cfg *config.Config) {
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".engram"), 0o755)).To(Succeed())
		cfger, err := config.NewConfiger("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SaveConfig(cfg)).To(Succeed())
	}

	It("reports reachable providers with a checkmark", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		DeferCleanup(server.Close)

		cfg := config.NewDefaultConfig()
		cfg.Embedding.Target = server.URL
		cfg.LLM.Target = server.URL
		cfg.Client.APITarget = "http://127.0.0.1:1"
		writeConfig(cfg)

		cmd := statuscmder.NewStatusCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Config:"))
		Expect(out.String()).To(ContainSubstring("config.toml"))
		Expect(out.String()).To(ContainSubstring("sqlite"))
		Expect(out.String()).To(ContainSubstring("embedding (ollama)"))
		Expect(out.String()).To(ContainSubstring("llm (ollama)"))

		Expect(out.String()).To(ContainSubstring("✓"))
		Expect(out.String()).To(ContainSubstring("✗"))
		Expect(out.String()).To(ContainSubstring("unreachable"))
	})

	It("treats an auth rejection as reachable", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		DeferCleanup(server.Close)

		cfg := config.NewDefaultConfig()
		cfg.Embedding.Provider = "none"
		cfg.LLM.Target = server.URL
		cfg.Client.APITarget = "http://127.0.0.1:1"
		writeConfig(cfg)

		cmd := statuscmder.NewStatusCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).NotTo(ContainSubstring("embedding"))
		Expect(out.String()).To(ContainSubstring("✓"))
		Expect(out.String()).To(ContainSubstring("llm (ollama)"))
	})

	It("shows store totals and the saved session", func() {
		ctx := context.Background()

		cfg := config.NewDefaultConfig()
		cfg.Embedding.Provider = "none"
		cfg.LLM.Target = "http://127.0.0.1:1"
		cfg.Client.APITarget = "http://127.0.0.1:1"
		writeConfig(cfg)

		dbPath := filepath.Join(tmpDir, ".engram", "engram.sqlite")
		driver, err := sqlite.NewDriver(ctx, sqlite.Config{Target: dbPath})
		Expect(err).NotTo(HaveOccurred())
		for _, content := range []string{"likes rye bread", "walks the dog at dawn"} {
			_, err := driver.Create(ctx, memory.Draft{Type: memory.TypeFact, Content: content})
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(driver.Close()).To(Succeed())

		Expect(dotdir.NewManager().SaveSession(&dotdir.SessionState{
			StartedAt: time.Now(),
			Messages: []dotdir.SessionMessage{
				{Role: "user", Content: "hello"},
				{Role: "assistant", Content: "hi there"},
				{Role: "user", Content: "what do you remember"},
			},
		}, "")).To(Succeed())

		cmd := statuscmder.NewStatusCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Memories: 2"))
		Expect(out.String()).To(ContainSubstring("3 messages"))
	})

	It("degrades to a dim line when no store exists", func() {
		cfg := config.NewDefaultConfig()
		cfg.Embedding.Provider = "none"
		cfg.LLM.Target = "http://127.0.0.1:1"
		cfg.Client.APITarget = "http://127.0.0.1:1"
		writeConfig(cfg)

		cmd := statuscmder.NewStatusCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("no store"))
		Expect(out.String()).To(ContainSubstring("next chat starts fresh"))
	})
})
