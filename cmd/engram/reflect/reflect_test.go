package reflectcmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	reflectcmder "github.com/papercomputeco/engram/cmd/engram/reflect"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/sqlite"
)

var _ = Describe("Reflect command", func() {
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
		tmpDir, err = os.MkdirTemp("", "engram-reflect-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		emptyHome, err := os.MkdirTemp("", "engram-reflect-home-*")
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

	// modelServer stubs the ollama chat endpoint with a fixed reply and
	// points the local config at it.
	modelServer := func(reply string) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			resp := map[string]any{
				"message": map[string]string{"role": "assistant", "content": reply},
				"done":    true,
			}
			Expect(writeJSON(w, resp)).To(Succeed())
		}))
		DeferCleanup(server.Close)

		Expect(os.MkdirAll(filepath.Join(tmpDir, ".engram"), 0o755)).To(Succeed())
		cfger, err := config.NewConfiger("")
		Expect(err).NotTo(HaveOccurred())
		cfg := config.NewDefaultConfig()
		cfg.LLM.Target = server.URL
		Expect(cfger.SaveConfig(cfg)).To(Succeed())
	}

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

	It("stores and prints the composed reflection", func() {
		seedStore("likes rye bread", "bakes every sunday")
		modelServer(`{"content":"Baking is a weekly ritual, not a chore.","importance":7,"tags":["baking"]}`)

		cmd := reflectcmder.NewReflectCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"--sqlite", dbPath})
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("reflection"))
		Expect(out.String()).To(ContainSubstring("Baking is a weekly ritual"))
		Expect(out.String()).To(ContainSubstring("importance 7"))
		Expect(out.String()).To(ContainSubstring("reflection over 2 memories"))
		Expect(out.String()).To(ContainSubstring("tags baking"))

		ctx := context.Background()
		driver, err := sqlite.NewDriver(ctx, sqlite.Config{Target: dbPath})
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		records, err := driver.All(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(3))
	})

	It("reports an empty store without failing", func() {
		modelServer(`unused`)

		cmd := reflectcmder.NewReflectCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"--sqlite", dbPath})
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Nothing to reflect on yet"))
	})

	It("surfaces an unparseable model reply", func() {
		seedStore("likes rye bread")
		modelServer(`the model rambled instead of returning JSON`)

		cmd := reflectcmder.NewReflectCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs([]string{"--sqlite", dbPath})

		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("parse response"))
	})

	It("rejects positional arguments", func() {
		cmd := reflectcmder.NewReflectCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs([]string{"now"})
		Expect(cmd.Execute()).NotTo(Succeed())
	})
})

func writeJSON(w http.ResponseWriter, v any) error {
	return json.NewEncoder(w).Encode(v)
}
