package seedcmder_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	seedcmder "github.com/papercomputeco/engram/cmd/engram/seed"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/sqlite"
)

var _ = Describe("Seed command", func() {
	var (
		tmpDir  string
		origDir string
		dbPath  string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "engram-seed-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		dbPath = filepath.Join(tmpDir, "engram.sqlite")
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	loadAll := func() []memory.Record {
		driver, err := sqlite.NewDriver(context.Background(), sqlite.Config{Target: dbPath})
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		defer driver.Close()

		records, err := driver.All(context.Background())
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return records
	}

	It("seeds the demo corpus", func() {
		cmd := seedcmder.NewSeedCmd()
		cmd.SetArgs([]string{"--sqlite", dbPath})
		Expect(cmd.Execute()).To(Succeed())

		records := loadAll()
		Expect(len(records)).To(BeNumerically(">", 10))
	})

	It("is additive by default", func() {
		cmd := seedcmder.NewSeedCmd()
		cmd.SetArgs([]string{"--sqlite", dbPath})
		Expect(cmd.Execute()).To(Succeed())
		first := len(loadAll())

		again := seedcmder.NewSeedCmd()
		again.SetArgs([]string{"--sqlite", dbPath})
		Expect(again.Execute()).To(Succeed())

		Expect(loadAll()).To(HaveLen(first * 2))
	})

	It("clears the store with --overwrite", func() {
		cmd := seedcmder.NewSeedCmd()
		cmd.SetArgs([]string{"--sqlite", dbPath})
		Expect(cmd.Execute()).To(Succeed())
		first := len(loadAll())

		again := seedcmder.NewSeedCmd()
		again.SetArgs([]string{"--sqlite", dbPath, "--overwrite"})
		Expect(again.Execute()).To(Succeed())

		Expect(loadAll()).To(HaveLen(first))
	})
})
