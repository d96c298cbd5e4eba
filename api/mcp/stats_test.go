package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/engram"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/inmemory"
)

var _ = Describe("Stats tool", func() {
	var (
		server *Server
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver()

		var err error
		server, err = NewServer(Config{
			Manager: engram.NewManager(driver),
			Logger:  logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("reports store totals", func() {
		_, err := driver.Create(ctx, memory.Draft{Content: "one", Importance: f64(8)})
		Expect(err).NotTo(HaveOccurred())
		_, err = driver.Create(ctx, memory.Draft{Content: "two", Importance: f64(4), Type: memory.TypeEvent})
		Expect(err).NotTo(HaveOccurred())

		result, output, err := server.handleStats(ctx, nil, StatsInput{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeFalse())

		Expect(output.Stats.Total).To(Equal(2))
		Expect(output.Stats.ByType[memory.TypeFact]).To(Equal(1))
		Expect(output.Stats.ByType[memory.TypeEvent]).To(Equal(1))
		Expect(output.Stats.AverageImportance).To(BeNumerically("~", 6.0, 0.001))

		text := result.Content[0].(*mcp.TextContent)
		Expect(text.Text).To(ContainSubstring(`"total":2`))
	})

	It("returns a tool error when the store is closed", func() {
		Expect(driver.Close()).To(Succeed())

		result, _, err := server.handleStats(ctx, nil, StatsInput{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())

		text := result.Content[0].(*mcp.TextContent)
		Expect(text.Text).To(ContainSubstring("Failed to load stats"))
	})
})
