package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/engram"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/inmemory"
)

var _ = Describe("Search tool", func() {
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

	It("returns a tool error for an empty query", func() {
		result, _, err := server.handleSearch(ctx, nil, SearchInput{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())

		text := result.Content[0].(*mcp.TextContent)
		Expect(text.Text).To(ContainSubstring("query is required"))
	})

	It("returns keyword matches when no embedder is configured", func() {
		_, err := driver.Create(ctx, memory.Draft{Content: "likes rye bread"})
		Expect(err).NotTo(HaveOccurred())
		_, err = driver.Create(ctx, memory.Draft{Content: "deploys on fridays"})
		Expect(err).NotTo(HaveOccurred())

		result, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "bread"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeFalse())

		Expect(output.Query).To(Equal("bread"))
		Expect(output.Count).To(Equal(1))
		Expect(output.Memories[0].Content).To(Equal("likes rye bread"))

		text := result.Content[0].(*mcp.TextContent)
		Expect(text.Text).To(ContainSubstring("likes rye bread"))
	})

	It("caps results at the default limit", func() {
		for i := range 7 {
			_, err := driver.Create(ctx, memory.Draft{
				Content: fmt.Sprintf("gardening note number %d", i),
			})
			Expect(err).NotTo(HaveOccurred())
		}

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "gardening"})
		Expect(err).NotTo(HaveOccurred())
		Expect(output.Count).To(Equal(defaultLimit))
	})

	It("keeps the memories field an array when nothing matches", func() {
		result, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "zebra"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeFalse())

		Expect(output.Count).To(BeZero())
		Expect(output.Memories).NotTo(BeNil())

		text := result.Content[0].(*mcp.TextContent)
		Expect(text.Text).To(ContainSubstring(`"memories":[]`))
	})

	It("returns a tool error when the store is closed", func() {
		Expect(driver.Close()).To(Succeed())

		result, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "bread"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())

		text := result.Content[0].(*mcp.TextContent)
		Expect(text.Text).To(ContainSubstring("Search failed"))
	})
})
