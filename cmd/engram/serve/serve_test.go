package servecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/papercomputeco/engram/cmd/engram/serve"
)

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("registers the daemon flags from the shared registry", func() {
		cmd := servecmder.NewServeCmd()

		for _, name := range []string{
			"listen",
			"storage-provider",
			"storage-target",
			"vector-store-provider",
			"vector-store-target",
			"embedding-provider",
			"embedding-target",
			"embedding-model",
			"embedding-dimensions",
			"events-provider",
			"events-brokers",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), "missing flag %s", name)
		}
	})

	It("seeds flag defaults from the default config", func() {
		cmd := servecmder.NewServeCmd()

		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":8080"))
		Expect(cmd.Flags().Lookup("storage-provider").DefValue).To(Equal("sqlite"))
		Expect(cmd.Flags().Lookup("embedding-dimensions").DefValue).To(Equal("768"))
		Expect(cmd.Flags().Lookup("events-provider").DefValue).To(Equal("nop"))
	})

	It("keeps the listen shorthand", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("listen").Shorthand).To(Equal("l"))
	})

	It("does not register text generation flags", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("llm-model")).To(BeNil())
		Expect(cmd.Flags().Lookup("api-target")).To(BeNil())
	})
})
