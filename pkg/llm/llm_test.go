package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("New", func() {
	It("defaults to ollama when no provider is set", func() {
		call, err := New(Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(call).NotTo(BeNil())
	})

	It("creates an openai caller with an explicit key", func() {
		call, err := New(Config{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			APIKey:   "test-key",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(call).NotTo(BeNil())
	})

	It("rejects openai without an API key", func() {
		_, err := New(Config{Provider: "openai"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("API key"))
	})

	It("rejects anthropic without an API key", func() {
		_, err := New(Config{Provider: "anthropic"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("API key"))
	})

	It("returns an error for an unsupported provider", func() {
		_, err := New(Config{Provider: "bedrock"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unsupported llm provider"))
	})
})

var _ = Describe("Ollama call", func() {
	It("posts the prompt and returns the reply text", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))

			var req ollamaChatRequest
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(req.Model).To(Equal("llama3.2"))
			Expect(req.Stream).To(BeFalse())
			Expect(req.Messages).To(HaveLen(1))
			Expect(req.Messages[0].Content).To(Equal("say hi"))

			resp := ollamaChatResponse{Done: true}
			resp.Message.Role = "assistant"
			resp.Message.Content = "hi there"
			w.Header().Set("Content-Type", "application/json")
			Expect(json.NewEncoder(w).Encode(resp)).To(Succeed())
		}))
		defer server.Close()

		call := NewOllamaCall(server.URL, "llama3.2")
		reply, err := call(context.Background(), "say hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("hi there"))
	})

	It("surfaces an in-body ollama error", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
		}))
		defer server.Close()

		call := NewOllamaCall(server.URL, "missing-model")
		_, err := call(context.Background(), "hello")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("model not found"))
	})

	It("returns an error on non-200 status", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		call := NewOllamaCall(server.URL, "llama3.2")
		_, err := call(context.Background(), "hello")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("status 500"))
	})
})

var _ = Describe("OpenAI call", func() {
	It("authenticates and returns the first choice", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer test-key"))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))

			var req openAIRequest
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(req.Model).To(Equal("gpt-4o-mini"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello from openai"}}]}`))
		}))
		defer server.Close()

		call := NewOpenAICall(server.URL, "test-key", "gpt-4o-mini")
		reply, err := call(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("hello from openai"))
	})

	It("returns an error on non-200 status", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
		}))
		defer server.Close()

		call := NewOpenAICall(server.URL, "bad-key", "gpt-4o-mini")
		_, err := call(context.Background(), "hello")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("status 401"))
	})

	It("errors when no choices come back", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		call := NewOpenAICall(server.URL, "test-key", "gpt-4o-mini")
		_, err := call(context.Background(), "hello")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("no choices"))
	})
})

var _ = Describe("Anthropic call", func() {
	It("sends the version header and returns the first text block", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			Expect(r.Header.Get("x-api-key")).To(Equal("test-key"))
			Expect(r.Header.Get("anthropic-version")).To(Equal("2023-06-01"))

			var req anthropicRequest
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(req.MaxTokens).To(Equal(1024))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hello from anthropic"}]}`))
		}))
		defer server.Close()

		call := NewAnthropicCall(server.URL, "test-key", "claude-sonnet-4-5")
		reply, err := call(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("hello from anthropic"))
	})

	It("errors when the response has no content", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"content":[]}`))
		}))
		defer server.Close()

		call := NewAnthropicCall(server.URL, "test-key", "claude-sonnet-4-5")
		_, err := call(context.Background(), "hello")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("no content"))
	})
})
