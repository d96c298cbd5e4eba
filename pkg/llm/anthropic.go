package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicCall returns a CallFunc backed by the Anthropic messages API.
func NewAnthropicCall(baseURL, apiKey, model string) CallFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		request := anthropicRequest{
			Model:     model,
			MaxTokens: 1024,
			Messages: []anthropicMessage{
				{Role: "user", Content: prompt},
			},
		}

		payload, err := json.Marshal(request)
		if err != nil {
			return "", fmt.Errorf("marshal anthropic request: %w", err)
		}

		target := strings.TrimRight(baseURL, "/") + "/v1/messages"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("create anthropic request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("send anthropic request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read anthropic response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("anthropic status %d: %s", resp.StatusCode, string(body))
		}

		var response anthropicResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return "", fmt.Errorf("decode anthropic response: %w", err)
		}
		if response.Error != nil {
			return "", fmt.Errorf("anthropic error: %s", response.Error.Message)
		}
		if len(response.Content) == 0 {
			return "", errors.New("anthropic returned no content")
		}

		return response.Content[0].Text, nil
	}
}
