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

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAICall returns a CallFunc backed by the OpenAI chat completions API.
func NewOpenAICall(baseURL, apiKey, model string) CallFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		request := openAIRequest{
			Model: model,
			Messages: []openAIMessage{
				{Role: "user", Content: prompt},
			},
		}

		payload, err := json.Marshal(request)
		if err != nil {
			return "", fmt.Errorf("marshal openai request: %w", err)
		}

		target := strings.TrimRight(baseURL, "/") + "/v1/chat/completions"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("create openai request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("send openai request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read openai response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, string(body))
		}

		var response openAIResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return "", fmt.Errorf("decode openai response: %w", err)
		}
		if response.Error != nil {
			return "", fmt.Errorf("openai error: %s", response.Error.Message)
		}
		if len(response.Choices) == 0 {
			return "", errors.New("openai returned no choices")
		}

		return response.Choices[0].Message.Content, nil
	}
}
