package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// ChatClient is an OpenAI-compatible chat-completions client.
type ChatClient struct {
	apiBase     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewChatClient validates the endpoint configuration and returns a
// ready client. timeout <= 0 falls back to the default.
func NewChatClient(apiBase, apiKey, model string, temperature float64, maxTokens int, timeout time.Duration) (*ChatClient, error) {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		return nil, fmt.Errorf("provider API base not configured")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("provider API key not configured")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("provider model not configured")
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &ChatClient{
		apiBase:     apiBase,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// Generate sends the system prompt plus conversation turns and returns
// the model's reply text, trimmed.
func (c *ChatClient) Generate(ctx context.Context, systemPrompt string, turns []Message) (string, error) {
	if c == nil {
		return "", fmt.Errorf("provider not initialized")
	}

	messages := make([]Message, 0, len(turns)+1)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	messages = append(messages, turns...)

	requestBody := map[string]interface{}{
		"model":    c.model,
		"messages": messages,
	}
	if c.temperature > 0 {
		requestBody["temperature"] = c.temperature
	}
	if c.maxTokens > 0 {
		requestBody["max_tokens"] = c.maxTokens
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	endpoint := c.apiBase + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("chat API request failed: status=%d error=%s", resp.StatusCode, extractAPIError(body))
	}

	content, err := parseChatCompletionsResponse(body)
	if err != nil {
		return "", fmt.Errorf("parse chat response: %w", err)
	}
	return content, nil
}

func parseChatCompletionsResponse(body []byte) (string, error) {
	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", err
	}
	if len(apiResponse.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}
	return strings.TrimSpace(apiResponse.Choices[0].Message.Content), nil
}

func extractAPIError(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "empty response body"
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Error.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
	}

	if len(trimmed) > 2000 {
		return trimmed[:2000] + "..."
	}
	return trimmed
}
