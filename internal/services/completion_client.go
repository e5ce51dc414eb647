package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taskmate/internal/models"
)

// ModelInvoker is the boundary to the language model. One call: message
// history plus tool definitions in, a single assistant message out.
type ModelInvoker interface {
	Invoke(ctx context.Context, messages []models.ChatMessage, tools []map[string]interface{}) (*models.ChatMessage, error)
}

// CompletionClient talks to an OpenAI-compatible chat completions endpoint
type CompletionClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewCompletionClient creates a client for the given provider endpoint
func NewCompletionClient(baseURL, apiKey, model string) *CompletionClient {
	return &CompletionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		// Tool-calling turns can take a while on slow providers
		client: &http.Client{Timeout: 180 * time.Second},
	}
}

// Model returns the configured model identifier
func (c *CompletionClient) Model() string {
	return c.model
}

// BaseURL returns the configured provider base URL
func (c *CompletionClient) BaseURL() string {
	return c.baseURL
}

// Invoke performs one non-streaming chat completion round trip
func (c *CompletionClient) Invoke(ctx context.Context, messages []models.ChatMessage, tools []map[string]interface{}) (*models.ChatMessage, error) {
	reqBody := models.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}
	if len(tools) > 0 {
		reqBody.Tools = tools
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	msg := result.Choices[0].Message
	return &msg, nil
}
