// Package anthropic implements the backend adapter for the Anthropic
// messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/assistantd/llm-router/backends"
)

const (
	defaultBaseURL     = "https://api.anthropic.com"
	apiVersion         = "2023-06-01"
	defaultMaxTokens   = 4096
	transientRetryWait = 500 * time.Millisecond
)

// Config holds adapter construction settings. The API key is named, not
// stored: it is resolved from the environment on every request, so a
// credential supplied or revoked at runtime takes effect immediately.
type Config struct {
	APIKeyEnv string
	BaseURL   string
	Timeout   time.Duration
}

// Adapter implements backends.Adapter for the "anthropic" family.
type Adapter struct {
	config     Config
	pricer     backends.Pricer
	httpClient *http.Client
}

// New creates an Anthropic adapter. pricer resolves completion cost from
// catalog unit prices.
func New(config Config, pricer backends.Pricer) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Adapter{
		config: config,
		pricer: pricer,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Family returns the backend family name
func (a *Adapter) Family() string {
	return "anthropic"
}

// Complete performs a completion against the messages API. Transient failures
// (network error, 5xx, 429) are retried once; any remaining error is returned
// so the router can fall back to the next candidate.
func (a *Adapter) Complete(ctx context.Context, modelID string, req *backends.CompletionRequest) (*backends.CompletionResponse, error) {
	apiKey := os.Getenv(a.config.APIKeyEnv)
	if apiKey == "" {
		return nil, backends.NewAdapterError(a.Family(), "missing_credential",
			fmt.Sprintf("environment variable %s is not set", a.config.APIKeyEnv), 0, nil)
	}

	wireReq := a.buildRequest(modelID, req)
	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, backends.NewAdapterError(a.Family(), "marshal_error", "failed to marshal request", 0, err)
	}

	var (
		respBody   []byte
		statusCode int
		lastErr    error
	)
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(transientRetryWait):
			}
		}

		respBody, statusCode, lastErr = a.doRequest(ctx, apiKey, body)
		if lastErr == nil && statusCode < 500 && statusCode != http.StatusTooManyRequests {
			break
		}
	}
	if lastErr != nil {
		return nil, backends.NewAdapterError(a.Family(), "http_error", "request failed", 0, lastErr)
	}
	if statusCode != http.StatusOK {
		return nil, a.errorFromResponse(statusCode, respBody)
	}

	var wireResp messagesResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, backends.NewAdapterError(a.Family(), "unmarshal_error", "failed to unmarshal response", statusCode, err)
	}

	return a.toCompletionResponse(modelID, &wireResp)
}

func (a *Adapter) doRequest(ctx context.Context, apiKey string, body []byte) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, err
	}
	return respBody, httpResp.StatusCode, nil
}

// buildRequest converts the unified request to the messages API shape.
// A system message is hoisted to the top-level system field.
func (a *Adapter) buildRequest(modelID string, req *backends.CompletionRequest) *messagesRequest {
	wireReq := &messagesRequest{
		Model:     modelID,
		MaxTokens: defaultMaxTokens,
	}
	if req.MaxOutputTokens > 0 {
		wireReq.MaxTokens = req.MaxOutputTokens
	}
	if req.Temperature > 0 {
		wireReq.Temperature = &req.Temperature
	}

	for _, msg := range req.Messages {
		if msg.Role == "system" {
			if wireReq.System != "" {
				wireReq.System += "\n"
			}
			wireReq.System += msg.Content
			continue
		}
		wireReq.Messages = append(wireReq.Messages, wireMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	for _, spec := range req.ToolSpecs {
		wireReq.Tools = append(wireReq.Tools, wireTool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.InputSchema,
		})
	}

	return wireReq
}

func (a *Adapter) toCompletionResponse(modelID string, wireResp *messagesResponse) (*backends.CompletionResponse, error) {
	resp := &backends.CompletionResponse{
		InputTokens:  wireResp.Usage.InputTokens,
		OutputTokens: wireResp.Usage.OutputTokens,
	}

	for _, block := range wireResp.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, backends.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}

	if a.pricer != nil {
		if cost, ok := a.pricer.CostFor(modelID, resp.InputTokens, resp.OutputTokens); ok {
			resp.CostUSD = cost
		}
	}
	return resp, nil
}

func (a *Adapter) errorFromResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return backends.NewAdapterError(a.Family(), "api_error", string(body), statusCode, nil)
	}
	return backends.NewAdapterError(a.Family(), errResp.Error.Type, errResp.Error.Message,
		statusCode, errors.New(errResp.Error.Message))
}

// Messages API wire types

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []wireMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Tools       []wireTool    `json:"tools,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

type contentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
