// Package openai implements a backend adapter for OpenAI-compatible chat
// completion APIs. One adapter type serves every family that speaks this
// protocol: hosted aggregators like OpenRouter and self-hosted servers such
// as Ollama or vLLM.
package openai

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

const transientRetryWait = 500 * time.Millisecond

// Config holds adapter construction settings.
//
// Exactly one of BaseURL or BaseURLEnv should be set. BaseURLEnv defers the
// address to the environment per request, which lets a self-hosted server
// appear or disappear without a restart. APIKeyEnv may be empty for backends
// that need no authentication.
type Config struct {
	Family     string
	APIKeyEnv  string
	BaseURL    string
	BaseURLEnv string
	Timeout    time.Duration
}

// Adapter implements backends.Adapter over the chat completions protocol.
type Adapter struct {
	config     Config
	pricer     backends.Pricer
	httpClient *http.Client
}

// New creates an adapter for the configured family. pricer resolves
// completion cost from catalog unit prices.
func New(config Config, pricer backends.Pricer) *Adapter {
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
	return a.config.Family
}

// Complete performs a chat completion. Transient failures (network error,
// 5xx, 429) are retried once; any remaining error is returned so the router
// can fall back to the next candidate.
func (a *Adapter) Complete(ctx context.Context, modelID string, req *backends.CompletionRequest) (*backends.CompletionResponse, error) {
	baseURL, err := a.resolveBaseURL()
	if err != nil {
		return nil, err
	}

	var apiKey string
	if a.config.APIKeyEnv != "" {
		apiKey = os.Getenv(a.config.APIKeyEnv)
		if apiKey == "" {
			return nil, backends.NewAdapterError(a.Family(), "missing_credential",
				fmt.Sprintf("environment variable %s is not set", a.config.APIKeyEnv), 0, nil)
		}
	}

	body, err := json.Marshal(a.buildRequest(modelID, req))
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

		respBody, statusCode, lastErr = a.doRequest(ctx, baseURL, apiKey, body)
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

	var wireResp chatResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, backends.NewAdapterError(a.Family(), "unmarshal_error", "failed to unmarshal response", statusCode, err)
	}

	return a.toCompletionResponse(modelID, &wireResp)
}

// resolveBaseURL picks the configured address, consulting the environment
// when the address is deferred to it.
func (a *Adapter) resolveBaseURL() (string, error) {
	if a.config.BaseURL != "" {
		return a.config.BaseURL, nil
	}
	if a.config.BaseURLEnv != "" {
		if url := os.Getenv(a.config.BaseURLEnv); url != "" {
			return url, nil
		}
		return "", backends.NewAdapterError(a.Family(), "missing_base_url",
			fmt.Sprintf("environment variable %s is not set", a.config.BaseURLEnv), 0, nil)
	}
	return "", backends.NewAdapterError(a.Family(), "missing_base_url", "no base URL configured", 0, nil)
}

func (a *Adapter) doRequest(ctx context.Context, baseURL, apiKey string, body []byte) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

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

func (a *Adapter) buildRequest(modelID string, req *backends.CompletionRequest) *chatRequest {
	wireReq := &chatRequest{
		Model:    modelID,
		Messages: make([]chatMessage, len(req.Messages)),
	}
	for i, msg := range req.Messages {
		wireReq.Messages[i] = chatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	if req.MaxOutputTokens > 0 {
		wireReq.MaxTokens = &req.MaxOutputTokens
	}
	if req.Temperature > 0 {
		wireReq.Temperature = &req.Temperature
	}
	for _, spec := range req.ToolSpecs {
		wireReq.Tools = append(wireReq.Tools, chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.InputSchema,
			},
		})
	}
	return wireReq
}

func (a *Adapter) toCompletionResponse(modelID string, wireResp *chatResponse) (*backends.CompletionResponse, error) {
	if len(wireResp.Choices) == 0 {
		return nil, backends.NewAdapterError(a.Family(), "empty_response", "response contained no choices", 0, nil)
	}
	choice := wireResp.Choices[0]

	resp := &backends.CompletionResponse{
		Content:      choice.Message.Content,
		InputTokens:  wireResp.Usage.PromptTokens,
		OutputTokens: wireResp.Usage.CompletionTokens,
	}

	for _, call := range choice.Message.ToolCalls {
		var input map[string]any
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
				return nil, backends.NewAdapterError(a.Family(), "tool_arguments_error",
					"failed to parse tool call arguments", 0, err)
			}
		}
		resp.ToolCalls = append(resp.ToolCalls, backends.ToolCall{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
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

// Chat completions wire types

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Tools       []chatTool    `json:"tools,omitempty"`
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}
