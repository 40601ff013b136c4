package backends

// Message represents a single conversation turn.
type Message struct {
	// Role can be "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// ToolSpec describes a tool the model may call. It is passed through to the
// backend opaquely; the router never inspects it.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// CompletionRequest represents a unified completion request submitted to the
// router by any subsystem of the platform.
type CompletionRequest struct {
	// Messages in the conversation, oldest first
	Messages []Message `json:"messages"`

	// MaxOutputTokens limits the response length (0 uses the backend default)
	MaxOutputTokens int `json:"max_output_tokens,omitempty"`

	// Temperature controls randomness
	Temperature float64 `json:"temperature,omitempty"`

	// ExplicitModelID pins the request to a specific model, bypassing
	// tier-based selection when that model is available
	ExplicitModelID string `json:"explicit_model_id,omitempty"`

	// TaskCategory maps to a quality tier via the configured table.
	// Unknown categories resolve to the intermediate tier.
	TaskCategory string `json:"task_category,omitempty"`

	// ToolSpecs are forwarded to the backend unchanged
	ToolSpecs []ToolSpec `json:"tool_specs,omitempty"`
}

// CompletionResponse represents a unified completion response.
type CompletionResponse struct {
	// Content is the generated text
	Content string `json:"content"`

	// ResolvedModelID is the model that actually served the request
	ResolvedModelID string `json:"resolved_model_id"`

	// ResolvedBackend is the backend family of the resolved model
	ResolvedBackend string `json:"resolved_backend"`

	// InputTokens consumed by the prompt
	InputTokens int `json:"input_tokens"`

	// OutputTokens generated
	OutputTokens int `json:"output_tokens"`

	// CostUSD is the metered cost of this completion (0 for free backends)
	CostUSD float64 `json:"cost_usd"`

	// ToolCalls requested by the model, if any
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}
