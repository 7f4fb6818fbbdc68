package ai

import "context"

// Runtime is the assistant backend: prompt history in, text out.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers accepted by GetRuntime.
const (
	ProviderOpenAI = "openai"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type GenerateResponse struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Usage     Usage   `json:"usage"`
	RequestID string  `json:"-"`
	Attempts  int     `json:"-"`
	Model     string  `json:"model"`
	Seconds   float64 `json:"-"`
}
