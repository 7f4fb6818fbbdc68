package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/ineqdash/internal/utils"
	"github.com/google/uuid"
)

// Greeting opens every conversation.
const Greeting = "How can I help you?"

// DefaultSystemPrompt frames the assistant for the dashboard.
const DefaultSystemPrompt = "You are a helpful assistant for a dashboard on income inequality, poverty and macroeconomic indicators. Answer concisely and say when the data does not cover a question."

// Conversation is one chat session. It is safe for concurrent use; Ask calls
// on the same conversation are serialized.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	rt          Runtime
	model       string
	maxTokens   int
	temperature float64
	budget      int

	mu       sync.Mutex
	system   []Message
	messages []Message
}

// ConversationOptions configures NewConversation.
type ConversationOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// HistoryBudget caps estimated prompt tokens; 0 uses the model's context window.
	HistoryBudget int
	SystemPrompt  string
	// Context is appended as a second system message, e.g. a dataset report.
	Context string
}

// minHistoryBudget keeps room for the context report when max_tokens eats the
// whole context window.
const minHistoryBudget = 1024

// NewConversation starts a session seeded with the assistant greeting.
func NewConversation(rt Runtime, opt ConversationOptions) *Conversation {
	model := opt.Model
	if model == "" {
		model = DefaultModel
	}
	budget := opt.HistoryBudget
	if budget <= 0 {
		budget = ContextWindow(model) - opt.MaxTokens
	}
	budget = max(budget, minHistoryBudget)
	sys := opt.SystemPrompt
	if sys == "" {
		sys = DefaultSystemPrompt
	}
	c := &Conversation{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		rt:          rt,
		model:       model,
		maxTokens:   opt.MaxTokens,
		temperature: opt.Temperature,
		budget:      budget,
		system:      []Message{{Role: RoleSystem, Content: sys}},
		messages:    []Message{{Role: RoleAssistant, Content: Greeting}},
	}
	if ctxText := strings.TrimSpace(opt.Context); ctxText != "" {
		c.system = append(c.system, Message{Role: RoleSystem, Content: utils.TruncateToTokenLimit(ctxText, budget/2)})
	}
	return c
}

// Messages returns the visible history (no system messages).
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Ask appends a user turn, sends the trimmed history and records the reply.
// On error the user turn is dropped, so a retry does not send it twice.
func (c *Conversation) Ask(ctx context.Context, prompt string) (*GenerateResponse, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("empty prompt")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: RoleUser, Content: prompt})
	req := GenerateRequest{
		Model:       c.model,
		Messages:    TrimToBudget(c.system, c.messages, c.budget),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	resp, err := c.rt.Generate(ctx, req)
	if err != nil {
		c.messages = c.messages[:len(c.messages)-1]
		return nil, err
	}
	c.messages = append(c.messages, Message{Role: RoleAssistant, Content: resp.Content})
	return resp, nil
}

func messageTokens(m Message) int { return utils.CountTokens(m.Content) + 4 }

// TrimToBudget returns system followed by the newest history messages that fit
// in budget tokens. System messages are always kept and so is the newest
// history message, even when it alone exceeds the budget.
func TrimToBudget(system, history []Message, budget int) []Message {
	used := 0
	for _, m := range system {
		used += messageTokens(m)
	}
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := messageTokens(history[i])
		if used+cost > budget && i < len(history)-1 {
			break
		}
		used += cost
		start = i
	}
	out := make([]Message, 0, len(system)+len(history)-start)
	out = append(out, system...)
	return append(out, history[start:]...)
}
