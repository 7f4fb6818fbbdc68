package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRuntime struct {
	reqs  []GenerateRequest
	reply string
	err   error
}

func (f *fakeRuntime) Generate(_ context.Context, req GenerateRequest) (*GenerateResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &GenerateResponse{Content: f.reply}, nil
}

func TestConversationStartsWithGreeting(t *testing.T) {
	c := NewConversation(&fakeRuntime{}, ConversationOptions{})
	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].Role != RoleAssistant || msgs[0].Content != "How can I help you?" {
		t.Fatalf("unexpected opening: %+v", msgs)
	}
	if c.ID == "" {
		t.Fatalf("conversation id not set")
	}
}

func TestConversationAsk(t *testing.T) {
	rt := &fakeRuntime{reply: "The Palma ratio compares the top 10% with the bottom 40%."}
	c := NewConversation(rt, ConversationOptions{Context: "[DATASET SUMMARY]\nDataset: gini"})
	resp, err := c.Ask(context.Background(), "  What is the Palma ratio? ")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.HasPrefix(resp.Content, "The Palma") {
		t.Fatalf("unexpected reply %q", resp.Content)
	}
	req := rt.reqs[0]
	if req.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", req.Model)
	}
	if len(req.Messages) != 4 || req.Messages[0].Role != RoleSystem || !strings.Contains(req.Messages[1].Content, "Dataset: gini") {
		t.Fatalf("unexpected request messages: %+v", req.Messages)
	}
	if last := req.Messages[3]; last.Role != RoleUser || last.Content != "What is the Palma ratio?" {
		t.Fatalf("unexpected user turn: %+v", last)
	}
	if n := len(c.Messages()); n != 3 {
		t.Fatalf("expected greeting, question and answer, got %d", n)
	}
}

func TestConversationAskError(t *testing.T) {
	rt := &fakeRuntime{err: &MissingKeyError{Provider: ProviderOpenAI}}
	c := NewConversation(rt, ConversationOptions{})
	_, err := c.Ask(context.Background(), "hello")
	var mk *MissingKeyError
	if !errors.As(err, &mk) {
		t.Fatalf("expected MissingKeyError, got %v", err)
	}
	if _, err := c.Ask(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestConversationRetryAfterError(t *testing.T) {
	rt := &fakeRuntime{err: &RateLimitError{APIError: &APIError{StatusCode: 429}}}
	c := NewConversation(rt, ConversationOptions{})
	if _, err := c.Ask(context.Background(), "first try"); err == nil {
		t.Fatalf("expected rate limit error")
	}
	if n := len(c.Messages()); n != 1 {
		t.Fatalf("failed turn should be dropped, history has %d messages", n)
	}
	rt.err, rt.reply = nil, "ok"
	if _, err := c.Ask(context.Background(), "second try"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	req := rt.reqs[len(rt.reqs)-1]
	users := 0
	for _, m := range req.Messages {
		if m.Role == RoleUser {
			users++
		}
	}
	if users != 1 || req.Messages[len(req.Messages)-1].Content != "second try" {
		t.Fatalf("retry should send a single user turn: %+v", req.Messages)
	}
}

func TestConversationBudgetClamp(t *testing.T) {
	c := NewConversation(&fakeRuntime{}, ConversationOptions{MaxTokens: 1 << 20, Context: "[DATASET SUMMARY]\nDataset: gini"})
	if c.budget < minHistoryBudget {
		t.Fatalf("budget %d below floor", c.budget)
	}
	if len(c.system) != 2 || !strings.Contains(c.system[1].Content, "Dataset: gini") {
		t.Fatalf("context report should survive a huge max_tokens: %+v", c.system)
	}
}

func TestTrimToBudget(t *testing.T) {
	system := []Message{{Role: RoleSystem, Content: strings.Repeat("s", 40)}}
	history := []Message{
		{Role: RoleAssistant, Content: strings.Repeat("a", 400)},
		{Role: RoleUser, Content: strings.Repeat("b", 40)},
		{Role: RoleAssistant, Content: strings.Repeat("c", 40)},
		{Role: RoleUser, Content: strings.Repeat("d", 40)},
	}
	// system 14, each short message 14, the long one 104
	out := TrimToBudget(system, history, 56)
	if len(out) != 4 || out[0].Role != RoleSystem || out[1].Content[0] != 'b' {
		t.Fatalf("expected system plus three newest, got %d messages", len(out))
	}
	all := TrimToBudget(system, history, 1000)
	if len(all) != 5 {
		t.Fatalf("large budget should keep everything, got %d", len(all))
	}
	tiny := TrimToBudget(system, history, 1)
	if len(tiny) != 2 || tiny[1].Content[0] != 'd' {
		t.Fatalf("newest message must survive a tiny budget: %+v", tiny)
	}
}
