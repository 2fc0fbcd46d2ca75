package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/legaldrishti/backend/internal/llm"
)

// fakeGateway records the request and echoes a canned reply.
type fakeGateway struct {
	lastReq llm.ChatRequest
}

func (f *fakeGateway) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.lastReq = req
	return &llm.ChatResponse{
		Provider:    "ollama",
		Model:       req.Model,
		Content:     "canned reply",
		TotalTokens: 42,
	}, nil
}

func (f *fakeGateway) ChatStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	f.lastReq = req
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.StreamChunk{Content: "canned"}
	ch <- llm.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func (f *fakeGateway) Embed(ctx context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeGateway) Provider(name string) (llm.Provider, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeGateway) ListModels() []llm.ModelInfo {
	return []llm.ModelInfo{{Provider: "ollama", Model: "gemma3:4b", Type: "chat"}}
}

func TestRespondUsesPersonaAndDefaultModel(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "gemma3:4b")

	resp, err := svc.Respond(context.Background(), Request{Message: "What is Section 420 IPC?"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if resp.Reply != "canned reply" || resp.TokensUsed != 42 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Persona != "legal_assistant" {
		t.Errorf("persona = %q, want legal_assistant", resp.Persona)
	}

	if gw.lastReq.Model != "gemma3:4b" {
		t.Errorf("model = %q, want default", gw.lastReq.Model)
	}
	if len(gw.lastReq.Messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(gw.lastReq.Messages))
	}
	if gw.lastReq.Messages[0].Role != "system" || !strings.Contains(gw.lastReq.Messages[0].Content, "legal assistant") {
		t.Errorf("system message = %+v", gw.lastReq.Messages[0])
	}
	if gw.lastReq.Messages[1].Role != "user" || gw.lastReq.Messages[1].Content != "What is Section 420 IPC?" {
		t.Errorf("user message = %+v", gw.lastReq.Messages[1])
	}
}

func TestRespondTrimsHistoryWindow(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "gemma3:4b")

	var history []Message
	for i := 0; i < 10; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	if _, err := svc.Respond(context.Background(), Request{Message: "latest", History: history}); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	// system + 6 history turns + new user message
	if len(gw.lastReq.Messages) != 8 {
		t.Fatalf("got %d messages, want 8", len(gw.lastReq.Messages))
	}
	if gw.lastReq.Messages[1].Content != "turn 4" {
		t.Errorf("oldest kept turn = %q, want turn 4", gw.lastReq.Messages[1].Content)
	}
	if gw.lastReq.Messages[6].Content != "turn 9" {
		t.Errorf("newest history turn = %q, want turn 9", gw.lastReq.Messages[6].Content)
	}
}

func TestRespondRejectsBadInput(t *testing.T) {
	svc := NewService(&fakeGateway{}, "gemma3:4b")

	if _, err := svc.Respond(context.Background(), Request{Message: "  "}); err == nil {
		t.Error("empty message accepted")
	}
	if _, err := svc.Respond(context.Background(), Request{Message: "hi", Persona: "pirate"}); err == nil {
		t.Error("unknown persona accepted")
	}
}

func TestPersonasStableOrder(t *testing.T) {
	svc := NewService(&fakeGateway{}, "gemma3:4b")

	first := svc.Personas()
	if !sort.StringsAreSorted(first) {
		t.Errorf("personas not sorted: %v", first)
	}
	if len(first) != len(personas) {
		t.Fatalf("got %d personas, want %d", len(first), len(personas))
	}
	for i := 0; i < 20; i++ {
		again := svc.Personas()
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("persona order changed between calls: %v vs %v", first, again)
			}
		}
	}
}

func TestQuickActionsReferenceKnownPersonas(t *testing.T) {
	svc := NewService(&fakeGateway{}, "gemma3:4b")
	for _, qa := range svc.QuickActions() {
		if _, ok := personas[qa.Persona]; !ok {
			t.Errorf("quick action %s uses unknown persona %q", qa.ID, qa.Persona)
		}
		if qa.Prompt == "" || qa.Label == "" {
			t.Errorf("quick action %s is incomplete", qa.ID)
		}
	}
}
