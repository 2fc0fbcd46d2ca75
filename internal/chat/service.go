package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/legaldrishti/backend/internal/llm"
)

// historyWindow bounds how much conversation is replayed to the model. Older
// turns are dropped, newest kept.
const historyWindow = 6

// personas are the system prompts the assistant can speak with.
var personas = map[string]string{
	"legal_assistant": "You are a knowledgeable legal assistant for Indian law. " +
		"Answer questions about statutes, case law and legal procedure precisely, " +
		"cite the relevant acts and sections when you rely on them, and say clearly " +
		"when something requires advice from a qualified advocate.",
	"document_analysis": "You analyze legal documents. Given document text, identify " +
		"the parties, the court, the issues, the holding and the reasoning. Be factual " +
		"and quote the document rather than paraphrasing when precision matters.",
	"general": "You are a helpful assistant for a legal research platform. " +
		"Answer concisely and accurately.",
}

// QuickAction is a canned prompt the UI offers as a one-tap message.
type QuickAction struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Prompt  string `json:"prompt"`
	Persona string `json:"persona"`
}

var quickActions = []QuickAction{
	{ID: "summarize", Label: "Summarize this document", Prompt: "Summarize the following legal document in plain language:", Persona: "document_analysis"},
	{ID: "key_points", Label: "Extract key points", Prompt: "List the key legal points and holdings in the following text:", Persona: "document_analysis"},
	{ID: "explain_section", Label: "Explain a section", Prompt: "Explain the following statutory section in simple terms:", Persona: "legal_assistant"},
	{ID: "draft_notice", Label: "Draft a legal notice", Prompt: "Draft a formal legal notice based on these facts:", Persona: "legal_assistant"},
	{ID: "case_search_help", Label: "Find relevant precedents", Prompt: "What kinds of precedents should I look for regarding:", Persona: "legal_assistant"},
}

type Message struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

type Request struct {
	Message  string    `json:"message"`
	History  []Message `json:"history,omitempty"`
	Persona  string    `json:"persona,omitempty"`
	Provider string    `json:"provider,omitempty"`
	Model    string    `json:"model,omitempty"`
}

type Response struct {
	Reply      string `json:"reply"`
	Persona    string `json:"persona"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
	LatencyMs  int64  `json:"latency_ms"`
}

// Service answers chat requests through the injected LLM gateway.
type Service struct {
	gateway      llm.Gateway
	defaultModel string
}

func NewService(gateway llm.Gateway, defaultModel string) *Service {
	return &Service{gateway: gateway, defaultModel: defaultModel}
}

func (s *Service) Respond(ctx context.Context, req Request) (*Response, error) {
	llmReq, persona, err := s.buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := s.gateway.Chat(ctx, *llmReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	return &Response{
		Reply:      resp.Content,
		Persona:    persona,
		Provider:   resp.Provider,
		Model:      resp.Model,
		TokensUsed: resp.TotalTokens,
		LatencyMs:  resp.LatencyMs,
	}, nil
}

// Stream returns the model's reply incrementally.
func (s *Service) Stream(ctx context.Context, req Request) (<-chan llm.StreamChunk, error) {
	llmReq, _, err := s.buildRequest(req)
	if err != nil {
		return nil, err
	}
	llmReq.Stream = true
	return s.gateway.ChatStream(ctx, *llmReq)
}

func (s *Service) buildRequest(req Request) (*llm.ChatRequest, string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, "", fmt.Errorf("message is empty")
	}

	persona := req.Persona
	if persona == "" {
		persona = "legal_assistant"
	}
	system, ok := personas[persona]
	if !ok {
		return nil, "", fmt.Errorf("unknown persona %q", persona)
	}

	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	for _, m := range history {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: req.Message})

	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	return &llm.ChatRequest{
		Provider:    req.Provider,
		Model:       model,
		Messages:    messages,
		Temperature: 0.3,
	}, persona, nil
}

// Personas lists the available persona names in stable order.
func (s *Service) Personas() []string {
	names := make([]string, 0, len(personas))
	for name := range personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Service) QuickActions() []QuickAction {
	return quickActions
}

func (s *Service) Models() []llm.ModelInfo {
	return s.gateway.ListModels()
}
