package ai

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

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second

	defaultMaxTokens   = 400
	defaultTemperature = 0.7
)

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint and
// asks for a JSON object {"reply", "confidence", "intent"}.
type OpenAIGenerator struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type structuredReply struct {
	Reply      string  `json:"reply"`
	Confidence float64 `json:"confidence"`
	Intent     string  `json:"intent"`
}

func NewOpenAIGenerator(apiKey, model, baseURL string, timeout time.Duration) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIGenerator{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	request := chatRequest{
		Model:          g.model,
		Messages:       buildMessages(req),
		MaxTokens:      defaultMaxTokens,
		Temperature:    defaultTemperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	body, err := g.makeRequest(ctx, "/chat/completions", request)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API request failed: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyReply
	}
	return parseReply(resp.Choices[0].Message.Content)
}

// parseReply accepts the structured JSON reply and falls back to treating the
// whole content as plain text when the model ignored the format.
func parseReply(content string) (*Result, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyReply
	}

	var sr structuredReply
	if err := json.Unmarshal([]byte(content), &sr); err == nil && strings.TrimSpace(sr.Reply) != "" {
		intent := sr.Intent
		if intent == "" {
			intent = IntentQuestion
		}
		return &Result{
			Text:       strings.TrimSpace(sr.Reply),
			Confidence: clampConfidence(sr.Confidence),
			Intent:     intent,
		}, nil
	}

	return &Result{Text: content, Confidence: 0.5, Intent: IntentQuestion}, nil
}

func buildMessages(req Request) []chatMessage {
	msgs := make([]chatMessage, 0, len(req.History)+1)
	msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt(req)})
	for _, t := range req.History {
		role := "user"
		content := t.Content
		switch t.Sender {
		case SenderAI:
			role = "assistant"
		case SenderRecruiter:
			content = "[recruiter] " + content
		}
		msgs = append(msgs, chatMessage{Role: role, Content: content})
	}
	return msgs
}

func systemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a professional technical interviewer")
	if req.Role.Title != "" {
		fmt.Fprintf(&b, " hiring for the role %q", req.Role.Title)
	}
	b.WriteString(".\n")
	if req.Role.Description != "" {
		fmt.Fprintf(&b, "Role description: %s\n", req.Role.Description)
	}
	if len(req.Role.Requirements) > 0 {
		fmt.Fprintf(&b, "Requirements: %s\n", strings.Join(req.Role.Requirements, ", "))
	}
	if req.Candidate.Name != "" {
		fmt.Fprintf(&b, "Candidate: %s", req.Candidate.Name)
		if req.Candidate.YearsExperience > 0 {
			fmt.Fprintf(&b, ", %d years of experience", req.Candidate.YearsExperience)
		}
		b.WriteString(".\n")
	}
	if req.Candidate.Summary != "" {
		fmt.Fprintf(&b, "Candidate summary: %s\n", req.Candidate.Summary)
	}
	if len(req.Candidate.Skills) > 0 {
		fmt.Fprintf(&b, "Known skills: %s\n", strings.Join(req.Candidate.Skills, ", "))
	}
	b.WriteString("Ask one concise question at a time and follow up on vague answers. ")
	b.WriteString(`Respond with a JSON object {"reply": string, "confidence": number between 0 and 1, "intent": one of "greeting", "question", "follow_up", "clarify", "closing"}.`)
	return b.String()
}

func (g *OpenAIGenerator) makeRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, string(responseBody))
	}
	return responseBody, nil
}
