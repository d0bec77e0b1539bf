package chathub_test

import (
	"context"
	"encoding/json"
	"testing"

	"interviewhub/backend/internal/ai"
	"interviewhub/backend/internal/analysis"
	"interviewhub/backend/internal/chathub"
	"interviewhub/backend/internal/config"
	"interviewhub/backend/internal/models"
	"interviewhub/backend/internal/ratelimit"
	"interviewhub/backend/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	candUser  = "cand-user"
	cand2User = "cand2-user"
	ownerRec  = "rec-1"
	otherRec  = "rec-2"
	adminUser = "admin-1"
)

func seedStore() *storage.MemoryStore {
	s := storage.NewMemoryStore()
	s.AddUser(models.User{ID: candUser, Role: models.RoleCandidate})
	s.AddUser(models.User{ID: cand2User, Role: models.RoleCandidate})
	s.AddUser(models.User{ID: ownerRec, Role: models.RoleRecruiter})
	s.AddUser(models.User{ID: otherRec, Role: models.RoleRecruiter})
	s.AddUser(models.User{ID: adminUser, Role: models.RoleAdmin})
	s.AddCandidate(models.Candidate{ID: "c1", UserID: candUser, Name: "Ada", Skills: []string{"Go"}})
	s.AddCandidate(models.Candidate{ID: "c2", UserID: cand2User, Name: "Linus"})
	s.AddInterview(models.Interview{
		ID: "I1", Title: "Backend loop", RoleTitle: "Backend Engineer",
		Requirements: []string{"Go", "PostgreSQL"},
		RecruiterID:  ownerRec, CandidateID: "c1",
	})
	s.AddInterview(models.Interview{ID: "I2", RoleTitle: "SRE", RecruiterID: ownerRec, CandidateID: "c2"})
	return s
}

func replyWith(text string) ai.Generator {
	return ai.GeneratorFunc(func(ctx context.Context, req ai.Request) (*ai.Result, error) {
		return &ai.Result{Text: text, Confidence: 0.8, Intent: ai.IntentQuestion}, nil
	})
}

type hubOption func(*chathub.Options)

func withLimiter(l ratelimit.Limiter) hubOption {
	return func(o *chathub.Options) { o.Limiter = l }
}

func withAnalyzer(a chathub.Analyzer) hubOption {
	return func(o *chathub.Options) { o.Analyzer = a }
}

func withChat(c config.ChatConfig) hubOption {
	return func(o *chathub.Options) { o.Chat = c }
}

func newHub(t *testing.T, store storage.Storage, gen ai.Generator, opts ...hubOption) *chathub.ManagerService {
	t.Helper()
	o := chathub.Options{
		Storage:   store,
		Generator: gen,
		Analyzer:  analysis.NewKeywordAnalyzer(),
		Chat: config.ChatConfig{
			HistoryLimit: config.HistoryReplayLimit,
			ContextLimit: config.AIContextLimit,
			MaxContent:   config.MaxContentLength,
		},
		Logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	hub := chathub.NewManagerService(o)
	t.Cleanup(hub.Orchestrator.Wait)
	return hub
}

func envelope(t *testing.T, typ models.EventType, payload any) models.Envelope {
	t.Helper()
	env := models.Envelope{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		env.Data = raw
	}
	return env
}

func connect(hub *chathub.ManagerService, connID, userID, role string) *MockClient {
	c := newMockClient(connID, userID, role)
	hub.Register(c)
	return c
}

func join(t *testing.T, hub *chathub.ManagerService, c *MockClient, interviewID string) {
	t.Helper()
	hub.HandleEvent(context.Background(), c, envelope(t, models.EventJoinInterview, models.JoinInterviewRequest{InterviewID: interviewID}))
}

func send(t *testing.T, hub *chathub.ManagerService, c *MockClient, content string) {
	t.Helper()
	hub.HandleEvent(context.Background(), c, envelope(t, models.EventSendMessage, models.SendMessageRequest{Content: content}))
}

func lastError(t *testing.T, c *MockClient) models.ErrorPayload {
	t.Helper()
	errs := c.OfType(models.EventError)
	require.NotEmpty(t, errs, "expected an error event")
	return errs[len(errs)-1].Data.(models.ErrorPayload)
}
