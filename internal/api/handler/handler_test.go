package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"interviewhub/backend/internal/ai"
	"interviewhub/backend/internal/analysis"
	"interviewhub/backend/internal/api/handler"
	"interviewhub/backend/internal/auth"
	"interviewhub/backend/internal/chathub"
	"interviewhub/backend/internal/config"
	"interviewhub/backend/internal/models"
	"interviewhub/backend/internal/ratelimit"
	"interviewhub/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	server *httptest.Server
	hub    *chathub.ManagerService
	tokens *auth.TokenManager
	store  *storage.MemoryStore
	h      *handler.Handler
}

func newEnv(t *testing.T, events int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	store.AddUser(models.User{ID: "cand-user", Role: models.RoleCandidate})
	store.AddUser(models.User{ID: "rec-1", Role: models.RoleRecruiter})
	store.AddCandidate(models.Candidate{ID: "c1", UserID: "cand-user", Name: "Ada"})
	store.AddInterview(models.Interview{ID: "I1", RoleTitle: "Backend Engineer", RecruiterID: "rec-1", CandidateID: "c1"})

	hub := chathub.NewManagerService(chathub.Options{
		Storage: store,
		Limiter: ratelimit.NewMemoryLimiter(ratelimit.Config{Events: events, Window: time.Hour}),
		Generator: ai.GeneratorFunc(func(ctx context.Context, req ai.Request) (*ai.Result, error) {
			return &ai.Result{Text: "Tell me about your last project.", Confidence: 0.7, Intent: ai.IntentQuestion}, nil
		}),
		Analyzer: analysis.NewKeywordAnalyzer(),
		Chat:     config.ChatConfig{HistoryLimit: 50, ContextLimit: 10, MaxContent: 4000},
		Logger:   zap.NewNop(),
	})
	tokens := auth.NewTokenManager("test-secret", "interviewhub-gateway", time.Hour)
	authn := auth.NewAuthenticator(tokens, auth.DirectoryLookup(store))
	h := handler.NewHandler(hub, authn, tokens, nil, zap.NewNop())
	h.IssueEnabled = true

	srv := httptest.NewServer(h.Router())
	t.Cleanup(func() {
		srv.Close()
		hub.Orchestrator.Wait()
	})
	return &testEnv{server: srv, hub: hub, tokens: tokens, store: store, h: h}
}

func (e *testEnv) wsURL(token string) string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?token=" + token
}

func (e *testEnv) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := e.tokens.Issue(userID, "")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL(token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) models.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env models.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func writeEvent(t *testing.T, conn *websocket.Conn, typ models.EventType, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(models.NewEvent(typ, payload)))
}

func TestWebSocket_EndToEndConversation(t *testing.T) {
	env := newEnv(t, 100)
	conn := env.dial(t, "cand-user")

	first := readEnvelope(t, conn)
	require.Equal(t, models.EventConnected, first.Type)
	var ack models.ConnectedPayload
	require.NoError(t, first.Decode(&ack))
	assert.Equal(t, "cand-user", ack.UserID)
	assert.Equal(t, models.RoleCandidate, ack.Role)

	writeEvent(t, conn, models.EventJoinInterview, models.JoinInterviewRequest{InterviewID: "I1"})
	joined := readEnvelope(t, conn)
	require.Equal(t, models.EventInterviewJoined, joined.Type)
	assert.JSONEq(t, `[]`, string(mustField(t, joined.Data, "connectedUsers")))
	assert.JSONEq(t, `[]`, string(mustField(t, joined.Data, "messages")))

	writeEvent(t, conn, models.EventSendMessage, models.SendMessageRequest{Content: "Hello", ClientID: "tmp-1"})

	var types []models.EventType
	var msgs []models.MessagePayload
	for len(types) < 5 {
		ev := readEnvelope(t, conn)
		types = append(types, ev.Type)
		if ev.Type == models.EventNewMessage {
			var m models.MessagePayload
			require.NoError(t, ev.Decode(&m))
			msgs = append(msgs, m)
		}
	}
	assert.Equal(t, []models.EventType{
		models.EventNewMessage, models.EventAITyping, models.EventAITyping,
		models.EventNewMessage, models.EventProfileUpdated,
	}, types)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, "tmp-1", msgs[0].ClientID)
	assert.Equal(t, models.SenderAI, msgs[1].Sender)

	writeEvent(t, conn, models.EventHeartbeat, models.HeartbeatPayload{Timestamp: 99})
	hb := readEnvelope(t, conn)
	assert.Equal(t, models.EventHeartbeatAck, hb.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	bad := readEnvelope(t, conn)
	require.Equal(t, models.EventError, bad.Type)
	var errPayload models.ErrorPayload
	require.NoError(t, bad.Decode(&errPayload))
	assert.Equal(t, chathub.CodeValidation, errPayload.Code)
}

func TestWebSocket_OversizedMessageKeepsConnection(t *testing.T) {
	env := newEnv(t, 100)
	conn := env.dial(t, "cand-user")
	require.Equal(t, models.EventConnected, readEnvelope(t, conn).Type)

	writeEvent(t, conn, models.EventJoinInterview, models.JoinInterviewRequest{InterviewID: "I1"})
	require.Equal(t, models.EventInterviewJoined, readEnvelope(t, conn).Type)

	writeEvent(t, conn, models.EventSendMessage, models.SendMessageRequest{
		Content:  strings.Repeat("a", 40000),
		ClientID: "tmp-big",
	})
	rejected := readEnvelope(t, conn)
	require.Equal(t, models.EventError, rejected.Type)
	var errPayload models.ErrorPayload
	require.NoError(t, rejected.Decode(&errPayload))
	assert.Equal(t, chathub.CodeValidation, errPayload.Code)
	assert.Equal(t, models.EventSendMessage, errPayload.Event)
	assert.Equal(t, "tmp-big", errPayload.ClientID)

	writeEvent(t, conn, models.EventSendMessage, models.SendMessageRequest{Content: "Still here", ClientID: "tmp-2"})
	next := readEnvelope(t, conn)
	require.Equal(t, models.EventNewMessage, next.Type)
	var msg models.MessagePayload
	require.NoError(t, next.Decode(&msg))
	assert.Equal(t, "Still here", msg.Content)
	assert.Equal(t, "tmp-2", msg.ClientID)
	for _, m := range env.store.Messages("I1") {
		assert.NotEqual(t, 40000, len(m.Content))
	}
}

func mustField(t *testing.T, raw json.RawMessage, field string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	v, ok := m[field]
	require.True(t, ok, "missing field %s", field)
	return v
}

func TestWebSocket_RefusesUnauthenticated(t *testing.T) {
	env := newEnv(t, 100)

	for name, token := range map[string]string{
		"missing":      "",
		"garbage":      "abc.def.ghi",
		"unknown user": mustIssue(t, env.tokens, "ghost"),
	} {
		t.Run(name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(token), nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, env.hub.ClientCount())
}

func mustIssue(t *testing.T, tm *auth.TokenManager, userID string) string {
	t.Helper()
	tok, err := tm.Issue(userID, "")
	require.NoError(t, err)
	return tok
}

func TestWebSocket_RateLimitsEstablishment(t *testing.T) {
	env := newEnv(t, 1)
	env.dial(t, "rec-1")

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(mustIssue(t, env.tokens, "rec-1")), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestWebSocket_ShutdownSendsGoingAway(t *testing.T) {
	env := newEnv(t, 100)
	conn := env.dial(t, "rec-1")
	assert.Equal(t, models.EventConnected, readEnvelope(t, conn).Type)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, env.hub.Shutdown(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected a close frame, got %v", err)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)

	assert.Eventually(t, func() bool { return env.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestIssueToken(t *testing.T) {
	env := newEnv(t, 100)
	router := env.h.Router()

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	w := post(`{"userId":"rec-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.RoleRecruiter, resp.Role)
	claims, err := env.tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", claims.UserID)

	assert.Equal(t, http.StatusNotFound, post(`{"userId":"ghost"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)

	env.h.IssueEnabled = false
	assert.Equal(t, http.StatusNotFound, post(`{"userId":"rec-1"}`).Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newEnv(t, 100)
	router := env.h.Router()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
