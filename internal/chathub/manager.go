package chathub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"interviewhub/backend/internal/ai"
	"interviewhub/backend/internal/auth"
	"interviewhub/backend/internal/config"
	"interviewhub/backend/internal/interview"
	"interviewhub/backend/internal/metrics"
	"interviewhub/backend/internal/models"
	"interviewhub/backend/internal/ratelimit"
	"interviewhub/backend/internal/storage"

	"go.uber.org/zap"
)

// eventHandler handles one inbound event for c.
type eventHandler func(ctx context.Context, c Client, env models.Envelope) error

// Options are the collaborators of the hub.
type Options struct {
	Storage   storage.Storage
	Limiter   ratelimit.Limiter
	Generator ai.Generator
	Analyzer  Analyzer
	Chat      config.ChatConfig
	Logger    *zap.Logger
}

// ManagerService is the hub: it owns the connection set and the room
// registry and dispatches inbound events. It is built once per process and
// handed to every connection.
type ManagerService struct {
	Storage      storage.Storage
	Limiter      ratelimit.Limiter
	Interviews   *interview.Service
	Registry     *Registry
	Pipeline     *Pipeline
	Orchestrator *Orchestrator

	mu       sync.RWMutex
	Clients  map[string]Client // connID -> client
	lastSeen map[string]time.Time

	seq      roomSequencer
	handlers map[models.EventType]eventHandler
	chat     config.ChatConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewManagerService(opts Options) *ManagerService {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	chat := opts.Chat
	if chat.HistoryLimit <= 0 {
		chat.HistoryLimit = config.HistoryReplayLimit
	}
	if chat.ContextLimit <= 0 {
		chat.ContextLimit = config.AIContextLimit
	}
	if chat.MaxContent <= 0 {
		chat.MaxContent = config.MaxContentLength
	}

	m := &ManagerService{
		Storage:    opts.Storage,
		Limiter:    opts.Limiter,
		Interviews: interview.NewService(opts.Storage),
		Registry:   NewRegistry(log.Named("registry")),
		Clients:    make(map[string]Client),
		lastSeen:   make(map[string]time.Time),
		chat:       chat,
		log:        log,
		now:        time.Now,
	}
	m.Pipeline = &Pipeline{
		storage:    opts.Storage,
		registry:   m.Registry,
		seq:        &m.seq,
		maxContent: chat.MaxContent,
		log:        log.Named("pipeline"),
	}
	m.Orchestrator = &Orchestrator{
		storage:      opts.Storage,
		registry:     m.Registry,
		pipeline:     m.Pipeline,
		generator:    opts.Generator,
		analyzer:     opts.Analyzer,
		contextLimit: chat.ContextLimit,
		log:          log.Named("orchestrator"),
	}
	m.Pipeline.turns = m.Orchestrator

	m.handlers = map[models.EventType]eventHandler{
		models.EventJoinInterview:     m.handleJoin,
		models.EventSendMessage:       m.handleSendMessage,
		models.EventTypingStart:       m.handleTyping(true),
		models.EventTypingStop:        m.handleTyping(false),
		models.EventStartInterview:    m.handleStart,
		models.EventCompleteInterview: m.handleComplete,
		models.EventHeartbeat:         m.handleHeartbeat,
	}
	return m
}

// Register adds an authenticated connection and acknowledges it with a
// connected event.
func (m *ManagerService) Register(c Client) {
	m.mu.Lock()
	m.Clients[c.GetConnID()] = c
	m.lastSeen[c.GetConnID()] = m.now()
	m.mu.Unlock()

	metrics.ActiveConnections.Inc()
	m.log.Debug("client registered", zap.String("conn_id", c.GetConnID()), zap.String("user_id", c.GetUserID()))
	c.Send(models.NewEvent(models.EventConnected, models.ConnectedPayload{
		ConnID: c.GetConnID(),
		UserID: c.GetUserID(),
		Role:   c.GetRole(),
	}))
}

// Unregister removes the connection and its room membership. Safe to call
// more than once.
func (m *ManagerService) Unregister(c Client) {
	connID := c.GetConnID()
	m.mu.Lock()
	_, ok := m.Clients[connID]
	delete(m.Clients, connID)
	delete(m.lastSeen, connID)
	m.mu.Unlock()
	if !ok {
		return
	}
	metrics.ActiveConnections.Dec()

	if res, joined := m.Registry.Leave(connID, c.GetUserID()); joined && res.LastOfUser && !res.RoomClosed {
		m.Registry.Broadcast(res.Room, models.NewEvent(models.EventUserLeft, models.UserLeftPayload{
			UserID:    c.GetUserID(),
			Timestamp: m.now().UTC(),
		}), "")
	}
	c.Close(CloseNormal, "")
	m.log.Debug("client unregistered", zap.String("conn_id", connID))
}

// ClientCount returns the number of registered connections.
func (m *ManagerService) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Clients)
}

// LastSeen returns when the connection last registered or sent a heartbeat.
func (m *ManagerService) LastSeen(connID string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.lastSeen[connID]
	return t, ok
}

// HandleEvent dispatches one inbound event. Every failure is reported to c
// as an error event; the connection stays open.
func (m *ManagerService) HandleEvent(ctx context.Context, c Client, env models.Envelope) {
	handler, ok := m.handlers[env.Type]
	if !ok {
		m.replyError(c, env.Type, "", fmt.Errorf("%w: unknown event %q", ErrValidation, env.Type))
		return
	}

	clientID := ""
	if env.Type == models.EventSendMessage {
		var ref struct {
			ClientID string `json:"clientId"`
		}
		_ = json.Unmarshal(env.Data, &ref)
		clientID = ref.ClientID
	}

	if env.Type != models.EventHeartbeat {
		if err := m.admit(ctx, c.GetUserID()); err != nil {
			m.replyError(c, env.Type, clientID, err)
			return
		}
	}

	if err := handler(ctx, c, env); err != nil {
		m.replyError(c, env.Type, clientID, err)
	}
}

// Admit consumes one unit of the user's rate-limit window.
func (m *ManagerService) Admit(ctx context.Context, userID string) error {
	return m.admit(ctx, userID)
}

func (m *ManagerService) admit(ctx context.Context, userID string) error {
	if m.Limiter == nil {
		return nil
	}
	res, err := m.Limiter.Allow(ctx, userID)
	if err != nil {
		// Limiter backend outage: admit rather than lock every user out.
		m.log.Warn("rate limiter unavailable", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if !res.Allowed {
		return fmt.Errorf("%w: too many events, retry after %s", ErrRateLimited, res.ResetAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func (m *ManagerService) replyError(c Client, event models.EventType, clientID string, err error) {
	code := ErrorCode(err)
	metrics.RejectedEvents.WithLabelValues(code).Inc()
	if code == CodeInternal {
		m.log.Error("event failed", zap.String("conn_id", c.GetConnID()), zap.String("event", string(event)), zap.Error(err))
	} else {
		m.log.Debug("event rejected", zap.String("conn_id", c.GetConnID()), zap.String("event", string(event)), zap.Error(err))
	}
	c.Send(errorEvent(err, event, clientID))
}

func identityOf(c Client) auth.Identity {
	return auth.Identity{UserID: c.GetUserID(), Role: c.GetRole()}
}

func decode(env models.Envelope, v any) error {
	if err := env.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid %s payload", ErrValidation, env.Type)
	}
	return nil
}

// lifecycleError maps interview package errors onto the hub's taxonomy.
func lifecycleError(err error) error {
	switch {
	case errors.Is(err, interview.ErrForbidden):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case errors.Is(err, interview.ErrInvalidTransition):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: interview not found", ErrValidation)
	}
	return err
}

func (m *ManagerService) handleJoin(ctx context.Context, c Client, env models.Envelope) error {
	var req models.JoinInterviewRequest
	if err := decode(env, &req); err != nil {
		return err
	}
	if req.InterviewID == "" {
		return fmt.Errorf("%w: interviewId is required", ErrValidation)
	}

	ic, err := m.Interviews.Load(ctx, identityOf(c), req.InterviewID)
	if err != nil {
		return lifecycleError(err)
	}
	return m.join(ctx, c, ic)
}

// join holds the room's sequencer while loading history and adding the
// member, so the snapshot and later broadcasts neither overlap nor leave a
// gap.
func (m *ManagerService) join(ctx context.Context, c Client, ic *models.InterviewContext) error {
	room := ic.Interview.ID
	unlock := m.seq.lock(room)
	defer unlock()

	history, err := m.Storage.ListRecentMessages(ctx, room, m.chat.HistoryLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	res := m.Registry.Join(room, c)
	now := m.now().UTC()

	if res.PrevRoom != "" && res.LeftPrev {
		m.Registry.Broadcast(res.PrevRoom, models.NewEvent(models.EventUserLeft, models.UserLeftPayload{
			UserID:    c.GetUserID(),
			Timestamp: now,
		}), "")
	}

	messages := make([]models.MessagePayload, 0, len(history))
	for i := range history {
		messages = append(messages, history[i].Payload())
	}
	c.Send(models.NewEvent(models.EventInterviewJoined, models.InterviewJoinedPayload{
		Interview:      ic.Interview.Summary(),
		Messages:       messages,
		ConnectedUsers: res.Others,
	}))

	if res.FirstInRoom {
		m.Registry.Broadcast(room, models.NewEvent(models.EventUserJoined, models.UserJoinedPayload{
			UserID:    c.GetUserID(),
			UserRole:  c.GetRole(),
			Timestamp: now,
		}), c.GetConnID())
	}

	m.log.Info("joined interview",
		zap.String("interview_id", room),
		zap.String("user_id", c.GetUserID()),
		zap.String("conn_id", c.GetConnID()),
		zap.String("prev_room", res.PrevRoom),
	)
	return nil
}

func (m *ManagerService) handleSendMessage(ctx context.Context, c Client, env models.Envelope) error {
	var req models.SendMessageRequest
	if err := decode(env, &req); err != nil {
		return err
	}
	_, err := m.Pipeline.Submit(ctx, c, req)
	return err
}

func (m *ManagerService) handleTyping(isTyping bool) eventHandler {
	return func(ctx context.Context, c Client, env models.Envelope) error {
		room, ok := m.Registry.RoomOf(c.GetConnID())
		if !ok {
			return fmt.Errorf("%w: join an interview first", ErrValidation)
		}
		m.Registry.Broadcast(room, models.NewEvent(models.EventUserTyping, models.UserTypingPayload{
			UserID:   c.GetUserID(),
			IsTyping: isTyping,
		}), c.GetConnID())
		return nil
	}
}

// actionRoom resolves the interview a lifecycle event targets; it defaults to
// the caller's current room.
func (m *ManagerService) actionRoom(c Client, env models.Envelope) (string, error) {
	var req models.InterviewActionRequest
	if err := decode(env, &req); err != nil {
		return "", err
	}
	if req.InterviewID != "" {
		return req.InterviewID, nil
	}
	if room, ok := m.Registry.RoomOf(c.GetConnID()); ok {
		return room, nil
	}
	return "", fmt.Errorf("%w: interviewId is required", ErrValidation)
}

func (m *ManagerService) handleStart(ctx context.Context, c Client, env models.Envelope) error {
	if c.GetRole() != models.RoleRecruiter {
		return fmt.Errorf("%w: only recruiters can start interviews", ErrUnauthorized)
	}
	room, err := m.actionRoom(c, env)
	if err != nil {
		return err
	}
	if joined, _ := m.Registry.RoomOf(c.GetConnID()); joined != room {
		return fmt.Errorf("%w: join the interview before starting it", ErrValidation)
	}

	iv, err := m.Interviews.Start(ctx, identityOf(c), room)
	if err != nil {
		return lifecycleError(err)
	}

	started := models.NewEvent(models.EventInterviewStarted, models.InterviewStatusPayload{
		InterviewID: room,
		Timestamp:   *iv.StartedAt,
	})
	_, err = m.Pipeline.persistAndBroadcast(ctx, room, models.SenderRecruiter, models.MessageSystem, "Interview started", nil, "", started)
	return err
}

func (m *ManagerService) handleComplete(ctx context.Context, c Client, env models.Envelope) error {
	room, err := m.actionRoom(c, env)
	if err != nil {
		return err
	}

	iv, err := m.Interviews.Complete(ctx, identityOf(c), room)
	if err != nil {
		return lifecycleError(err)
	}

	ev := models.NewEvent(models.EventInterviewCompleted, models.InterviewStatusPayload{
		InterviewID: room,
		Timestamp:   *iv.CompletedAt,
	})
	unlock := m.seq.lock(room)
	m.Registry.Broadcast(room, ev, "")
	unlock()

	if joined, _ := m.Registry.RoomOf(c.GetConnID()); joined != room {
		c.Send(ev)
	}
	return nil
}

func (m *ManagerService) handleHeartbeat(ctx context.Context, c Client, env models.Envelope) error {
	var hb models.HeartbeatPayload
	if err := decode(env, &hb); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.Clients[c.GetConnID()]; ok {
		m.lastSeen[c.GetConnID()] = m.now()
	}
	m.mu.Unlock()
	c.Send(models.NewEvent(models.EventHeartbeatAck, hb))
	return nil
}

// Shutdown closes every connection with a going-away frame and waits for
// in-flight AI turns until ctx expires.
func (m *ManagerService) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	clients := make([]Client, 0, len(m.Clients))
	for _, c := range m.Clients {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	for _, c := range clients {
		c.Close(CloseGoingAway, "server shutting down")
	}
	m.log.Info("closed client connections", zap.Int("count", len(clients)))
	return m.Orchestrator.WaitContext(ctx)
}
