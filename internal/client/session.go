// Package client is the participant-side session manager: it keeps one
// websocket connection to the gateway alive, reconnects with capped
// exponential backoff and reconciles optimistic sends with server echoes.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"interviewhub/backend/internal/config"
	"interviewhub/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	// StateGivenUp is terminal until Reconnect is called.
	StateGivenUp
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateGivenUp:
		return "given_up"
	}
	return "unknown"
}

var (
	ErrConnectTimeout   = errors.New("client: connection timed out")
	ErrNotConnected     = errors.New("client: not connected")
	ErrAlreadyConnected = errors.New("client: already connected")
	ErrJoinTimeout      = errors.New("client: join timed out")
	errCancelled        = errors.New("client: cancelled")
)

const writeWait = 10 * time.Second

// ServerError is an error event returned for a request.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Handler receives inbound events of one type.
type Handler func(env models.Envelope)

type Options struct {
	// URL is the gateway websocket endpoint, e.g. ws://localhost:8080/ws.
	URL   string
	Token string

	ConnectTimeout        time.Duration
	JoinTimeout           time.Duration
	HeartbeatInterval     time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	MaxReconnectAttempts  int

	Dialer *websocket.Dialer
	Logger *zap.Logger
}

func (o *Options) setDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = config.ConnectTimeout
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = config.JoinTimeout
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = config.HeartbeatInterval
	}
	if o.ReconnectInitialDelay <= 0 {
		o.ReconnectInitialDelay = config.ReconnectInitialDelay
	}
	if o.ReconnectMaxDelay <= 0 {
		o.ReconnectMaxDelay = config.ReconnectMaxDelay
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = config.ReconnectMaxAttempts
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Backoff returns min(initial * 2^attempt, max).
func Backoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 62 {
		return max
	}
	d := initial << uint(attempt)
	if d <= 0 || d > max {
		return max
	}
	return d
}

// Session manages one participant connection.
type Session struct {
	opts   Options
	log    *zap.Logger
	outbox *Outbox

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	gen         uint64
	connID      string
	interviewID string
	stopHB      chan struct{}
	cancel      chan struct{}
	lastErr     error
	joinWait    chan models.Envelope
	joinID      string
	handlers    map[models.EventType][]Handler
	stateFns    []func(State)

	writeMu sync.Mutex
	joinMu  sync.Mutex
}

func NewSession(opts Options) *Session {
	opts.setDefaults()
	return &Session{
		opts:     opts,
		log:      opts.Logger,
		outbox:   NewOutbox(),
		handlers: make(map[models.EventType][]Handler),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError is the most recent connection error.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) ConnID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connID
}

// InterviewID is the interview last joined; it is rejoined after a reconnect.
func (s *Session) InterviewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interviewID
}

func (s *Session) Outbox() *Outbox {
	return s.outbox
}

// On registers h for events of type t. Handlers run on the read goroutine.
func (s *Session) On(t models.EventType, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[t] = append(s.handlers[t], h)
}

// OnStateChange registers fn to be called after every state change.
func (s *Session) OnStateChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateFns = append(s.stateFns, fn)
}

// transitionLocked sets the state and returns the notification to run once
// s.mu is released.
func (s *Session) transitionLocked(st State) func() {
	if s.state == st {
		return func() {}
	}
	s.state = st
	fns := append(([]func(State))(nil), s.stateFns...)
	return func() {
		for _, fn := range fns {
			fn(st)
		}
	}
}

// Connect dials the gateway and waits for the connected acknowledgment.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateConnected, StateReconnecting:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	cancel := make(chan struct{})
	s.cancel = cancel
	notify := s.transitionLocked(StateConnecting)
	s.mu.Unlock()
	notify()

	if err := s.establish(ctx, cancel); err != nil {
		s.mu.Lock()
		s.lastErr = err
		notify = func() {}
		if s.state == StateConnecting {
			notify = s.transitionLocked(StateDisconnected)
		}
		s.mu.Unlock()
		notify()
		return err
	}
	return nil
}

func (s *Session) establish(ctx context.Context, cancel <-chan struct{}) error {
	cctx, stop := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer stop()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.opts.Token)
	conn, _, err := s.opts.Dialer.DialContext(cctx, s.opts.URL, header)
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return ErrConnectTimeout
		}
		return fmt.Errorf("dial: %w", err)
	}

	deadline, _ := cctx.Deadline()
	conn.SetReadDeadline(deadline)
	env, err := readEnvelope(conn)
	if err != nil {
		conn.Close()
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return ErrConnectTimeout
		}
		return fmt.Errorf("awaiting connected: %w", err)
	}
	if env.Type != models.EventConnected {
		conn.Close()
		return fmt.Errorf("unexpected first event %q", env.Type)
	}
	var ack models.ConnectedPayload
	_ = env.Decode(&ack)
	conn.SetReadDeadline(time.Time{})

	s.mu.Lock()
	select {
	case <-cancel:
		s.mu.Unlock()
		conn.Close()
		return errCancelled
	default:
	}
	s.gen++
	gen := s.gen
	s.conn = conn
	s.connID = ack.ConnID
	stopHB := make(chan struct{})
	s.stopHB = stopHB
	s.lastErr = nil
	notify := s.transitionLocked(StateConnected)
	s.mu.Unlock()
	notify()

	s.log.Info("connected", zap.String("conn_id", ack.ConnID))
	s.dispatch(env)
	go s.readLoop(conn, gen)
	go s.heartbeat(stopHB)
	return nil
}

func readEnvelope(conn *websocket.Conn) (models.Envelope, error) {
	var env models.Envelope
	_, data, err := conn.ReadMessage()
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode frame: %w", err)
	}
	return env, nil
}

func (s *Session) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.connectionLost(gen, err)
			return
		}
		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.log.Warn("malformed frame from server", zap.Error(err))
			continue
		}
		s.dispatch(env)
	}
}

// connectionLost decides between Disconnected and Reconnecting. Any close
// frame from the server is deliberate; a dropped transport is not.
func (s *Session) connectionLost(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen || s.conn == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopHB)
	s.stopHB = nil
	s.conn.Close()
	s.conn = nil
	s.lastErr = err

	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
		notify := s.transitionLocked(StateDisconnected)
		s.mu.Unlock()
		notify()
		s.outbox.FailPending("connection closed by server")
		s.log.Info("server closed the connection", zap.Int("code", ce.Code), zap.String("reason", ce.Text))
		return
	}

	cancel := s.cancel
	notify := s.transitionLocked(StateReconnecting)
	s.mu.Unlock()
	notify()
	s.outbox.FailPending("connection lost")
	s.log.Warn("connection lost, reconnecting", zap.Error(err))
	go s.reconnectLoop(cancel)
}

func (s *Session) reconnectLoop(cancel <-chan struct{}) {
	for attempt := 0; attempt < s.opts.MaxReconnectAttempts; attempt++ {
		delay := Backoff(attempt, s.opts.ReconnectInitialDelay, s.opts.ReconnectMaxDelay)
		timer := time.NewTimer(delay)
		select {
		case <-cancel:
			timer.Stop()
			return
		case <-timer.C:
		}

		err := s.establish(context.Background(), cancel)
		if err == nil {
			s.rejoin(context.Background())
			return
		}
		if errors.Is(err, errCancelled) {
			return
		}
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.log.Warn("reconnect attempt failed", zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))
	}

	s.mu.Lock()
	select {
	case <-cancel:
		s.mu.Unlock()
		return
	default:
	}
	notify := s.transitionLocked(StateGivenUp)
	s.mu.Unlock()
	notify()
	s.log.Error("giving up on reconnecting", zap.Int("attempts", s.opts.MaxReconnectAttempts))
}

func (s *Session) rejoin(ctx context.Context) {
	id := s.InterviewID()
	if id == "" {
		return
	}
	if _, err := s.JoinInterview(ctx, id); err != nil {
		s.log.Warn("rejoin failed", zap.String("interview_id", id), zap.Error(err))
	}
}

// Disconnect closes the connection deliberately; no reconnect follows.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.cancel != nil {
		select {
		case <-s.cancel:
		default:
			close(s.cancel)
		}
	}
	conn := s.conn
	s.conn = nil
	s.gen++
	if s.stopHB != nil {
		close(s.stopHB)
		s.stopHB = nil
	}
	notify := s.transitionLocked(StateDisconnected)
	s.mu.Unlock()
	notify()

	if conn != nil {
		s.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		conn.Close()
	}
}

// Reconnect is the explicit retry, e.g. from StateGivenUp. It rejoins the
// last interview.
func (s *Session) Reconnect(ctx context.Context) error {
	s.Disconnect()
	if err := s.Connect(ctx); err != nil {
		return err
	}
	s.rejoin(ctx)
	return nil
}

func (s *Session) dispatch(env models.Envelope) {
	switch env.Type {
	case models.EventNewMessage:
		var msg models.MessagePayload
		if err := env.Decode(&msg); err == nil && msg.ClientID != "" {
			s.outbox.Confirm(msg.ClientID, msg)
		}
	case models.EventError:
		var ep models.ErrorPayload
		if err := env.Decode(&ep); err == nil {
			if ep.ClientID != "" {
				s.outbox.Fail(ep.ClientID, ep.Message)
			}
			if ep.Event == models.EventJoinInterview {
				s.deliverJoin(env, "")
			}
		}
	case models.EventInterviewJoined:
		var joined models.InterviewJoinedPayload
		if err := env.Decode(&joined); err == nil {
			s.deliverJoin(env, joined.Interview.ID)
		}
	}

	s.mu.Lock()
	hs := append([]Handler(nil), s.handlers[env.Type]...)
	s.mu.Unlock()
	for _, h := range hs {
		h(env)
	}
}

// deliverJoin hands a join reply to the pending JoinInterview. A snapshot for
// another interview is a late answer to an earlier, timed-out join and is
// dropped; error replies carry no interview id and are always delivered.
func (s *Session) deliverJoin(env models.Envelope, interviewID string) {
	s.mu.Lock()
	w := s.joinWait
	want := s.joinID
	s.mu.Unlock()
	if w == nil || (interviewID != "" && interviewID != want) {
		return
	}
	select {
	case w <- env:
	default:
	}
}

func (s *Session) write(ev models.Event) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func (s *Session) heartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if err := s.write(models.NewEvent(models.EventHeartbeat, models.HeartbeatPayload{Timestamp: now.UnixMilli()})); err != nil {
				s.log.Debug("heartbeat failed", zap.Error(err))
			}
		}
	}
}

// JoinInterview asks to join and waits for the snapshot, bounded by the join
// timeout independently of the connection timeout.
func (s *Session) JoinInterview(ctx context.Context, interviewID string) (*models.InterviewJoinedPayload, error) {
	s.joinMu.Lock()
	defer s.joinMu.Unlock()

	wait := make(chan models.Envelope, 1)
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	s.joinWait = wait
	s.joinID = interviewID
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.joinWait = nil
		s.joinID = ""
		s.mu.Unlock()
	}()

	if err := s.write(models.NewEvent(models.EventJoinInterview, models.JoinInterviewRequest{InterviewID: interviewID})); err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.opts.JoinTimeout)
	defer timer.Stop()
	select {
	case env := <-wait:
		if env.Type == models.EventError {
			var ep models.ErrorPayload
			_ = env.Decode(&ep)
			return nil, &ServerError{Code: ep.Code, Message: ep.Message}
		}
		var joined models.InterviewJoinedPayload
		if err := env.Decode(&joined); err != nil {
			return nil, fmt.Errorf("decode interview_joined: %w", err)
		}
		s.mu.Lock()
		s.interviewID = interviewID
		s.mu.Unlock()
		return &joined, nil
	case <-timer.C:
		return nil, ErrJoinTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendMessage records an optimistic Pending entry and dispatches it. It
// returns once the frame is written; the server echo confirms the entry.
func (s *Session) SendMessage(content string) (string, error) {
	clientID := uuid.NewString()
	s.outbox.Add(clientID, content)
	err := s.write(models.NewEvent(models.EventSendMessage, models.SendMessageRequest{
		Content:  content,
		ClientID: clientID,
	}))
	if err != nil {
		s.outbox.Fail(clientID, err.Error())
		return clientID, err
	}
	return clientID, nil
}

func (s *Session) SetTyping(typing bool) error {
	t := models.EventTypingStop
	if typing {
		t = models.EventTypingStart
	}
	return s.write(models.NewEvent(t, nil))
}

func (s *Session) StartInterview(interviewID string) error {
	return s.write(models.NewEvent(models.EventStartInterview, models.InterviewActionRequest{InterviewID: interviewID}))
}

func (s *Session) CompleteInterview(interviewID string) error {
	return s.write(models.NewEvent(models.EventCompleteInterview, models.InterviewActionRequest{InterviewID: interviewID}))
}
