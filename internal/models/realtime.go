package models

import (
	"encoding/json"
	"time"
)

// EventType names a wire event. The set is closed: anything not listed
// below is rejected by the gateway.
type EventType string

// Client -> server.
const (
	EventJoinInterview     EventType = "join_interview"
	EventSendMessage       EventType = "send_message"
	EventTypingStart       EventType = "typing_start"
	EventTypingStop        EventType = "typing_stop"
	EventStartInterview    EventType = "start_interview"
	EventCompleteInterview EventType = "complete_interview"
	EventHeartbeat         EventType = "heartbeat"
)

// Server -> client.
const (
	EventConnected          EventType = "connected"
	EventInterviewJoined    EventType = "interview_joined"
	EventNewMessage         EventType = "new_message"
	EventUserTyping         EventType = "user_typing"
	EventAITyping           EventType = "ai_typing"
	EventUserJoined         EventType = "user_joined"
	EventUserLeft           EventType = "user_left"
	EventInterviewStarted   EventType = "interview_started"
	EventInterviewCompleted EventType = "interview_completed"
	EventProfileUpdated     EventType = "profile_updated"
	EventHeartbeatAck       EventType = "heartbeat_ack"
	EventError              EventType = "error"
)

// Envelope is the frame format on the wire: {"type": ..., "data": {...}}.
// Data is left raw so each handler decodes its own payload.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is an outbound frame with a typed payload.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

func NewEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data}
}

// Decode unmarshals the envelope payload into v. An absent payload leaves v
// untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// --- client -> server payloads ---

type JoinInterviewRequest struct {
	InterviewID string `json:"interviewId"`
}

type SendMessageRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"messageType,omitempty"`
	// ClientID is an optional client-generated id echoed back in new_message
	// so the sender can reconcile its optimistic entry.
	ClientID string `json:"clientId,omitempty"`
}

type InterviewActionRequest struct {
	InterviewID string `json:"interviewId"`
}

type HeartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// --- server -> client payloads ---

type ConnectedPayload struct {
	ConnID string `json:"connId"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Participant is one member of an interview room.
type Participant struct {
	UserID string `json:"userId"`
	Role   string `json:"userRole"`
}

type InterviewSummary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	RoleTitle   string     `json:"roleTitle"`
	Status      string     `json:"status"`
	RecruiterID string     `json:"recruiterId"`
	CandidateID string     `json:"candidateId"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type InterviewJoinedPayload struct {
	Interview      InterviewSummary `json:"interview"`
	Messages       []MessagePayload `json:"messages"`
	ConnectedUsers []Participant    `json:"connectedUsers"`
}

type MessagePayload struct {
	ID          uint             `json:"id"`
	InterviewID string           `json:"interviewId"`
	Content     string           `json:"content"`
	Sender      string           `json:"sender"`
	MessageType string           `json:"messageType"`
	Timestamp   time.Time        `json:"timestamp"`
	Metadata    *MessageMetadata `json:"metadata,omitempty"`
	ClientID    string           `json:"clientId,omitempty"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type AITypingPayload struct {
	IsTyping bool `json:"isTyping"`
}

type UserJoinedPayload struct {
	UserID    string    `json:"userId"`
	UserRole  string    `json:"userRole"`
	Timestamp time.Time `json:"timestamp"`
}

type UserLeftPayload struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type InterviewStatusPayload struct {
	InterviewID string    `json:"interviewId"`
	Timestamp   time.Time `json:"timestamp"`
}

type ProfileUpdatedPayload struct {
	CandidateID     string        `json:"candidateId"`
	Analysis        ProfileScores `json:"analysis"`
	Profile         ProfileScores `json:"profile"`
	ExtractedSkills []string      `json:"extractedSkills"`
}

// ErrorPayload reports a rejected request. Event names the inbound event that
// failed and ClientID echoes send_message's clientId, so the client can tie
// the error to a pending request.
type ErrorPayload struct {
	Message  string    `json:"message"`
	Code     string    `json:"code"`
	Event    EventType `json:"event,omitempty"`
	ClientID string    `json:"clientId,omitempty"`
}
