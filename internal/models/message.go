package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Message senders.
const (
	SenderCandidate = "CANDIDATE"
	SenderAI        = "AI"
	SenderRecruiter = "RECRUITER"
)

// Message types.
const (
	MessageText   = "TEXT"
	MessageSystem = "SYSTEM"
)

// Message is a persisted chat entry. The auto-increment ID is the
// persistence-commit order within an interview; messages are never updated
// or deleted by the gateway.
type Message struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	InterviewID string `gorm:"type:text;not null;index:idx_interview_msg" json:"interviewId"`
	// Sender is one of SenderCandidate, SenderAI, SenderRecruiter.
	Sender string `gorm:"type:text;not null" json:"sender"`
	// Type is MessageText or MessageSystem.
	Type    string `gorm:"type:text;not null" json:"messageType"`
	Content string `gorm:"type:text;not null" json:"content"`
	// Metadata holds MessageMetadata for AI messages.
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"index:idx_interview_msg" json:"timestamp"`
}

// MessageMetadata is attached to AI responses.
type MessageMetadata struct {
	Confidence float64 `json:"confidence"`
	Intent     string  `json:"intent,omitempty"`
}

// Meta decodes Metadata. It returns nil when no metadata is stored.
func (m *Message) Meta() *MessageMetadata {
	if len(m.Metadata) == 0 || string(m.Metadata) == "null" {
		return nil
	}
	var meta MessageMetadata
	if err := json.Unmarshal(m.Metadata, &meta); err != nil {
		return nil
	}
	return &meta
}

// SetMeta encodes meta into Metadata.
func (m *Message) SetMeta(meta *MessageMetadata) {
	if meta == nil {
		m.Metadata = nil
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	m.Metadata = datatypes.JSON(raw)
}

// Payload converts a persisted message into its new_message wire form.
func (m *Message) Payload() MessagePayload {
	return MessagePayload{
		ID:          m.ID,
		InterviewID: m.InterviewID,
		Content:     m.Content,
		Sender:      m.Sender,
		MessageType: m.Type,
		Timestamp:   m.CreatedAt,
		Metadata:    m.Meta(),
	}
}
