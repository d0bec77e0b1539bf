package chathub

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"interviewhub/backend/internal/metrics"
	"interviewhub/backend/internal/models"
	"interviewhub/backend/internal/storage"

	"go.uber.org/zap"
)

// Pipeline validates, persists and broadcasts chat messages. Candidate
// messages additionally start an AI turn.
type Pipeline struct {
	storage    storage.Storage
	registry   *Registry
	seq        *roomSequencer
	turns      *Orchestrator
	maxContent int
	log        *zap.Logger
}

// SenderFor maps a connection role to the message sender.
func SenderFor(role string) string {
	if role == models.RoleCandidate {
		return models.SenderCandidate
	}
	return models.SenderRecruiter
}

// Submit returns once the message is persisted and broadcast; it does not
// wait for the AI turn.
func (p *Pipeline) Submit(ctx context.Context, c Client, req models.SendMessageRequest) (*models.Message, error) {
	room, ok := p.registry.RoomOf(c.GetConnID())
	if !ok {
		return nil, fmt.Errorf("%w: join an interview before sending messages", ErrValidation)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrValidation)
	}
	if utf8.RuneCountInString(req.Content) > p.maxContent {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, p.maxContent)
	}

	msgType := req.MessageType
	switch msgType {
	case "", models.MessageText:
		msgType = models.MessageText
	case models.MessageSystem:
		if c.GetRole() == models.RoleCandidate {
			return nil, fmt.Errorf("%w: candidates cannot send system messages", ErrUnauthorized)
		}
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", ErrValidation, req.MessageType)
	}

	sender := SenderFor(c.GetRole())
	msg, err := p.persistAndBroadcast(ctx, room, sender, msgType, req.Content, nil, req.ClientID)
	if err != nil {
		return nil, err
	}

	if sender == models.SenderCandidate && msgType == models.MessageText {
		p.turns.Trigger(room, msg)
	}
	return msg, nil
}

// persistAndBroadcast holds the room's sequencer across the write and the
// fan-out.
func (p *Pipeline) persistAndBroadcast(ctx context.Context, room, sender, msgType, content string, meta *models.MessageMetadata, clientID string, before ...models.Event) (*models.Message, error) {
	unlock := p.seq.lock(room)
	defer unlock()

	msg, err := p.storage.CreateMessage(ctx, room, sender, msgType, content, meta)
	if err != nil {
		p.log.Error("failed to persist message",
			zap.String("interview_id", room),
			zap.String("sender", sender),
			zap.Error(err),
		)
		return nil, fmt.Errorf("persist message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(sender).Inc()

	for _, ev := range before {
		p.registry.Broadcast(room, ev, "")
	}
	payload := msg.Payload()
	payload.ClientID = clientID
	p.registry.Broadcast(room, models.NewEvent(models.EventNewMessage, payload), "")
	return msg, nil
}
