package client

import (
	"sync"
	"time"

	"interviewhub/backend/internal/models"
)

// OutboundStatus is the state of an optimistic message.
type OutboundStatus int

const (
	Pending OutboundStatus = iota
	Confirmed
	Failed
)

func (s OutboundStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// OutboundMessage is the local view of a sent message. ServerID and
// Timestamp are filled in from the server's echo.
type OutboundMessage struct {
	ClientID  string
	Content   string
	Status    OutboundStatus
	ServerID  uint
	Timestamp time.Time
	Reason    string
}

// Outbox tracks optimistic messages by client-generated id. Only Pending
// entries change state; Confirmed and Failed are final.
type Outbox struct {
	mu      sync.Mutex
	entries map[string]*OutboundMessage
	order   []string
}

func NewOutbox() *Outbox {
	return &Outbox{entries: make(map[string]*OutboundMessage)}
}

func (o *Outbox) Add(clientID, content string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[clientID] = &OutboundMessage{ClientID: clientID, Content: content, Status: Pending}
	o.order = append(o.order, clientID)
}

// Confirm reconciles the entry with the server's echo.
func (o *Outbox) Confirm(clientID string, msg models.MessagePayload) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[clientID]
	if !ok || e.Status != Pending {
		return false
	}
	e.Status = Confirmed
	e.ServerID = msg.ID
	e.Timestamp = msg.Timestamp
	e.Content = msg.Content
	return true
}

func (o *Outbox) Fail(clientID, reason string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[clientID]
	if !ok || e.Status != Pending {
		return false
	}
	e.Status = Failed
	e.Reason = reason
	return true
}

// FailPending fails every Pending entry and returns how many changed.
func (o *Outbox) FailPending(reason string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.entries {
		if e.Status == Pending {
			e.Status = Failed
			e.Reason = reason
			n++
		}
	}
	return n
}

func (o *Outbox) Get(clientID string) (OutboundMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[clientID]
	if !ok {
		return OutboundMessage{}, false
	}
	return *e, true
}

// List returns all entries in send order.
func (o *Outbox) List() []OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]OutboundMessage, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, *o.entries[id])
	}
	return out
}
