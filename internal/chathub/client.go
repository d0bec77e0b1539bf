package chathub

import "interviewhub/backend/internal/models"

// Close codes used when the server drops a connection.
const (
	CloseNormal       = 1000
	CloseGoingAway    = 1001
	CloseSlowConsumer = 1008
)

// Client is one authenticated connection. The hub only talks to connections
// through this interface, so tests can substitute in-memory clients.
type Client interface {
	// GetConnID returns the id of this connection. A user may hold several.
	GetConnID() string
	GetUserID() string
	GetRole() string

	// Send queues ev for delivery without blocking. It returns false when the
	// connection is closed or its buffer is full.
	Send(ev models.Event) bool

	// Run starts the read and write pumps.
	Run()
	// Close shuts the connection down with a close frame carrying code and
	// reason. Events queued before Close are still delivered. Calling Close
	// more than once is a no-op.
	Close(code int, reason string)
}
