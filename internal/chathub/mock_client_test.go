package chathub_test

import (
	"sync"

	"interviewhub/backend/internal/models"
)

// MockClient records every event the hub sends it.
type MockClient struct {
	connID string
	userID string
	role   string
	// capacity bounds the buffer; 0 means unbounded.
	capacity int

	mu        sync.Mutex
	events    []models.Event
	closed    bool
	closeCode int
}

func newMockClient(connID, userID, role string) *MockClient {
	return &MockClient{connID: connID, userID: userID, role: role}
}

func (c *MockClient) GetConnID() string { return c.connID }
func (c *MockClient) GetUserID() string { return c.userID }
func (c *MockClient) GetRole() string   { return c.role }

func (c *MockClient) Send(ev models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if c.capacity > 0 && len(c.events) >= c.capacity {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *MockClient) Run() {}

func (c *MockClient) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
}

func (c *MockClient) Closed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}

func (c *MockClient) Events() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.events...)
}

func (c *MockClient) Types() []models.EventType {
	var out []models.EventType
	for _, ev := range c.Events() {
		out = append(out, ev.Type)
	}
	return out
}

// OfType returns the events of type t, in arrival order.
func (c *MockClient) OfType(t models.EventType) []models.Event {
	var out []models.Event
	for _, ev := range c.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Reset forgets recorded events.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
