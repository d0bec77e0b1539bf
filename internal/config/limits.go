package config

import "time"

const (
	// Chat
	MaxContentLength   = 4000
	HistoryReplayLimit = 50
	AIContextLimit     = 10

	// Rate limiting
	RateLimitEvents = 30
	RateLimitWindow = time.Minute

	// Client session
	ConnectTimeout        = 20 * time.Second
	JoinTimeout           = 10 * time.Second
	HeartbeatInterval     = 30 * time.Second
	ReconnectInitialDelay = 1 * time.Second
	ReconnectMaxDelay     = 30 * time.Second
	ReconnectMaxAttempts  = 5

	// Tokens
	TokenTTL = 72 * time.Hour
)
