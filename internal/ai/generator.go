// Package ai implements the interviewer's reply generation. The gateway treats
// it as a black box: conversation history plus role and candidate context in,
// reply text with confidence and intent out.
package ai

import (
	"context"
	"errors"
)

// Turn senders, matching models.Sender* values.
const (
	SenderCandidate = "CANDIDATE"
	SenderAI        = "AI"
	SenderRecruiter = "RECRUITER"
)

// Intents reported with generated replies.
const (
	IntentGreeting = "greeting"
	IntentQuestion = "question"
	IntentFollowUp = "follow_up"
	IntentClarify  = "clarify"
	IntentClosing  = "closing"
)

var ErrEmptyReply = errors.New("ai: empty reply")

// Turn is one message of the conversation, oldest first.
type Turn struct {
	Sender  string
	Content string
}

type RoleContext struct {
	Title        string
	Description  string
	Requirements []string
}

type CandidateContext struct {
	Name            string
	Summary         string
	Skills          []string
	YearsExperience int
}

type Request struct {
	History   []Turn
	Role      RoleContext
	Candidate CandidateContext
}

type Result struct {
	Text       string
	Confidence float64
	Intent     string
}

// Generator produces the next interviewer turn. Implementations may fail;
// callers do not retry.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (*Result, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
