package ai

import (
	"context"
	"fmt"
	"strings"
)

const minDetailedAnswerWords = 12

// RuleBasedGenerator walks the role requirements one question at a time. It
// is used when no model endpoint is configured, and is deterministic for a
// given history.
type RuleBasedGenerator struct{}

func NewRuleBasedGenerator() *RuleBasedGenerator {
	return &RuleBasedGenerator{}
}

func (g *RuleBasedGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	asked := 0
	for _, t := range req.History {
		if t.Sender == SenderAI {
			asked++
		}
	}

	if asked == 0 {
		title := req.Role.Title
		if title == "" {
			title = "this position"
		}
		name := req.Candidate.Name
		if name == "" {
			name = "there"
		}
		return &Result{
			Text:       fmt.Sprintf("Hi %s, thanks for joining the interview for %s. Could you start by telling me about your background?", name, title),
			Confidence: 0.9,
			Intent:     IntentGreeting,
		}, nil
	}

	if last, ok := lastCandidateTurn(req.History); ok && len(strings.Fields(last)) < minDetailedAnswerWords {
		return &Result{
			Text:       "Could you expand on that with a concrete example from your experience?",
			Confidence: 0.7,
			Intent:     IntentClarify,
		}, nil
	}

	idx := asked - 1
	if idx < len(req.Role.Requirements) {
		return &Result{
			Text:       fmt.Sprintf("Tell me about your experience with %s. What was the hardest problem you solved with it?", req.Role.Requirements[idx]),
			Confidence: 0.8,
			Intent:     IntentQuestion,
		}, nil
	}

	return &Result{
		Text:       "Thank you, that covers my questions. Is there anything you would like to ask about the role?",
		Confidence: 0.8,
		Intent:     IntentClosing,
	}, nil
}

func lastCandidateTurn(history []Turn) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender == SenderCandidate {
			return history[i].Content, true
		}
	}
	return "", false
}
