package chathub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"interviewhub/backend/internal/ai"
	"interviewhub/backend/internal/metrics"
	"interviewhub/backend/internal/models"
	"interviewhub/backend/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Analyzer scores candidate answers and extracts skills.
type Analyzer interface {
	ExtractSkills(ctx context.Context, text string) ([]string, error)
	ScoreResponse(ctx context.Context, candidateText, precedingAIText string) (models.ProfileScores, error)
}

// turnState tracks how far an AI turn got; it is logged when a turn fails.
type turnState int

const (
	turnStarted turnState = iota
	turnTypingAnnounced
	turnContextBuilt
	turnGenerated
	turnPersisted
	turnBroadcast
	turnAnalysisDispatched
	turnDone
	turnFailed
)

func (s turnState) String() string {
	return [...]string{
		"started", "typing_announced", "context_built", "generated", "persisted",
		"broadcast", "analysis_dispatched", "done", "failed",
	}[s]
}

// Orchestrator runs one AI turn per triggering candidate message. Turns run
// in their own goroutines; Wait blocks until every started turn, including
// its analysis step, has finished.
type Orchestrator struct {
	storage      storage.Storage
	registry     *Registry
	pipeline     *Pipeline
	generator    ai.Generator
	analyzer     Analyzer
	contextLimit int
	log          *zap.Logger

	wg sync.WaitGroup
}

// Trigger starts a turn for the persisted candidate message and returns
// immediately.
func (o *Orchestrator) Trigger(interviewID string, trigger *models.Message) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(context.Background(), interviewID, trigger)
	}()
}

// Wait blocks until all started turns are done.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// WaitContext is Wait bounded by ctx.
func (o *Orchestrator) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context, room string, trigger *models.Message) {
	log := o.log.With(zap.String("interview_id", room), zap.Uint("message_id", trigger.ID))
	state := turnStarted
	resolved := false

	defer func() {
		if r := recover(); r != nil {
			log.Error("ai turn panicked", zap.Any("panic", r), zap.Stringer("state", state))
			if !resolved {
				o.fail(log, room, state, fmt.Errorf("%w: internal error", ErrGenerationFailure))
			}
		}
	}()

	o.registry.Broadcast(room, models.NewEvent(models.EventAITyping, models.AITypingPayload{IsTyping: true}), "")
	state = turnTypingAnnounced

	ic, req, prevAI, err := o.buildContext(ctx, room, trigger)
	if err != nil {
		o.fail(log, room, state, fmt.Errorf("%w: %v", ErrGenerationFailure, err))
		resolved = true
		return
	}
	state = turnContextBuilt

	start := time.Now()
	res, err := o.generator.Generate(ctx, req)
	metrics.AIGenerationDuration.Observe(time.Since(start).Seconds())
	if err == nil && (res == nil || strings.TrimSpace(res.Text) == "") {
		err = ai.ErrEmptyReply
	}
	if err != nil {
		o.fail(log, room, state, fmt.Errorf("%w: %v", ErrGenerationFailure, err))
		resolved = true
		return
	}
	state = turnGenerated

	meta := &models.MessageMetadata{Confidence: res.Confidence, Intent: res.Intent}
	typingOff := models.NewEvent(models.EventAITyping, models.AITypingPayload{IsTyping: false})
	if _, err := o.pipeline.persistAndBroadcast(ctx, room, models.SenderAI, models.MessageText, res.Text, meta, "", typingOff); err != nil {
		o.fail(log, room, state, fmt.Errorf("%w: %v", ErrGenerationFailure, err))
		resolved = true
		return
	}
	resolved = true
	state = turnBroadcast
	metrics.AITurnsTotal.WithLabelValues("done").Inc()

	state = turnAnalysisDispatched
	if err := o.analyze(ctx, room, ic, trigger, prevAI); err != nil {
		metrics.AnalysisFailures.Inc()
		log.Warn("analysis failed", zap.Error(err))
	}
	state = turnDone
}

// fail resolves the typing indicator and reports the failed turn to the room.
func (o *Orchestrator) fail(log *zap.Logger, room string, state turnState, err error) {
	log.Error("ai turn failed", zap.Stringer("state", state), zap.Error(err))
	metrics.AITurnsTotal.WithLabelValues("failed").Inc()
	o.registry.Broadcast(room, models.NewEvent(models.EventAITyping, models.AITypingPayload{IsTyping: false}), "")
	o.registry.Broadcast(room, models.NewEvent(models.EventError, models.ErrorPayload{
		Message: "the interviewer could not respond, please try again",
		Code:    CodeGenerationFailure,
	}), "")
}

// buildContext loads the interview and the bounded message window before the
// trigger, oldest first, with the trigger appended as the final turn. It also
// returns the latest AI text preceding the trigger.
func (o *Orchestrator) buildContext(ctx context.Context, room string, trigger *models.Message) (*models.InterviewContext, ai.Request, string, error) {
	ic, err := o.storage.GetInterviewContext(ctx, room)
	if err != nil {
		return nil, ai.Request{}, "", fmt.Errorf("load interview: %w", err)
	}
	window, err := o.storage.ListMessagesBefore(ctx, room, trigger.ID, o.contextLimit)
	if err != nil {
		return nil, ai.Request{}, "", fmt.Errorf("load history: %w", err)
	}

	history := make([]ai.Turn, 0, len(window)+1)
	prevAI := ""
	for _, m := range window {
		history = append(history, ai.Turn{Sender: m.Sender, Content: m.Content})
		if m.Sender == models.SenderAI {
			prevAI = m.Content
		}
	}
	history = append(history, ai.Turn{Sender: trigger.Sender, Content: trigger.Content})

	req := ai.Request{
		History: history,
		Role: ai.RoleContext{
			Title:        ic.Interview.RoleTitle,
			Description:  ic.Interview.RoleDescription,
			Requirements: []string(ic.Interview.Requirements),
		},
		Candidate: ai.CandidateContext{
			Name:            ic.Candidate.Name,
			Summary:         ic.Candidate.Summary,
			Skills:          []string(ic.Candidate.Skills),
			YearsExperience: ic.Candidate.YearsExperience,
		},
	}
	return ic, req, prevAI, nil
}

// analyze extracts skills and scores the answer in parallel, persists both
// and announces the updated profile. The two halves do not cancel each other.
func (o *Orchestrator) analyze(ctx context.Context, room string, ic *models.InterviewContext, trigger *models.Message, prevAI string) error {
	var (
		extracted []string
		sample    models.ProfileScores
		profile   *models.CandidateProfile
	)

	var g errgroup.Group
	g.Go(func() error {
		skills, err := o.analyzer.ExtractSkills(ctx, trigger.Content)
		if err != nil {
			return fmt.Errorf("%w: extract skills: %v", ErrAnalysisFailure, err)
		}
		extracted = skills
		if len(skills) == 0 {
			return nil
		}
		if _, err := o.storage.UpdateCandidateSkills(ctx, ic.Candidate.ID, skills); err != nil {
			return fmt.Errorf("%w: update skills: %v", ErrAnalysisFailure, err)
		}
		return nil
	})
	g.Go(func() error {
		scores, err := o.analyzer.ScoreResponse(ctx, trigger.Content, prevAI)
		if err != nil {
			return fmt.Errorf("%w: score response: %v", ErrAnalysisFailure, err)
		}
		sample = scores
		p, err := o.storage.UpsertCandidateProfileScores(ctx, room, ic.Candidate.ID, scores)
		if err != nil {
			return fmt.Errorf("%w: update profile: %v", ErrAnalysisFailure, err)
		}
		profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if extracted == nil {
		extracted = []string{}
	}
	o.registry.Broadcast(room, models.NewEvent(models.EventProfileUpdated, models.ProfileUpdatedPayload{
		CandidateID:     ic.Candidate.ID,
		Analysis:        sample,
		Profile:         profile.ProfileScores,
		ExtractedSkills: extracted,
	}), "")
	return nil
}
