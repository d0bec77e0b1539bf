package storage_test

import (
	"context"
	"testing"
	"time"

	"interviewhub/backend/internal/models"
	"interviewhub/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupService opens an in-memory SQLite database behind the gorm Service.
func setupService(t *testing.T) *storage.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s := storage.NewStorageService(db, nil)
	require.NoError(t, s.AutoMigrate())
	require.NoError(t, s.Seed(context.Background(), storage.Fixtures{
		Users: []models.User{{ID: "u-cand", Email: "cand@example.com", Role: models.RoleCandidate}},
		Candidates: []models.Candidate{
			{ID: "c1", UserID: "u-cand", Name: "Ada", Skills: []string{"Go"}},
		},
		Interviews: []models.Interview{
			{ID: "i1", RoleTitle: "Backend Engineer", Requirements: []string{"Go", "Redis"}, RecruiterID: "u-rec", CandidateID: "c1"},
			{ID: "i2", RecruiterID: "u-rec", CandidateID: "c1"},
		},
	}))
	return s
}

func TestService_MessageWindows(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	var ids []uint
	for _, c := range []string{"one", "two", "three", "four", "five"} {
		msg, err := s.CreateMessage(ctx, "i1", models.SenderCandidate, models.MessageText, c, nil)
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}
	_, err := s.CreateMessage(ctx, "i2", models.SenderCandidate, models.MessageText, "elsewhere", nil)
	require.NoError(t, err)
	ai, err := s.CreateMessage(ctx, "i1", models.SenderAI, models.MessageText, "six",
		&models.MessageMetadata{Confidence: 0.8, Intent: "question"})
	require.NoError(t, err)

	recent, err := s.ListRecentMessages(ctx, "i1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"four", "five", "six"}, []string{recent[0].Content, recent[1].Content, recent[2].Content})
	require.NotNil(t, recent[2].Meta())
	assert.InDelta(t, 0.8, recent[2].Meta().Confidence, 1e-9)
	assert.Nil(t, recent[0].Meta())
	assert.Equal(t, ai.ID, recent[2].ID)

	before, err := s.ListMessagesBefore(ctx, "i1", ids[3], 2)
	require.NoError(t, err)
	require.Len(t, before, 2)
	assert.Equal(t, "two", before[0].Content)
	assert.Equal(t, "three", before[1].Content)

	all, err := s.ListMessagesBefore(ctx, "i1", ai.ID, 50)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	empty, err := s.ListRecentMessages(ctx, "nope", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestService_InterviewContextAndStatus(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	ic, err := s.GetInterviewContext(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InterviewScheduled, ic.Interview.Status)
	assert.Equal(t, []string{"Go", "Redis"}, []string(ic.Interview.Requirements))
	assert.Equal(t, "u-cand", ic.Candidate.UserID)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.UpdateInterviewStatus(ctx, "i1", models.InterviewInProgress, at))
	ic, err = s.GetInterviewContext(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InterviewInProgress, ic.Interview.Status)
	require.NotNil(t, ic.Interview.StartedAt)
	assert.True(t, at.Equal(*ic.Interview.StartedAt))
	assert.Nil(t, ic.Interview.CompletedAt)

	_, err = s.GetInterviewContext(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateInterviewStatus(ctx, "missing", models.InterviewCompleted, at), storage.ErrNotFound)

	u, err := s.GetUserByID(ctx, "u-cand")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCandidate, u.Role)
	_, err = s.GetUserByID(ctx, "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_SkillsMerge(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	skills, err := s.UpdateCandidateSkills(ctx, "c1", []string{"go", "Kubernetes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Kubernetes"}, skills)

	ic, err := s.GetInterviewContext(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Kubernetes"}, []string(ic.Candidate.Skills))

	_, err = s.UpdateCandidateSkills(ctx, "nobody", []string{"Go"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_ProfileRollingAverage(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	p, err := s.UpsertCandidateProfileScores(ctx, "i1", "c1", models.ProfileScores{Clarity: 80, Overall: 60})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Samples)
	assert.Equal(t, 80.0, p.Clarity)

	p, err = s.UpsertCandidateProfileScores(ctx, "i1", "c1", models.ProfileScores{Clarity: 40, Overall: 100})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Samples)
	assert.Equal(t, 60.0, p.Clarity)
	assert.Equal(t, 80.0, p.Overall)

	other, err := s.UpsertCandidateProfileScores(ctx, "i2", "c1", models.ProfileScores{Clarity: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, other.Samples)
	assert.Equal(t, 10.0, other.Clarity)

	var stored models.CandidateProfile
	require.NoError(t, s.DB.Where("interview_id = ?", "i1").First(&stored).Error)
	assert.Equal(t, 2, stored.Samples)
	assert.Equal(t, 60.0, stored.Clarity)
}

func TestService_Ping(t *testing.T) {
	s := setupService(t)
	assert.NoError(t, s.Ping(context.Background()))
}
