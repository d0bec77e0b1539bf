package chathub_test

import (
	"context"
	"time"

	"interviewhub/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of storage.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetInterviewContext(ctx context.Context, interviewID string) (*models.InterviewContext, error) {
	args := m.Called(ctx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InterviewContext), args.Error(1)
}

func (m *MockStorage) UpdateInterviewStatus(ctx context.Context, interviewID, status string, at time.Time) error {
	args := m.Called(ctx, interviewID, status, at)
	return args.Error(0)
}

func (m *MockStorage) CreateMessage(ctx context.Context, interviewID, sender, messageType, content string, meta *models.MessageMetadata) (*models.Message, error) {
	args := m.Called(ctx, interviewID, sender, messageType, content, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStorage) ListRecentMessages(ctx context.Context, interviewID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, interviewID, limit)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) ListMessagesBefore(ctx context.Context, interviewID string, beforeID uint, limit int) ([]models.Message, error) {
	args := m.Called(ctx, interviewID, beforeID, limit)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) UpdateCandidateSkills(ctx context.Context, candidateID string, newSkills []string) ([]string, error) {
	args := m.Called(ctx, candidateID, newSkills)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) UpsertCandidateProfileScores(ctx context.Context, interviewID, candidateID string, sample models.ProfileScores) (*models.CandidateProfile, error) {
	args := m.Called(ctx, interviewID, candidateID, sample)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CandidateProfile), args.Error(1)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockAnalyzer is a testify mock of chathub.Analyzer.
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) ExtractSkills(ctx context.Context, text string) ([]string, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAnalyzer) ScoreResponse(ctx context.Context, candidateText, precedingAIText string) (models.ProfileScores, error) {
	args := m.Called(ctx, candidateText, precedingAIText)
	return args.Get(0).(models.ProfileScores), args.Error(1)
}
