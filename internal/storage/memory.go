package storage

import (
	"context"
	"sync"
	"time"

	"interviewhub/backend/internal/analysis"
	"interviewhub/backend/internal/models"
)

// MemoryStore is an in-process Storage used when no database is configured
// and in tests. Message IDs increase monotonically across all interviews,
// mirroring the PostgreSQL sequence.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[string]models.User
	interviews map[string]models.Interview
	candidates map[string]models.Candidate
	messages   map[string][]models.Message
	profiles   map[string]models.CandidateProfile
	nextID     uint
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]models.User),
		interviews: make(map[string]models.Interview),
		candidates: make(map[string]models.Candidate),
		messages:   make(map[string][]models.Message),
		profiles:   make(map[string]models.CandidateProfile),
		now:        time.Now,
	}
}

// AddUser, AddCandidate and AddInterview seed the store.
func (m *MemoryStore) AddUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryStore) AddCandidate(c models.Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Skills = append([]string(nil), c.Skills...)
	m.candidates[c.ID] = c
}

func (m *MemoryStore) AddInterview(iv models.Interview) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if iv.Status == "" {
		iv.Status = models.InterviewScheduled
	}
	m.interviews[iv.ID] = iv
}

// DeleteUser removes a user from the directory.
func (m *MemoryStore) DeleteUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
}

func (m *MemoryStore) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetInterviewContext(ctx context.Context, interviewID string) (*models.InterviewContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interviews[interviewID]
	if !ok {
		return nil, ErrNotFound
	}
	c, ok := m.candidates[iv.CandidateID]
	if !ok {
		return nil, ErrNotFound
	}
	c.Skills = append([]string(nil), c.Skills...)
	return &models.InterviewContext{Interview: iv, Candidate: c}, nil
}

func (m *MemoryStore) UpdateInterviewStatus(ctx context.Context, interviewID, status string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interviews[interviewID]
	if !ok {
		return ErrNotFound
	}
	iv.Status = status
	switch status {
	case models.InterviewInProgress:
		iv.StartedAt = &at
	case models.InterviewCompleted:
		iv.CompletedAt = &at
	}
	m.interviews[interviewID] = iv
	return nil
}

func (m *MemoryStore) CreateMessage(ctx context.Context, interviewID, sender, messageType, content string, meta *models.MessageMetadata) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg := models.Message{
		ID:          m.nextID,
		InterviewID: interviewID,
		Sender:      sender,
		Type:        messageType,
		Content:     content,
		CreatedAt:   m.now(),
	}
	msg.SetMeta(meta)
	m.messages[interviewID] = append(m.messages[interviewID], msg)
	return &msg, nil
}

func (m *MemoryStore) ListRecentMessages(ctx context.Context, interviewID string, limit int) ([]models.Message, error) {
	return m.ListMessagesBefore(ctx, interviewID, 0, limit)
}

// ListMessagesBefore treats beforeID 0 as "no upper bound".
func (m *MemoryStore) ListMessagesBefore(ctx context.Context, interviewID string, beforeID uint, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[interviewID]
	end := len(all)
	if beforeID > 0 {
		end = 0
		for end < len(all) && all[end].ID < beforeID {
			end++
		}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.Message, end-start)
	copy(out, all[start:end])
	return out, nil
}

// Messages returns every stored message of an interview in commit order.
func (m *MemoryStore) Messages(interviewID string) []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Message(nil), m.messages[interviewID]...)
}

func (m *MemoryStore) UpdateCandidateSkills(ctx context.Context, candidateID string, newSkills []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[candidateID]
	if !ok {
		return nil, ErrNotFound
	}
	c.Skills = analysis.MergeSkills(c.Skills, newSkills)
	m.candidates[candidateID] = c
	return append([]string(nil), c.Skills...), nil
}

func (m *MemoryStore) UpsertCandidateProfileScores(ctx context.Context, interviewID, candidateID string, sample models.ProfileScores) (*models.CandidateProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[interviewID]
	if !ok {
		p = models.CandidateProfile{InterviewID: interviewID, CandidateID: candidateID}
	}
	analysis.ApplySample(&p, sample)
	p.UpdatedAt = m.now()
	m.profiles[interviewID] = p
	return &p, nil
}

// Profile returns the rolling profile of an interview, if any.
func (m *MemoryStore) Profile(interviewID string) (models.CandidateProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[interviewID]
	return p, ok
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
