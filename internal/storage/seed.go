package storage

import (
	"context"
	"fmt"

	"interviewhub/backend/internal/models"
)

// Fixtures is a set of directory rows loaded together.
type Fixtures struct {
	Users      []models.User
	Candidates []models.Candidate
	Interviews []models.Interview
}

// DemoFixtures is a minimal directory for local runs: one recruiter, one
// candidate and one scheduled interview between them.
func DemoFixtures() Fixtures {
	return Fixtures{
		Users: []models.User{
			{ID: "demo-recruiter", Email: "recruiter@example.com", Name: "Rita Recruiter", Role: models.RoleRecruiter},
			{ID: "demo-candidate", Email: "candidate@example.com", Name: "Carl Candidate", Role: models.RoleCandidate},
			{ID: "demo-admin", Email: "admin@example.com", Name: "Admin", Role: models.RoleAdmin},
		},
		Candidates: []models.Candidate{
			{
				ID:              "demo-candidate-profile",
				UserID:          "demo-candidate",
				Name:            "Carl Candidate",
				Email:           "candidate@example.com",
				Summary:         "Backend developer, mostly Go and PostgreSQL.",
				YearsExperience: 4,
				Skills:          []string{"Go"},
			},
		},
		Interviews: []models.Interview{
			{
				ID:              "demo-interview",
				Title:           "Backend Engineer screening",
				RoleTitle:       "Backend Engineer",
				RoleDescription: "Build and operate realtime services.",
				Requirements:    []string{"Go", "PostgreSQL", "Redis"},
				RecruiterID:     "demo-recruiter",
				CandidateID:     "demo-candidate-profile",
				Status:          models.InterviewScheduled,
			},
		},
	}
}

// Load adds every fixture row to the in-memory store.
func (m *MemoryStore) Load(f Fixtures) {
	for _, u := range f.Users {
		m.AddUser(u)
	}
	for _, c := range f.Candidates {
		m.AddCandidate(c)
	}
	for _, iv := range f.Interviews {
		m.AddInterview(iv)
	}
}

// Seed upserts every fixture row.
func (s *Service) Seed(ctx context.Context, f Fixtures) error {
	for i := range f.Users {
		if err := s.SaveUser(ctx, &f.Users[i]); err != nil {
			return fmt.Errorf("seed user %s: %w", f.Users[i].ID, err)
		}
	}
	for i := range f.Candidates {
		if err := s.SaveCandidate(ctx, &f.Candidates[i]); err != nil {
			return fmt.Errorf("seed candidate %s: %w", f.Candidates[i].ID, err)
		}
	}
	for i := range f.Interviews {
		if err := s.SaveInterview(ctx, &f.Interviews[i]); err != nil {
			return fmt.Errorf("seed interview %s: %w", f.Interviews[i].ID, err)
		}
	}
	return nil
}
