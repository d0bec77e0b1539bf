// Package interview holds the interview access policy and the status
// lifecycle (SCHEDULED -> IN_PROGRESS -> COMPLETED).
package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"interviewhub/backend/internal/auth"
	"interviewhub/backend/internal/models"
)

var (
	ErrForbidden         = errors.New("interview: access denied")
	ErrInvalidTransition = errors.New("interview: invalid status transition")
)

// Store is the part of storage the lifecycle needs.
type Store interface {
	GetInterviewContext(ctx context.Context, interviewID string) (*models.InterviewContext, error)
	UpdateInterviewStatus(ctx context.Context, interviewID, status string, at time.Time) error
}

// CanAccess decides whether id may join the interview room. Admins always
// may; a recruiter must own the interview; a candidate must be the user bound
// to the interview's candidate record.
func CanAccess(id auth.Identity, ic *models.InterviewContext) error {
	switch id.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleRecruiter:
		if ic.Interview.RecruiterID == id.UserID {
			return nil
		}
	case models.RoleCandidate:
		if ic.Candidate.UserID != "" && ic.Candidate.UserID == id.UserID {
			return nil
		}
	}
	return ErrForbidden
}

// Service applies lifecycle transitions.
type Service struct {
	Storage Store
	now     func() time.Time
}

func NewService(s Store) *Service {
	return &Service{Storage: s, now: time.Now}
}

// Load fetches the interview and checks access in one step.
func (s *Service) Load(ctx context.Context, id auth.Identity, interviewID string) (*models.InterviewContext, error) {
	ic, err := s.Storage.GetInterviewContext(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if err := CanAccess(id, ic); err != nil {
		return nil, err
	}
	return ic, nil
}

// Start moves a SCHEDULED interview to IN_PROGRESS. Only the owning
// recruiter may start it.
func (s *Service) Start(ctx context.Context, id auth.Identity, interviewID string) (*models.Interview, error) {
	ic, err := s.Storage.GetInterviewContext(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if id.Role != models.RoleRecruiter || ic.Interview.RecruiterID != id.UserID {
		return nil, fmt.Errorf("%w: only the interview's recruiter can start it", ErrForbidden)
	}
	if ic.Interview.Status != models.InterviewScheduled {
		return nil, fmt.Errorf("%w: interview is %s", ErrInvalidTransition, ic.Interview.Status)
	}
	return s.transition(ctx, &ic.Interview, models.InterviewInProgress)
}

// Complete moves an interview that is not yet COMPLETED to COMPLETED. The
// owning recruiter or an admin may complete it.
func (s *Service) Complete(ctx context.Context, id auth.Identity, interviewID string) (*models.Interview, error) {
	ic, err := s.Storage.GetInterviewContext(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	allowed := id.Role == models.RoleAdmin ||
		(id.Role == models.RoleRecruiter && ic.Interview.RecruiterID == id.UserID)
	if !allowed {
		return nil, fmt.Errorf("%w: only the interview's recruiter or an admin can complete it", ErrForbidden)
	}
	if ic.Interview.Status == models.InterviewCompleted {
		return nil, fmt.Errorf("%w: interview is already completed", ErrInvalidTransition)
	}
	return s.transition(ctx, &ic.Interview, models.InterviewCompleted)
}

func (s *Service) transition(ctx context.Context, iv *models.Interview, status string) (*models.Interview, error) {
	at := s.now().UTC()
	if err := s.Storage.UpdateInterviewStatus(ctx, iv.ID, status, at); err != nil {
		return nil, err
	}
	iv.Status = status
	switch status {
	case models.InterviewInProgress:
		iv.StartedAt = &at
	case models.InterviewCompleted:
		iv.CompletedAt = &at
	}
	return iv, nil
}
