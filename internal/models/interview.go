package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Interview statuses.
const (
	InterviewScheduled  = "SCHEDULED"
	InterviewInProgress = "IN_PROGRESS"
	InterviewCompleted  = "COMPLETED"
)

// Interview is a single interview session. Its ID is the room key.
type Interview struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	Title           string         `json:"title"`
	RoleTitle       string         `json:"roleTitle"`
	RoleDescription string         `gorm:"type:text" json:"roleDescription"`
	Requirements    pq.StringArray `gorm:"type:text[]" json:"requirements"`
	// RecruiterID is the user ID of the owning recruiter.
	RecruiterID string `gorm:"index;not null" json:"recruiterId"`
	// CandidateID references Candidate.ID (not the candidate's user ID).
	CandidateID string     `gorm:"index;not null" json:"candidateId"`
	Status      string     `gorm:"type:text;not null;default:SCHEDULED" json:"status"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (i *Interview) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Status == "" {
		i.Status = InterviewScheduled
	}
	return
}

// Candidate is the subject of one or more interviews.
type Candidate struct {
	ID string `gorm:"primaryKey" json:"id"`
	// UserID binds the candidate record to the authenticated identity.
	UserID          string         `gorm:"uniqueIndex;not null" json:"userId"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	Summary         string         `gorm:"type:text" json:"summary"`
	YearsExperience int            `json:"yearsExperience"`
	Skills          pq.StringArray `gorm:"type:text[]" json:"skills"`
}

func (c *Candidate) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// InterviewContext is everything the gateway needs about an interview:
// role info for generation, candidate info, and the access-control fields.
type InterviewContext struct {
	Interview Interview
	Candidate Candidate
}

// Summary returns the wire form sent in interview_joined.
func (i *Interview) Summary() InterviewSummary {
	return InterviewSummary{
		ID:          i.ID,
		Title:       i.Title,
		RoleTitle:   i.RoleTitle,
		Status:      i.Status,
		RecruiterID: i.RecruiterID,
		CandidateID: i.CandidateID,
		StartedAt:   i.StartedAt,
		CompletedAt: i.CompletedAt,
	}
}
