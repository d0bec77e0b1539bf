package models

import "time"

// ProfileScores are communication-quality scores on a 0-100 scale.
type ProfileScores struct {
	Clarity      float64 `json:"clarity"`
	Completeness float64 `json:"completeness"`
	Relevance    float64 `json:"relevance"`
	Enthusiasm   float64 `json:"enthusiasm"`
	Overall      float64 `json:"overall"`
}

// CandidateProfile is the rolling aggregate of response scores for one
// interview. Samples counts how many responses were folded in.
type CandidateProfile struct {
	InterviewID   string `gorm:"primaryKey" json:"interviewId"`
	CandidateID   string `gorm:"index;not null" json:"candidateId"`
	ProfileScores `gorm:"embedded"`
	Samples       int       `json:"samples"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
