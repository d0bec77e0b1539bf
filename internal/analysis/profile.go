package analysis

import "interviewhub/backend/internal/models"

// ApplySample folds one response sample into the profile:
// new = existing ? (existing + sample) / 2 : sample.
func ApplySample(p *models.CandidateProfile, sample models.ProfileScores) {
	if p.Samples == 0 {
		p.ProfileScores = sample
	} else {
		p.Clarity = (p.Clarity + sample.Clarity) / 2
		p.Completeness = (p.Completeness + sample.Completeness) / 2
		p.Relevance = (p.Relevance + sample.Relevance) / 2
		p.Enthusiasm = (p.Enthusiasm + sample.Enthusiasm) / 2
		p.Overall = (p.Overall + sample.Overall) / 2
	}
	p.Samples++
}
