package analysis

import (
	"context"

	"interviewhub/backend/internal/models"
)

// KeywordAnalyzer is the in-process analysis function: dictionary-based skill
// extraction and heuristic scoring.
type KeywordAnalyzer struct{}

func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

func (a *KeywordAnalyzer) ExtractSkills(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ExtractSkills(text), nil
}

func (a *KeywordAnalyzer) ScoreResponse(ctx context.Context, candidateText, precedingAIText string) (models.ProfileScores, error) {
	if err := ctx.Err(); err != nil {
		return models.ProfileScores{}, err
	}
	return ScoreResponse(candidateText, precedingAIText), nil
}
