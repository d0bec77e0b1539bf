package analysis

import (
	"math"
	"strings"

	"interviewhub/backend/internal/models"
)

const (
	fullAnswerWords  = 60
	idealSentenceMin = 8
	idealSentenceMax = 25
)

var fillerWords = map[string]bool{
	"um": true, "uh": true, "erm": true, "like": true, "basically": true, "literally": true,
}

var positiveWords = map[string]bool{
	"love": true, "enjoy": true, "excited": true, "passionate": true, "great": true,
	"interesting": true, "fun": true, "proud": true, "eager": true, "happy": true,
	"fascinating": true, "motivated": true,
}

var stopWords = map[string]bool{
	"about": true, "which": true, "would": true, "could": true, "there": true,
	"their": true, "what": true, "when": true, "where": true, "with": true,
	"have": true, "your": true, "that": true, "this": true, "from": true,
	"tell": true, "were": true, "they": true, "some": true, "been": true,
	"describe": true, "explain": true, "please": true,
}

// ScoreResponse rates a candidate answer against the AI prompt that preceded
// it. All scores are on a 0-100 scale. An empty prompt yields a neutral
// relevance of 50.
func ScoreResponse(candidateText, precedingAIText string) models.ProfileScores {
	words := tokenize(candidateText)
	s := models.ProfileScores{
		Clarity:      clarity(candidateText, words),
		Completeness: clamp(float64(len(words)) * 100 / fullAnswerWords),
		Relevance:    relevance(words, tokenize(precedingAIText)),
		Enthusiasm:   enthusiasm(candidateText, words),
	}
	s.Overall = round((s.Clarity + s.Completeness + s.Relevance + s.Enthusiasm) / 4)
	return s
}

func clarity(text string, words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	sentences := strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '!' || r == '?' })
	n := 0
	for _, s := range sentences {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	if n == 0 {
		n = 1
	}
	avg := float64(len(words)) / float64(n)

	score := 100.0
	switch {
	case avg < idealSentenceMin:
		score -= math.Min(60, (idealSentenceMin-avg)*6)
	case avg > idealSentenceMax:
		score -= math.Min(60, (avg-idealSentenceMax)*3)
	}
	for _, w := range words {
		if fillerWords[w] {
			score -= 5
		}
	}
	return clamp(score)
}

func relevance(answer, prompt []string) float64 {
	keywords := make(map[string]bool)
	for _, w := range prompt {
		if len(w) > 3 && !stopWords[w] {
			keywords[w] = true
		}
	}
	if len(keywords) == 0 {
		return 50
	}
	hits := make(map[string]bool)
	for _, w := range answer {
		if keywords[w] {
			hits[w] = true
		}
	}
	return clamp(40 + 60*float64(len(hits))/float64(len(keywords)))
}

func enthusiasm(text string, words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	score := 50.0
	for _, w := range words {
		if positiveWords[w] {
			score += 10
		}
	}
	score += 5 * math.Min(3, float64(strings.Count(text, "!")))
	return clamp(score)
}

func clamp(v float64) float64 {
	return round(math.Max(0, math.Min(100, v)))
}

func round(v float64) float64 {
	return math.Round(v*10) / 10
}
