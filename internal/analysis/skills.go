// Package analysis extracts skills from candidate answers, scores answer
// quality against the interviewer's prompt and folds scores into the
// candidate's rolling interview profile.
package analysis

import (
	"strings"
	"unicode"
)

// skillAliases maps a lowercase phrase to its canonical skill name.
var skillAliases = map[string]string{
	"golang":           "Go",
	"python":           "Python",
	"java":             "Java",
	"javascript":       "JavaScript",
	"typescript":       "TypeScript",
	"node.js":          "Node.js",
	"nodejs":           "Node.js",
	"react":            "React",
	"vue":              "Vue",
	"angular":          "Angular",
	"rust":             "Rust",
	"c++":              "C++",
	"c#":               "C#",
	"ruby":             "Ruby",
	"kotlin":           "Kotlin",
	"swift":            "Swift",
	"sql":              "SQL",
	"postgres":         "PostgreSQL",
	"postgresql":       "PostgreSQL",
	"mysql":            "MySQL",
	"mongodb":          "MongoDB",
	"redis":            "Redis",
	"kafka":            "Kafka",
	"docker":           "Docker",
	"kubernetes":       "Kubernetes",
	"k8s":              "Kubernetes",
	"terraform":        "Terraform",
	"aws":              "AWS",
	"gcp":              "GCP",
	"azure":            "Azure",
	"graphql":          "GraphQL",
	"grpc":             "gRPC",
	"microservices":    "Microservices",
	"machine learning": "Machine Learning",
	"ci/cd":            "CI/CD",
	"linux":            "Linux",
	"git":              "Git",
	"agile":            "Agile",
	"scrum":            "Scrum",
	"leadership":       "Leadership",
	"mentoring":        "Mentoring",
	"communication":    "Communication",
	"system design":    "System Design",
}

// tokenize lowercases text and splits it into words. '+', '#', '.', '/' are
// kept inside words so that "c++", "c#", "node.js" and "ci/cd" survive.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
		switch r {
		case '+', '#', '.', '/', '\'':
			return false
		}
		return true
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, ".'/")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// ExtractSkills returns canonical skill names mentioned in text, in order of
// first mention, without duplicates.
func ExtractSkills(text string) []string {
	tokens := tokenize(text)
	seen := make(map[string]bool)
	var skills []string
	add := func(phrase string) {
		if canon, ok := skillAliases[phrase]; ok && !seen[canon] {
			seen[canon] = true
			skills = append(skills, canon)
		}
	}
	for i, tok := range tokens {
		if i+1 < len(tokens) {
			add(tok + " " + tokens[i+1])
		}
		add(tok)
	}
	return skills
}

// MergeSkills returns the deduplicated union of existing and extracted,
// keeping existing order and comparing case-insensitively.
func MergeSkills(existing, extracted []string) []string {
	seen := make(map[string]bool, len(existing)+len(extracted))
	merged := make([]string, 0, len(existing)+len(extracted))
	for _, list := range [][]string{existing, extracted} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, s)
		}
	}
	return merged
}
