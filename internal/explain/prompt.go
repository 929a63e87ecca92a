package explain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	_ "embed"
)

//go:embed prompt.md
var promptTemplate string

const (
	// SystemPrompt frames every explanation request.
	SystemPrompt = "You are a recruiting specialist who explains why a candidate is a good fit for a job opening."

	DefaultTextBudget  = 1500
	DefaultMaxTokens   = 200
	DefaultTemperature = 0.7
)

// FormatScore renders a similarity with two decimals. Negative zero prints as 0.00.
func FormatScore(score float64) string {
	s := strconv.FormatFloat(score, 'f', 2, 64)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

// Key is the cache key of an explanation: the hex SHA-256 of the JSON array
// [job, candidate, score with two decimals].
func Key(job, candidate string, score float64) string {
	// marshalling a []string cannot fail
	payload, _ := json.Marshal([]string{job, candidate, FormatScore(score)})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func buildPrompt(job, candidate string, score float64, budget int) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job opening:\n{{JOB}}\n\nCandidate profile:\n{{CANDIDATE}}\n\nSimilarity: {{SCORE}}\n\nMatch explanation:"
	}
	return strings.NewReplacer(
		"{{SCORE}}", FormatScore(score),
		"{{JOB}}", truncate(job, budget),
		"{{CANDIDATE}}", truncate(candidate, budget),
	).Replace(template)
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
