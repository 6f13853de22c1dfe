package quiz

import (
	"strings"

	"studymind/internal/models"
)

var optionPrefixes = []string{"A)", "B)", "C)", "D)"}

// Parse extracts structured question records from LLM-generated quiz text.
// It is total over its input: missing fields stay at their zero values,
// unrecognised lines (separators, preamble) are skipped, and malformed text
// yields an empty or partial result rather than an error.
func Parse(quizText string) []models.Question {
	var questions []models.Question
	var current *models.Question

	for _, line := range strings.Split(quizText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case isQuestionHeader(line):
			if current != nil {
				questions = append(questions, *current)
			}
			number, text, _ := strings.Cut(line, ":")
			current = &models.Question{
				Number:   strings.TrimSpace(number),
				Question: strings.TrimSpace(text),
			}
		case isOption(line):
			if current != nil {
				current.Options = append(current.Options, line)
			}
		case strings.HasPrefix(line, "Correct Answer:"):
			if current != nil {
				current.CorrectAnswer = strings.TrimSpace(strings.TrimPrefix(line, "Correct Answer:"))
			}
		case strings.HasPrefix(line, "Explanation:"):
			if current != nil {
				current.Explanation = strings.TrimSpace(strings.TrimPrefix(line, "Explanation:"))
			}
		}
	}

	if current != nil {
		questions = append(questions, *current)
	}
	return questions
}

func isQuestionHeader(line string) bool {
	return strings.HasPrefix(line, "Q") && strings.Contains(line, ":")
}

func isOption(line string) bool {
	for _, p := range optionPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
