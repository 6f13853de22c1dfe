package quiz

import (
	"fmt"
	"strings"

	"studymind/internal/models"
)

// maxContextChunks caps how much chapter content goes into the quiz prompt.
const maxContextChunks = 10

// BuildPrompt renders the quiz-generation prompt for a chapter's chunks.
func BuildPrompt(chapter string, context []string, numQuestions int) string {
	if numQuestions <= 0 {
		numQuestions = 5
	}
	if len(context) > maxContextChunks {
		context = context[:maxContextChunks]
	}
	return fmt.Sprintf(models.QuizPromptTemplate, chapter, strings.Join(context, "\n\n"), numQuestions)
}
