package domain

import "strings"

// Validate checks the quiz invariants the scoring engine relies on.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return Invalid("title", "must not be empty")
	}
	if q.PassScore < 0 || q.PassScore > 100 {
		return Invalid("passScore", "must be within [0,100], got %d", q.PassScore)
	}
	if q.MaxAttempts != nil && *q.MaxAttempts <= 0 {
		return Invalid("maxAttempts", "must be positive or null, got %d", *q.MaxAttempts)
	}

	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" {
			return Invalid("questions", "question %d has no id", i+1)
		}
		if _, dup := seen[question.ID]; dup {
			return Invalid("questions", "duplicate question id %q", question.ID)
		}
		seen[question.ID] = struct{}{}

		if len(question.Choices) < 2 {
			return Invalid("questions", "question %q needs at least 2 choices", question.ID)
		}
		if question.CorrectAnswerIndex < 0 || question.CorrectAnswerIndex >= len(question.Choices) {
			return Invalid("questions", "question %q correctAnswerIndex %d out of range", question.ID, question.CorrectAnswerIndex)
		}
	}
	return nil
}

// ValidateAnswers rejects answer sets that reference unknown questions or out-of-range choices.
func (q Quiz) ValidateAnswers(answers Answers) error {
	for questionID, selected := range answers {
		question, ok := q.Question(questionID)
		if !ok {
			return Invalid("answers", "unknown question %q", questionID)
		}
		if selected == nil {
			continue
		}
		if *selected < 0 || *selected >= len(question.Choices) {
			return Invalid("answers", "choice %d out of range for question %q", *selected, questionID)
		}
	}
	return nil
}
