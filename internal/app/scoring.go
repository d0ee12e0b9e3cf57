package app

import (
	"elearning-quiz-service/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Score grades answers against the quiz. It is pure: the same quiz and answers
// always produce the same result, and a question missing from answers counts
// the same as an explicit nil selection.
func Score(quiz domain.Quiz, answers domain.Answers) domain.ScoreResult {
	perQuestion := make([]domain.QuestionResult, 0, len(quiz.Questions))
	correct := 0
	for _, question := range quiz.Questions {
		selected := copyIndex(answers[question.ID])
		row := domain.QuestionResult{
			QuestionID:         question.ID,
			SelectedIndex:      selected,
			CorrectAnswerIndex: question.CorrectAnswerIndex,
			Explanation:        question.Explanation,
			Status:             domain.StatusIncorrect,
		}
		switch {
		case selected == nil:
			row.Status = domain.StatusUnanswered
		case *selected == question.CorrectAnswerIndex:
			row.Correct = true
			row.Status = domain.StatusCorrect
			correct++
		}
		perQuestion = append(perQuestion, row)
	}

	score := percentage(correct, len(quiz.Questions))
	return domain.ScoreResult{
		Score:        score,
		Passed:       score >= quiz.PassScore,
		CorrectCount: correct,
		Total:        len(quiz.Questions),
		PerQuestion:  perQuestion,
	}
}

// percentage rounds correct/total*100 half-up; an empty quiz scores 0.
func percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	ratio := decimal.NewFromInt(int64(correct)).Mul(hundred).Div(decimal.NewFromInt(int64(total)))
	// Round is half away from zero, which is half-up for non-negative ratios.
	return int(ratio.Round(0).IntPart())
}

func copyIndex(selected *int) *int {
	if selected == nil {
		return nil
	}
	v := *selected
	return &v
}
