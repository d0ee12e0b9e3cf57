package app

import "elearning-quiz-service/internal/domain"

// Reconstruct rebuilds the correction of a past attempt against the current
// quiz definition. Answers are matched to questions by id, so reordering is
// harmless. Questions added after the attempt show up as not applicable, and
// answers to deleted questions are dropped. Score and Passed always come from
// the attempt as it was graded.
func Reconstruct(quiz domain.Quiz, attempt domain.Attempt) domain.Correction {
	selections := make(map[string]*int, len(attempt.Answers))
	for _, answer := range attempt.Answers {
		selections[answer.QuestionID] = answer.SelectedIndex
	}

	perQuestion := make([]domain.QuestionResult, 0, len(quiz.Questions))
	correct, applicable := 0, 0
	for _, question := range quiz.Questions {
		row := domain.QuestionResult{
			QuestionID:         question.ID,
			CorrectAnswerIndex: question.CorrectAnswerIndex,
			Explanation:        question.Explanation,
		}

		selected, answered := selections[question.ID]
		switch {
		case !answered:
			row.Status = domain.StatusNotApplicable
		case selected == nil:
			row.Status = domain.StatusUnanswered
			applicable++
		case *selected == question.CorrectAnswerIndex:
			row.SelectedIndex = copyIndex(selected)
			row.Correct = true
			row.Status = domain.StatusCorrect
			correct++
			applicable++
		default:
			row.SelectedIndex = copyIndex(selected)
			row.Status = domain.StatusIncorrect
			applicable++
		}
		perQuestion = append(perQuestion, row)
	}

	return domain.Correction{
		AttemptID: attempt.ID,
		QuizID:    attempt.QuizID,
		QuizTitle: attempt.QuizTitle,
		CreatedAt: attempt.CreatedAt,
		ScoreResult: domain.ScoreResult{
			Score:        attempt.Score,
			Passed:       attempt.Passed,
			CorrectCount: correct,
			Total:        applicable,
			PerQuestion:  perQuestion,
		},
	}
}
