package app

import (
	"context"
	"log"
	"strings"

	"elearning-quiz-service/internal/domain"
)

// EventPublisher announces persisted attempts to other systems.
type EventPublisher interface {
	PublishAttemptRecorded(ctx context.Context, event domain.AttemptRecorded) error
}

// AttemptGate enforces the attempt ceiling around scoring and persistence.
// It keeps no state between calls: every check re-reads the repository.
type AttemptGate struct {
	attempts AttemptRepository
	events   EventPublisher
}

func NewAttemptGate(attempts AttemptRepository, events EventPublisher) *AttemptGate {
	return &AttemptGate{attempts: attempts, events: events}
}

// CanSubmit reports how many attempts the user has used and whether another is allowed.
func (g *AttemptGate) CanSubmit(ctx context.Context, quiz domain.Quiz, userID string) (domain.Eligibility, error) {
	used, err := g.attempts.CountFor(ctx, quiz.ID, userID)
	if err != nil {
		return domain.Eligibility{}, err
	}
	return eligibility(quiz, used), nil
}

// Submit validates, scores and persists one attempt. A rejected submission
// never writes a record.
func (g *AttemptGate) Submit(ctx context.Context, quiz domain.Quiz, userID string, answers domain.Answers) (domain.Attempt, domain.ScoreResult, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Attempt{}, domain.ScoreResult{}, domain.ErrUnauthenticated
	}
	if err := quiz.ValidateAnswers(answers); err != nil {
		return domain.Attempt{}, domain.ScoreResult{}, err
	}

	result := Score(quiz, answers)
	attempt := domain.Attempt{
		QuizID:    quiz.ID,
		UserID:    userID,
		QuizTitle: quiz.Title,
		Answers:   orderedAnswers(quiz, answers),
		Score:     result.Score,
		Passed:    result.Passed,
	}

	// Re-check right before the write; a failed count read is an error, never zero attempts.
	check, err := g.CanSubmit(ctx, quiz, userID)
	if err != nil {
		return domain.Attempt{}, domain.ScoreResult{}, err
	}
	ceiling, limited := quiz.Ceiling()
	if !check.Allowed {
		return domain.Attempt{}, domain.ScoreResult{}, &domain.MaxAttemptsError{Ceiling: ceiling}
	}

	var saved domain.Attempt
	if appender, ok := g.attempts.(ConditionalAppender); ok && limited {
		saved, err = appender.AddIfBelow(ctx, attempt, ceiling)
	} else {
		saved, err = g.attempts.Add(ctx, attempt)
	}
	if err != nil {
		return domain.Attempt{}, domain.ScoreResult{}, err
	}

	g.publish(ctx, saved)
	return saved, result, nil
}

func (g *AttemptGate) publish(ctx context.Context, attempt domain.Attempt) {
	if g.events == nil {
		return
	}
	event := domain.AttemptRecorded{
		AttemptID: attempt.ID,
		QuizID:    attempt.QuizID,
		UserID:    attempt.UserID,
		Score:     attempt.Score,
		Passed:    attempt.Passed,
		CreatedAt: attempt.CreatedAt,
	}
	if err := g.events.PublishAttemptRecorded(ctx, event); err != nil {
		log.Printf("publish attempt %s: %v", attempt.ID, err)
	}
}

func eligibility(quiz domain.Quiz, used int) domain.Eligibility {
	ceiling, limited := quiz.Ceiling()
	if !limited {
		return domain.Eligibility{Allowed: true, AttemptsUsed: used}
	}
	remaining := ceiling - used
	if remaining < 0 {
		remaining = 0
	}
	return domain.Eligibility{
		Allowed:           used < ceiling,
		AttemptsUsed:      used,
		AttemptsRemaining: domain.IntPtr(remaining),
		MaxAttempts:       domain.IntPtr(ceiling),
	}
}

// orderedAnswers persists one entry per question in quiz order, nil when unanswered.
func orderedAnswers(quiz domain.Quiz, answers domain.Answers) []domain.Answer {
	ordered := make([]domain.Answer, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		ordered = append(ordered, domain.Answer{
			QuestionID:    question.ID,
			SelectedIndex: copyIndex(answers[question.ID]),
		})
	}
	return ordered
}
