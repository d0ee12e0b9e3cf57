package app

import (
	"context"
	"errors"
	"strings"

	"elearning-quiz-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptRepository is the append-only attempt log. There is deliberately no
// update or delete: attempts are immutable once added.
type AttemptRepository interface {
	// Add assigns the id and creation time and stores the attempt.
	Add(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error)
	CountFor(ctx context.Context, quizID, userID string) (int, error)
	// ListFor, ListForUser and ListForQuiz return newest first.
	ListFor(ctx context.Context, quizID, userID string) ([]domain.Attempt, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Attempt, error)
	ListForQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error)
	Get(ctx context.Context, attemptID string) (domain.Attempt, error)
	// Subscribe streams attempt snapshots for a quiz. The caller must invoke
	// the returned cancel function to avoid leaks.
	Subscribe(ctx context.Context, quizID string) (<-chan []domain.Attempt, func(), error)
}

// ConditionalAppender is implemented by stores that can count and insert in a
// single transaction, closing the race between two devices submitting at once.
type ConditionalAppender interface {
	// AddIfBelow returns *domain.MaxAttemptsError when the user already has
	// ceiling attempts for the quiz.
	AddIfBelow(ctx context.Context, attempt domain.Attempt, ceiling int) (domain.Attempt, error)
}

// QuizService contains the student-facing quiz use cases. Reads for display go
// through quizzes, which may be a cache. Submissions load the quiz from store
// so the ceiling checked is the one stored at that moment.
type QuizService struct {
	quizzes  QuizRepository
	store    QuizRepository
	attempts AttemptRepository
	gate     *AttemptGate
}

func NewQuizService(quizzes, store QuizRepository, attempts AttemptRepository, events EventPublisher) *QuizService {
	return &QuizService{
		quizzes:  quizzes,
		store:    store,
		attempts: attempts,
		gate:     NewAttemptGate(attempts, events),
	}
}

// GetQuizForTaking returns the quiz without answer keys plus the user's attempt
// budget. When the budget is spent, or showCorrection is set, the screen is
// frozen on the correction of the latest attempt.
func (s *QuizService) GetQuizForTaking(ctx context.Context, quizID, userID string, showCorrection bool) (domain.QuizForTaking, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QuizForTaking{}, domain.ErrUnauthenticated
	}

	var (
		quiz     domain.Quiz
		attempts []domain.Attempt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quiz, err = s.quizzes.GetQuiz(gctx, quizID)
		return err
	})
	g.Go(func() error {
		var err error
		attempts, err = s.attempts.ListFor(gctx, quizID, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.QuizForTaking{}, err
	}

	check := eligibility(quiz, len(attempts))
	view := domain.QuizForTaking{
		Quiz:              quiz.Public(),
		AttemptsUsed:      check.AttemptsUsed,
		AttemptsRemaining: check.AttemptsRemaining,
		ForcedCorrection:  showCorrection || !check.Allowed,
	}
	if view.ForcedCorrection && len(attempts) > 0 {
		correction := Reconstruct(quiz, attempts[0])
		view.Correction = &correction
	}
	return view, nil
}

// SubmitQuiz grades and records an attempt. A spent budget yields *domain.MaxAttemptsError.
func (s *QuizService) SubmitQuiz(ctx context.Context, quizID, userID string, answers domain.Answers) (domain.SubmitResult, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.SubmitResult{}, domain.ErrUnauthenticated
	}

	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	attempt, result, err := s.gate.Submit(ctx, quiz, userID, answers)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	return domain.SubmitResult{
		AttemptID:   attempt.ID,
		CreatedAt:   attempt.CreatedAt,
		ScoreResult: result,
	}, nil
}

// GetHistory lists the user's attempts across all quizzes, newest first.
func (s *QuizService) GetHistory(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthenticated
	}

	attempts, err := s.attempts.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	history := make([]domain.HistoryEntry, 0, len(attempts))
	for _, attempt := range attempts {
		history = append(history, domain.HistoryEntry{
			AttemptID: attempt.ID,
			QuizID:    attempt.QuizID,
			QuizTitle: attempt.QuizTitle,
			Score:     attempt.Score,
			Passed:    attempt.Passed,
			CreatedAt: attempt.CreatedAt,
		})
	}
	return history, nil
}

// GetCorrection rebuilds the correction for one of the user's attempts.
// Attempts of other users resolve as not found.
func (s *QuizService) GetCorrection(ctx context.Context, userID, attemptID string) (domain.Correction, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Correction{}, domain.ErrUnauthenticated
	}

	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Correction{}, err
	}
	if attempt.UserID != userID {
		return domain.Correction{}, domain.ErrAttemptNotFound
	}

	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		// The quiz was deleted; the frozen verdict is still worth showing.
		quiz = domain.Quiz{ID: attempt.QuizID}
	} else if err != nil {
		return domain.Correction{}, err
	}
	return Reconstruct(quiz, attempt), nil
}
