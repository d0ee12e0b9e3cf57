package memory

import (
	"context"
	"sort"
	"sync"

	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/feed"
)

// QuizStore is an in-memory implementation of app.QuizStore (useful for tests/demos).
type QuizStore struct {
	notifier feed.Notifier

	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizStore(notifier feed.Notifier, seed ...domain.Quiz) *QuizStore {
	store := &QuizStore{
		notifier: notifier,
		quizzes:  make(map[string]domain.Quiz, len(seed)),
	}
	for _, quiz := range seed {
		store.quizzes[quiz.ID] = cloneQuiz(quiz)
	}
	return store
}

func (s *QuizStore) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *QuizStore) ListByCourse(_ context.Context, courseID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	quizzes := make([]domain.Quiz, 0)
	for _, quiz := range s.quizzes {
		if quiz.CourseID == courseID {
			quizzes = append(quizzes, cloneQuiz(quiz))
		}
	}
	s.mu.RUnlock()

	sort.Slice(quizzes, func(i, j int) bool {
		if !quizzes[i].CreatedAt.Equal(quizzes[j].CreatedAt) {
			return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
		}
		return quizzes[i].ID < quizzes[j].ID
	})
	return quizzes, nil
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	if _, exists := s.quizzes[quiz.ID]; exists {
		s.mu.Unlock()
		return domain.Invalid("id", "quiz %q already exists", quiz.ID)
	}
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	s.mu.Unlock()

	s.notify(ctx, quiz.CourseID)
	return nil
}

func (s *QuizStore) ReplaceQuiz(ctx context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	if _, exists := s.quizzes[quiz.ID]; !exists {
		s.mu.Unlock()
		return domain.ErrQuizNotFound
	}
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	s.mu.Unlock()

	s.notify(ctx, quiz.CourseID)
	return nil
}

func (s *QuizStore) DeleteQuiz(ctx context.Context, quizID string) error {
	s.mu.Lock()
	quiz, exists := s.quizzes[quizID]
	if !exists {
		s.mu.Unlock()
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	s.mu.Unlock()

	s.notify(ctx, quiz.CourseID)
	return nil
}

func (s *QuizStore) SubscribeByCourse(ctx context.Context, courseID string) (<-chan []domain.Quiz, func(), error) {
	return feed.Watch(ctx, s.notifier, feed.QuizzesTopic(courseID), func(ctx context.Context) ([]domain.Quiz, error) {
		return s.ListByCourse(ctx, courseID)
	})
}

func (s *QuizStore) notify(ctx context.Context, courseID string) {
	feed.Announce(ctx, s.notifier, feed.QuizzesTopic(courseID))
}

func cloneQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	for i, question := range quiz.Questions {
		question.Choices = append([]string(nil), question.Choices...)
		questions[i] = question
	}
	quiz.Questions = questions
	if quiz.MaxAttempts != nil {
		quiz.MaxAttempts = domain.IntPtr(*quiz.MaxAttempts)
	}
	if quiz.UpdatedAt != nil {
		updated := *quiz.UpdatedAt
		quiz.UpdatedAt = &updated
	}
	return quiz
}
