package app

import (
	"context"
	"strings"
	"time"

	"elearning-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// QuizStore is the admin-facing quiz definition store.
type QuizStore interface {
	QuizRepository
	// ListByCourse returns the course's quizzes, newest first.
	ListByCourse(ctx context.Context, courseID string) ([]domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	// ReplaceQuiz overwrites an existing quiz and returns domain.ErrQuizNotFound if it is missing.
	ReplaceQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	SubscribeByCourse(ctx context.Context, courseID string) (<-chan []domain.Quiz, func(), error)
}

// QuizCache is implemented by read-through quiz caches that must drop edited quizzes.
type QuizCache interface {
	Invalidate(ctx context.Context, quizID string)
}

// AdminService manages quiz definitions and exposes attempt monitoring.
type AdminService struct {
	store    QuizStore
	cache    QuizCache
	attempts AttemptRepository
	clock    func() time.Time
}

func NewAdminService(store QuizStore, cache QuizCache, attempts AttemptRepository) *AdminService {
	return &AdminService{
		store:    store,
		cache:    cache,
		attempts: attempts,
		clock:    time.Now,
	}
}

// CreateQuiz assigns ids, applies defaults and stores a new quiz. An omitted
// maxAttempts becomes DefaultMaxAttempts; an explicit null keeps it unlimited.
func (s *AdminService) CreateQuiz(ctx context.Context, courseID string, draft domain.QuizDraft) (domain.Quiz, error) {
	if strings.TrimSpace(courseID) == "" {
		return domain.Quiz{}, domain.Invalid("courseId", "must not be empty")
	}

	passScore := domain.DefaultPassScore
	if draft.PassScore != nil {
		passScore = *draft.PassScore
	}
	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		CourseID:    courseID,
		Title:       strings.TrimSpace(draft.Title),
		Description: draft.Description,
		Questions:   normalizeQuestions(draft.Questions),
		PassScore:   passScore,
		MaxAttempts: draft.MaxAttempts.Or(domain.DefaultMaxAttempts),
		CreatedAt:   s.clock().UTC(),
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// UpdateQuiz applies a partial edit. Existing question ids are kept so past
// attempts still line up with their questions.
func (s *AdminService) UpdateQuiz(ctx context.Context, quizID string, update domain.QuizUpdate) (domain.Quiz, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}

	if update.Title != nil {
		quiz.Title = strings.TrimSpace(*update.Title)
	}
	if update.Description != nil {
		quiz.Description = *update.Description
	}
	if update.PassScore != nil {
		quiz.PassScore = *update.PassScore
	}
	switch {
	case update.ClearMaxAttempts:
		quiz.MaxAttempts = nil
	case update.MaxAttempts != nil:
		quiz.MaxAttempts = domain.IntPtr(*update.MaxAttempts)
	}
	if update.Questions != nil {
		quiz.Questions = normalizeQuestions(update.Questions)
	}
	now := s.clock().UTC()
	quiz.UpdatedAt = &now

	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.store.ReplaceQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quizID)
	return quiz, nil
}

// DeleteQuiz removes the definition. Attempts stay untouched.
func (s *AdminService) DeleteQuiz(ctx context.Context, quizID string) error {
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

func (s *AdminService) ListQuizzes(ctx context.Context, courseID string) ([]domain.Quiz, error) {
	return s.store.ListByCourse(ctx, courseID)
}

func (s *AdminService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.store.GetQuiz(ctx, quizID)
}

func (s *AdminService) ListAttempts(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	return s.attempts.ListForQuiz(ctx, quizID)
}

// SubscribeAttempts streams attempt snapshots for a quiz; call cancel when done.
func (s *AdminService) SubscribeAttempts(ctx context.Context, quizID string) (<-chan []domain.Attempt, func(), error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return nil, nil, err
	}
	return s.attempts.Subscribe(ctx, quizID)
}

// SubscribeQuizzes streams the quiz list of a course; call cancel when done.
func (s *AdminService) SubscribeQuizzes(ctx context.Context, courseID string) (<-chan []domain.Quiz, func(), error) {
	return s.store.SubscribeByCourse(ctx, courseID)
}

func (s *AdminService) invalidate(ctx context.Context, quizID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, quizID)
	}
}

func normalizeQuestions(questions []domain.Question) []domain.Question {
	normalized := make([]domain.Question, 0, len(questions))
	for _, question := range questions {
		if strings.TrimSpace(question.ID) == "" {
			question.ID = uuid.NewString()
		}
		question.Text = strings.TrimSpace(question.Text)
		question.Choices = append([]string(nil), question.Choices...)
		normalized = append(normalized, question)
	}
	return normalized
}
