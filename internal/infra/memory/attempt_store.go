package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/feed"
	"github.com/google/uuid"
)

// AttemptStore is an in-memory, append-only implementation of app.AttemptRepository.
// Returned attempts are copies, so callers cannot mutate stored records.
type AttemptStore struct {
	notifier feed.Notifier
	now      func() time.Time

	mu       sync.RWMutex
	attempts []domain.Attempt
	byID     map[string]int
}

func NewAttemptStore(notifier feed.Notifier) *AttemptStore {
	return NewAttemptStoreWithClock(notifier, time.Now)
}

// NewAttemptStoreWithClock is test-only for deterministic timestamps.
func NewAttemptStoreWithClock(notifier feed.Notifier, now func() time.Time) *AttemptStore {
	return &AttemptStore{
		notifier: notifier,
		now:      now,
		byID:     make(map[string]int),
	}
}

func (s *AttemptStore) Add(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	s.mu.Lock()
	saved := s.appendLocked(attempt)
	s.mu.Unlock()

	s.notify(ctx, saved.QuizID)
	return saved, nil
}

// AddIfBelow counts and appends under one lock.
func (s *AttemptStore) AddIfBelow(ctx context.Context, attempt domain.Attempt, ceiling int) (domain.Attempt, error) {
	s.mu.Lock()
	if s.countLocked(attempt.QuizID, attempt.UserID) >= ceiling {
		s.mu.Unlock()
		return domain.Attempt{}, &domain.MaxAttemptsError{Ceiling: ceiling}
	}
	saved := s.appendLocked(attempt)
	s.mu.Unlock()

	s.notify(ctx, saved.QuizID)
	return saved, nil
}

func (s *AttemptStore) CountFor(_ context.Context, quizID, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(quizID, userID), nil
}

func (s *AttemptStore) ListFor(_ context.Context, quizID, userID string) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool {
		return a.QuizID == quizID && a.UserID == userID
	}), nil
}

func (s *AttemptStore) ListForUser(_ context.Context, userID string) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool {
		return a.UserID == userID
	}), nil
}

func (s *AttemptStore) ListForQuiz(_ context.Context, quizID string) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool {
		return a.QuizID == quizID
	}), nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(s.attempts[idx]), nil
}

func (s *AttemptStore) Subscribe(ctx context.Context, quizID string) (<-chan []domain.Attempt, func(), error) {
	return feed.Watch(ctx, s.notifier, feed.AttemptsTopic(quizID), func(ctx context.Context) ([]domain.Attempt, error) {
		return s.ListForQuiz(ctx, quizID)
	})
}

func (s *AttemptStore) appendLocked(attempt domain.Attempt) domain.Attempt {
	saved := cloneAttempt(attempt)
	saved.ID = uuid.NewString()
	saved.CreatedAt = s.now().UTC()
	s.byID[saved.ID] = len(s.attempts)
	s.attempts = append(s.attempts, saved)
	return cloneAttempt(saved)
}

func (s *AttemptStore) countLocked(quizID, userID string) int {
	count := 0
	for _, attempt := range s.attempts {
		if attempt.QuizID == quizID && attempt.UserID == userID {
			count++
		}
	}
	return count
}

// filter returns matching attempts newest first; insertion order breaks timestamp ties.
func (s *AttemptStore) filter(match func(domain.Attempt) bool) []domain.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type indexed struct {
		seq     int
		attempt domain.Attempt
	}
	matches := make([]indexed, 0)
	for i, attempt := range s.attempts {
		if match(attempt) {
			matches = append(matches, indexed{seq: i, attempt: attempt})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.attempt.CreatedAt.Equal(b.attempt.CreatedAt) {
			return a.attempt.CreatedAt.After(b.attempt.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]domain.Attempt, 0, len(matches))
	for _, m := range matches {
		out = append(out, cloneAttempt(m.attempt))
	}
	return out
}

func (s *AttemptStore) notify(ctx context.Context, quizID string) {
	feed.Announce(ctx, s.notifier, feed.AttemptsTopic(quizID))
}

func cloneAttempt(attempt domain.Attempt) domain.Attempt {
	answers := make([]domain.Answer, len(attempt.Answers))
	for i, answer := range attempt.Answers {
		if answer.SelectedIndex != nil {
			answer.SelectedIndex = domain.IntPtr(*answer.SelectedIndex)
		}
		answers[i] = answer
	}
	attempt.Answers = answers
	return attempt
}
