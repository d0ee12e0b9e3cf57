package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/feed"
	"github.com/google/uuid"
)

const attemptColumns = `attempt_id, quiz_id, user_id, quiz_title, answers_json, score, passed, created_at_unix`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) Add(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	saved, err := s.insertAttempt(ctx, s.db, attempt)
	if err != nil {
		return domain.Attempt{}, err
	}
	s.notifyAttempts(ctx, saved.QuizID)
	return saved, nil
}

func (s *Store) AddIfBelow(ctx context.Context, attempt domain.Attempt, ceiling int) (domain.Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Attempt{}, domain.Unavailable("begin attempt tx", err)
	}
	defer tx.Rollback()

	var used int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE quiz_id = ? AND user_id = ?`,
		attempt.QuizID, attempt.UserID).Scan(&used)
	if err != nil {
		return domain.Attempt{}, domain.Unavailable("count attempts", err)
	}
	if used >= ceiling {
		return domain.Attempt{}, &domain.MaxAttemptsError{Ceiling: ceiling}
	}

	saved, err := s.insertAttempt(ctx, tx, attempt)
	if err != nil {
		return domain.Attempt{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Attempt{}, domain.Unavailable("commit attempt", err)
	}
	s.notifyAttempts(ctx, saved.QuizID)
	return saved, nil
}

func (s *Store) CountFor(ctx context.Context, quizID, userID string) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE quiz_id = ? AND user_id = ?`,
		quizID, userID).Scan(&used)
	if err != nil {
		return 0, domain.Unavailable("count attempts", err)
	}
	return used, nil
}

func (s *Store) ListFor(ctx context.Context, quizID, userID string) ([]domain.Attempt, error) {
	return s.listAttempts(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE quiz_id = ? AND user_id = ? ORDER BY created_at_unix DESC, seq DESC`,
		quizID, userID)
}

func (s *Store) ListForUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	return s.listAttempts(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = ? ORDER BY created_at_unix DESC, seq DESC`,
		userID)
}

func (s *Store) ListForQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	return s.listAttempts(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE quiz_id = ? ORDER BY created_at_unix DESC, seq DESC`,
		quizID)
}

func (s *Store) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE attempt_id = ?`, attemptID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, domain.Unavailable("load attempt", err)
	}
	return attempt, nil
}

func (s *Store) Subscribe(ctx context.Context, quizID string) (<-chan []domain.Attempt, func(), error) {
	return feed.Watch(ctx, s.notifier, feed.AttemptsTopic(quizID), func(ctx context.Context) ([]domain.Attempt, error) {
		return s.ListForQuiz(ctx, quizID)
	})
}

func (s *Store) insertAttempt(ctx context.Context, db execer, attempt domain.Attempt) (domain.Attempt, error) {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal answers: %w", err)
	}

	attempt.ID = uuid.NewString()
	attempt.CreatedAt = s.now().UTC()
	_, err = db.ExecContext(ctx,
		`INSERT INTO attempts (attempt_id, quiz_id, user_id, quiz_title, answers_json, score, passed, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID, attempt.QuizID, attempt.UserID, attempt.QuizTitle,
		string(answers), attempt.Score, boolToInt(attempt.Passed), attempt.CreatedAt.UnixNano())
	if err != nil {
		return domain.Attempt{}, domain.Unavailable("insert attempt", err)
	}
	return attempt, nil
}

func (s *Store) listAttempts(ctx context.Context, query string, args ...any) ([]domain.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Unavailable("list attempts", err)
	}
	defer rows.Close()

	attempts := make([]domain.Attempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, domain.Unavailable("scan attempt", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list attempts", err)
	}
	return attempts, nil
}

func (s *Store) notifyAttempts(ctx context.Context, quizID string) {
	feed.Announce(ctx, s.notifier, feed.AttemptsTopic(quizID))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (domain.Attempt, error) {
	var (
		attempt   domain.Attempt
		answers   string
		passed    int
		createdAt int64
	)
	if err := row.Scan(
		&attempt.ID, &attempt.QuizID, &attempt.UserID, &attempt.QuizTitle,
		&answers, &attempt.Score, &passed, &createdAt,
	); err != nil {
		return domain.Attempt{}, err
	}
	if err := json.Unmarshal([]byte(answers), &attempt.Answers); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	attempt.Passed = passed != 0
	attempt.CreatedAt = time.Unix(0, createdAt).UTC()
	return attempt, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
