package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/feed"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const attemptColumns = `id, quiz_id, user_id, quiz_title, answers, score, passed, created_at`

// AttemptStore is the Postgres attempt log. Rows are only ever inserted.
type AttemptStore struct {
	pool     *pgxpool.Pool
	notifier feed.Notifier
}

func NewAttemptStore(pool *pgxpool.Pool, notifier feed.Notifier) *AttemptStore {
	return &AttemptStore{pool: pool, notifier: notifier}
}

func (s *AttemptStore) Add(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	saved, err := s.insert(ctx, s.pool, attempt)
	if err != nil {
		return domain.Attempt{}, err
	}
	s.notify(ctx, saved.QuizID)
	return saved, nil
}

// AddIfBelow serializes submissions of one user on one quiz with an advisory
// lock held for the transaction, then counts and inserts.
func (s *AttemptStore) AddIfBelow(ctx context.Context, attempt domain.Attempt, ceiling int) (domain.Attempt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Attempt{}, domain.Unavailable("begin attempt tx", err)
	}
	defer tx.Rollback(ctx)

	lockKey := attempt.QuizID + ":" + attempt.UserID
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return domain.Attempt{}, domain.Unavailable("lock attempts", err)
	}

	var used int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM quiz_attempts WHERE quiz_id=$1 AND user_id=$2`,
		attempt.QuizID, attempt.UserID).Scan(&used)
	if err != nil {
		return domain.Attempt{}, domain.Unavailable("count attempts", err)
	}
	if used >= ceiling {
		return domain.Attempt{}, &domain.MaxAttemptsError{Ceiling: ceiling}
	}

	saved, err := s.insert(ctx, tx, attempt)
	if err != nil {
		return domain.Attempt{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Attempt{}, domain.Unavailable("commit attempt", err)
	}
	s.notify(ctx, saved.QuizID)
	return saved, nil
}

func (s *AttemptStore) CountFor(ctx context.Context, quizID, userID string) (int, error) {
	var used int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM quiz_attempts WHERE quiz_id=$1 AND user_id=$2`,
		quizID, userID).Scan(&used)
	if err != nil {
		return 0, domain.Unavailable("count attempts", err)
	}
	return used, nil
}

func (s *AttemptStore) ListFor(ctx context.Context, quizID, userID string) ([]domain.Attempt, error) {
	return s.list(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts WHERE quiz_id=$1 AND user_id=$2 ORDER BY created_at DESC, seq DESC`,
		quizID, userID)
}

func (s *AttemptStore) ListForUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	return s.list(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts WHERE user_id=$1 ORDER BY created_at DESC, seq DESC`,
		userID)
}

func (s *AttemptStore) ListForQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	return s.list(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts WHERE quiz_id=$1 ORDER BY created_at DESC, seq DESC`,
		quizID)
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts WHERE id=$1`, attemptID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, domain.Unavailable("load attempt", err)
	}
	return attempt, nil
}

func (s *AttemptStore) Subscribe(ctx context.Context, quizID string) (<-chan []domain.Attempt, func(), error) {
	return feed.Watch(ctx, s.notifier, feed.AttemptsTopic(quizID), func(ctx context.Context) ([]domain.Attempt, error) {
		return s.ListForQuiz(ctx, quizID)
	})
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (s *AttemptStore) insert(ctx context.Context, q queryRower, attempt domain.Attempt) (domain.Attempt, error) {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal answers: %w", err)
	}

	attempt.ID = uuid.NewString()
	var createdAt time.Time
	err = q.QueryRow(ctx,
		`INSERT INTO quiz_attempts (id, quiz_id, user_id, quiz_title, answers, score, passed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		attempt.ID, attempt.QuizID, attempt.UserID, attempt.QuizTitle, answers, attempt.Score, attempt.Passed,
	).Scan(&createdAt)
	if err != nil {
		return domain.Attempt{}, domain.Unavailable("insert attempt", err)
	}
	attempt.CreatedAt = createdAt.UTC()
	return attempt, nil
}

func (s *AttemptStore) list(ctx context.Context, query string, args ...interface{}) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *AttemptStore) notify(ctx context.Context, quizID string) {
	feed.Announce(ctx, s.notifier, feed.AttemptsTopic(quizID))
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		attempt domain.Attempt
		answers []byte
	)
	if err := row.Scan(
		&attempt.ID, &attempt.QuizID, &attempt.UserID, &attempt.QuizTitle,
		&answers, &attempt.Score, &attempt.Passed, &attempt.CreatedAt,
	); err != nil {
		return domain.Attempt{}, err
	}
	if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	attempt.CreatedAt = attempt.CreatedAt.UTC()
	return attempt, nil
}
