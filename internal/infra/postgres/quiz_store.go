package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/feed"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// QuizStore keeps quiz documents as JSONB, one row per quiz.
type QuizStore struct {
	pool     *pgxpool.Pool
	notifier feed.Notifier
}

func NewQuizStore(pool *pgxpool.Pool, notifier feed.Notifier) *QuizStore {
	return &QuizStore{pool: pool, notifier: notifier}
}

func (s *QuizStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, domain.Unavailable("load quiz", err)
	}
	return decodeQuiz(raw)
}

func (s *QuizStore) ListByCourse(ctx context.Context, courseID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM quizzes WHERE course_id=$1 ORDER BY created_at DESC, id`, courseID)
	if err != nil {
		return nil, domain.Unavailable("list quizzes", err)
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, domain.Unavailable("scan quiz", err)
		}
		quiz, err := decodeQuiz(raw)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list quizzes", err)
	}
	return quizzes, nil
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, course_id, data, created_at) VALUES ($1, $2, $3, $4)`,
		quiz.ID, quiz.CourseID, data, quiz.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.Invalid("id", "quiz %q already exists", quiz.ID)
	}
	if err != nil {
		return domain.Unavailable("insert quiz", err)
	}
	s.notify(ctx, quiz.CourseID)
	return nil
}

func (s *QuizStore) ReplaceQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET course_id=$2, data=$3, updated_at=$4 WHERE id=$1`,
		quiz.ID, quiz.CourseID, data, quiz.UpdatedAt)
	if err != nil {
		return domain.Unavailable("update quiz", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	s.notify(ctx, quiz.CourseID)
	return nil
}

func (s *QuizStore) DeleteQuiz(ctx context.Context, quizID string) error {
	var courseID string
	err := s.pool.QueryRow(ctx, `DELETE FROM quizzes WHERE id=$1 RETURNING course_id`, quizID).Scan(&courseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Unavailable("delete quiz", err)
	}
	s.notify(ctx, courseID)
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

func decodeQuiz(raw []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}
