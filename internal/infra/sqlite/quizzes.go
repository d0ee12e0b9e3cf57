package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/feed"
	"github.com/mattn/go-sqlite3"
)

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data_json FROM quizzes WHERE quiz_id = ?`, quizID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, domain.Unavailable("load quiz", err)
	}
	return decodeQuiz(raw)
}

func (s *Store) ListByCourse(ctx context.Context, courseID string) ([]domain.Quiz, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data_json FROM quizzes WHERE course_id = ? ORDER BY created_at_unix DESC, quiz_id`, courseID)
	if err != nil {
		return nil, domain.Unavailable("list quizzes", err)
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		var raw string
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

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quizzes (quiz_id, course_id, data_json, created_at_unix) VALUES (?, ?, ?, ?)`,
		quiz.ID, quiz.CourseID, string(data), quiz.CreatedAt.UnixNano())
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return domain.Invalid("id", "quiz %q already exists", quiz.ID)
	}
	if err != nil {
		return domain.Unavailable("insert quiz", err)
	}
	s.notifyQuizzes(ctx, quiz.CourseID)
	return nil
}

func (s *Store) ReplaceQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	var updatedAt sql.NullInt64
	if quiz.UpdatedAt != nil {
		updatedAt = sql.NullInt64{Int64: quiz.UpdatedAt.UnixNano(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET course_id = ?, data_json = ?, updated_at_unix = ? WHERE quiz_id = ?`,
		quiz.CourseID, string(data), updatedAt, quiz.ID)
	if err != nil {
		return domain.Unavailable("update quiz", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrQuizNotFound
	}
	s.notifyQuizzes(ctx, quiz.CourseID)
	return nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Unavailable("begin delete", err)
	}
	defer tx.Rollback()

	var courseID string
	err = tx.QueryRowContext(ctx, `SELECT course_id FROM quizzes WHERE quiz_id = ?`, quizID).Scan(&courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Unavailable("load quiz", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quizzes WHERE quiz_id = ?`, quizID); err != nil {
		return domain.Unavailable("delete quiz", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Unavailable("commit delete", err)
	}
	s.notifyQuizzes(ctx, courseID)
	return nil
}

func (s *Store) SubscribeByCourse(ctx context.Context, courseID string) (<-chan []domain.Quiz, func(), error) {
	return feed.Watch(ctx, s.notifier, feed.QuizzesTopic(courseID), func(ctx context.Context) ([]domain.Quiz, error) {
		return s.ListByCourse(ctx, courseID)
	})
}

func (s *Store) notifyQuizzes(ctx context.Context, courseID string) {
	feed.Announce(ctx, s.notifier, feed.QuizzesTopic(courseID))
}

func decodeQuiz(raw string) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}
