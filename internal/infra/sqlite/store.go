package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"elearning-quiz-service/internal/feed"
	_ "github.com/mattn/go-sqlite3"
)

// Store keeps quizzes and attempts in a single SQLite file. It implements both
// app.QuizStore and app.AttemptRepository for single-node deployments.
type Store struct {
	db       *sql.DB
	notifier feed.Notifier
	now      func() time.Time
}

func NewStore(path string, notifier feed.Notifier) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// One connection serializes writers, which makes count-then-insert atomic.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db, notifier: notifier, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quizzes (
			quiz_id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL,
			data_json TEXT NOT NULL,
			created_at_unix INTEGER NOT NULL,
			updated_at_unix INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			attempt_id TEXT NOT NULL UNIQUE,
			quiz_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			quiz_title TEXT NOT NULL,
			answers_json TEXT NOT NULL,
			score INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_quizzes_course ON quizzes(course_id, created_at_unix DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_quiz_user ON attempts(quiz_id, user_id, created_at_unix DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id, created_at_unix DESC);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
