package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"elearning-quiz-service/internal/config"
	"elearning-quiz-service/internal/feed"
	transport "elearning-quiz-service/internal/transport/http"
)

func TestOpenStorageMemorySeedsDemoQuiz(t *testing.T) {
	cfg := config.Config{}
	cfg.Storage.Driver = config.DriverMemory
	cfg.Storage.SeedDemo = true

	store, err := openStorage(context.Background(), cfg, feed.NewHub())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer store.close()

	quiz, err := store.quizzes.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("expected seeded quiz: %v", err)
	}
	if err := quiz.Validate(); err != nil {
		t.Fatalf("seeded quiz must be valid: %v", err)
	}
}

func TestOpenStorageSQLite(t *testing.T) {
	cfg := config.Config{}
	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "quiz.db")

	store, err := openStorage(context.Background(), cfg, feed.NewHub())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer store.close()

	if _, err := store.attempts.CountFor(context.Background(), "quiz-1", "u1"); err != nil {
		t.Fatalf("count: %v", err)
	}
}

func TestOpenStorageUnknownDriver(t *testing.T) {
	cfg := config.Config{}
	cfg.Storage.Driver = "mongo"
	if _, err := openStorage(context.Background(), cfg, feed.NewHub()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestTokenCommandIssuesAdminToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--user", "admin-1", "--admin"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	claims, err := transport.NewAuthenticator("cli-secret").Parse(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.Subject != "admin-1" || claims.Role != transport.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
