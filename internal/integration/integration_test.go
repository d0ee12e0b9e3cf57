package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"elearning-quiz-service/internal/app"
	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/infra/postgres"
	infraredis "elearning-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestSubmitAndCorrectEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	if err := postgres.Migrate(ctx, pgURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	notifier := infraredis.NewNotifier(redisClient)
	quizStore := postgres.NewQuizStore(pool, notifier)
	attempts := postgres.NewAttemptStore(pool, notifier)
	quizRepo := infraredis.NewQuizRepository(redisClient, quizStore, 5*time.Minute)

	admin := app.NewAdminService(quizStore, quizRepo, attempts)
	service := app.NewQuizService(quizRepo, quizStore, attempts, nil)

	quiz, err := admin.CreateQuiz(ctx, "course-1", domain.QuizDraft{
		Title:       "Basics",
		PassScore:   domain.IntPtr(70),
		MaxAttempts: domain.SomeInt(2),
		Questions: []domain.Question{
			{ID: "q1", Text: "2 + 2?", Choices: []string{"3", "4"}, CorrectAnswerIndex: 1},
			{ID: "q2", Text: "Capital of France?", Choices: []string{"Paris", "Rome"}, CorrectAnswerIndex: 0},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	updates, cancel, err := admin.SubscribeAttempts(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-updates

	first, err := service.SubmitQuiz(ctx, quiz.ID, "u1", domain.Answers{"q1": domain.IntPtr(1), "q2": domain.IntPtr(0)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.Score != 100 || !first.Passed {
		t.Fatalf("expected 100/passed, got %d/%v", first.Score, first.Passed)
	}

	select {
	case snapshot := <-updates:
		if len(snapshot) != 1 || snapshot[0].ID != first.AttemptID {
			t.Fatalf("unexpected live snapshot: %+v", snapshot)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for live attempts")
	}

	// Two devices race for the last allowed attempt.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.SubmitQuiz(ctx, quiz.ID, "u1", domain.Answers{"q1": domain.IntPtr(0)})
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	rejected := 0
	for err := range results {
		if errors.Is(err, domain.ErrMaxAttemptsReached) {
			rejected++
		} else if err != nil {
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	if rejected != 1 {
		t.Fatalf("expected exactly one rejection, got %d", rejected)
	}
	count, err := attempts.CountFor(ctx, quiz.ID, "u1")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 stored attempts, got %d (%v)", count, err)
	}

	added := quiz.Questions
	added = append(added, domain.Question{ID: "q3", Text: "Added later", Choices: []string{"a", "b"}, CorrectAnswerIndex: 0})
	if _, err := admin.UpdateQuiz(ctx, quiz.ID, domain.QuizUpdate{Questions: added}); err != nil {
		t.Fatalf("update quiz: %v", err)
	}

	correction, err := service.GetCorrection(ctx, "u1", first.AttemptID)
	if err != nil {
		t.Fatalf("correction: %v", err)
	}
	if correction.Score != 100 || !correction.Passed || len(correction.PerQuestion) != 3 {
		t.Fatalf("unexpected correction: %+v", correction)
	}
	if correction.PerQuestion[2].Status != domain.StatusNotApplicable {
		t.Fatalf("expected added question not applicable, got %s", correction.PerQuestion[2].Status)
	}

	history, err := service.GetHistory(ctx, "u1")
	if err != nil || len(history) != 2 || history[1].AttemptID != first.AttemptID {
		t.Fatalf("unexpected history: %+v (%v)", history, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
