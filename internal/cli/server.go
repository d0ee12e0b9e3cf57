package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elearning-quiz-service/internal/app"
	"elearning-quiz-service/internal/config"
	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/feed"
	"elearning-quiz-service/internal/infra/memory"
	"elearning-quiz-service/internal/infra/postgres"
	"elearning-quiz-service/internal/infra/rabbit"
	infraredis "elearning-quiz-service/internal/infra/redis"
	"elearning-quiz-service/internal/infra/sqlite"
	transport "elearning-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type cachingQuizRepository interface {
	app.QuizRepository
	app.QuizCache
}

type storage struct {
	quizzes  app.QuizStore
	attempts app.AttemptRepository
	closers  []io.Closer
	cleanup  []func()
}

func (s *storage) close() {
	for _, fn := range s.cleanup {
		fn()
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret (JWT_SECRET) is required")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var notifier feed.Notifier = feed.NewHub()
	if redisClient != nil {
		notifier = infraredis.NewNotifier(redisClient)
	}

	store, err := openStorage(ctx, cfg, notifier)
	if err != nil {
		return err
	}
	defer store.close()

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo cachingQuizRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, store.quizzes, config.TTLDuration(cfg.Redis.TTL, quizTTL))
	} else {
		quizRepo = memory.NewQuizRepository(store.quizzes, quizTTL)
	}

	var events app.EventPublisher
	if cfg.AMQP.URL != "" {
		publisher, err := rabbit.Dial(cfg.AMQP.URL)
		if err != nil {
			return err
		}
		defer publisher.Close()
		events = publisher
	}

	router := transport.NewRouter(transport.RouterDeps{
		Quizzes:     app.NewQuizService(quizRepo, store.quizzes, store.attempts, events),
		Admin:       app.NewAdminService(store.quizzes, quizRepo, store.attempts),
		Auth:        transport.NewAuthenticator(cfg.Auth.JWTSecret),
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// websocket feeds are long-lived, so no WriteTimeout
	}

	go func() {
		log.Printf("starting quiz service on :%s (storage=%s)", finalPort, cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, cfg config.Config, notifier feed.Notifier) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		var seed []domain.Quiz
		if cfg.Storage.SeedDemo {
			seed = sampleQuizzes()
		}
		return &storage{
			quizzes:  memory.NewQuizStore(notifier, seed...),
			attempts: memory.NewAttemptStore(notifier),
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.NewStore(cfg.Storage.SQLitePath, notifier)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &storage{quizzes: store, attempts: store, closers: []io.Closer{store}}, nil

	case config.DriverPostgres:
		if err := postgres.Migrate(ctx, cfg.Postgres.URL); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		return &storage{
			quizzes:  postgres.NewQuizStore(pool, notifier),
			attempts: postgres.NewAttemptStore(pool, notifier),
			cleanup:  []func(){pool.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// sampleQuizzes seeds memory storage so the service is usable without a database.
func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			ID:          "quiz-1",
			CourseID:    "course-1",
			Title:       "Arithmetic warm-up",
			Description: "Three quick sums.",
			PassScore:   domain.DefaultPassScore,
			MaxAttempts: domain.IntPtr(3),
			CreatedAt:   time.Now().UTC(),
			Questions: []domain.Question{
				{ID: "q1", Text: "What is 2 + 2?", Choices: []string{"3", "4", "5"}, CorrectAnswerIndex: 1},
				{ID: "q2", Text: "What is 10 - 7?", Choices: []string{"3", "7"}, CorrectAnswerIndex: 0},
				{ID: "q3", Text: "What is 3 x 3?", Choices: []string{"6", "9", "12"}, CorrectAnswerIndex: 1, Explanation: "3 + 3 + 3"},
			},
		},
	}
}
