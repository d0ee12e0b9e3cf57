package redis

import (
	"context"
	"testing"
	"time"

	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/feed"
	"elearning-quiz-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNotifierDeliversAcrossClients(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	listener := NewNotifier(newClient(mr))
	publisher := NewNotifier(newClient(mr))

	signals, cancel, err := listener.Listen(ctx, feed.AttemptsTopic("quiz-1"))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	if err := publisher.Notify(ctx, feed.AttemptsTopic("quiz-1")); err != nil {
		t.Fatalf("notify: %v", err)
	}
	select {
	case <-signals:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for signal")
	}

	cancel()
	cancel()
	for range signals {
	}
}

func TestNotifierDrivesAttemptFeed(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	attempts := memory.NewAttemptStore(NewNotifier(newClient(mr)))

	updates, cancel, err := attempts.Subscribe(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-updates

	if _, err := attempts.Add(ctx, domain.Attempt{QuizID: "quiz-1", UserID: "u1", Score: 75}); err != nil {
		t.Fatalf("add: %v", err)
	}
	select {
	case snapshot := <-updates:
		if len(snapshot) != 1 || snapshot[0].Score != 75 {
			t.Fatalf("unexpected snapshot %+v", snapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
}
