package feed

import (
	"context"
	"log"
	"sync"
)

// Watch turns change signals into snapshots. The first snapshot is loaded
// before Watch returns; later ones are reloaded on every signal. A slow
// consumer only ever sees the latest snapshot.
func Watch[T any](ctx context.Context, n Notifier, topic string, load func(context.Context) (T, error)) (<-chan T, func(), error) {
	signals, stop, err := n.Listen(ctx, topic)
	if err != nil {
		return nil, nil, err
	}

	initial, err := load(ctx)
	if err != nil {
		stop()
		return nil, nil, err
	}

	out := make(chan T, 1)
	out <- initial

	watchCtx, cancelWatch := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		for {
			select {
			case <-watchCtx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				snapshot, err := load(watchCtx)
				if err != nil {
					if watchCtx.Err() != nil {
						return
					}
					log.Printf("watch %s: reload failed: %v", topic, err)
					continue
				}
				deliverLatest(out, snapshot)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelWatch()
			stop()
			<-done
		})
	}
	return out, cancel, nil
}

// deliverLatest replaces an unread snapshot instead of blocking the producer.
func deliverLatest[T any](out chan T, snapshot T) {
	select {
	case out <- snapshot:
	default:
		select {
		case <-out:
		default:
		}
		out <- snapshot
	}
}
