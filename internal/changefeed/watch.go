package changefeed

import (
	"context"
	"fmt"
)

// QueryFunc reads the current result set of a standing query.
type QueryFunc[T any] func(ctx context.Context) ([]T, error)

// Stream is a cancellable standing query. Snapshots receives the full result
// set once on start and again after every change on the watched topics.
// Errors receives query failures; the stream keeps running after one.
// Both channels are closed after Close.
type Stream[T any] struct {
	Snapshots <-chan []T
	Errors    <-chan error

	cancel context.CancelFunc
	done   chan struct{}
}

// Watch subscribes before running the first query, so a change that lands
// between the two is still observed.
func Watch[T any](ctx context.Context, feed Feed, topics []string, query QueryFunc[T]) (*Stream[T], error) {
	sub, err := feed.Subscribe(ctx, topics...)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	snapshots := make(chan []T, 1)
	errs := make(chan error, 1)
	s := &Stream[T]{
		Snapshots: snapshots,
		Errors:    errs,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(errs)
		defer close(snapshots)
		defer sub.Close()

		deliver := func() bool {
			items, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				select {
				case errs <- err:
					return true
				case <-ctx.Done():
					return false
				}
			}
			select {
			case snapshots <- items:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !deliver() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.C():
				if !ok {
					return
				}
				if !deliver() {
					return
				}
			}
		}
	}()

	return s, nil
}

// Close releases the subscription and waits for the stream goroutine to exit.
func (s *Stream[T]) Close() {
	s.cancel()
	<-s.done
}

// Done is closed once the stream has stopped.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}
