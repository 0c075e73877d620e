// Package live turns a query into a stream of snapshots. A Subscription
// re-runs its fetch whenever its Trigger fires and delivers the result only
// when it changed. Delivery is latest-wins: the channel holds at most one
// pending snapshot and a newer one replaces it.
package live

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// Snapshot is one result of the subscribed query.
type Snapshot[T any] struct {
	Items []T       `json:"items"`
	At    time.Time `json:"at"`
}

// FetchFunc loads the current result set.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Trigger returns a channel that receives a value whenever the data may have
// changed. The channel may be closed to end the subscription.
type Trigger func(ctx context.Context) <-chan struct{}

// Every fires at a fixed interval.
func Every(interval time.Duration) Trigger {
	return func(ctx context.Context) <-chan struct{} {
		ch := make(chan struct{}, 1)
		go func() {
			defer close(ch)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					select {
					case ch <- struct{}{}:
					default:
					}
				}
			}
		}()
		return ch
	}
}

// Notify adapts an existing change channel, such as a MongoDB change stream.
func Notify(changes <-chan struct{}) Trigger {
	return func(context.Context) <-chan struct{} {
		return changes
	}
}

// ChangeFeed opens a stream of change signals, such as
// repository.MongoRepository.Changes.
type ChangeFeed func(ctx context.Context) (<-chan struct{}, error)

// Changes fires on every signal from open. When the feed cannot be opened it
// polls at fallback instead.
func Changes(open ChangeFeed, fallback time.Duration, log *zap.Logger) Trigger {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context) <-chan struct{} {
		ch, err := open(ctx)
		if err == nil {
			return ch
		}
		log.Debug("change feed unavailable, polling", zap.Duration("interval", fallback), zap.Error(err))
		return Every(fallback)(ctx)
	}
}

// Subscription delivers snapshots on C until Close is called or the context
// passed to Subscribe ends.
type Subscription[T any] struct {
	C <-chan Snapshot[T]

	out    chan Snapshot[T]
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe emits an initial snapshot and a new one after every trigger whose
// fetch result differs from the last delivered snapshot. Fetch errors are
// logged and the previous snapshot stands.
func Subscribe[T any](ctx context.Context, fetch FetchFunc[T], trigger Trigger, log *zap.Logger) *Subscription[T] {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot[T], 1)
	s := &Subscription[T]{C: out, out: out, cancel: cancel, done: make(chan struct{})}
	go s.run(ctx, fetch, trigger(ctx), log)
	return s
}

// Close stops the subscription and waits for its goroutine to exit. It is safe
// to call more than once.
func (s *Subscription[T]) Close() {
	s.cancel()
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription[T]) run(ctx context.Context, fetch FetchFunc[T], ticks <-chan struct{}, log *zap.Logger) {
	defer close(s.done)
	defer close(s.out)

	var last []T
	delivered := false
	refresh := func() {
		items, err := fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("live query failed", zap.Error(err))
			}
			return
		}
		if items == nil {
			items = []T{}
		}
		if delivered && reflect.DeepEqual(items, last) {
			return
		}
		last, delivered = items, true
		s.publish(Snapshot[T]{Items: items, At: time.Now().UTC()})
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			refresh()
		}
	}
}

// publish replaces any undelivered snapshot with snap. Only run sends, so the
// second send cannot block.
func (s *Subscription[T]) publish(snap Snapshot[T]) {
	select {
	case s.out <- snap:
		return
	default:
	}
	select {
	case <-s.out:
	default:
	}
	s.out <- snap
}
