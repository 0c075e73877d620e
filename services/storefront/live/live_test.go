package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// source is a fetch whose result the test controls.
type source struct {
	mu    sync.Mutex
	items []string
	err   error
}

func (s *source) set(items ...string) {
	s.mu.Lock()
	s.items, s.err = items, nil
	s.mu.Unlock()
}

func (s *source) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *source) fetch(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.items...), nil
}

func receive(t *testing.T, c <-chan Snapshot[string]) Snapshot[string] {
	t.Helper()
	select {
	case snap, ok := <-c:
		require.True(t, ok, "channel closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
	return Snapshot[string]{}
}

func assertNothingPending(t *testing.T, c <-chan Snapshot[string]) {
	t.Helper()
	select {
	case snap := <-c:
		t.Fatalf("unexpected snapshot %v", snap.Items)
	default:
	}
}

func TestSubscribe_InitialAndChangedSnapshots(t *testing.T) {
	src := &source{}
	src.set("a")
	ticks := make(chan struct{})
	sub := Subscribe(context.Background(), src.fetch, Notify(ticks), zap.NewNop())
	defer sub.Close()

	assert.Equal(t, []string{"a"}, receive(t, sub.C).Items)

	// unchanged result is not redelivered; the second send waits for the first refresh
	ticks <- struct{}{}
	ticks <- struct{}{}
	assertNothingPending(t, sub.C)

	src.set("a", "b")
	ticks <- struct{}{}
	snap := receive(t, sub.C)
	assert.Equal(t, []string{"a", "b"}, snap.Items)
	assert.False(t, snap.At.IsZero())
}

func TestSubscribe_EmptyResultIsNotNil(t *testing.T) {
	src := &source{}
	sub := Subscribe(context.Background(), src.fetch, Notify(make(chan struct{})), nil)
	defer sub.Close()

	snap := receive(t, sub.C)
	assert.NotNil(t, snap.Items)
	assert.Empty(t, snap.Items)
}

func TestSubscribe_LatestWins(t *testing.T) {
	src := &source{}
	src.set("v0")
	ticks := make(chan struct{})
	sub := Subscribe(context.Background(), src.fetch, Notify(ticks), zap.NewNop())
	defer sub.Close()

	for _, v := range []string{"v1", "v2", "v3"} {
		src.set(v)
		ticks <- struct{}{}
	}
	// one more unchanged tick makes sure v3 has been published
	ticks <- struct{}{}

	assert.Equal(t, []string{"v3"}, receive(t, sub.C).Items)
	assertNothingPending(t, sub.C)
}

func TestSubscribe_FetchErrorKeepsLastSnapshot(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	src := &source{}
	src.set("a")
	ticks := make(chan struct{})
	sub := Subscribe(context.Background(), src.fetch, Notify(ticks), zap.New(core))
	defer sub.Close()
	receive(t, sub.C)

	src.fail(errors.New("mongo unavailable"))
	ticks <- struct{}{}
	ticks <- struct{}{}
	assertNothingPending(t, sub.C)
	assert.GreaterOrEqual(t, logs.FilterMessage("live query failed").Len(), 1)

	src.set("a", "c")
	ticks <- struct{}{}
	assert.Equal(t, []string{"a", "c"}, receive(t, sub.C).Items)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	src := &source{}
	sub := Subscribe(context.Background(), src.fetch, Every(time.Hour), zap.NewNop())
	receive(t, sub.C)

	sub.Close()
	sub.Close()

	_, ok := <-sub.C
	assert.False(t, ok)
	<-sub.Done()
}

func TestSubscription_EndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &source{}
	sub := Subscribe(ctx, src.fetch, Every(time.Hour), zap.NewNop())
	receive(t, sub.C)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
	_, ok := <-sub.C
	assert.False(t, ok)
}

func TestSubscription_EndsWhenTriggerCloses(t *testing.T) {
	src := &source{}
	ticks := make(chan struct{})
	sub := Subscribe(context.Background(), src.fetch, Notify(ticks), zap.NewNop())
	receive(t, sub.C)

	close(ticks)
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
	sub.Close()
}

func TestEvery_Polls(t *testing.T) {
	var calls atomic.Int32
	fetch := func(context.Context) ([]int32, error) {
		return []int32{calls.Add(1)}, nil
	}
	sub := Subscribe(context.Background(), fetch, Every(5*time.Millisecond), zap.NewNop())
	defer sub.Close()

	seen := 0
	deadline := time.After(2 * time.Second)
	for seen < 3 {
		select {
		case <-sub.C:
			seen++
		case <-deadline:
			t.Fatalf("only %d snapshots delivered", seen)
		}
	}
}

func TestChanges(t *testing.T) {
	t.Run("uses the change feed", func(t *testing.T) {
		src := &source{}
		src.set("a")
		feed := make(chan struct{}, 1)
		open := func(context.Context) (<-chan struct{}, error) { return feed, nil }

		sub := Subscribe(context.Background(), src.fetch, Changes(open, time.Hour, nil), zap.NewNop())
		defer sub.Close()
		assert.Equal(t, []string{"a"}, receive(t, sub.C).Items)

		src.set("a", "b")
		feed <- struct{}{}
		assert.Equal(t, []string{"a", "b"}, receive(t, sub.C).Items)
	})

	t.Run("polls when the feed cannot be opened", func(t *testing.T) {
		var calls atomic.Int32
		fetch := func(context.Context) ([]int32, error) {
			return []int32{calls.Add(1)}, nil
		}
		open := func(context.Context) (<-chan struct{}, error) {
			return nil, errors.New("not a replica set")
		}

		sub := Subscribe(context.Background(), fetch, Changes(open, 5*time.Millisecond, zap.NewNop()), zap.NewNop())
		defer sub.Close()

		for i := 0; i < 2; i++ {
			select {
			case <-sub.C:
			case <-time.After(2 * time.Second):
				t.Fatal("fallback polling did not fire")
			}
		}
	})
}
