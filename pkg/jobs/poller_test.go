package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollerFansOutKeysEachTick(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	keys := func(ctx context.Context) []string { return []string{"t1", "t2", "t3"} }
	handler := func(ctx context.Context, key string) error {
		mu.Lock()
		seen[key]++
		mu.Unlock()
		return nil
	}

	p := NewPoller("test", keys, handler, PollerConfig{Interval: 10 * time.Millisecond, Workers: 2})
	p.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	for _, key := range []string{"t1", "t2", "t3"} {
		assert.GreaterOrEqual(t, seen[key], 1, "key %s should have been polled", key)
	}
}

func TestPollerSurvivesHandlerErrors(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	keys := func(ctx context.Context) []string { return []string{"t1"} }
	handler := func(ctx context.Context, key string) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("store unreachable")
	}

	p := NewPoller("test", keys, handler, PollerConfig{Interval: 10 * time.Millisecond})
	p.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2, "errors must not stop the loop")
}

func TestPollerStopIsIdempotent(t *testing.T) {
	p := NewPoller("test", func(context.Context) []string { return nil }, func(context.Context, string) error { return nil }, PollerConfig{Interval: time.Millisecond})
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
