package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickHandler performs one unit of poll work, e.g. reconciling one teacher's
// queue against a fresh store snapshot. Errors are logged and the tick moves
// on; the next interval retries naturally because reconciliation is
// idempotent.
type TickHandler func(ctx context.Context, key string) error

// KeyFunc lists the work keys for the next tick. Evaluated every interval so
// teachers joining or leaving the board day are picked up without restarts.
type KeyFunc func(ctx context.Context) []string

// PollerConfig tunes the reconciliation loop.
type PollerConfig struct {
	Interval time.Duration
	Workers  int
	Logger   *zap.Logger
}

// Poller runs a handler for every key on a fixed interval, fanning the keys
// out over a small worker pool.
type Poller struct {
	name     string
	keys     KeyFunc
	handler  TickHandler
	interval time.Duration
	workers  int
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewPoller builds a poller; Start begins ticking.
func NewPoller(name string, keys KeyFunc, handler TickHandler, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Poller{
		name:     name,
		keys:     keys,
		handler:  handler,
		interval: cfg.Interval,
		workers:  cfg.Workers,
		logger:   cfg.Logger,
	}
}

// Start launches the loop. Safe to call once.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.started = true
	go p.run(ctx)
	p.logger.Sugar().Infow("poller started", "poller", p.name, "interval", p.interval, "workers", p.workers)
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.cancel()
	done := p.done
	p.mu.Unlock()
	<-done
	p.logger.Sugar().Infow("poller stopped", "poller", p.name)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	keys := p.keys(ctx)
	if len(keys) == 0 {
		return
	}

	work := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range work {
				if err := p.handler(ctx, key); err != nil {
					p.logger.Sugar().Warnw("poll tick failed", "poller", p.name, "key", key, "error", err)
				}
			}
		}()
	}

	for _, key := range keys {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return
		case work <- key:
		}
	}
	close(work)
	wg.Wait()
}
