// Package ticker drives fixed-rate frame ticks into a platform event loop.
//
// The ticker never runs user code. Each tick only posts a platform.Tick
// event; the loop goroutine that receives it performs the update pass. A
// tick is not posted while the previous one is still pending, so a slow
// frame delays the next tick instead of queueing a backlog.
package ticker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comalice/framecore/platform"
)

// DefaultRate is 60 ticks per second.
const DefaultRate = 16667 * time.Microsecond

// Poster is the part of platform.EventLoop the ticker needs.
type Poster interface {
	Post(ev platform.Event) error
}

// Config configures a Ticker.
type Config struct {
	Rate time.Duration // Fixed tick period (default: DefaultRate)
}

// Ticker posts platform.Tick events at a fixed rate.
type Ticker struct {
	rate   time.Duration
	poster Poster

	tickNum atomic.Uint64
	pending atomic.Bool
	skipped atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
	err     error
}

// New returns a stopped ticker posting into p.
func New(p Poster, cfg Config) *Ticker {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	return &Ticker{rate: cfg.Rate, poster: p}
}

// Rate returns the tick period.
func (t *Ticker) Rate() time.Duration {
	return t.rate
}

// Start begins posting ticks until ctx is done or Stop is called.
func (t *Ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped != nil {
		return errors.New("ticker already started")
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.stopped = make(chan struct{})
	go t.loop(ctx, t.stopped)
	return nil
}

// Stop halts the ticker and waits for its goroutine. It returns the error
// that ended the loop, if the loop ended on its own. Stop on a ticker that
// was never started is a no-op.
func (t *Ticker) Stop() error {
	t.mu.Lock()
	cancel, stopped := t.cancel, t.stopped
	t.mu.Unlock()
	if stopped == nil {
		return nil
	}
	cancel()
	<-stopped

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Ack marks the pending tick as consumed. The loop goroutine calls it when
// it dequeues a platform.Tick.
func (t *Ticker) Ack() {
	t.pending.Store(false)
}

// TickNumber returns the number of ticks posted so far.
func (t *Ticker) TickNumber() uint64 {
	return t.tickNum.Load()
}

// Skipped returns how many ticks were dropped because one was pending.
func (t *Ticker) Skipped() uint64 {
	return t.skipped.Load()
}

func (t *Ticker) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	tk := time.NewTicker(t.rate)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tk.C:
			if !t.pending.CompareAndSwap(false, true) {
				t.skipped.Add(1)
				continue
			}
			seq := t.tickNum.Add(1)
			if err := t.poster.Post(platform.Tick{Seq: seq, At: now}); err != nil {
				// The loop is gone; nothing will ever consume a tick.
				t.mu.Lock()
				t.err = err
				t.mu.Unlock()
				return
			}
		}
	}
}
