// Package processor runs a component's execution cycle. Actions submitted
// from any goroutine are queued and executed on the processor's own
// goroutine, in the order they were accepted.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrStopped = errors.New("processor: stopped")

// Processor is a FIFO action queue drained once per cycle. With a period the
// cycle runs on a ticker; without one it runs whenever work is submitted.
type Processor struct {
	name     string
	period   time.Duration
	capacity int
	log      *zap.Logger
	updates  []func()

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type Option func(*Processor)

func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithPeriod makes the cycle periodic.
func WithPeriod(d time.Duration) Option {
	return func(p *Processor) { p.period = d }
}

// WithCapacity bounds the queue; Submit rejects once it is full. Zero means
// unbounded.
func WithCapacity(n int) Option {
	return func(p *Processor) { p.capacity = n }
}

// WithUpdate adds a hook run at the end of every cycle, after the queued
// actions. This is where a component's own periodic work goes.
func WithUpdate(fn func()) Option {
	return func(p *Processor) {
		if fn != nil {
			p.updates = append(p.updates, fn)
		}
	}
}

func New(name string, opts ...Option) *Processor {
	p := &Processor{
		name: name,
		log:  zap.NewNop(),
		wake: make(chan struct{}, 1),
	}
	for _, o := range opts {
		if o != nil {
			o(p)
		}
	}
	p.log = p.log.With(zap.String("processor", name))
	return p
}

func (p *Processor) Name() string { return p.name }

// Submit queues action for the next cycle. It never blocks and returns false
// once the processor is stopped or its queue is full.
func (p *Processor) Submit(action func()) bool {
	if action == nil {
		return false
	}
	p.mu.Lock()
	if p.closed || (p.capacity > 0 && len(p.queue) >= p.capacity) {
		p.mu.Unlock()
		rejectedActions.WithLabelValues(p.name).Inc()
		return false
	}
	p.queue = append(p.queue, action)
	depth := len(p.queue)
	p.mu.Unlock()

	queueDepth.WithLabelValues(p.name).Set(float64(depth))
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of queued actions.
func (p *Processor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Step runs one cycle on the calling goroutine: every action queued before
// the call, then the update hooks. Actions submitted during the cycle wait
// for the next one. It returns the number of actions run.
func (p *Processor) Step() int {
	start := time.Now()
	p.mu.Lock()
	batch := p.queue
	p.queue = nil
	p.mu.Unlock()
	queueDepth.WithLabelValues(p.name).Set(0)

	for _, fn := range batch {
		p.safely("action", fn)
	}
	for _, fn := range p.updates {
		p.safely("update", fn)
	}
	executedActions.WithLabelValues(p.name).Add(float64(len(batch)))
	cycleTime.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	return len(batch)
}

func (p *Processor) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			panics.WithLabelValues(p.name).Inc()
			p.log.Error("recovered panic", zap.String("in", what), zap.Any("panic", r))
		}
	}()
	fn()
}

// Start runs the cycle on a new goroutine until ctx ends or Stop is called.
func (p *Processor) Start(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.running {
		return fmt.Errorf("processor %q already running", p.name)
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return fmt.Errorf("processor %q: %w", p.name, ErrStopped)
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	go p.loop(ctx, p.done)
	p.log.Info("processor started", zap.Duration("period", p.period))
	return nil
}

func (p *Processor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	var tick <-chan time.Time
	if p.period > 0 {
		t := time.NewTicker(p.period)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			p.Step()
		case <-p.wake:
			if p.period <= 0 {
				p.Step()
			}
		}
	}
}

// Stop refuses further submissions, stops the cycle and runs whatever was
// accepted before it, so every accepted action executes exactly once.
func (p *Processor) Stop() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.runMu.Lock()
	if p.running {
		p.cancel()
		<-p.done
		p.running = false
	}
	p.runMu.Unlock()

	if n := p.Step(); n > 0 {
		p.log.Info("processor drained on stop", zap.Int("actions", n))
	}
}

// Stopped reports whether Stop was called.
func (p *Processor) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
