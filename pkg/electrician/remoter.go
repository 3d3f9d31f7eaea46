package electrician

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joeydtaylor/steeze-command/pkg/command"
	"github.com/joeydtaylor/steeze-command/pkg/core"
	"go.uber.org/zap"
)

// Remoter hands out proxy bindings whose action queues an invocation for
// publishing. The action runs on the local processor and never waits on the
// relay: a proxy handle is Done once its envelope is queued, and Failed when
// the queue is full. The peer's outcome is not observable.
type Remoter struct {
	pub       core.RelayPublisher
	component string
	proc      command.Processor
	timeout   time.Duration
	log       *zap.Logger

	queue  chan core.Invocation
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type RemoterOption func(*Remoter)

// WithQueueSize bounds the invocations waiting for the relay. Default 64.
func WithQueueSize(n int) RemoterOption {
	return func(r *Remoter) {
		if n > 0 {
			r.queue = make(chan core.Invocation, n)
		}
	}
}

// WithPublishTimeout bounds each publish. Default 5s.
func WithPublishTimeout(d time.Duration) RemoterOption {
	return func(r *Remoter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithRemoterLogger(l *zap.Logger) RemoterOption {
	return func(r *Remoter) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRemoter targets component on the peers behind pub. Proxy actions run on
// proc; publishing happens on a goroutine that lives until ctx is done or
// Close is called.
func NewRemoter(ctx context.Context, pub core.RelayPublisher, component string, proc command.Processor, opts ...RemoterOption) *Remoter {
	r := &Remoter{
		pub:       pub,
		component: component,
		proc:      proc,
		timeout:   5 * time.Second,
		log:       zap.NewNop(),
		queue:     make(chan core.Invocation, 64),
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With(zap.String("component", component))
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.publishLoop(ctx)
	return r
}

func (r *Remoter) publishLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case inv := <-r.queue:
			pctx, cancel := context.WithTimeout(ctx, r.timeout)
			err := r.pub.Publish(pctx, inv)
			cancel()
			if err != nil {
				r.log.Warn("relay publish failed",
					zap.String("command", inv.Command),
					zap.String("id", inv.ID),
					zap.Error(err))
			}
		}
	}
}

// Close stops publishing. Invocations still queued are dropped.
func (r *Remoter) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Remoter) Proxy(name string, sig command.Signature) (command.Invoker, error) {
	return command.NewProxy(name, r.proc, sig, func(args []any) bool {
		inv := core.Invocation{
			ID:        uuid.NewString(),
			Component: r.component,
			Command:   name,
			Args:      args,
		}
		select {
		case r.queue <- inv:
			return true
		default:
			r.log.Warn("relay queue full", zap.String("command", name))
			return false
		}
	}, nil), nil
}
