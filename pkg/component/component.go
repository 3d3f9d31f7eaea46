// Package component hosts a processor and the command repository scoped to
// it. Closing a component stops its cycle and drops its commands.
package component

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joeydtaylor/steeze-command/pkg/command"
	"github.com/joeydtaylor/steeze-command/pkg/processor"
	"go.uber.org/zap"
)

type Config struct {
	Name      string
	Period    time.Duration
	QueueSize int
	Logger    *zap.Logger
	// Update runs at the end of every cycle.
	Update func()
}

type Component struct {
	name string
	proc *processor.Processor
	repo *command.Repository
	log  *zap.Logger
	once sync.Once
}

func New(cfg Config) (*Component, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, fmt.Errorf("component: name required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", name))

	opts := []processor.Option{
		processor.WithLogger(log),
		processor.WithPeriod(cfg.Period),
		processor.WithCapacity(cfg.QueueSize),
	}
	if cfg.Update != nil {
		opts = append(opts, processor.WithUpdate(cfg.Update))
	}
	return &Component{
		name: name,
		proc: processor.New(name, opts...),
		repo: command.NewRepository(command.WithLogger(log)),
		log:  log,
	}, nil
}

func (c *Component) Name() string                    { return c.name }
func (c *Component) Processor() *processor.Processor { return c.proc }
func (c *Component) Commands() *command.Repository   { return c.repo }

func (c *Component) Start(ctx context.Context) error { return c.proc.Start(ctx) }

// Close stops the cycle, running everything it already accepted, then clears
// the repository.
func (c *Component) Close() {
	c.once.Do(func() {
		c.proc.Stop()
		c.repo.Clear()
		c.log.Info("component closed")
	})
}

// Peers is a directory of components by name, used by the remote surface and
// by scripts to reach a component's commands.
type Peers struct {
	mu     sync.RWMutex
	byName map[string]*Component
}

func NewPeers() *Peers {
	return &Peers{byName: map[string]*Component{}}
}

func (p *Peers) Add(c *Component) error {
	if c == nil {
		return fmt.Errorf("component: nil component")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byName[c.name]; ok {
		return fmt.Errorf("component %q already registered", c.name)
	}
	p.byName[c.name] = c
	return nil
}

func (p *Peers) Get(name string) (*Component, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byName[name]
	return c, ok
}

func (p *Peers) Names() []string {
	p.mu.RLock()
	out := make([]string, 0, len(p.byName))
	for n := range p.byName {
		out = append(out, n)
	}
	p.mu.RUnlock()
	sort.Strings(out)
	return out
}

// StartAll starts every component; on failure the ones already started keep
// running and the caller is expected to CloseAll.
func (p *Peers) StartAll(ctx context.Context) error {
	for _, n := range p.Names() {
		c, _ := p.Get(n)
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", n, err)
		}
	}
	return nil
}

func (p *Peers) CloseAll() {
	p.mu.Lock()
	all := p.byName
	p.byName = map[string]*Component{}
	p.mu.Unlock()
	for _, c := range all {
		c.Close()
	}
}
