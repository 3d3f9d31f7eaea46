package command

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/joeydtaylor/steeze-command/pkg/value"
	"go.uber.org/zap"
)

// Invoker is what a typed lookup returns: a prototype that binds arguments
// into handles. *Binding and *WeakBinding are invokers; transports supply
// their own.
type Invoker interface {
	Name() string
	Signature() Signature
	Bind(args ...value.Value) (Handle, error)
}

// Remoter builds proxies for commands that live behind a transport.
type Remoter interface {
	Proxy(name string, sig Signature) (Invoker, error)
}

// Repository indexes the commands of one component by name. Registration is
// expected during setup and teardown; lookups are safe from any goroutine.
type Repository struct {
	mu        sync.RWMutex
	simple    map[string]*Binding
	factories map[string]*Factory
	remoter   Remoter
	log       *zap.Logger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

func WithLogger(l *zap.Logger) RepositoryOption {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// WithRemoter enables proxy lookups for names the factory map knows but the
// native map does not.
func WithRemoter(rm Remoter) RepositoryOption {
	return func(r *Repository) { r.remoter = rm }
}

func NewRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		simple:    map[string]*Binding{},
		factories: map[string]*Factory{},
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	return r
}

// SetRemoter replaces the remoting extension.
func (r *Repository) SetRemoter(rm Remoter) {
	r.mu.Lock()
	r.remoter = rm
	r.mu.Unlock()
}

// AddSimple registers b for native use only; it is invisible to HasMember
// and GetCommand.
func (r *Repository) AddSimple(b *Binding) error {
	if b == nil {
		return fmt.Errorf("command: nil binding")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkFreeLocked(b.name); err != nil {
		return err
	}
	r.simple[b.name] = b
	r.log.Debug("command registered", zap.String("name", b.name), zap.String("kind", b.kind.String()))
	return nil
}

// AddCommand registers b in both maps so it can be looked up by name with
// dynamically typed arguments.
func (r *Repository) AddCommand(b *Binding, description string, args ...ArgMeta) error {
	if b == nil {
		return fmt.Errorf("command: nil binding")
	}
	if b.kind != KindLocal {
		return fmt.Errorf("%s: %w: %s", b.name, ErrUnsupportedBindingKind, b.kind)
	}
	f, err := newFactory(b, description, args)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkFreeLocked(b.name); err != nil {
		return err
	}
	r.simple[b.name] = b
	r.factories[b.name] = f
	r.log.Debug("command registered",
		zap.String("name", b.name),
		zap.String("signature", b.sig.String()),
		zap.String("description", description),
	)
	return nil
}

// AddCommandWeak registers a command whose target is resolved when each
// handle is submitted.
func (r *Repository) AddCommandWeak(w *WeakBinding, description string, args ...ArgMeta) error {
	if w == nil {
		return fmt.Errorf("command: nil weak binding")
	}
	f, err := newFactory(w, description, args)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkFreeLocked(w.name); err != nil {
		return err
	}
	r.factories[w.name] = f
	r.log.Debug("weak command registered",
		zap.String("name", w.name),
		zap.String("signature", w.sig.String()),
	)
	return nil
}

func (r *Repository) checkFreeLocked(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("command: name required")
	}
	if _, ok := r.simple[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	return nil
}

// Factory returns the factory registered under name.
func (r *Repository) Factory(name string) (*Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// GetCommand returns a new Created handle for name bound to args.
func (r *Repository) GetCommand(name string, args ...value.Value) (Handle, error) {
	f, ok := r.Factory(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return f.Produce(args)
}

// GetCondition returns the completion condition of name bound to args.
func (r *Repository) GetCondition(name string, args ...value.Value) (Condition, error) {
	h, err := r.GetCommand(name, args...)
	if err != nil {
		return nil, err
	}
	return h.Condition(), nil
}

// Command is the statically typed lookup: an independent copy of a native
// binding, a proxy from the remoter, or ErrNotFound.
func (r *Repository) Command(name string, sig Signature) (Invoker, error) {
	r.mu.RLock()
	b, native := r.simple[name]
	f, known := r.factories[name]
	rm := r.remoter
	r.mu.RUnlock()

	if native {
		if !b.sig.Equal(sig) {
			return nil, fmt.Errorf("%q: %w: registered as %s, requested %s", name, ErrInvalidArguments, b.sig, sig)
		}
		return b.clone(), nil
	}
	if rm != nil && known {
		if !f.proto.signature().Equal(sig) {
			return nil, fmt.Errorf("%q: %w: registered as %s, requested %s", name, ErrInvalidArguments, f.proto.signature(), sig)
		}
		return rm.Proxy(name, sig)
	}
	return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
}

// HasMember reports whether name can be looked up dynamically.
func (r *Repository) HasMember(name string) bool {
	_, ok := r.Factory(name)
	return ok
}

// Names lists the dynamically visible commands in sorted order.
func (r *Repository) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Describe returns the introspection record for name.
func (r *Repository) Describe(name string) (Description, bool) {
	f, ok := r.Factory(name)
	if !ok {
		return Description{}, false
	}
	return f.describe(), true
}

// Descriptions returns every dynamically visible command, sorted by name.
func (r *Repository) Descriptions() []Description {
	r.mu.RLock()
	out := make([]Description, 0, len(r.factories))
	for _, f := range r.factories {
		out = append(out, f.describe())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Clear drops every registration. It is idempotent.
func (r *Repository) Clear() {
	r.mu.Lock()
	n := len(r.simple) + len(r.factories)
	r.simple = map[string]*Binding{}
	r.factories = map[string]*Factory{}
	r.mu.Unlock()
	if n > 0 {
		r.log.Debug("command repository cleared", zap.Int("entries", n))
	}
}
