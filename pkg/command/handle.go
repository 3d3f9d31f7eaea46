package command

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joeydtaylor/steeze-command/pkg/value"
)

// State of one dispatch.
type State int32

const (
	Created State = iota
	Dispatched
	Pending
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Dispatched:
		return "dispatched"
	case Pending:
		return "pending"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, bool) {
	for st := Created; st <= Failed; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return Created, false
}

// Handle is one invocation of a command with bound arguments.
//
// Submit hands the action to the owning processor and returns immediately;
// the action runs at most once per handle. Evaluate and State are safe from
// any goroutine and never block on the processor.
type Handle interface {
	Name() string
	Args() []value.Value
	Submit() error
	// Evaluate re-checks completion once the action has run and returns the
	// resulting state.
	Evaluate() State
	// State returns the last known state without evaluating anything.
	State() State
	// Err explains a Failed state.
	Err() error
	// Reset returns a Created handle, or one that failed before its action
	// ran, to Created.
	Reset() error
	// Clone returns a fresh Created handle sharing the binding and arguments.
	Clone() Handle
	Condition() Condition
}

type dispatch struct {
	src  source
	args []value.Value

	state atomic.Int32
	pin   atomic.Pointer[resolved]
	// ran is set once the action has been entered and never cleared.
	ran atomic.Bool

	mu  sync.Mutex
	err error
}

func newDispatch(src source, args []value.Value) *dispatch {
	return &dispatch{src: src, args: append([]value.Value(nil), args...)}
}

func (d *dispatch) Name() string        { return d.src.commandName() }
func (d *dispatch) Args() []value.Value { return append([]value.Value(nil), d.args...) }
func (d *dispatch) State() State        { return State(d.state.Load()) }

func (d *dispatch) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *dispatch) Submit() error {
	if !d.state.CompareAndSwap(int32(Created), int32(Dispatched)) {
		return fmt.Errorf("%s: %w (state %s)", d.Name(), ErrAlreadyDispatched, d.State())
	}
	r, err := d.src.resolve()
	if err != nil {
		d.fail(err)
		observeDispatch(d.Name(), err)
		return err
	}
	d.pin.Store(r)

	proc := d.src.processor()
	if proc == nil || !proc.Submit(d.run) {
		err := fmt.Errorf("%s: %w", d.Name(), ErrProcessorRejected)
		d.fail(err)
		observeDispatch(d.Name(), err)
		return err
	}
	observeDispatch(d.Name(), nil)
	return nil
}

// run executes on the processor goroutine.
func (d *dispatch) run() {
	defer func() {
		if p := recover(); p != nil {
			d.fail(fmt.Errorf("%s: %w: %v", d.Name(), ErrActionPanicked, p))
		}
	}()
	if d.State() != Dispatched {
		return
	}
	r := d.pin.Load()
	d.ran.Store(true)
	vals, err := value.Snapshot(d.args)
	if err != nil {
		d.fail(fmt.Errorf("%s: %w: %v", d.Name(), ErrInvalidArguments, err))
		return
	}
	ok, err := r.action(vals)
	switch {
	case err != nil:
		d.fail(err)
	case !ok:
		d.fail(fmt.Errorf("%s: %w", d.Name(), ErrActionFailed))
	default:
		d.state.CompareAndSwap(int32(Dispatched), int32(Pending))
	}
}

func (d *dispatch) Evaluate() State {
	s := d.State()
	if s != Pending && s != Done {
		return s
	}
	done, err := evaluate(d.pin.Load(), d.args, d.src.isInverted())
	if err != nil {
		d.fail(err)
		return Failed
	}
	next := Pending
	if done {
		next = Done
	}
	if !d.state.CompareAndSwap(int32(s), int32(next)) {
		return d.State()
	}
	return next
}

func (d *dispatch) Reset() error {
	for {
		s := d.State()
		switch s {
		case Created:
			return nil
		case Failed:
			if d.ran.Load() {
				return fmt.Errorf("%s: %w (action already ran)", d.Name(), ErrAlreadyDispatched)
			}
			if d.state.CompareAndSwap(int32(Failed), int32(Created)) {
				d.pin.Store(nil)
				d.mu.Lock()
				d.err = nil
				d.mu.Unlock()
				return nil
			}
		default:
			return fmt.Errorf("%s: %w (state %s)", d.Name(), ErrAlreadyDispatched, s)
		}
	}
}

func (d *dispatch) Clone() Handle { return newDispatch(d.src, d.args) }

func (d *dispatch) Condition() Condition {
	return &condition{src: d.src, args: d.args, pin: d.pin.Load()}
}

func (d *dispatch) fail(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
	d.state.Store(int32(Failed))
}

// evaluate runs the predicate against the current argument values. Panics in
// the predicate are reported as errors on the caller's goroutine.
func evaluate(r *resolved, args []value.Value, inverted bool) (done bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			done, err = false, fmt.Errorf("%w: predicate: %v", ErrActionPanicked, p)
		}
	}()
	vals, err := value.Snapshot(args)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	raw, err := r.done(vals)
	if err != nil {
		return false, err
	}
	return raw != inverted, nil
}
