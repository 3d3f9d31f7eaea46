package command

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-command/pkg/target"
	"github.com/joeydtaylor/steeze-command/pkg/value"
)

// queue is a processor the test drives by hand.
type queue struct {
	mu     sync.Mutex
	fns    []func()
	closed bool
}

func (q *queue) Submit(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.fns = append(q.fns, fn)
	return true
}

func (q *queue) Step() int {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func (q *queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// loop runs accepted actions on its own goroutine, in order.
type loop struct {
	ch   chan func()
	done chan struct{}
}

func newLoop() *loop {
	l := &loop{ch: make(chan func(), 64), done: make(chan struct{})}
	go func() {
		defer close(l.done)
		for fn := range l.ch {
			fn()
		}
	}()
	return l
}

func (l *loop) Submit(fn func()) bool {
	l.ch <- fn
	return true
}

func (l *loop) Stop() {
	close(l.ch)
	<-l.done
}

func incrementRepo(proc Processor, counter *int, calls *[]int) *Repository {
	repo := NewRepository()
	b := New1("increment", proc, func(n int) bool {
		*counter += n
		if calls != nil {
			*calls = append(*calls, n)
		}
		return true
	}, nil)
	if err := repo.AddCommand(b, "adds to counter", Arg("n", "amount to add")); err != nil {
		panic(err)
	}
	return repo
}

func TestGetCommandCreatedUntilClear(t *testing.T) {
	q := &queue{}
	var counter int
	repo := incrementRepo(q, &counter, nil)

	h, err := repo.GetCommand("increment", value.Of(5))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if h.State() != Created {
		t.Fatalf("state = %s, want created", h.State())
	}
	if !repo.HasMember("increment") {
		t.Fatal("HasMember(increment) = false")
	}

	repo.Clear()
	repo.Clear()
	if _, err := repo.GetCommand("increment", value.Of(5)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after clear: expected ErrNotFound, got %v", err)
	}
	if repo.HasMember("increment") || len(repo.Names()) != 0 {
		t.Fatal("repository must be empty after clear")
	}
}

func TestGetCommandRejectsWrongArity(t *testing.T) {
	var counter int
	repo := incrementRepo(&queue{}, &counter, nil)

	for _, args := range [][]value.Value{
		nil,
		{value.Of(1), value.Of(2)},
		{value.Of(1), value.Of(2), value.Of(3)},
	} {
		if _, err := repo.GetCommand("increment", args...); !errors.Is(err, ErrInvalidArguments) {
			t.Fatalf("%d args: expected ErrInvalidArguments, got %v", len(args), err)
		}
	}
	if _, err := repo.GetCommand("increment", value.Of("5")); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("wrong type: expected ErrInvalidArguments, got %v", err)
	}
	if _, err := repo.GetCommand("increment", value.Of(int64(5))); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("int64 for int: expected ErrInvalidArguments, got %v", err)
	}
}

func TestUnknownAndConditionArity(t *testing.T) {
	var counter int
	repo := incrementRepo(&queue{}, &counter, nil)

	if _, err := repo.GetCommand("unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetCondition("increment"); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
	if _, err := repo.GetCondition("unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateNamesKeepFirstRegistration(t *testing.T) {
	q := &queue{}
	var counter int
	repo := incrementRepo(q, &counter, nil)

	again := New1("increment", q, func(int) bool { return false }, nil)
	if err := repo.AddCommand(again, "other", Arg("n", "")); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("AddCommand: expected ErrDuplicateName, got %v", err)
	}
	if err := repo.AddSimple(again); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("AddSimple: expected ErrDuplicateName, got %v", err)
	}
	var slot target.Slot[int]
	weak := Weak1("increment", q, &slot, func(*int, int) bool { return true }, nil)
	if err := repo.AddCommandWeak(weak, "weak", Arg("n", "")); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("AddCommandWeak: expected ErrDuplicateName, got %v", err)
	}

	native := New0("reset", q, func() bool { return true }, nil)
	if err := repo.AddSimple(native); err != nil {
		t.Fatalf("AddSimple: %v", err)
	}
	if err := repo.AddCommand(New0("reset", q, func() bool { return true }, nil), ""); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("collision with simple map: expected ErrDuplicateName, got %v", err)
	}

	d, ok := repo.Describe("increment")
	if !ok || d.Description != "adds to counter" {
		t.Fatalf("first registration lost: %+v, %v", d, ok)
	}
	h, err := repo.GetCommand("increment", value.Of(2))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := h.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	q.Step()
	if counter != 2 || h.Evaluate() != Done {
		t.Fatalf("counter = %d, state = %s", counter, h.State())
	}
}

func TestAddCommandValidatesBeforeMutating(t *testing.T) {
	q := &queue{}
	repo := NewRepository()

	proxy := NewProxy("remote", q, Sig(), func([]any) bool { return true }, nil)
	if err := repo.AddCommand(proxy, ""); !errors.Is(err, ErrUnsupportedBindingKind) {
		t.Fatalf("expected ErrUnsupportedBindingKind, got %v", err)
	}
	if err := repo.AddSimple(proxy); err != nil {
		t.Fatalf("proxies are accepted as simple commands: %v", err)
	}

	b := New2("move", q, func(float64, float64) bool { return true }, nil)
	if err := repo.AddCommand(b, "", Arg("x", "")); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments for metadata count, got %v", err)
	}
	if repo.HasMember("move") {
		t.Fatal("failed registration must not leave a factory behind")
	}
	if err := repo.AddCommand(b, "", Arg("x", ""), Arg("y", "")); err != nil {
		t.Fatalf("retry after failed registration: %v", err)
	}
}

func TestSimpleCommandsAreNativeOnly(t *testing.T) {
	q := &queue{}
	repo := NewRepository()
	var hits int
	if err := repo.AddSimple(New0("home", q, func() bool { hits++; return true }, nil)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if repo.HasMember("home") {
		t.Fatal("simple commands must not be visible to HasMember")
	}
	if _, err := repo.GetCommand("home"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cmd, err := Get0(repo, "home")
	if err != nil {
		t.Fatalf("typed lookup: %v", err)
	}
	h, err := cmd.Call()
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	q.Step()
	if hits != 1 || h.Evaluate() != Done {
		t.Fatalf("hits = %d, state = %s", hits, h.State())
	}
}

func TestSubmitRunsAtMostOnce(t *testing.T) {
	q := &queue{}
	var counter int
	repo := incrementRepo(q, &counter, nil)

	h, _ := repo.GetCommand("increment", value.Of(1))
	if err := h.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if h.State() != Dispatched {
		t.Fatalf("state = %s, want dispatched", h.State())
	}
	if err := h.Submit(); !errors.Is(err, ErrAlreadyDispatched) {
		t.Fatalf("expected ErrAlreadyDispatched, got %v", err)
	}
	if err := h.Reset(); !errors.Is(err, ErrAlreadyDispatched) {
		t.Fatalf("reset while dispatched: expected ErrAlreadyDispatched, got %v", err)
	}
	q.Step()
	if err := h.Submit(); !errors.Is(err, ErrAlreadyDispatched) {
		t.Fatalf("expected ErrAlreadyDispatched after run, got %v", err)
	}
	q.Step()
	if counter != 1 {
		t.Fatalf("counter = %d, want 1", counter)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	q := &queue{}
	var counter int
	repo := incrementRepo(q, &counter, nil)

	orig, _ := repo.GetCommand("increment", value.Of(3))
	clone := orig.Clone()

	if err := clone.Submit(); err != nil {
		t.Fatalf("submit clone: %v", err)
	}
	q.Step()
	if clone.Evaluate() != Done {
		t.Fatalf("clone state = %s, want done", clone.State())
	}
	if orig.Evaluate() != Created {
		t.Fatalf("original state = %s, want created", orig.State())
	}

	if err := orig.Submit(); err != nil {
		t.Fatalf("submit original: %v", err)
	}
	again := clone.Clone()
	q.Step()
	if orig.Evaluate() != Done || again.State() != Created {
		t.Fatalf("orig = %s, clone of clone = %s", orig.State(), again.State())
	}
	if counter != 6 {
		t.Fatalf("counter = %d, want 6", counter)
	}
}

func TestInversionWithoutPredicate(t *testing.T) {
	q := &queue{}
	var slot target.Slot[gripper]
	slot.Bind(&gripper{})
	for _, inv := range []Invoker{
		New0("halt", q, func() bool { return true }, nil, WithInversion()),
		Weak0("grip", q, &slot, func(*gripper) bool { return true }, nil, WithInversion()),
	} {
		h, err := inv.Bind()
		if err != nil {
			t.Fatal(err)
		}
		if h.Condition().Inverted() {
			t.Fatalf("%s: nothing to invert without a predicate", h.Name())
		}
		if err := h.Submit(); err != nil {
			t.Fatalf("%s: submit: %v", h.Name(), err)
		}
		q.Step()
		if got := h.Evaluate(); got != Done {
			t.Fatalf("%s: state = %s, want done", h.Name(), got)
		}
	}
}

func TestInversion(t *testing.T) {
	q := &queue{}
	busy := value.NewVar(true)
	b := New1("wait_idle", q,
		func(bool) bool { return true },
		func(busy bool) bool { return busy },
		WithInversion())
	repo := NewRepository()
	if err := repo.AddCommand(b, "blocks while busy", Arg("busy", "")); err != nil {
		t.Fatalf("add: %v", err)
	}

	h, err := repo.GetCommand("wait_idle", busy)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	cond := h.Condition()
	if !cond.Inverted() {
		t.Fatal("condition must report inversion")
	}
	if err := h.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	q.Step()

	for _, p := range []bool{true, false, true, false} {
		busy.Set(p)
		want := Pending
		if !p {
			want = Done
		}
		if got := h.Evaluate(); got != want {
			t.Fatalf("P=%v: state = %s, want %s", p, got, want)
		}
		if cond.Evaluate() != !p {
			t.Fatalf("P=%v: condition = %v", p, cond.Evaluate())
		}
	}
}

func TestActionFailureAndPanicAreRecovered(t *testing.T) {
	q := &queue{}
	repo := NewRepository()
	_ = repo.AddCommand(New0("refuse", q, func() bool { return false }, nil), "")
	_ = repo.AddCommand(New0("explode", q, func() bool { panic("boom") }, nil), "")

	refuse, _ := repo.GetCommand("refuse")
	explode, _ := repo.GetCommand("explode")
	_ = refuse.Submit()
	_ = explode.Submit()
	q.Step()

	if refuse.Evaluate() != Failed || !errors.Is(refuse.Err(), ErrActionFailed) {
		t.Fatalf("refuse: %s, %v", refuse.State(), refuse.Err())
	}
	if explode.Evaluate() != Failed || !errors.Is(explode.Err(), ErrActionPanicked) {
		t.Fatalf("explode: %s, %v", explode.State(), explode.Err())
	}
}

func TestProcessorRejection(t *testing.T) {
	q := &queue{}
	var counter int
	repo := incrementRepo(q, &counter, nil)
	q.Close()

	h, _ := repo.GetCommand("increment", value.Of(1))
	if err := h.Submit(); !errors.Is(err, ErrProcessorRejected) {
		t.Fatalf("expected ErrProcessorRejected, got %v", err)
	}
	if h.State() != Failed || !errors.Is(h.Err(), ErrProcessorRejected) {
		t.Fatalf("state = %s, err = %v", h.State(), h.Err())
	}
	if err := h.Reset(); err != nil {
		t.Fatalf("reset from failed: %v", err)
	}
	if h.State() != Created || h.Err() != nil {
		t.Fatalf("after reset: %s, %v", h.State(), h.Err())
	}
}

func TestResetRefusedOnceActionRan(t *testing.T) {
	q := &queue{}
	runs := 0
	h, err := New0("refuse", q, func() bool { runs++; return false }, nil).Bind()
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	q.Step()
	if h.State() != Failed || !errors.Is(h.Err(), ErrActionFailed) {
		t.Fatalf("state = %s, err = %v", h.State(), h.Err())
	}
	if err := h.Reset(); !errors.Is(err, ErrAlreadyDispatched) {
		t.Fatalf("reset after run: %v", err)
	}
	if err := h.Submit(); !errors.Is(err, ErrAlreadyDispatched) {
		t.Fatalf("resubmit: %v", err)
	}
	q.Step()
	if runs != 1 || h.State() != Failed {
		t.Fatalf("runs = %d, state = %s", runs, h.State())
	}

	again := h.Clone()
	if err := again.Submit(); err != nil {
		t.Fatalf("clone submit: %v", err)
	}
	q.Step()
	if runs != 2 {
		t.Fatalf("clone runs = %d, want 2", runs)
	}
}

type gripper struct {
	closes int
}

func TestWeakExpiryAfterDoneCannotReset(t *testing.T) {
	q := &queue{}
	var slot target.Slot[gripper]
	g := &gripper{}
	lease := slot.Bind(g)

	h, err := Weak0("close", q, &slot, func(g *gripper) bool { g.closes++; return true }, nil).Bind()
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	q.Step()
	if h.Evaluate() != Done {
		t.Fatalf("state = %s", h.State())
	}
	lease.Release()
	if h.Evaluate() != Failed || !errors.Is(h.Err(), ErrTargetExpired) {
		t.Fatalf("after release: %s, %v", h.State(), h.Err())
	}

	slot.Bind(g)
	if err := h.Reset(); !errors.Is(err, ErrAlreadyDispatched) {
		t.Fatalf("reset after run: %v", err)
	}
	_ = h.Submit()
	q.Step()
	if g.closes != 1 {
		t.Fatalf("closes = %d, want 1", g.closes)
	}
}

func TestWeakTargetReleasedNeverRuns(t *testing.T) {
	q := &queue{}
	var slot target.Slot[gripper]
	g := &gripper{}
	lease := slot.Bind(g)

	repo := NewRepository()
	w := Weak0("close", q, &slot, func(g *gripper) bool { g.closes++; return true }, nil)
	if err := repo.AddCommandWeak(w, "closes the gripper"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, ok := repo.Describe("close"); !ok {
		t.Fatal("weak command must be visible to introspection")
	}

	h, _ := repo.GetCommand("close")
	if err := h.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	q.Step()
	if g.closes != 1 || h.Evaluate() != Done {
		t.Fatalf("closes = %d, state = %s", g.closes, h.State())
	}

	inflight, _ := repo.GetCommand("close")
	if err := inflight.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	lease.Release()
	q.Step()
	if inflight.State() != Failed || !errors.Is(inflight.Err(), ErrTargetExpired) {
		t.Fatalf("in-flight: %s, %v", inflight.State(), inflight.Err())
	}

	for i := 0; i < 3; i++ {
		late, _ := repo.GetCommand("close")
		if err := late.Submit(); !errors.Is(err, ErrTargetExpired) {
			t.Fatalf("expected ErrTargetExpired, got %v", err)
		}
		if late.State() != Failed {
			t.Fatalf("state = %s, want failed", late.State())
		}
	}
	if n := q.Step(); n != 0 {
		t.Fatalf("%d actions queued after release", n)
	}
	if h.Evaluate() != Failed {
		t.Fatalf("done handle must fail once its target expires, got %s", h.State())
	}
	if g.closes != 1 {
		t.Fatalf("closes = %d, want 1", g.closes)
	}
}

func TestWeakRebindAffectsLaterDispatches(t *testing.T) {
	q := &queue{}
	var slot target.Slot[gripper]
	first, second := &gripper{}, &gripper{}
	slot.Bind(first)

	repo := NewRepository()
	w := Weak1("squeeze", q, &slot, func(g *gripper, n int) bool { g.closes += n; return true }, nil)
	if err := repo.AddCommandWeak(w, "", Arg("n", "")); err != nil {
		t.Fatalf("add: %v", err)
	}

	early, _ := repo.GetCommand("squeeze", value.Of(1))
	_ = early.Submit()
	slot.Bind(second)
	late, _ := repo.GetCommand("squeeze", value.Of(10))
	_ = late.Submit()
	q.Step()

	if first.closes != 1 || second.closes != 10 {
		t.Fatalf("first = %d, second = %d", first.closes, second.closes)
	}
}

func TestIncrementFromTwoGoroutines(t *testing.T) {
	l := newLoop()
	var counter int
	var calls []int
	repo := incrementRepo(l, &counter, &calls)

	var wg sync.WaitGroup
	handles := make([]Handle, 2)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := repo.GetCommand("increment", value.Of(5))
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			if err := h.Submit(); err != nil {
				t.Errorf("submit: %v", err)
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, h := range handles {
		if h == nil {
			t.FailNow()
		}
		if err := Wait(ctx, h, time.Millisecond); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	l.Stop()

	if counter != 10 {
		t.Fatalf("counter = %d, want 10", counter)
	}
	if len(calls) != 2 || calls[0] != 5 || calls[1] != 5 {
		t.Fatalf("calls = %v", calls)
	}
}

func TestSubmissionOrderIsPreserved(t *testing.T) {
	q := &queue{}
	var seen []int
	repo := NewRepository()
	_ = repo.AddCommand(New1("log", q, func(n int) bool { seen = append(seen, n); return true }, nil), "", Arg("n", ""))
	for i := 0; i < 10; i++ {
		h, _ := repo.GetCommand("log", value.Of(i))
		_ = h.Submit()
	}
	q.Step()
	for i, n := range seen {
		if n != i {
			t.Fatalf("seen = %v", seen)
		}
	}
}

func TestVarArgumentsAreReadWhenTheActionRuns(t *testing.T) {
	q := &queue{}
	var got int
	repo := NewRepository()
	_ = repo.AddCommand(New1("set", q, func(n int) bool { got = n; return true }, func(n int) bool { return got == n }), "", Arg("n", ""))

	x := value.NewVar(1)
	h, _ := repo.GetCommand("set", x)
	_ = h.Submit()
	x.Set(7)
	q.Step()
	if got != 7 {
		t.Fatalf("got = %d, want 7", got)
	}
	if h.Evaluate() != Done {
		t.Fatalf("state = %s", h.State())
	}
	x.Set(8)
	if h.Evaluate() != Pending {
		t.Fatalf("predicate must see the new value, state = %s", h.State())
	}
}

type fakeRemoter struct {
	asked []string
}

func (f *fakeRemoter) Proxy(name string, sig Signature) (Invoker, error) {
	f.asked = append(f.asked, name)
	return NewProxy(name, &queue{}, sig, func([]any) bool { return true }, nil), nil
}

func TestTypedLookup(t *testing.T) {
	q := &queue{}
	var counter int
	repo := incrementRepo(q, &counter, nil)

	cmd, err := Get1[int](repo, "increment")
	if err != nil {
		t.Fatalf("typed lookup: %v", err)
	}
	if _, err := Get1[string](repo, "increment"); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
	if _, err := Get0(repo, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	h, err := cmd.Call(4)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	q.Step()
	if counter != 4 || h.Evaluate() != Done {
		t.Fatalf("counter = %d, state = %s", counter, h.State())
	}

	// Weak commands are factory-only; typed lookup reaches them through the remoter.
	var slot target.Slot[gripper]
	_ = repo.AddCommandWeak(Weak0("open", q, &slot, func(*gripper) bool { return true }, nil), "")
	if _, err := Get0(repo, "open"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("without remoter: expected ErrNotFound, got %v", err)
	}
	rm := &fakeRemoter{}
	repo.SetRemoter(rm)
	if _, err := Get0(repo, "open"); err != nil {
		t.Fatalf("with remoter: %v", err)
	}
	if len(rm.asked) != 1 || rm.asked[0] != "open" {
		t.Fatalf("remoter asked %v", rm.asked)
	}
}

func TestDescriptionsAreSorted(t *testing.T) {
	q := &queue{}
	repo := NewRepository()
	_ = repo.AddCommand(New2("move", q, func(float64, float64) bool { return true }, nil), "moves", Arg("x", "m"), Arg("y", "m"))
	_ = repo.AddCommand(New0("halt", q, func() bool { return true }, nil), "stops")

	ds := repo.Descriptions()
	if len(ds) != 2 || ds[0].Name != "halt" || ds[1].Name != "move" {
		t.Fatalf("descriptions = %+v", ds)
	}
	if ds[1].Args[0].Type != "float64" || ds[1].Args[1].Name != "y" {
		t.Fatalf("args = %+v", ds[1].Args)
	}
}

func TestCallContainer(t *testing.T) {
	q := &queue{}
	var counter int
	repo := incrementRepo(q, &counter, nil)

	c := repo.Create("increment")
	if err := c.Execute(); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
	if !c.Sent() || c.Accepted() {
		t.Fatalf("sent = %v, accepted = %v", c.Sent(), c.Accepted())
	}
	if err := c.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	c.Arg(value.Of(2))
	if err := c.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !c.Accepted() || c.Executed() {
		t.Fatalf("accepted = %v, executed = %v", c.Accepted(), c.Executed())
	}
	q.Step()
	if !c.Executed() || !c.Done() || counter != 2 {
		t.Fatalf("executed = %v, counter = %d", c.Executed(), counter)
	}
	if err := c.Execute(); !errors.Is(err, ErrAlreadyDispatched) {
		t.Fatalf("expected ErrAlreadyDispatched, got %v", err)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	q := &queue{}
	var counter int
	repo := incrementRepo(q, &counter, nil)
	h, _ := repo.GetCommand("increment", value.Of(1))
	_ = h.Submit()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := Wait(ctx, h, time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	var ready atomic.Bool
	cond := &funcCondition{fn: ready.Load}
	go func() {
		time.Sleep(5 * time.Millisecond)
		ready.Store(true)
	}()
	if err := WaitCondition(context.Background(), cond, time.Millisecond); err != nil {
		t.Fatalf("wait condition: %v", err)
	}
}

type funcCondition struct{ fn func() bool }

func (f *funcCondition) Evaluate() bool   { return f.fn() }
func (f *funcCondition) Inverted() bool   { return false }
func (f *funcCondition) Clone() Condition { return f }
