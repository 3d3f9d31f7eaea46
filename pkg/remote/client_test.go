package remote

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joeydtaylor/steeze-command/pkg/codec"
	"github.com/joeydtaylor/steeze-command/pkg/command"
	"github.com/joeydtaylor/steeze-command/pkg/component"
	"github.com/joeydtaylor/steeze-command/pkg/core"
	"github.com/joeydtaylor/steeze-command/pkg/manifest"
	"github.com/joeydtaylor/steeze-command/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-command/pkg/value"
)

func serve(t *testing.T, remote manifest.Remote, a *auth.Middleware) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	arm, err := component.New(component.Config{Name: "arm"})
	if err != nil {
		t.Fatalf("component: %v", err)
	}
	counter := new(atomic.Int64)
	repo := arm.Commands()
	must(t, repo.AddCommand(command.New1[int]("increment", arm.Processor(), func(n int) bool {
		counter.Add(int64(n))
		return true
	}, nil), "adds n", command.Arg("n", "amount")))
	must(t, repo.AddCommand(command.New0("jam", arm.Processor(), func() bool { return false }, nil), "always fails"))

	peers := component.NewPeers()
	must(t, peers.Add(arm))
	must(t, peers.StartAll(context.Background()))
	t.Cleanup(peers.CloseAll)

	remote.Enabled = true
	h, err := core.BuildRouter(manifest.Config{Remote: remote}, core.BuildDeps{Peers: peers, Auth: a})
	must(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, counter
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestIncrementFromTwoGoroutines(t *testing.T) {
	srv, counter := serve(t, manifest.Remote{}, nil)
	c, err := New(srv.URL, "arm", WithHTTPClient(srv.Client()))
	must(t, err)

	inv, err := c.Proxy("increment", command.Sig(value.TypeOf[int]()))
	must(t, err)
	inc := command.Command1[int]{Invoker: inv}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				h, err := inc.Call(1)
				if err != nil {
					errs <- err
					return
				}
				if err := command.Wait(waitCtx(t), h, time.Millisecond); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	if got := counter.Load(); got != 10 {
		t.Fatalf("counter = %d, want 10", got)
	}
}

func TestProxyLookupErrors(t *testing.T) {
	srv, _ := serve(t, manifest.Remote{}, nil)
	c, err := New(srv.URL, "arm", WithHTTPClient(srv.Client()))
	must(t, err)

	if _, err := c.Proxy("increment", command.Sig(value.TypeOf[string]())); !errors.Is(err, command.ErrInvalidArguments) {
		t.Fatalf("signature mismatch: %v", err)
	}
	if _, err := c.Proxy("launch", command.Sig()); !errors.Is(err, command.ErrNotFound) {
		t.Fatalf("unknown command: %v", err)
	}

	p, err := c.Lookup(waitCtx(t), "increment")
	must(t, err)
	if _, err := p.Bind(value.Of("five")); !errors.Is(err, command.ErrInvalidArguments) {
		t.Fatalf("bad bind: %v", err)
	}

	names, err := c.Components(waitCtx(t))
	if err != nil || len(names) != 1 || names[0] != "arm" {
		t.Fatalf("components = %v, %v", names, err)
	}
	descs, err := c.Commands(waitCtx(t))
	if err != nil || len(descs) != 2 || descs[0].Name != "increment" || descs[1].Name != "jam" {
		t.Fatalf("commands = %+v, %v", descs, err)
	}
}

func TestRemoteFailureCannotBeReset(t *testing.T) {
	srv, _ := serve(t, manifest.Remote{}, nil)
	c, err := New(srv.URL, "arm", WithHTTPClient(srv.Client()), WithCodec(codec.CBOR))
	must(t, err)
	p, err := c.Lookup(waitCtx(t), "jam")
	must(t, err)

	h, err := p.Bind()
	must(t, err)
	must(t, h.Submit())
	if err := h.Submit(); !errors.Is(err, command.ErrAlreadyDispatched) {
		t.Fatalf("second submit: %v", err)
	}
	if err := command.Wait(waitCtx(t), h, time.Millisecond); !errors.Is(err, command.ErrActionFailed) {
		t.Fatalf("wait: %v", err)
	}
	if h.State() != command.Failed {
		t.Fatalf("state = %s", h.State())
	}
	// The peer ran the action; only a clone may run it again.
	if err := h.Reset(); !errors.Is(err, command.ErrAlreadyDispatched) {
		t.Fatalf("reset after peer failure: %v", err)
	}
	if h.State() != command.Failed {
		t.Fatalf("after refused reset: %s", h.State())
	}
	if h.Clone().State() != command.Created {
		t.Fatal("clone must start created")
	}
}

func TestUnreachablePeerRejects(t *testing.T) {
	srv, _ := serve(t, manifest.Remote{}, nil)
	c, err := New(srv.URL, "arm", WithHTTPClient(srv.Client()))
	must(t, err)
	p, err := c.Lookup(waitCtx(t), "increment")
	must(t, err)
	srv.Close()

	h, err := p.Bind(value.Of(1))
	must(t, err)
	if err := h.Submit(); !errors.Is(err, command.ErrProcessorRejected) {
		t.Fatalf("submit: %v", err)
	}
	if h.Evaluate() != command.Failed {
		t.Fatalf("state = %s", h.State())
	}
	if h.Condition().Evaluate() {
		t.Fatal("failed handle cannot be complete")
	}
	must(t, h.Reset())
	if h.State() != command.Created || h.Err() != nil {
		t.Fatalf("after reset: %s %v", h.State(), h.Err())
	}
}

func TestBearerAgainstGuardedPeer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	must(t, err)
	a := auth.New(auth.Config{AssertIssuer: "steeze"}, nil, nil)
	a.SetAssertionKey(&key.PublicKey)
	srv, counter := serve(t, manifest.Remote{Guard: manifest.Guard{Roles: []string{"peer"}}}, a)

	anon, err := New(srv.URL, "arm", WithHTTPClient(srv.Client()))
	must(t, err)
	if _, err := anon.Components(waitCtx(t)); !errors.Is(err, ErrDenied) {
		t.Fatalf("anonymous: %v", err)
	}

	now := time.Now()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"uid": "leg", "role": "peer", "iss": "steeze",
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	}).SignedString(key)
	must(t, err)

	c, err := New(srv.URL, "arm", WithHTTPClient(srv.Client()), WithBearer(tok))
	must(t, err)
	p, err := c.Lookup(waitCtx(t), "increment")
	must(t, err)
	h, err := p.Bind(value.Of(3))
	must(t, err)
	must(t, h.Submit())
	must(t, command.Wait(waitCtx(t), h, time.Millisecond))
	if counter.Load() != 3 {
		t.Fatalf("counter = %d", counter.Load())
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New("ftp://x", "arm"); err == nil {
		t.Fatal("non-http scheme accepted")
	}
	if _, err := New("http://x", " "); err == nil {
		t.Fatal("empty component accepted")
	}
}
