package serverfx

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-command/pkg/command"
	"github.com/joeydtaylor/steeze-command/pkg/component"
	"github.com/joeydtaylor/steeze-command/pkg/core"
	"github.com/joeydtaylor/steeze-command/pkg/manifest"
	"github.com/joeydtaylor/steeze-command/pkg/target"
	"github.com/joeydtaylor/steeze-command/pkg/value"
	"go.uber.org/fx"
)

type capture struct {
	mu   sync.Mutex
	sent []core.Invocation
}

func (c *capture) Publish(_ context.Context, inv core.Invocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, inv)
	return nil
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
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

func TestLoadEnv(t *testing.T) {
	t.Setenv("COMMAND_MANIFEST", "/etc/steeze/manifest.toml")
	t.Setenv("SERVER_LISTEN_ADDRESS", ":9000")
	t.Setenv("SESSION_COOKIE_NAME", "sid")
	e, err := LoadEnv(Config{})
	must(t, err)
	if e.Manifest != "/etc/steeze/manifest.toml" || e.Listen != ":9000" || e.Auth.CookieName != "sid" || e.RelayCredentials != "none" {
		t.Fatalf("env = %+v", e)
	}
	e, err = LoadEnv(Config{Manifest: "local.toml", Listen: ":1"})
	must(t, err)
	if e.Manifest != "local.toml" || e.Listen != ":1" {
		t.Fatalf("overrides not applied: %+v", e)
	}
}

func TestProvideCredentials(t *testing.T) {
	for mode, want := range map[string]core.CredentialsProvider{
		"":       core.NoAuthProvider{},
		"none":   core.NoAuthProvider{},
		"cookie": core.PassthroughCookieProvider{CookieName: "sid"},
		"Bearer": core.StaticBearerProvider{},
	} {
		e := Env{RelayCredentials: mode}
		e.Auth.CookieName = "sid"
		got, err := provideCredentials(e)
		if err != nil || got != want {
			t.Fatalf("%q: %#v, %v", mode, got, err)
		}
	}
	if _, err := provideCredentials(Env{RelayCredentials: "mtls"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildPeersInstallsCommands(t *testing.T) {
	man := manifest.Config{Components: []manifest.Component{{Name: "arm", QueueSize: 4}}}
	var counter atomic.Int64
	installers := map[string][]Installer{
		"arm": {func(c *component.Component) error {
			return c.Commands().AddCommand(command.New1("increment", c.Processor(), func(n int) bool {
				counter.Add(int64(n))
				return true
			}, nil), "adds n", command.Arg("n", "amount"))
		}},
		"ghost": {func(*component.Component) error { return nil }},
	}
	peers, err := buildPeers(t.Context(), man, installers, core.NoopRelay{}, "", nil)
	must(t, err)
	defer peers.CloseAll()

	arm, ok := peers.Get("arm")
	if !ok || !arm.Commands().HasMember("increment") {
		t.Fatal("increment not installed")
	}
	if _, ok := peers.Get("ghost"); ok {
		t.Fatal("undeclared component created")
	}
	h, err := arm.Commands().GetCommand("increment", value.Of(2))
	must(t, err)
	must(t, h.Submit())
	arm.Processor().Step()
	if h.Evaluate() != command.Done || counter.Load() != 2 {
		t.Fatalf("state %s, counter %d", h.State(), counter.Load())
	}

	boom := errors.New("boom")
	_, err = buildPeers(t.Context(), man, map[string][]Installer{"arm": {func(*component.Component) error { return boom }}}, core.NoopRelay{}, "", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

// driver stands in for an object that lives in another process; its slot is
// never bound here.
type driver struct{}

func weakInstaller(name string) Installer {
	return func(c *component.Component) error {
		var slot target.Slot[driver]
		return c.Commands().AddCommandWeak(command.Weak0(name, c.Processor(), &slot, func(*driver) bool { return true }, nil), "hosted by a peer")
	}
}

func TestBuildPeersRelayFallback(t *testing.T) {
	man := manifest.Config{Components: []manifest.Component{{Name: "arm", RelayFallback: true}}}
	rel := &capture{}
	peers, err := buildPeers(t.Context(), man, map[string][]Installer{"arm": {weakInstaller("home")}}, rel, "", nil)
	must(t, err)
	defer peers.CloseAll()

	arm, _ := peers.Get("arm")
	inv, err := arm.Commands().Command("home", command.Sig())
	must(t, err)
	h, err := inv.Bind()
	must(t, err)
	must(t, h.Submit())
	arm.Processor().Step()
	if h.Evaluate() != command.Done {
		t.Fatalf("state = %s (%v)", h.State(), h.Err())
	}
	for deadline := time.Now().Add(2 * time.Second); rel.count() == 0 && time.Now().Before(deadline); {
		time.Sleep(time.Millisecond)
	}
	rel.mu.Lock()
	defer rel.mu.Unlock()
	if len(rel.sent) != 1 || rel.sent[0].Component != "arm" || rel.sent[0].Command != "home" {
		t.Fatalf("sent = %+v", rel.sent)
	}
}

func TestBuildPeersRemoteFallback(t *testing.T) {
	// The peer daemon hosts "wrist" with an "open" command.
	host := component.NewPeers()
	wrist, err := component.New(component.Config{Name: "wrist", Period: time.Millisecond})
	must(t, err)
	var opened atomic.Bool
	must(t, wrist.Commands().AddCommand(command.New0("open", wrist.Processor(), func() bool {
		opened.Store(true)
		return true
	}, nil), "opens"))
	must(t, host.Add(wrist))
	must(t, host.StartAll(context.Background()))
	t.Cleanup(host.CloseAll)

	h, err := core.BuildRouter(manifest.Config{Remote: manifest.Remote{Enabled: true}}, core.BuildDeps{Peers: host})
	must(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	// This daemon declares "wrist" as living at srv.
	man := manifest.Config{Components: []manifest.Component{{Name: "wrist", RemoteURL: srv.URL}}}
	peers, err := buildPeers(t.Context(), man, map[string][]Installer{"wrist": {weakInstaller("open")}}, core.NoopRelay{}, "", nil)
	must(t, err)
	defer peers.CloseAll()

	local, _ := peers.Get("wrist")
	if _, err := local.Commands().Command("close", command.Sig()); !errors.Is(err, command.ErrNotFound) {
		t.Fatalf("unknown command: %v", err)
	}
	inv, err := local.Commands().Command("open", command.Sig())
	must(t, err)
	dh, err := inv.Bind()
	must(t, err)
	must(t, dh.Submit())
	must(t, command.Wait(waitCtx(t), dh, time.Millisecond))
	if !opened.Load() {
		t.Fatal("remote action did not run")
	}

	bad := manifest.Config{Components: []manifest.Component{{Name: "wrist", RemoteURL: "ftp://nope"}}}
	if _, err := buildPeers(t.Context(), bad, nil, core.NoopRelay{}, "", nil); err == nil {
		t.Fatal("expected remote client error")
	}
}

func TestModuleGraph(t *testing.T) {
	err := fx.ValidateApp(Module(
		WithService("test"),
		WithManifest("manifest.toml"),
		WithListen(":0"),
		WithCommands("arm", func(*component.Component) error { return nil }),
	))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
}
