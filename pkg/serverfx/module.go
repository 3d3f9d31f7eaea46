package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joeydtaylor/steeze-command/pkg/codec"
	"github.com/joeydtaylor/steeze-command/pkg/component"
	"github.com/joeydtaylor/steeze-command/pkg/core"
	"github.com/joeydtaylor/steeze-command/pkg/electrician"
	"github.com/joeydtaylor/steeze-command/pkg/manifest"
	"github.com/joeydtaylor/steeze-command/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-command/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-command/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-command/pkg/remote"
	"github.com/joeydtaylor/steeze-command/pkg/script"
	"github.com/joeydtaylor/steeze-command/pkg/transport/httpx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ---------- Options ----------

// Installer registers an application's commands on a component before it
// starts.
type Installer func(*component.Component) error

type Config struct {
	Service  string // for logs only
	Manifest string // overrides COMMAND_MANIFEST
	Listen   string // overrides SERVER_LISTEN_ADDRESS

	installers map[string][]Installer
}

type Option func(*Config)

func WithService(s string) Option     { return func(c *Config) { c.Service = s } }
func WithManifest(path string) Option { return func(c *Config) { c.Manifest = path } }
func WithListen(addr string) Option   { return func(c *Config) { c.Listen = addr } }

// WithCommands adds fn to the installers of the named component.
func WithCommands(component string, fn Installer) Option {
	return func(c *Config) {
		if c.installers == nil {
			c.installers = map[string][]Installer{}
		}
		c.installers[component] = append(c.installers[component], fn)
	}
}

// Env holds the deployment knobs read from the process environment.
type Env struct {
	Manifest   string `env:"COMMAND_MANIFEST" envDefault:"manifest.toml"`
	Listen     string `env:"SERVER_LISTEN_ADDRESS" envDefault:":4000"`
	TLSCert    string `env:"SSL_SERVER_CERTIFICATE"`
	TLSKey     string `env:"SSL_SERVER_KEY"`
	PeerBearer string `env:"REMOTE_PEER_BEARER"`
	// RelayCredentials selects what /relay forwards: none | cookie | bearer.
	RelayCredentials string `env:"RELAY_CREDENTIALS" envDefault:"none"`

	Auth auth.Config
}

// LoadEnv parses Env and applies the overrides in cfg.
func LoadEnv(cfg Config) (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Manifest != "" {
		e.Manifest = cfg.Manifest
	}
	if cfg.Listen != "" {
		e.Listen = cfg.Listen
	}
	return e, nil
}

// Module returns the complete daemon: components from the manifest, the
// remote surface, the relay and scripts.
func Module(opts ...Option) fx.Option {
	cfg := Config{Service: "steeze-command"}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(LoadEnv),
		fx.Provide(func(e Env) auth.Config { return e.Auth }),
		fx.Provide(provideManifest),

		auth.Module,
		logger.Module,
		fx.Provide(fx.Annotate(metrics.ProvideMetrics, fx.ResultTags(`name:"metrics"`))),
		fx.Provide(httpx.NewChi),

		fx.Provide(provideRelay),
		fx.Provide(provideCredentials),
		fx.Provide(providePeers),
		fx.Provide(fx.Annotate(provideRouter, fx.ResultTags(`name:"app"`))),

		fx.Invoke(registerHooks),
	)
}

func provideManifest(e Env) (manifest.Config, error) {
	man, err := core.LoadConfig(e.Manifest)
	if err != nil {
		return manifest.Config{}, fmt.Errorf("manifest %s: %w", e.Manifest, err)
	}
	return man, nil
}

// ---------- Relay ----------

func provideRelay(lc fx.Lifecycle, man manifest.Config, log *zap.Logger) (core.RelayPublisher, error) {
	if man.Relay == nil || len(man.Relay.Targets) == 0 {
		return core.NoopRelay{}, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	pub, err := electrician.NewPublisher(ctx, man.Relay, log)
	if err != nil {
		cancel()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pub.Stop()
			cancel()
			return nil
		},
	})
	return pub, nil
}

func provideCredentials(e Env) (core.CredentialsProvider, error) {
	switch strings.ToLower(strings.TrimSpace(e.RelayCredentials)) {
	case "", "none":
		return core.NoAuthProvider{}, nil
	case "cookie":
		return core.PassthroughCookieProvider{CookieName: e.Auth.CookieName}, nil
	case "bearer":
		return core.StaticBearerProvider{}, nil
	}
	return nil, fmt.Errorf("RELAY_CREDENTIALS %q invalid (none|cookie|bearer)", e.RelayCredentials)
}

// ---------- Components ----------

func providePeers(lc fx.Lifecycle, cfg Config, e Env, man manifest.Config, rel core.RelayPublisher, log *zap.Logger) (*component.Peers, error) {
	// ctx also bounds the relay remoters' publishing goroutines.
	ctx, cancel := context.WithCancel(context.Background())
	peers, err := buildPeers(ctx, man, cfg.installers, rel, e.PeerBearer, log)
	if err != nil {
		cancel()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return peers.StartAll(ctx)
		},
		OnStop: func(context.Context) error {
			peers.CloseAll()
			cancel()
			return nil
		},
	})
	return peers, nil
}

func buildPeers(ctx context.Context, man manifest.Config, installers map[string][]Installer, rel core.RelayPublisher, bearer string, log *zap.Logger) (*component.Peers, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cd, err := codec.ByName(man.Remote.Codec)
	if err != nil {
		return nil, err
	}
	peers := component.NewPeers()
	fail := func(c *component.Component, err error) (*component.Peers, error) {
		if c != nil {
			c.Close()
		}
		peers.CloseAll()
		return nil, err
	}

	for _, mc := range man.Components {
		c, err := component.New(component.Config{
			Name:      mc.Name,
			Period:    mc.Period(),
			QueueSize: mc.QueueSize,
			Logger:    log,
		})
		if err != nil {
			return fail(nil, err)
		}
		switch {
		case mc.RemoteURL != "":
			opts := []remote.Option{remote.WithCodec(cd), remote.WithLogger(log)}
			if bearer != "" {
				opts = append(opts, remote.WithBearer(bearer))
			}
			rc, err := remote.New(mc.RemoteURL, mc.Name, opts...)
			if err != nil {
				return fail(c, fmt.Errorf("component %s: %w", mc.Name, err))
			}
			c.Commands().SetRemoter(rc)
		case mc.RelayFallback:
			c.Commands().SetRemoter(electrician.NewRemoter(ctx, rel, mc.Name, c.Processor(), electrician.WithRemoterLogger(log)))
		}
		for _, install := range installers[mc.Name] {
			if err := install(c); err != nil {
				return fail(c, fmt.Errorf("component %s: install: %w", mc.Name, err))
			}
		}
		if err := peers.Add(c); err != nil {
			return fail(c, err)
		}
	}

	for name := range installers {
		if _, ok := peers.Get(name); !ok {
			log.Warn("commands for a component the manifest does not declare", zap.String("component", name))
		}
	}
	return peers, nil
}

// ---------- Router ----------

type routerDeps struct {
	fx.In

	Manifest manifest.Config
	AuthMW   *auth.Middleware
	LogMW    *logger.Middleware
	Metrics  http.Handler `name:"metrics"`
	R        httpx.Router
	Peers    *component.Peers
	Relay    core.RelayPublisher
	Creds    core.CredentialsProvider
	Log      *zap.Logger
}

func provideRouter(d routerDeps) (http.Handler, error) {
	return core.BuildRouter(d.Manifest, core.BuildDeps{
		Auth:    d.AuthMW,
		LogMW:   d.LogMW,
		Metrics: d.Metrics,
		Router:  d.R,
		Peers:   d.Peers,
		Relay:   d.Relay,
		Creds:   d.Creds,
		Log:     d.Log,
	})
}

// ---------- Lifecycle (receiver + scripts + HTTP server) ----------

type serverDeps struct {
	fx.In
	Config   Config
	Env      Env
	Manifest manifest.Config
	Peers    *component.Peers
	Logger   *zap.Logger
	App      http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	cert, key := d.Env.TLSCert, d.Env.TLSKey
	srv := &http.Server{
		Addr:         d.Env.Listen,
		Handler:      d.App,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}
	useTLS := fileExists(cert) && fileExists(key)

	runCtx, cancel := context.WithCancel(context.Background())
	var scripts sync.WaitGroup
	var stopReceiver func()

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if rl := d.Manifest.Relay; rl != nil && rl.Receiver != nil {
				stop, err := electrician.StartReceiver(runCtx, rl, d.Peers, d.Logger)
				if err != nil {
					d.Logger.Error("relay receiver start failed", zap.String("address", rl.Receiver.Address), zap.Error(err))
				} else {
					stopReceiver = stop
					d.Logger.Info("relay receiver started", zap.String("address", rl.Receiver.Address))
				}
			}

			engine := script.New(d.Peers, script.WithLogger(d.Logger))
			for _, sc := range d.Manifest.Scripts {
				scripts.Add(1)
				go func(sc manifest.Script) {
					defer scripts.Done()
					if err := engine.RunFile(runCtx, sc.Component, sc.Path); err != nil {
						d.Logger.Error("script failed", zap.String("path", sc.Path), zap.String("component", sc.Component), zap.Error(err))
					}
				}(sc)
			}

			if useTLS {
				d.Logger.Info("server starting (TLS)",
					zap.String("service", d.Config.Service),
					zap.String("addr", srv.Addr),
					zap.String("cert", cert),
				)
				go func() {
					if err := srv.ListenAndServeTLS(cert, key); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			} else {
				d.Logger.Info("server starting (PLAINTEXT)",
					zap.String("service", d.Config.Service),
					zap.String("addr", srv.Addr),
				)
				go func() {
					srv.TLSConfig = nil
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", d.Config.Service))
			cancel()
			scripts.Wait()
			if stopReceiver != nil {
				stopReceiver()
			}
			return srv.Shutdown(ctx)
		},
	})
}

// ---------- helpers ----------

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
