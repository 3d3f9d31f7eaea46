package core

import (
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-command/pkg/manifest"
	hmetrics "github.com/joeydtaylor/steeze-command/pkg/middleware/metrics"
	httpx "github.com/joeydtaylor/steeze-command/pkg/transport/httpx"
)

// BuildRouter mounts /ping, /metrics and, when the manifest enables it, the
// remote command surface.
func BuildRouter(cfg manifest.Config, d BuildDeps) (http.Handler, error) {
	r := d.Router
	if r == nil {
		r = httpx.NewChi()
	}
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))

	if d.Auth != nil {
		r.Use(d.Auth.Middleware())
		if d.LogMW != nil {
			r.Use(d.LogMW.Middleware(d.Auth))
		}
		r.Use(hmetrics.Collect(d.Auth))
	} else {
		if d.LogMW != nil {
			r.Use(d.LogMW.Middleware(nil))
		}
		r.Use(hmetrics.Collect(nil))
	}

	if d.Metrics != nil {
		r.Get("/metrics", d.Metrics)
	}

	if !cfg.Remote.Enabled || d.Peers == nil {
		return r.Mux(), nil
	}
	s, err := newSurface(cfg.Remote, d)
	if err != nil {
		return nil, err
	}
	r.Group(func(g httpx.Router) {
		g.Use(guard(d.Auth, cfg.Remote.Guard))
		if t := cfg.Remote.Timeout(); t > 0 {
			g.Use(withTimeout(t))
		}
		g.Get("/components", http.HandlerFunc(s.listComponents))
		g.Get("/components/{component}/commands", http.HandlerFunc(s.listCommands))
		g.Get("/components/{component}/commands/{name}", http.HandlerFunc(s.describe))
		g.Post("/components/{component}/commands/{name}", http.HandlerFunc(s.invoke))
		g.Post("/relay/{component}/commands/{name}", http.HandlerFunc(s.relayInvoke))
		g.Get("/dispatches/{id}", http.HandlerFunc(s.poll))
		g.Delete("/dispatches/{id}", http.HandlerFunc(s.discard))
	})
	return r.Mux(), nil
}
