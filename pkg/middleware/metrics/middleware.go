package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/joeydtaylor/steeze-command/pkg/middleware/auth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Collect records request counts and latency. Labels are read after the
// handler ran, once chi has resolved the route pattern and the component
// parameter. Anonymous callers are counted under role "".
func Collect(ca *auth.Middleware) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				if isSkipPath(r) {
					return
				}
				route := normalizePath(r)
				requestsByRoute.WithLabelValues(strconv.Itoa(ww.Status()), r.Method, route, chi.URLParam(r, "component")).Inc()
				requestSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
				if ca != nil {
					requestsByRole.WithLabelValues(ca.GetUser(r.Context()).Role.Name).Inc()
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// ProvideMetrics returns the /metrics handler.
func ProvideMetrics() http.Handler { return promhttp.Handler() }

var Module = fx.Options(
	fx.Provide(ProvideMetrics),
)
