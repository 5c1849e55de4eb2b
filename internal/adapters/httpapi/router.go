package httpapi

import (
	"net/http"

	"github.com/quentinrf/fermpi/internal/ports"
)

const (
	DashboardPath = "/fermpi/"
	LoginPath     = "/login"
	SessionCookie = "fermpi_session"
)

// Options carries everything the router wires into its handlers
type Options struct {
	Sync     *ports.SyncService
	Gate     *ports.AccessGate
	Notifier ports.Notifier
	Metrics  ports.Metrics

	// Limiter applies to every route, DashboardLimiter to the dashboard on top
	Limiter          ports.RateLimiter
	DashboardLimiter ports.RateLimiter

	// MetricsHandler is mounted on /metrics when set
	MetricsHandler http.Handler

	// SecureCookies marks the session cookie Secure (server behind TLS)
	SecureCookies bool
}

// Router uses the standard library ServeMux with method patterns
type Router struct {
	mux     *http.ServeMux
	handler http.Handler
}

// NewRouter registers the fermPi routes
func NewRouter(opts Options) *Router {
	if opts.Metrics == nil {
		opts.Metrics = ports.NopMetrics{}
	}

	h := &handlers{
		sync:     opts.Sync,
		gate:     opts.Gate,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		secure:   opts.SecureCookies,
	}

	r := &Router{mux: http.NewServeMux()}

	// controller-facing
	r.Handle("POST /fermpi/temp-client", h.boundary("ingest telemetry", h.ingestTelemetry))
	r.Handle("GET /fermpi/get-set-temp", h.boundary("fetch setpoint", h.fetchSetpoint))

	// operator-facing
	dashboard := h.requireSession(h.boundary("render dashboard", h.dashboard))
	r.Handle("GET /fermpi/{$}", rateLimit(opts.DashboardLimiter, opts.Metrics, dashboard))
	r.Handle("POST /fermpi/update-set-temp", h.requireSession(h.boundary("update setpoint", h.updateSetpoint)))
	r.Handle("GET /login", h.boundary("render login", h.loginForm))
	r.Handle("POST /login", h.boundary("login", h.login))
	r.Handle("GET /logout", h.boundary("logout", h.logout))

	if opts.MetricsHandler != nil {
		r.Handle("GET /metrics", opts.MetricsHandler)
	}

	r.handler = rateLimit(opts.Limiter, opts.Metrics, r.mux)
	return r
}

func (r *Router) Handle(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}
