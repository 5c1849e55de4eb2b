package httpapi

import (
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/fermpi/internal/ports"
)

// appHandler is a handler whose unexpected errors reach the boundary
type appHandler func(w http.ResponseWriter, r *http.Request) error

// boundary turns a returned error or a panic into one alert and a 500
func (h *handlers) boundary(op string, fn appHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.internalError(w, r, op, fmt.Errorf("panic: %v", rec))
		}()

		if err := fn(w, r); err != nil {
			h.internalError(w, r, op, err)
		}
	})
}

func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.Error().
		Err(err).
		Str("op", op).
		Str("path", r.URL.Path).
		Msg("request failed")

	h.notifier.Notify(r.Context(), op, err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// requireSession sends visitors without a live session to the login form
func (h *handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || !h.gate.Authenticated(c.Value) {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit throttles per client IP. A nil limiter lets everything
// through and limiter errors fail open.
func rateLimit(l ports.RateLimiter, metrics ports.Metrics, next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		ok, err := l.Allow(r.Context(), ip)
		if err != nil {
			log.Warn().Err(err).Str("client", ip).Msg("rate limiter unavailable, letting request through")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			metrics.RequestThrottled()
			log.Debug().Str("client", ip).Str("path", r.URL.Path).Msg("request throttled")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
