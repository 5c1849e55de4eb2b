package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/fermpi/internal/domain"
	"github.com/quentinrf/fermpi/internal/ports"
)

// telemetry bodies are three numbers; anything larger is garbage
const maxTelemetryBytes = 64 << 10

type handlers struct {
	sync     *ports.SyncService
	gate     *ports.AccessGate
	notifier ports.Notifier
	metrics  ports.Metrics
	secure   bool
}

type ackResponse struct {
	Message string `json:"message"`
}

// ingestTelemetry always acknowledges; the outcome only reaches the logs
// and the alert the service already sent.
func (h *handlers) ingestTelemetry(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTelemetryBytes))
	if err != nil {
		h.metrics.IngestFailed()
		h.notifier.Notify(ctx, "ingest telemetry", &domain.ValidationError{Err: fmt.Errorf("read body: %w", err)})
	} else if out := h.sync.IngestTelemetry(ctx, raw); !out.OK() {
		log.Warn().Err(out.Err).Str("client", clientIP(r)).Msg("telemetry not stored")
	}

	writeJSON(w, http.StatusOK, ackResponse{Message: ports.IngestAck})
	return nil
}

func (h *handlers) fetchSetpoint(w http.ResponseWriter, r *http.Request) error {
	triple := h.sync.FetchSetpoint(r.Context())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, triple)
	return nil
}

func (h *handlers) updateSetpoint(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		// an unparsable body leaves PostForm empty and fails validation below
		log.Warn().Err(err).Msg("failed to parse setpoint form")
	}

	err := h.sync.UpdateSetpoint(r.Context(), r.PostForm)
	switch {
	case err == nil:
		http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
	case domain.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "There was an issue updating the temps.", http.StatusInternalServerError)
	}
	return nil
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) error {
	view, err := h.sync.Dashboard(r.Context())
	if err != nil {
		return err
	}
	return render(w, http.StatusOK, dashboardTmpl, view)
}

type loginPage struct {
	Error string
}

func (h *handlers) loginForm(w http.ResponseWriter, r *http.Request) error {
	return render(w, http.StatusOK, loginTmpl, loginPage{})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return render(w, http.StatusBadRequest, loginTmpl, loginPage{Error: "Malformed login form."})
	}

	token, err := h.gate.Login(r.Context(), r.PostForm.Get("user"), r.PostForm.Get("password"))
	if errors.Is(err, domain.ErrAuthentication) {
		return render(w, http.StatusUnauthorized, loginTmpl, loginPage{Error: "Invalid username or password."})
	}
	if err != nil {
		return fmt.Errorf("failed to check credential: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
	return nil
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) error {
	if c, err := r.Cookie(SessionCookie); err == nil {
		h.gate.Logout(c.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	return nil
}

// render executes into a buffer so a template error can still become a 500
func render(w http.ResponseWriter, status int, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
