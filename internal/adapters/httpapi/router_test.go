package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/quentinrf/fermpi/internal/adapters/memory"
	"github.com/quentinrf/fermpi/internal/adapters/mock"
	"github.com/quentinrf/fermpi/internal/adapters/ratelimit"
	"github.com/quentinrf/fermpi/internal/domain"
	"github.com/quentinrf/fermpi/internal/ports"
)

type testEnv struct {
	router *Router
	store  *memory.Store
	mailer *mock.RecordingMailer
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()

	store := memory.NewStore()
	cred, err := domain.NewCredential("brewer", "hops")
	if err != nil {
		t.Fatalf("NewCredential failed: %v", err)
	}
	if err := store.Initialize(context.Background(), cred); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	mailer := mock.NewRecordingMailer()
	alerter := ports.NewAlerter(mailer, nil)

	opts := Options{
		Sync:     ports.NewSyncService(store, alerter, nil),
		Gate:     ports.NewAccessGate(store, time.Hour),
		Notifier: alerter,
	}
	if mutate != nil {
		mutate(&opts)
	}

	return &testEnv{router: NewRouter(opts), store: store, mailer: mailer}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()

	form := url.Values{"user": {"brewer"}, "password": {"hops"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := e.do(req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func postForm(path string, form url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestTempClient_StoresAndAcknowledges(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/fermpi/temp-client",
		strings.NewReader(`{"temp_inner": 19.2, "temp_outer": 17.8, "temp_set": 18.0}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body ackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Message != ports.IngestAck {
		t.Errorf("message = %q", body.Message)
	}

	if n, _ := env.store.CountSamples(context.Background()); n != 1 {
		t.Errorf("expected 1 stored sample, got %d", n)
	}
}

func TestTempClient_MalformedBodyStillAcknowledged(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/fermpi/temp-client", strings.NewReader(`{"temp_inner": 19.2}`))
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ports.IngestAck) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if n, _ := env.store.CountSamples(context.Background()); n != 0 {
		t.Errorf("expected nothing stored, got %d", n)
	}
	if n := len(env.mailer.Alerts()); n != 1 {
		t.Errorf("expected exactly 1 alert, got %d", n)
	}
}

func TestGetSetTemp(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/fermpi/get-set-temp", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "18,1,5" {
		t.Errorf("body = %q, want 18,1,5", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
}

func TestUpdateSetTemp(t *testing.T) {
	env := newTestEnv(t, nil)
	cookie := env.login(t)

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantTriple string
		wantAlerts int
	}{
		{
			name:       "valid update redirects",
			form:       url.Values{"temp_set": {"20"}, "th_set": {"2"}, "th_outer": {"6"}},
			wantStatus: http.StatusSeeOther,
			wantTriple: "20,2,6",
		},
		{
			name:       "missing field rejected",
			form:       url.Values{"temp_set": {"22"}, "th_set": {"2"}},
			wantStatus: http.StatusBadRequest,
			wantTriple: "20,2,6",
			wantAlerts: 1,
		},
		{
			name:       "non-numeric field rejected",
			form:       url.Values{"temp_set": {"warm"}, "th_set": {"2"}, "th_outer": {"6"}},
			wantStatus: http.StatusBadRequest,
			wantTriple: "20,2,6",
			wantAlerts: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(postForm("/fermpi/update-set-temp", tt.form, cookie))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			get := env.do(httptest.NewRequest(http.MethodGet, "/fermpi/get-set-temp", nil))
			if got := get.Body.String(); got != tt.wantTriple {
				t.Errorf("setpoint = %q, want %q", got, tt.wantTriple)
			}
			if n := len(env.mailer.Alerts()); n != tt.wantAlerts {
				t.Errorf("alerts = %d, want %d", n, tt.wantAlerts)
			}
		})
	}
}

func TestUpdateSetTemp_RequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)

	form := url.Values{"temp_set": {"20"}, "th_set": {"2"}, "th_outer": {"6"}}
	rec := env.do(postForm("/fermpi/update-set-temp", form, nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != LoginPath {
		t.Errorf("redirected to %q", loc)
	}

	cfg, _ := env.store.Get(context.Background())
	if cfg.Triple() != "18,1,5" {
		t.Errorf("unauthenticated update changed setpoint to %s", cfg.Triple())
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	sample := domain.NewTemperatureSample(19.25, 17.5, 18, time.Now())
	if _, err := env.store.Append(ctx, sample); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	t.Run("redirects without session", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/fermpi/", nil))
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want 303", rec.Code)
		}
	})

	t.Run("renders with session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/fermpi/", nil)
		req.AddCookie(env.login(t))

		rec := env.do(req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		body := rec.Body.String()
		for _, want := range []string{"19.25", "17.5", `name="temp_set" value="18"`} {
			if !strings.Contains(body, want) {
				t.Errorf("dashboard missing %q", want)
			}
		}
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("form", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/login", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected login form: %d", rec.Code)
		}
		for _, field := range []string{`name="user"`, `name="password"`} {
			if !strings.Contains(rec.Body.String(), field) {
				t.Errorf("login form missing %s", field)
			}
		}
	})

	t.Run("user and password fields", func(t *testing.T) {
		rec := env.do(postForm("/login", url.Values{"user": {"brewer"}, "password": {"hops"}}, nil))
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want 303", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != DashboardPath {
			t.Errorf("redirected to %q", loc)
		}
	})

	t.Run("username field is not accepted", func(t *testing.T) {
		rec := env.do(postForm("/login", url.Values{"username": {"brewer"}, "password": {"hops"}}, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.do(postForm("/login", url.Values{"user": {"brewer"}, "password": {"lager"}}, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("failed login set a cookie")
		}
	})

	t.Run("cookie attributes", func(t *testing.T) {
		c := env.login(t)
		if !c.HttpOnly {
			t.Error("session cookie is not HttpOnly")
		}
		if c.SameSite != http.SameSiteLaxMode {
			t.Errorf("SameSite = %v", c.SameSite)
		}
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	cookie := env.login(t)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}

	dash := httptest.NewRequest(http.MethodGet, "/fermpi/", nil)
	dash.AddCookie(cookie)
	if rec := env.do(dash); rec.Code != http.StatusSeeOther {
		t.Errorf("dashboard still reachable after logout: %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.Limiter = ratelimit.NewMemoryLimiter(ports.Limit{Count: 2, Window: time.Minute})
	})

	for i := 0; i < 2; i++ {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/fermpi/get-set-temp", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/fermpi/get-set-temp", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/fermpi/get-set-temp", nil)
	other.RemoteAddr = "10.0.0.7:4000"
	if rec := env.do(other); rec.Code != http.StatusOK {
		t.Errorf("another client was throttled: %d", rec.Code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.Limiter = brokenLimiter{}
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/fermpi/get-set-temp", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestBoundary_PanicBecomesOneAlert(t *testing.T) {
	env := newTestEnv(t, nil)

	h := &handlers{notifier: ports.NewAlerter(env.mailer, nil)}
	handler := h.boundary("explode", func(w http.ResponseWriter, r *http.Request) error {
		panic("nil map write")
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	alerts := env.mailer.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", len(alerts))
	}
	if !strings.Contains(alerts[0].Body, "nil map write") {
		t.Errorf("alert body does not carry the panic: %q", alerts[0].Body)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:80", "2001:db8::1"},
		{"pipe", "pipe"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientIP(r); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
