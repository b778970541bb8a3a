package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelprompt/auth-api/docs"
	"github.com/panelprompt/auth-api/internal/core/domain"
	"github.com/panelprompt/auth-api/internal/core/ports"
	"github.com/panelprompt/auth-api/internal/core/service"
	"github.com/panelprompt/auth-api/internal/infrastructure/supabase"
)

// ── in-memory provider ────────────────────────────────────────────────────────

type memoryAccount struct {
	id        string
	password  string
	confirmed bool
}

// memoryProvider stands in for the identity provider and the profile table.
type memoryProvider struct {
	mu       sync.Mutex
	accounts map[string]*memoryAccount
	rows     []domain.Profile
	calls    int
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{accounts: make(map[string]*memoryAccount)}
}

func (p *memoryProvider) Build(context.Context) (ports.Gateway, error) { return p, nil }
func (p *memoryProvider) Identity() ports.IdentityProvider             { return p }
func (p *memoryProvider) Storage() ports.TableStore                    { return p }

func (p *memoryProvider) CreateAccount(_ context.Context, email, password string, _ map[string]any) (*domain.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if _, ok := p.accounts[email]; ok {
		return nil, &ports.ProviderError{Op: "create account", Kind: ports.FailureAlreadyExists, Status: 422, Message: "User already registered"}
	}
	acc := &memoryAccount{id: "uid-" + email, password: password}
	p.accounts[email] = acc
	return &domain.Identity{ID: acc.id, Email: email}, nil
}

func (p *memoryProvider) VerifyCredential(_ context.Context, email, password string) (*domain.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	acc, ok := p.accounts[email]
	if !ok || acc.password != password {
		return nil, &ports.ProviderError{Op: "verify credential", Kind: ports.FailureUnauthenticated, Status: 400, Code: "invalid_credentials"}
	}
	if !acc.confirmed {
		return nil, &ports.ProviderError{Op: "verify credential", Kind: ports.FailureEmailUnconfirmed, Status: 400, Code: "email_not_confirmed"}
	}
	return &domain.Identity{ID: acc.id, Email: email, EmailConfirmed: true}, nil
}

func (p *memoryProvider) Insert(_ context.Context, _ string, row any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	p.rows = append(p.rows, row.(domain.Profile))
	return nil
}

func (p *memoryProvider) SelectEq(_ context.Context, _ string, _ []string, column, value string, limit int) ([]map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	var out []map[string]any
	for _, r := range p.rows {
		if column == domain.ProfileColumnUsername && r.Username == value && len(out) < limit {
			out = append(out, map[string]any{domain.ProfileColumnEmail: r.Email})
		}
	}
	return out, nil
}

func (p *memoryProvider) confirm(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[email].confirmed = true
}

// ── harness ───────────────────────────────────────────────────────────────────

var testPages = fstest.MapFS{
	"index.html":     {Data: []byte("<html>index</html>")},
	"dashboard.html": {Data: []byte("<html>dashboard</html>")},
	"app.js":         {Data: []byte("console.log('ok')")},
}

func newTestRouter(t *testing.T, builder ports.GatewayBuilder, mutate ...func(*Deps)) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	d := Deps{
		Accounts:    service.NewAccountService(builder, "", zerolog.Nop()),
		Static:      testPages,
		CORSOrigins: []string{"*"},
		Logger:      zerolog.Nop(),
		Registerer:  reg,
		Gatherer:    reg,
	}
	for _, m := range mutate {
		m(&d)
	}
	return NewRouter(d)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

const aliceSignup = `{
	"username": "alice",
	"password": "correct-horse",
	"email": "alice@example.com",
	"phone_number": "+15550100",
	"address": "1 Main Street",
	"industry": "Technology",
	"profession": "Engineer"
}`

// ── signup ────────────────────────────────────────────────────────────────────

func TestRouter_SignupCreatesIdentityAndOneRow(t *testing.T) {
	p := newMemoryProvider()
	h := newTestRouter(t, p)

	rec := do(t, h, http.MethodPost, "/signup", aliceSignup)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "uid-alice@example.com", decode(t, rec)["identity_id"])
	require.Len(t, p.rows, 1)
	assert.Equal(t, domain.Profile{
		IdentityID:  "uid-alice@example.com",
		Username:    "alice",
		Email:       "alice@example.com",
		PhoneNumber: "+15550100",
		Address:     "1 Main Street",
		Industry:    "Technology",
		Profession:  "Engineer",
	}, p.rows[0])
}

func TestRouter_SignupRejectsInvalidInputWithoutCalls(t *testing.T) {
	bodies := map[string]string{
		"short password": strings.Replace(aliceSignup, "correct-horse", "short", 1),
		"bad email":      strings.Replace(aliceSignup, "alice@example.com", "alice", 1),
		"extra field":    strings.Replace(aliceSignup, `"industry"`, `"is_admin": true, "industry"`, 1),
		"empty object":   `{}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			p := newMemoryProvider()
			rec := do(t, newTestRouter(t, p), http.MethodPost, "/signup", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["details"])
			assert.Zero(t, p.calls)
		})
	}
}

func TestRouter_SignupDuplicateIsClientError(t *testing.T) {
	p := newMemoryProvider()
	h := newTestRouter(t, p)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/signup", aliceSignup).Code)

	rec := do(t, h, http.MethodPost, "/api/signup", strings.Replace(aliceSignup, `"alice"`, `"alice2"`, 1))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already registered. Try logging in instead.", decode(t, rec)["error"])
	assert.Len(t, p.rows, 1)
}

// ── login ─────────────────────────────────────────────────────────────────────

func TestRouter_Login(t *testing.T) {
	p := newMemoryProvider()
	h := newTestRouter(t, p)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/signup", aliceSignup).Code)

	t.Run("unconfirmed email is forbidden", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/login", `{"username":"alice","password":"correct-horse"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Please confirm your email before logging in.", decode(t, rec)["error"])
	})

	p.confirm("alice@example.com")

	t.Run("success redirects to dashboard", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/login", `{"username":"alice","password":"correct-horse"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/dashboard", decode(t, rec)["redirect_to"])
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		unknown := do(t, h, http.MethodPost, "/login", `{"username":"mallory","password":"correct-horse"}`)
		wrong := do(t, h, http.MethodPost, "/login", `{"username":"alice","password":"wrong-horse"}`)

		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, unknown.Code, wrong.Code)
		assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	})
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func TestRouter_LoginThrottle(t *testing.T) {
	p := newMemoryProvider()
	h := newTestRouter(t, p, func(d *Deps) { d.LoginLimiter = denyAll{} })

	rec := do(t, h, http.MethodPost, "/login", `{"username":"alice","password":"correct-horse"}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many login attempts", decode(t, rec)["error"])
	assert.Zero(t, p.calls)

	// Signup is not throttled.
	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/signup", aliceSignup).Code)
}

type keyRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *keyRecorder) Allow(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return true, nil
}

func loginFrom(t *testing.T, h http.Handler, remoteAddr, forwardedFor string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
		req.Header.Set("X-Real-IP", forwardedFor)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRouter_LoginThrottleKeyIgnoresForwardedHeaders(t *testing.T) {
	limiter := &keyRecorder{}
	h := newTestRouter(t, newMemoryProvider(), func(d *Deps) { d.LoginLimiter = limiter })

	for _, spoofed := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		loginFrom(t, h, "10.0.0.9:1234", spoofed)
	}

	assert.Equal(t, []string{"10.0.0.9", "10.0.0.9", "10.0.0.9"}, limiter.keys)
}

func TestRouter_LoginThrottleKeyBehindTrustedProxy(t *testing.T) {
	_, proxies, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)

	limiter := &keyRecorder{}
	h := newTestRouter(t, newMemoryProvider(), func(d *Deps) {
		d.LoginLimiter = limiter
		d.TrustedProxies = []*net.IPNet{proxies}
	})

	// Forwarded by the trusted proxy.
	loginFrom(t, h, "10.0.0.9:1234", "198.51.100.7")
	// Client-supplied entry ahead of the real hop is ignored.
	loginFrom(t, h, "10.0.0.9:1234", "1.1.1.1, 198.51.100.7")
	// Untrusted peer cannot choose its key.
	loginFrom(t, h, "203.0.113.5:4000", "198.51.100.7")

	assert.Equal(t, []string{"198.51.100.7", "198.51.100.7", "203.0.113.5"}, limiter.keys)
}

// ── logout, pages, probes ─────────────────────────────────────────────────────

func TestRouter_LogoutAlwaysSucceeds(t *testing.T) {
	h := newTestRouter(t, newMemoryProvider())

	for _, path := range []string{"/logout", "/api/logout"} {
		rec := do(t, h, http.MethodPost, path, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/", decode(t, rec)["redirect_to"])
	}
}

func TestRouter_PagesAndProbes(t *testing.T) {
	h := newTestRouter(t, newMemoryProvider())

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<html>index</html>"},
		{"/dashboard", http.StatusOK, "<html>dashboard</html>"},
		{"/static/app.js", http.StatusOK, "console.log('ok')"},
		{"/health", http.StatusOK, `{"status":"ok"}`},
		{"/healthz", http.StatusOK, `{"status":"ok"}`},
		{"/health/ready", http.StatusOK, `{"status":"ok","dependencies":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, strings.TrimSpace(rec.Body.String()))
		})
	}
}

func TestRouter_MissingPage(t *testing.T) {
	h := newTestRouter(t, newMemoryProvider(), func(d *Deps) { d.Static = fstest.MapFS{} })

	rec := do(t, h, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Frontend not found. Please ensure static/index.html exists.", decode(t, rec)["error"])
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(t, newMemoryProvider())
	do(t, h, http.MethodGet, "/health", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "panelprompt_requests_total")
}

// ── configuration ─────────────────────────────────────────────────────────────

func TestRouter_MissingSecretsMakeNoProviderCalls(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	builder := supabase.NewBuilder(supabase.Config{URL: srv.URL}, zerolog.Nop(), supabase.WithHTTPClient(srv.Client()))
	h := newTestRouter(t, builder)

	for _, req := range []struct{ path, body string }{
		{"/signup", aliceSignup},
		{"/login", `{"username":"alice","password":"correct-horse"}`},
	} {
		rec := do(t, h, http.MethodPost, req.path, req.body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Service is not configured.", decode(t, rec)["error"])
	}
	assert.Zero(t, calls)
}

func TestRouter_RoutesAreDocumented(t *testing.T) {
	e, ok := newTestRouter(t, newMemoryProvider()).(*echo.Echo)
	require.True(t, ok)

	var spec struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &spec))

	documented := 0
	for _, r := range e.Routes() {
		if r.Method != http.MethodPost && !strings.HasPrefix(r.Path, "/health") {
			continue
		}
		documented++
		ops, found := spec.Paths[r.Path]
		if assert.True(t, found, "%s %s is not documented", r.Method, r.Path) {
			assert.Contains(t, ops, strings.ToLower(r.Method), r.Path)
		}
	}
	assert.Equal(t, 9, documented)
	assert.Len(t, spec.Paths, documented)
}
