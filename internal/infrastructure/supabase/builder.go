// Package supabase adapts the Supabase GoTrue (identity) and PostgREST
// (tables) REST APIs to the ports.IdentityProvider and ports.TableStore
// interfaces.
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/panelprompt/auth-api/internal/core/domain"
	"github.com/panelprompt/auth-api/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Config captures the project endpoint and the service credential.
type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// Validate reports which required secrets are missing.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.URL) == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if strings.TrimSpace(c.ServiceKey) == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", domain.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// Builder hands out request-scoped gateways that share one HTTP transport.
type Builder struct {
	cfg     Config
	rest    *resty.Client
	storage ports.TableStore
	observe RequestObserver
	// cfgErr is the result of validating cfg once in NewBuilder.
	cfgErr error
}

// RequestObserver receives the outcome of every completed provider call.
type RequestObserver func(method, path string, status int, latency time.Duration)

type Option func(*Builder)

// WithTableStore replaces PostgREST as the profile storage backend.
func WithTableStore(store ports.TableStore) Option {
	return func(b *Builder) { b.storage = store }
}

// WithRequestObserver reports completed calls, e.g. to a latency histogram.
func WithRequestObserver(fn RequestObserver) Option {
	return func(b *Builder) { b.observe = fn }
}

// WithHTTPClient overrides the underlying HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Builder) { b.rest = resty.NewWithClient(hc) }
}

func NewBuilder(cfg Config, log zerolog.Logger, opts ...Option) *Builder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	b := &Builder{cfg: cfg, cfgErr: cfg.Validate()}
	for _, opt := range opts {
		opt(b)
	}
	if b.rest == nil {
		b.rest = resty.NewWithClient(&http.Client{
			Timeout:   cfg.Timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		})
	}

	b.rest.
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetHeader("apikey", cfg.ServiceKey).
		SetAuthToken(cfg.ServiceKey).
		SetHeader("Accept", "application/json").
		OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			path := r.Request.RawRequest.URL.Path
			log.Debug().
				Str("method", r.Request.Method).
				Str("path", path).
				Int("status", r.StatusCode()).
				Dur("latency", r.Time()).
				Msg("supabase call")
			if b.observe != nil {
				b.observe(r.Request.Method, path, r.StatusCode(), r.Time())
			}
			return nil
		})
	return b
}

// Build returns a gateway, or domain.ErrConfiguration without touching the network.
func (b *Builder) Build(_ context.Context) (ports.Gateway, error) {
	if b.cfgErr != nil {
		return nil, b.cfgErr
	}
	c := &Client{rest: b.rest}
	g := &gateway{identity: c, storage: c}
	if b.storage != nil {
		g.storage = b.storage
	}
	return g, nil
}

// Name identifies the dependency in readiness reports.
func (b *Builder) Name() string { return "supabase" }

// Ping checks that the GoTrue health endpoint answers.
func (b *Builder) Ping(ctx context.Context) error {
	if b.cfgErr != nil {
		return b.cfgErr
	}
	resp, err := b.rest.R().SetContext(ctx).Get("/auth/v1/health")
	if err != nil {
		return fmt.Errorf("supabase ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("supabase ping: status %d", resp.StatusCode())
	}
	return nil
}

type gateway struct {
	identity ports.IdentityProvider
	storage  ports.TableStore
}

func (g *gateway) Identity() ports.IdentityProvider { return g.identity }
func (g *gateway) Storage() ports.TableStore        { return g.storage }

// Client talks to one Supabase project.
type Client struct {
	rest *resty.Client
}
