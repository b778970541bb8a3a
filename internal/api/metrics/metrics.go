// Package metrics defines the custom Prometheus metrics for the PanelPrompt
// auth API. It is the single source of truth for metric names, labels and
// help strings.
//
// Metrics register with the default registry on import. HTTP request metrics
// come from echoprometheus and are not duplicated here.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/panelprompt/auth-api/internal/core/domain"
)

const namespace = "panelprompt"

// ── Account metrics ───────────────────────────────────────────────────────────

// SignupsTotal counts signup attempts.
// Label:
//   - outcome: see Outcome
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by outcome.",
	},
	[]string{"outcome"},
)

// LoginsTotal counts login attempts that reached the handler.
// Label:
//   - outcome: see Outcome
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

// LoginThrottledTotal counts login requests rejected by the rate limiter.
var LoginThrottledTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_throttled_total",
		Help:      "Total number of login requests rejected with 429.",
	},
)

// ── Provider metrics ──────────────────────────────────────────────────────────

// ProviderRequestDuration measures completed calls to the identity provider.
// Labels:
//   - method: HTTP method
//   - path: provider path (e.g. "/auth/v1/token")
//   - status: HTTP status returned by the provider
var ProviderRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Duration of identity provider calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// ObserveProvider records one provider call. It matches
// supabase.RequestObserver.
func ObserveProvider(method, path string, status int, latency time.Duration) {
	ProviderRequestDuration.
		WithLabelValues(method, path, strconv.Itoa(status)).
		Observe(latency.Seconds())
}

// Outcome maps a service result to a low-cardinality label value.
func Outcome(err error) string {
	var ve *domain.ValidationError
	var he *echo.HTTPError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &ve):
		return "invalid_input"
	case errors.As(err, &he):
		return "rejected"
	case errors.Is(err, domain.ErrDuplicateAccount):
		return "duplicate"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrEmailUnconfirmed):
		return "email_unconfirmed"
	case errors.Is(err, domain.ErrAuthorizationDenied):
		return "authorization_denied"
	case errors.Is(err, domain.ErrIdentityProvider):
		return "provider_error"
	case errors.Is(err, domain.ErrStorage):
		return "storage_error"
	case errors.Is(err, domain.ErrConfiguration):
		return "misconfigured"
	default:
		return "internal_error"
	}
}
