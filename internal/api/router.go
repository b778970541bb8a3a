package api

import (
	"io/fs"
	"net"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/panelprompt/auth-api/docs"
	"github.com/panelprompt/auth-api/internal/api/handler"
	"github.com/panelprompt/auth-api/internal/api/middleware"
	"github.com/panelprompt/auth-api/internal/core/ports"
)

const bodyLimit = "64K"

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Accounts ports.AccountService
	// Static holds index.html, dashboard.html and the front-end assets.
	Static fs.FS
	// Readiness lists the dependencies /health/ready pings.
	Readiness []handler.Pinger
	// LoginLimiter throttles POST /login when set.
	LoginLimiter middleware.Limiter
	CORSOrigins  []string
	Logger       zerolog.Logger
	// TrustedProxies are the only peers whose X-Forwarded-For is read
	// when resolving the client address.
	TrustedProxies []*net.IPNet

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)
	e.Binder = handler.NewStrictBinder()
	e.Validator = handler.NewValidator()
	e.IPExtractor = clientIPExtractor(d.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "panelprompt",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Account routes ---
	accounts := handler.NewAccountHandler(d.Accounts)
	var loginMW []echo.MiddlewareFunc
	if d.LoginLimiter != nil {
		loginMW = append(loginMW, middleware.Throttle(d.LoginLimiter, d.Logger))
	}

	// The bundled front-end posts to /api/*.
	for _, prefix := range []string{"", "/api"} {
		e.POST(prefix+"/signup", accounts.Signup)
		e.POST(prefix+"/login", accounts.Login, loginMW...)
		e.POST(prefix+"/logout", accounts.Logout)
	}

	// --- Pages ---
	pages := handler.NewPageHandler(d.Static)
	e.GET("/", pages.Index)
	e.GET("/dashboard", pages.Dashboard)
	e.StaticFS("/static", d.Static)

	// --- Health probes ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Logger, d.Readiness...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/healthz", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// clientIPExtractor reads the peer address unless proxies are configured.
// Loopback, link-local and private peers are not trusted implicitly.
func clientIPExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range trusted {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}
