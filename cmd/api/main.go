// Command api serves the PanelPrompt signup, login and logout endpoints.
//
// @title        PanelPrompt Auth API
// @version      1.0
// @description  Signup, login and logout backed by Supabase identity and profile storage.
// @BasePath     /
package main

//go:generate swag init -g cmd/api/main.go -d ../../ -o ../../docs

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/panelprompt/auth-api/internal/api"
	"github.com/panelprompt/auth-api/internal/api/handler"
	"github.com/panelprompt/auth-api/internal/api/metrics"
	"github.com/panelprompt/auth-api/internal/core/service"
	"github.com/panelprompt/auth-api/internal/infrastructure/db/mongo"
	"github.com/panelprompt/auth-api/internal/infrastructure/db/redis"
	"github.com/panelprompt/auth-api/internal/infrastructure/supabase"
	"github.com/panelprompt/auth-api/internal/pkg/config"
	"github.com/panelprompt/auth-api/pkg/logger"
)

const startupTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{})
		l.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: "panelprompt-auth",
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	opts := []supabase.Option{supabase.WithRequestObserver(metrics.ObserveProvider)}
	var probes []handler.Pinger

	if cfg.ProfileStore == config.ProfileStoreMongo {
		client, db, err := mongo.Connect(startCtx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "panelprompt-auth",
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		}()

		store := mongo.NewTableStore(db)
		if err := store.EnsureIndexes(startCtx, cfg.Supabase.ProfileTable); err != nil {
			return err
		}
		opts = append(opts, supabase.WithTableStore(store))
		probes = append(probes, store)
		log.Info().Str("database", cfg.Mongo.Database).Msg("profiles stored in mongodb")
	}

	var limiter *redis.LoginThrottle
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(startCtx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer closeRedis(rdb, log)

		limiter = redis.NewLoginThrottle(rdb, cfg.Redis.LoginAttempts, cfg.Redis.LoginWindow)
		probes = append(probes, redis.Pinger{Client: rdb})
		log.Info().
			Int("attempts", cfg.Redis.LoginAttempts).
			Dur("window", cfg.Redis.LoginWindow).
			Msg("login throttle enabled")
	}

	proxies, err := cfg.TrustedProxyRanges()
	if err != nil {
		return err
	}

	gateways := supabase.NewBuilder(cfg.SupabaseGateway(), log, opts...)
	probes = append([]handler.Pinger{gateways}, probes...)

	deps := api.Deps{
		Accounts:       service.NewAccountService(gateways, cfg.Supabase.ProfileTable, log),
		Static:         os.DirFS(cfg.StaticDir),
		Readiness:      probes,
		CORSOrigins:    cfg.CORSOrigins,
		Logger:         log,
		TrustedProxies: proxies,
	}
	if limiter != nil {
		deps.LoginLimiter = limiter
	}
	e := api.NewRouter(deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	return e.Shutdown(shutdownCtx)
}

func closeRedis(rdb *goredis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
}
