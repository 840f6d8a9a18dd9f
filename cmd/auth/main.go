package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/orynlabs/oryn-auth/internal/config"
	"github.com/orynlabs/oryn-auth/internal/github"
	httptransport "github.com/orynlabs/oryn-auth/internal/http"
	"github.com/orynlabs/oryn-auth/internal/http/handler"
	httpmiddleware "github.com/orynlabs/oryn-auth/internal/http/middleware"
	apimiddleware "github.com/orynlabs/oryn-auth/internal/middleware"
	"github.com/orynlabs/oryn-auth/internal/server"
	"github.com/orynlabs/oryn-auth/internal/service"
	"github.com/orynlabs/oryn-auth/internal/session"
	"github.com/orynlabs/oryn-auth/internal/session/revocation"
	"github.com/orynlabs/oryn-auth/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newRedisClient,
			newRevocationList,
			newSessionCodec,
			newProviderClient,
			service.NewAuthService,
			newAuthHandler,
			newSessionMiddleware,
			newRateLimiter,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := revocation.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		return nil, nil
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return client, nil
}

func newRevocationList(client *redis.Client, logger *zap.Logger) revocation.List {
	if client != nil {
		logger.Info("using redis revocation list")
		return revocation.NewRedisList(client)
	}
	return revocation.NewMemoryList()
}

func newSessionCodec(cfg config.Config) (*session.Codec, error) {
	return session.NewCodec(cfg.SessionSecret, cfg.SessionTTL)
}

func newProviderClient(cfg config.Config, logger *zap.Logger) service.Provider {
	return github.NewClient(github.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Timeout:      cfg.ProviderTimeout,
	}, logger)
}

func newAuthHandler(auth *service.AuthService, cfg config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, cfg)
}

func newSessionMiddleware(auth *service.AuthService, cfg config.Config) *httpmiddleware.Session {
	return &httpmiddleware.Session{Auth: auth, Cfg: cfg}
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
