// Command authgate runs the authentication gateway: the ext-authz check
// endpoint for the edge proxy plus the rate-limited signup/verification
// endpoints.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal/httpapi"
	"github.com/MrEthical07/authgate/provider/cognito"
	"github.com/MrEthical07/authgate/refresh"
	"github.com/MrEthical07/authgate/token"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadEnv()
	if err != nil {
		return err
	}

	// Migrations run through database/sql because goose requires it; the
	// store itself uses the pgx pool below.
	migrateDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	if err := refresh.Migrate(ctx, migrateDB); err != nil {
		migrateDB.Close()
		return err
	}
	migrateDB.Close()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	idp, err := cognito.New(cip.NewFromConfig(awsCfg), cognito.Config{
		ClientID:     cfg.CognitoClientID,
		ClientSecret: cfg.CognitoClientSecret,
		RefreshTTL:   cfg.RefreshTTL,
	})
	if err != nil {
		return err
	}

	validator, err := token.NewValidator(ctx, token.Config{
		JWKSURL:  cfg.jwksURL(),
		Issuer:   cfg.issuer(),
		ClientID: cfg.CognitoClientID,
	})
	if err != nil {
		return err
	}
	defer validator.Close()

	gateCfg := defaultGatewayConfig(cfg)
	registry := prometheus.NewRegistry()

	engine, err := authgate.New().
		WithConfig(gateCfg).
		WithRedis(rdb).
		WithRefreshStore(refresh.NewPostgresStore(pool)).
		WithValidator(validator).
		WithProvider(idp).
		WithLogger(slog.Default()).
		WithMetrics(registry).
		Build()
	if err != nil {
		return err
	}

	api := httpapi.New(engine, slog.Default(), registry)
	defer api.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func defaultGatewayConfig(cfg *envConfig) authgate.Config {
	gateCfg := authgate.Config{
		Cookies: authgate.CookieConfig{
			AccessName:  "AT_SID",
			RefreshName: "RT_SID",
		},
		Session: authgate.SessionConfig{
			RedisPrefix: "sess",
			RefreshTTL:  cfg.RefreshTTL,
		},
		Limits: authgate.LimitConfig{
			Signup:           authgate.Limit{Window: time.Hour, Max: 15},
			Resend:           authgate.Limit{Window: time.Hour, Max: 5},
			Verify:           authgate.Limit{Window: time.Hour, Max: 5},
			IP:               authgate.Limit{Window: time.Hour, Max: 100},
			EnableIPThrottle: true,
		},
		Identity: authgate.IdentityConfig{
			InjectHeaders:       true,
			InjectAuthorization: cfg.InjectAuthorizationHeader,
		},
	}
	return gateCfg
}
