package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-credentials"
	"github.com/goliatone/go-credentials/activitymap"
	"github.com/goliatone/go-credentials/config"
	"github.com/goliatone/go-credentials/httpapi"
	"github.com/goliatone/go-credentials/logging"
	"github.com/goliatone/go-credentials/repository"
	"github.com/goliatone/go-credentials/storage"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	zl := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	defer zl.Sync() //nolint:errcheck

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewZap(zl)

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	applied, err := repository.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		zl.Info("applied migrations", zap.Strings("migrations", applied))
	}

	gateway := repository.NewGateway(db)

	var backend storage.Backend = storage.NewMemoryBackend()
	if cfg.RedisURL != "" {
		client, err := storage.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		backend = storage.NewRedisBackend(client)
	}

	var tokens credentials.TokenStrategy = credentials.NewUserToken(gateway, credentials.WithUserTokenLogger(logger))
	if cfg.TokenStrategy == config.TokenStrategyRandom {
		tokens = credentials.NewRandomToken(gateway,
			credentials.WithTokenLength(cfg.TokenLength),
			credentials.WithRandomTokenLogger(logger),
		)
	}

	service := credentials.NewService(gateway,
		credentials.WithLogger(logger),
		credentials.WithTokenStrategy(tokens),
		credentials.WithPasswordHasher(credentials.NewBcryptHasher(credentials.WithBcryptCost(cfg.BcryptCost))),
		credentials.WithActivitySink(activitymap.NewZapSink(zl.Named("activity"))),
	)

	key := []byte(cfg.SigningKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return err
		}
		zl.Warn("no signing key configured, sessions will not survive a restart")
	}

	opts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithCookieName(cfg.SessionCookie),
		httpapi.WithSessionTTL(cfg.SessionTTL),
		httpapi.WithDebug(cfg.Debug),
		httpapi.WithNotifier(httpapi.LogNotifier{Logger: logger, BaseURL: "http://localhost" + cfg.HTTPAddr + "/auth"}),
	}
	if cfg.Debug {
		opts = append(opts, httpapi.WithInsecureCookies())
	}

	handler := httpapi.NewHandler(service, backend, httpapi.NewCookieSigner(key), opts...)

	app := fiber.New(fiber.Config{
		AppName:               "credentials-server",
		DisableStartupMessage: !cfg.Debug,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	handler.Register(app.Group("/auth"))

	errc := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", cfg.HTTPAddr))
		errc <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
