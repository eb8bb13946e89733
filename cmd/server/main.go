package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/example/farmfresh/internal/config"
	"github.com/example/farmfresh/internal/logging"
	"github.com/example/farmfresh/internal/metrics"
	"github.com/example/farmfresh/internal/middleware"
	"github.com/example/farmfresh/internal/routes"
	"github.com/example/farmfresh/internal/services"
	"github.com/example/farmfresh/internal/store"
	"github.com/example/farmfresh/internal/store/gormstore"
	"github.com/example/farmfresh/internal/store/memstore"
	"github.com/example/farmfresh/internal/store/mongostore"
	"github.com/example/farmfresh/internal/utils"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("farmfresh", cfg.LogFormat, cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := users.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()
	logger.Info("store ready", "driver", cfg.StoreDriver)

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tokens, err := utils.NewTokenIssuer(cfg.JWTSecret, nil)
	if err != nil {
		return err
	}
	auth, err := services.NewAuthService(services.AuthDeps{
		Users:       users,
		Hasher:      utils.NewBcryptHasher(utils.DefaultBcryptCost),
		Tokens:      tokens,
		Blobs:       blobs,
		Mailer:      newMailer(cfg, logger),
		Metrics:     m,
		Logger:      logger,
		FrontendURL: cfg.FrontendURL,
	})
	if err != nil {
		return err
	}

	app := routes.NewApp(routes.Deps{
		Auth:         auth,
		Sessions:     middleware.NewAuth(tokens, users),
		Store:        users,
		Metrics:      m,
		Gatherer:     reg,
		Logger:       logger,
		CORSOrigins:  cfg.CORSOrigins,
		AccessLog:    os.Stdout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.AppPort, "env", cfg.AppEnv)
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber.Listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("listener stopped", "error", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.UserStore, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		s, err := gormstore.Open(ctx, cfg.DatabaseURL, cfg.DBLogLevel)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case config.StoreMongo:
		s, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return s, nil
	case config.StoreMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func openBlobStore(ctx context.Context, cfg *config.Config) (services.BlobStore, error) {
	bc := services.BlobConfig{
		Endpoint:  cfg.BlobEndpoint,
		AccessKey: cfg.BlobAccessKey,
		SecretKey: cfg.BlobSecretKey,
		Bucket:    cfg.BlobBucket,
		Region:    cfg.BlobRegion,
		UseSSL:    cfg.BlobUseSSL,
		PublicURL: cfg.BlobPublicURL,
	}
	switch cfg.BlobDriver {
	case config.BlobMinio:
		s, err := services.NewMinioBlobStore(ctx, bc)
		if err != nil {
			return nil, fmt.Errorf("open minio blob store: %w", err)
		}
		return s, nil
	case config.BlobS3:
		s, err := services.NewS3BlobStore(ctx, bc)
		if err != nil {
			return nil, fmt.Errorf("open s3 blob store: %w", err)
		}
		return s, nil
	}
	return services.DisabledBlobStore{}, nil
}

func newMailer(cfg *config.Config, logger *slog.Logger) services.Mailer {
	switch cfg.MailDriver {
	case config.MailResend:
		return services.NewResendMailer(cfg.ResendAPIKey, cfg.ResendAPIURL, cfg.EmailFrom)
	case config.MailSMTP:
		return services.NewSMTPMailer(services.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     strconv.Itoa(cfg.SMTPPort),
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})
	}
	return services.LogMailer{Logger: logger}
}
