// Package main is the entry point for the Tide Storage server.
// Tide Storage is an S3-compatible object storage server with AWS v4
// signature authentication, multipart uploads and presigned URLs.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tidecloud/tide-storage/internal/auth"
	"github.com/tidecloud/tide-storage/internal/cache"
	"github.com/tidecloud/tide-storage/internal/config"
	"github.com/tidecloud/tide-storage/internal/credential"
	"github.com/tidecloud/tide-storage/internal/handler"
	"github.com/tidecloud/tide-storage/internal/lock"
	"github.com/tidecloud/tide-storage/internal/metrics"
	"github.com/tidecloud/tide-storage/internal/service"
	"github.com/tidecloud/tide-storage/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// etagCacheTTL bounds how long a computed entity tag is reused before
// the object bytes are rehashed.
const etagCacheTTL = time.Hour

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting tide storage server")

	backend, err := setupBackend(cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage backend init failed")
	}

	creds := make([]credential.Credentials, 0, len(cfg.Credentials))
	for _, c := range cfg.Credentials {
		region := c.Region
		if region == "" {
			region = cfg.Auth.Region
		}
		creds = append(creds, credential.Credentials{
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Region:    region,
		})
	}
	store := credential.NewStaticStore(creds)

	locker := setupLocker(cfg.Redis, logger)

	etags := cache.NewETagCache(etagCacheTTL)
	defer etags.Stop()

	authenticator := auth.NewAuthenticator(store, cfg.Auth.Region, logger)
	buckets := service.NewBucketService(backend, locker, logger)
	objects := service.NewObjectService(backend, locker, etags, logger)
	multipart := service.NewMultipartService(backend, service.NewMemorySessionStore(), locker, logger)
	presign := service.NewPresignService(authenticator, int64(cfg.Auth.PresignedURLExpiration.Seconds()), logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	router := handler.NewRouter(handler.RouterConfig{
		Authenticator:    authenticator,
		BucketHandler:    handler.NewBucketHandler(buckets, objects, logger),
		ObjectHandler:    handler.NewObjectHandler(objects, logger),
		MultipartHandler: handler.NewMultipartHandler(multipart, logger),
		PostHandler:      handler.NewPostHandler(presign, objects, authenticator, logger),
		Metrics:          m,
		MaxBodySize:      cfg.Server.MaxBodySize,
		Logger:           logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = cfg.TimeFormat

	logger := log.Logger
	if cfg.Format == "console" {
		logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger
}

// setupBackend creates the configured storage backend.
func setupBackend(cfg config.StorageConfig, logger zerolog.Logger) (storage.Backend, error) {
	if cfg.Backend == "memory" {
		return storage.NewMemoryBackend(), nil
	}
	return storage.NewFilesystemBackend(cfg.DataDir, cfg.TempDir, logger)
}

// setupLocker creates the configured locker. Redis is only used when
// explicitly enabled; single-node deployments run on memory locks.
func setupLocker(cfg config.RedisConfig, logger zerolog.Logger) lock.Locker {
	if !cfg.Enabled {
		return lock.NewMemoryLocker()
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})
	logger.Info().Str("addr", cfg.Addr()).Msg("using redis locks")
	return lock.NewRedisLocker(client)
}
