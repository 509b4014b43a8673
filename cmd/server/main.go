// Command server runs the shelter adoption backend: the REST API, the
// websocket push endpoint, the Redis pub/sub subscriber, and the Prometheus
// metrics surface, all in one process. Multiple instances coordinate through
// Postgres (state), Redis (cache + bus), and S3-compatible object storage
// (images).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/barinakhq/shelter-backend/internal/auth"
	"github.com/barinakhq/shelter-backend/internal/cache"
	"github.com/barinakhq/shelter-backend/internal/config"
	httpapi "github.com/barinakhq/shelter-backend/internal/http"
	"github.com/barinakhq/shelter-backend/internal/observability"
	"github.com/barinakhq/shelter-backend/internal/push"
	"github.com/barinakhq/shelter-backend/internal/pubsub"
	"github.com/barinakhq/shelter-backend/internal/repo"
	"github.com/barinakhq/shelter-backend/internal/services"
	"github.com/barinakhq/shelter-backend/internal/storage"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogger(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(c)
	}()

	// Postgres
	db, err := repo.OpenPostgres(cfg.DB.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	log.Info().Str("host", cfg.DB.Host).Str("db", cfg.DB.Name).Msg("database ready")

	// Redis: one client shared by the cache store and the pub/sub bus. A
	// failed ping degrades to cache-less, single-instance operation instead
	// of refusing to start.
	var rdb redis.UniversalClient
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable; cache and pub/sub disabled")
		_ = client.Close()
	} else {
		rdb = client
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis ready")
	}

	store := cache.New(rdb)
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hub := push.NewHub(tokens)
	bus := pubsub.NewPublisher(rdb)

	// Cross-instance coordination: invalidate local caches and forward push
	// events for mutations handled by peers.
	sub := pubsub.NewSubscriber(rdb, store, hub)
	go sub.Run(ctx)

	// Object storage for animal images; optional in dev.
	var objects *storage.Client
	if cfg.S3.Endpoint != "" {
		objects, err = storage.New(storage.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("object storage unavailable; image upload disabled")
			objects = nil
		} else if err := objects.EnsureBucket(ctx); err != nil {
			log.Warn().Err(err).Msg("object storage bucket setup failed; image upload disabled")
			objects = nil
		}
	}

	// Bootstrap admin account from env, if configured.
	userSvc := services.NewUserService(db, tokens)
	if err := userSvc.EnsureAdmin(ctx, os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Error().Err(err).Msg("admin bootstrap failed")
	}

	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:      db,
		Cache:   store,
		Tokens:  tokens,
		Hub:     hub,
		Bus:     bus,
		Storage: objects,
		Config:  cfg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("bye")
}

// setupLogger configures the global zerolog logger from config.
func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
