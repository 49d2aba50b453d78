//	@title			Lsky Bridge API
//	@version		1.0
//	@description	Attachment hooks that store CMS images on a Lsky Pro image host and everything else on local storage.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/lskyplus/bridge/internal/attachment"
	"github.com/lskyplus/bridge/internal/config"
	"github.com/lskyplus/bridge/internal/db"
	"github.com/lskyplus/bridge/internal/ledger"
	"github.com/lskyplus/bridge/internal/local"
	"github.com/lskyplus/bridge/internal/logging"
	"github.com/lskyplus/bridge/internal/lsky"
	appMiddleware "github.com/lskyplus/bridge/internal/middleware"
	"github.com/lskyplus/bridge/internal/storage"

	_ "github.com/lskyplus/bridge/docs/swagger"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.AppEnv, os.Stderr)
	slog.SetDefault(logger)

	if cfg.IsProduction() && cfg.JWTSecret == config.DefaultJWTSecret {
		fatal(logger, "JWT_SECRET must be set in production", nil)
	}
	if cfg.LskyURL == "" {
		logger.Warn("LSKY_URL is not set; image uploads will fail")
	}

	ctx := context.Background()

	store, err := newStorage(ctx, cfg)
	if err != nil {
		fatal(logger, "object storage init failed", err)
	}

	journal := ledger.Journal(ledger.Noop{})
	if cfg.DatabaseURL != "" {
		pool, err := openLedger(ctx, cfg.DatabaseURL)
		if err != nil {
			fatal(logger, "ledger database init failed", err)
		}
		defer pool.Close()
		journal = ledger.NewRepository(pool)
	}

	// Wire dependencies: client/storage → router → handler
	client := lsky.NewClient(lsky.NewConfig(cfg.LskyURL, cfg.LskyToken, cfg.LskyStrategyID), cfg.LskyTimeout)
	uploader := local.NewUploader(store, cfg.UploadDir, logger)
	router := attachment.NewRouter(client, uploader, attachment.NewAllowList(cfg.AllowedTypes), logger).
		WithObserver(ledger.NewRecorder(journal, logger))

	attachmentHandler := attachment.NewHandler(router, cfg.TmpDir, cfg.MaxUploadMB<<20, logger)
	ledgerHandler := ledger.NewHandler(journal, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))

		r.Route("/attachments", func(r chi.Router) {
			r.Post("/", attachmentHandler.Upload)
			r.Put("/", attachmentHandler.Modify)
			r.Post("/delete", attachmentHandler.Delete)
			r.Post("/url", attachmentHandler.ResolveURL)
		})
		r.Get("/objects", ledgerHandler.List)
	})

	// Uploads may wait on the image host for up to LSKY_TIMEOUT.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.LskyTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.AppEnv, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server error", err)
		}
	}()

	<-quit
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
		return
	}
	logger.Info("server stopped")
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageDriver == "minio" {
		return storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Bucket:     cfg.StorageBucket,
			PublicBase: cfg.StoragePublicBase,
			UseSSL:     cfg.StorageUseSSL,
		})
	}
	return storage.NewFileStorage(cfg.UploadRoot, cfg.PublicUploadBase())
}

func openLedger(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if err := db.Migrate(databaseURL); err != nil {
		return nil, err
	}
	return db.Connect(ctx, databaseURL)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
