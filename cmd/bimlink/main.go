package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/bridge"
	"github.com/kailas-cloud/bimlink/internal/config"
	dbRedis "github.com/kailas-cloud/bimlink/internal/db/redis"
	domcmd "github.com/kailas-cloud/bimlink/internal/domain/command"
	"github.com/kailas-cloud/bimlink/internal/host"
	logpkg "github.com/kailas-cloud/bimlink/internal/logger"
	"github.com/kailas-cloud/bimlink/internal/metrics"
	"github.com/kailas-cloud/bimlink/internal/repository/querycache"
	snapshotrepo "github.com/kailas-cloud/bimlink/internal/repository/snapshot"
	chiTransport "github.com/kailas-cloud/bimlink/internal/transport/chi"
	openaiPlanner "github.com/kailas-cloud/bimlink/internal/transport/openai"
	"github.com/kailas-cloud/bimlink/internal/usecase/classify"
	commanduc "github.com/kailas-cloud/bimlink/internal/usecase/command"
	"github.com/kailas-cloud/bimlink/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/bimlink/internal/usecase/health"
	"github.com/kailas-cloud/bimlink/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bimlink API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("model_path", cfg.Host.ModelPath),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterBridgeMetrics()
	metrics.RegisterStoreMetrics()
	metrics.RegisterPlannerMetrics()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Optional store: snapshots and the query cache need it
	var store *dbRedis.Store
	if cfg.Database.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	}

	var snapRepo *snapshotrepo.Repo
	if store != nil && cfg.Snapshot.Enabled {
		snapRepo = snapshotrepo.New(store, cfg.Storage.KeyPrefix)
	}

	doc, err := loadDocument(ctx, cfg, snapRepo, logger)
	if err != nil {
		logger.Fatal("Failed to load document", zap.Error(err))
	}

	app := host.NewApp(doc,
		host.WithQueueSize(cfg.Host.QueueSize),
		host.WithLogger(logger.Named("host")),
		host.WithPanicHook(func(any) { metrics.HostCallbackPanicsTotal.Inc() }),
	)
	app.Start(ctx)
	defer app.Stop()

	registry := commanduc.New(app,
		filter.New(logger.Named("filter")),
		classify.New(logger.Named("classify"), metrics.ClassifierDroppedTotal),
		logger,
		commanduc.WithTimeouts(cfg.Host.CommandTimeouts()),
		commanduc.WithMetrics(bridge.DefaultMetrics()),
	)

	if store != nil && cfg.Cache.TTL() > 0 {
		purged, err := querycache.Purge(ctx, store, cfg.Storage.KeyPrefix)
		if err != nil {
			logger.Warn("Failed to purge query cache", zap.Error(err))
		} else if purged > 0 {
			logger.Info("Purged stale query cache", zap.Int("keys", purged))
		}
		err = registry.Decorate(commanduc.NameFilter, func(inner domcmd.Invoker) domcmd.Invoker {
			return querycache.New(inner, store, app.Version, querycache.Config{
				Prefix:  cfg.Storage.KeyPrefix,
				TTL:     cfg.Cache.TTL(),
				Session: app.Session(),
			}, metrics.QueryCacheTotal, logger)
		})
		if err != nil {
			logger.Fatal("Failed to enable query cache", zap.Error(err))
		}
		logger.Info("Query cache enabled", zap.Duration("ttl", cfg.Cache.TTL()))
	}

	// Snapshot saver writes every committed change in the background
	var saverWG sync.WaitGroup
	saverCtx, stopSaver := context.WithCancel(ctx)
	defer stopSaver()
	if snapRepo != nil {
		saver := snapshotrepo.NewSaver(snapRepo, cfg.Snapshot.Name, metrics.SnapshotSavesTotal, logger)
		if err := saver.Watch(ctx, app); err != nil {
			logger.Fatal("Failed to watch document", zap.Error(err))
		}
		saverWG.Add(1)
		go func() {
			defer saverWG.Done()
			saver.Run(saverCtx)
		}()
	}

	// Pass nil interfaces (not typed nil pointers) for disabled components.
	var dbPinger healthuc.DBPinger
	if store != nil {
		dbPinger = store
	}
	var planner chiTransport.Planner
	var plannerChecker healthuc.PlannerChecker
	if cfg.Planner.Enabled() {
		p := openaiPlanner.NewPlanner(&openaiPlanner.Config{
			APIKey:  cfg.Planner.APIKey,
			BaseURL: cfg.Planner.BaseURL,
			Model:   cfg.Planner.Model,
			Timeout: time.Duration(cfg.Planner.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		planner, plannerChecker = p, p
		logger.Info("Planner enabled", zap.String("model", cfg.Planner.Model))
	}

	healthSvc := healthuc.New(app, dbPinger, plannerChecker, app.Version)

	server := chiTransport.NewServer(registry, healthSvc, planner, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
				Code:    chiTransport.ErrorResponseCodeBadRequest,
				Message: err.Error(),
			})
		},
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Stop the saver first so its final flush sees the last committed state.
	stopSaver()
	saverWG.Wait()
	app.Stop()

	logger.Info("Server stopped gracefully", zap.Uint64("document_version", app.Version()))
}

// loadDocument prefers a saved snapshot over the seed model.
func loadDocument(
	ctx context.Context, cfg config.Config, repo *snapshotrepo.Repo, logger *zap.Logger,
) (*host.Document, error) {
	seed := func() (*host.Document, error) {
		doc, err := host.LoadModel(cfg.Host.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		logger.Info("Seed model loaded", zap.String("path", cfg.Host.ModelPath), zap.Int("elements", doc.Len()))
		return doc, nil
	}
	if repo == nil {
		return seed()
	}

	if infos, err := repo.List(ctx); err == nil {
		for _, info := range infos {
			logger.Debug("Saved snapshot", zap.String("name", info.Name),
				zap.Uint64("version", info.Version), zap.Time("saved_at", time.UnixMilli(info.SavedAt)))
		}
	}
	if cfg.Snapshot.Reset {
		logger.Warn("Discarding saved snapshot", zap.String("name", cfg.Snapshot.Name))
	}
	doc, restored, err := repo.Resume(ctx, cfg.Snapshot.Name, cfg.Snapshot.Reset, seed)
	if err != nil {
		return nil, err
	}
	if restored {
		logger.Info("Document restored from snapshot",
			zap.String("name", cfg.Snapshot.Name), zap.Uint64("version", doc.Version()))
	}
	return doc, nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorResponseCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if v := ww.Header().Get("X-Document-Version"); v != "" {
				fields = append(fields, zap.String("document_version", v))
			}
			if command := chi.URLParam(r, "command"); command != "" {
				fields = append(fields, zap.String("command", command))
			}
			reqLogger.Info("http_request", fields...)
		})
	}
}
