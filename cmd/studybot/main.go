package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/studybot/internal/config"
	dbRedis "github.com/kailas-cloud/studybot/internal/db/redis"
	logpkg "github.com/kailas-cloud/studybot/internal/logger"
	"github.com/kailas-cloud/studybot/internal/metrics"
	objMinio "github.com/kailas-cloud/studybot/internal/objectstore/minio"
	noterepo "github.com/kailas-cloud/studybot/internal/repository/note"
	sessionrepo "github.com/kailas-cloud/studybot/internal/repository/session"
	userrepo "github.com/kailas-cloud/studybot/internal/repository/user"
	chiTransport "github.com/kailas-cloud/studybot/internal/transport/chi"
	authuc "github.com/kailas-cloud/studybot/internal/usecase/auth"
	chatuc "github.com/kailas-cloud/studybot/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/studybot/internal/usecase/health"
	noteuc "github.com/kailas-cloud/studybot/internal/usecase/note"
	"github.com/kailas-cloud/studybot/internal/version"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

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

	logger.Info("Starting studybot API server",
		zap.String("version", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("objects_endpoint", cfg.Objects.Endpoint),
	)

	// Valkey speaks the Redis protocol, both drivers share the rueidis store.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	objects, err := objMinio.NewStore(objMinio.Config{
		Endpoint:      cfg.Objects.Endpoint,
		AccessKey:     cfg.Objects.AccessKey,
		SecretKey:     cfg.Objects.SecretKey,
		Bucket:        cfg.Objects.Bucket,
		UseSSL:        cfg.Objects.UseSSL,
		Region:        cfg.Objects.Region,
		PublicBaseURL: cfg.Objects.PublicBaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to create object store", zap.Error(err))
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		logger.Fatal("Object storage not ready", zap.Error(err), zap.String("bucket", cfg.Objects.Bucket))
	}
	logger.Info("Object storage ready", zap.String("bucket", cfg.Objects.Bucket))

	// Register app metrics explicitly (no init())
	metrics.RegisterAppMetrics()

	// Repositories
	prefix := cfg.Storage.KeyPrefix
	notes := noterepo.New(store, prefix)
	sessions := sessionrepo.New(store, prefix)
	users := userrepo.New(store, prefix)

	// Use case services
	authSvc := authuc.New(users, []byte(cfg.Auth.JWTSecret),
		time.Duration(cfg.Auth.TokenTTLHours)*time.Hour, cfg.Auth.APIKeys)
	noteSvc := noteuc.New(notes, objects, cfg.MaxUploadBytes())
	chatSvc := chatuc.New(noteSvc, sessions, cfg.Chat.CorpusLimit, cfg.Chat.SessionTitleMax)
	healthSvc := healthuc.New(store, objects)

	server := chiTransport.NewServer(authSvc, noteSvc, chatSvc, healthSvc, logger, chiTransport.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		SecureCookie:   cfg.Auth.SecureCookie,
	})

	r := newRouter(logger, server, authSvc)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	logger.Info("Server stopped gracefully")
}

// newRouter assembles the middleware stack. Metrics sit ahead of auth so
// rejected requests are counted too.
func newRouter(logger *zap.Logger, server *chiTransport.Server, authn chiTransport.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Use(chiTransport.CORSMiddleware)
	r.Use(chiTransport.AuthMiddleware(authn))
	server.Routes(r)
	return r
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
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

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
