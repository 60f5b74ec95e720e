package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mergington/signup/internal/clients"
	"mergington/signup/internal/config"
	"mergington/signup/internal/db"
	internalhttp "mergington/signup/internal/http"
	"mergington/signup/internal/logging"
	"mergington/signup/internal/mutation"
	"mergington/signup/internal/notify"
	"mergington/signup/internal/render"
	"mergington/signup/internal/session"
	"mergington/signup/internal/ui"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("env file ignored: %v", err)
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	tokens, err := db.Open(cfg, redisClient)
	if err != nil {
		logger.Fatal("token store init failed", zap.String("store", cfg.TokenStore), zap.Error(err))
	}
	defer tokens.Close()

	collab, err := clients.New(cfg.ServiceURL, cfg.HTTPTimeout, logger)
	if err != nil {
		logger.Fatal("service client init failed", zap.String("url", cfg.ServiceURL), zap.Error(err))
	}
	defer collab.Close()

	notices := notify.NewSurface(cfg.NoticeTTL, logger)
	defer notices.Close()

	sessions := session.NewStore(collab.Auth, tokens, notices, logger)
	renderer := render.New(collab.Activities, sessions, logger)
	mutations := mutation.NewController(collab.Activities, renderer, sessions, notices, logger)
	app := ui.NewApp(sessions, renderer, mutations, notices, logger)
	app.Start(ctx)

	server, err := internalhttp.NewServer(cfg, app, logger)
	if err != nil {
		logger.Fatal("server init failed", zap.Error(err))
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("console listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("service", cfg.ServiceURL),
			zap.String("token_store", cfg.TokenStore))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
