package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/logger"
	"github.com/emilythestrangee/stackit/backend/internal/memstore"
	"github.com/emilythestrangee/stackit/backend/internal/monitoring"
	"github.com/emilythestrangee/stackit/backend/internal/notify"
	"github.com/emilythestrangee/stackit/backend/internal/server"
	"github.com/emilythestrangee/stackit/backend/internal/tracing"
)

type entityStore interface {
	forum.Store
	Health() map[string]string
	Close() error
}

func openStore(cfg *config.Config, log *zap.Logger) (entityStore, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("using in-memory store, for development only: data is lost on restart and every write copies the full state")
		return memstore.New(), nil
	}
	return database.Open(cfg.Database, log.Named("database"))
}

func main() {
	configPath := flag.String("config", "configs", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	zlog, err := logger.New(cfg.Log, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.Init(cfg.Tracing)
		if err != nil {
			zlog.Fatal("failed to init tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
	}

	policy, err := forum.ParseAcceptedDeletePolicy(cfg.Forum.AcceptedDeletePolicy)
	if err != nil {
		zlog.Fatal("invalid forum config", zap.Error(err))
	}

	store, err := openStore(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	var sms notify.SMSSender
	if cfg.Twilio.Enabled() {
		sms = notify.NewTwilioSender(cfg.Twilio)
		zlog.Info("sms notifications enabled")
	}
	emitter := notify.NewEmitter(
		forum.NewNotificationService(store, zlog.Named("notifications")),
		store,
		sms,
		zlog.Named("notify"),
	)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry())
	services := forum.New(store, forum.Options{
		Policy:      policy,
		Hasher:      auth.BcryptHasher{},
		Tokens:      tokens,
		Notifier:    emitter,
		AdminEmails: cfg.Forum.AdminEmails,
		Logger:      zlog,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go services.Reconciler.Run(ctx, cfg.Reconcile.Interval)

	srv := server.New(cfg, services, tokens, store, zlog).HTTPServer()
	go func() {
		zlog.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Database.Driver),
			zap.String("accepted_delete_policy", string(policy)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	emitter.Wait()
	zlog.Info("server exited")
}
