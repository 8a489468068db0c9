package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intentlab/intentd/internal/action"
	"github.com/intentlab/intentd/internal/config"
	"github.com/intentlab/intentd/internal/eventbus"
	"github.com/intentlab/intentd/internal/executor"
	"github.com/intentlab/intentd/internal/intent"
	"github.com/intentlab/intentd/internal/planner"
	"github.com/intentlab/intentd/internal/pushnotification"
	pushsubrepo "github.com/intentlab/intentd/internal/pushsubscription/repositoryimpl"
	"github.com/intentlab/intentd/internal/server"
	"github.com/intentlab/intentd/internal/session"
	sessionrepo "github.com/intentlab/intentd/internal/session/repositoryimpl"
	"github.com/intentlab/intentd/pkg/clog"
	"github.com/intentlab/intentd/pkg/sentinel"
	"github.com/intentlab/intentd/pkg/storage"
)

func main() {
	// "sentinel" supervises a "serve" child and swaps it on redeploy.
	if len(os.Args) > 1 && os.Args[1] == "sentinel" {
		sentinel.Run("serve")
		return
	}

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocal(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus
	bus := eventbus.New()

	// Setup action handlers
	registry := action.NewRegistry()
	simulator := action.NewSimulator(
		action.WithLatency(time.Duration(env.SimulateMillis) * time.Millisecond),
	)
	if err := simulator.RegisterAll(registry); err != nil {
		slog.Error("failed to register action handlers", "error", err)
		os.Exit(1)
	}

	// Setup execution pipeline
	exec := executor.New(registry, executor.WithHandlerTimeout(env.HandlerTimeout))
	sessionRepo := sessionrepo.NewYAMLRepository(store)
	sessions := session.NewService(intent.NewRuleParser(), planner.New(), exec, sessionRepo, bus)

	// Setup push notification
	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)
	pushSender := pushnotification.NewSender(vapidEnv, pushSubRepo)
	pushHandler := pushnotification.NewHandler(vapidEnv, pushSubRepo, pushSender)
	pushDispatcher := pushnotification.NewDispatcher(bus, pushSender)

	srv := server.NewServer(env, sessions, bus, pushHandler)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go pushDispatcher.Run(ctx)

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after stream contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
