package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/outloud/chatterboxd/internal/config"
	"github.com/outloud/chatterboxd/internal/engine"
	"github.com/outloud/chatterboxd/internal/httpapi"
	"github.com/outloud/chatterboxd/internal/observability"
	"github.com/outloud/chatterboxd/internal/pidfile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	eng := engine.New(engine.Config{
		Python: cfg.WorkerPython,
		Script: cfg.WorkerScript,
	})
	defer eng.Close()

	if cfg.Preload {
		log.Printf("loading chatterbox model...")
		if err := eng.EnsureLoaded(context.Background()); err != nil {
			log.Fatalf("model preload failed: %v", err)
		}
		metrics.ModelLoaded.Set(1)
		log.Printf("chatterbox loaded on %s (%d Hz)", eng.Device(), eng.SampleRate())
	}

	if err := pidfile.Write(cfg.PIDFile); err != nil {
		log.Fatalf("pid file write failed: %v", err)
	}
	defer func() {
		if err := pidfile.Remove(cfg.PIDFile); err != nil {
			log.Printf("pid file cleanup failed: %v", err)
		}
	}()

	api := httpapi.New(cfg, eng, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr(),
		Handler: api.Router(),
	}

	go func() {
		log.Printf("chatterbox server running on http://%s", cfg.BindAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	// SIGTERM arrives either from the supervising CLI or from our own
	// /shutdown handler signaling the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
