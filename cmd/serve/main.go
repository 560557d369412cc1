package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"income-predictor/internal/api"
	"income-predictor/internal/cfg"
	"income-predictor/internal/features"
	"income-predictor/internal/metrics"
	"income-predictor/internal/storage"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	cfg.SetupLogging(c)

	bundle, err := loadBundle(c)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.ModelPath).Msg("model bundle load failed")
	}

	policy, err := features.ParseEducationPolicy(c.EducationPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid education policy")
	}

	svc, err := api.NewService(bundle, api.ServiceOptions{
		Vocabulary:      c.Vocabulary,
		EducationPolicy: policy,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("inference context build failed")
	}

	m := metrics.New()
	mw := metrics.NewWrapper(m)
	mw.SetModel(bundle.Version, bundle.CreatedAt)

	srv, err := api.NewServer(svc, mw, prometheus.DefaultGatherer, api.ServerConfig{
		Addr:         c.ListenAddr,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("server setup failed")
	}

	log.Info().
		Str("version", bundle.Version).
		Time("trained_at", bundle.CreatedAt).
		Float64("accuracy", bundle.Evaluation.Accuracy).
		Str("vocabulary", c.Vocabulary).
		Str("education_policy", string(policy)).
		Msg("Model loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go refreshModelAge(ctx, mw, bundle.CreatedAt)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := waitForShutdown(sigChan, serveErr, srv, c.ShutdownTimeout); err != nil {
		log.Fatal().Err(err).Msg("prediction server failed")
	}
}

// loadBundle reads the pinned or active bundle and closes the database so
// training can write new versions while the service runs.
func loadBundle(c cfg.Settings) (*storage.Bundle, error) {
	store, err := storage.NewReadOnly(c.ModelPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if c.ModelVersion != "" {
		return store.LoadVersion(c.ModelVersion)
	}
	return store.LoadActive()
}

func refreshModelAge(ctx context.Context, mw *metrics.MetricsWrapper, trainedAt time.Time) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mw.RefreshModelAge(trainedAt)
		}
	}
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// waitForShutdown blocks until a signal arrives or the server stops on its
// own. A server failure is returned so the caller can exit non-zero.
func waitForShutdown(sigChan <-chan os.Signal, serveErr <-chan error, srv shutdowner, timeout time.Duration) error {
	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return err
		}
		return errors.New("server stopped unexpectedly")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}
