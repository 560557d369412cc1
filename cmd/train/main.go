package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"income-predictor/internal/cfg"
	"income-predictor/internal/storage"
	"income-predictor/internal/train"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	var (
		dataPath   = flag.String("data", c.DataPath, "Path to the training CSV")
		modelPath  = flag.String("model", c.ModelPath, "Path to the model bundle database")
		reportPath = flag.String("reports", c.ReportPath, "Directory for evaluation reports (empty to skip)")
		trees      = flag.Int("trees", c.NEstimators, "Number of trees in the forest")
		workers    = flag.Int("workers", 0, "Trees fitted concurrently (0 uses GOMAXPROCS)")
		logLevel   = flag.String("log-level", c.LogLevel, "Log level: debug, info, warn, error")
		list       = flag.Bool("list", false, "List stored model versions and exit")
		activate   = flag.String("activate", "", "Mark a stored version active and exit")
		rollback   = flag.Bool("rollback", false, "Activate the version before the active one and exit")
	)
	flag.Parse()

	c.LogLevel = *logLevel
	cfg.SetupLogging(c)

	switch {
	case *list:
		must(listVersions(*modelPath))
		return
	case *activate != "":
		must(withStore(*modelPath, func(s *storage.Store) error {
			if err := s.Activate(*activate); err != nil {
				return err
			}
			log.Info().Str("version", *activate).Msg("Version activated")
			return nil
		}))
		return
	case *rollback:
		must(withStore(*modelPath, func(s *storage.Store) error {
			version, err := s.Rollback()
			if err != nil {
				return err
			}
			log.Info().Str("version", version).Msg("Rolled back")
			return nil
		}))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bundle, err := train.Run(ctx, train.Config{
		DataPath:        *dataPath,
		ModelPath:       *modelPath,
		ReportPath:      *reportPath,
		TestRatio:       c.TestRatio,
		RandomState:     c.RandomState,
		NEstimators:     *trees,
		MaxDepth:        c.MaxDepth,
		MinSamplesSplit: c.MinSamplesSplit,
		MinSamplesLeaf:  c.MinSamplesLeaf,
		MaxFeatures:     c.MaxFeatures,
		NoBootstrap:     !c.Bootstrap,
		Workers:         *workers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}

	fmt.Printf("Model version: %s\n", bundle.Version)
	fmt.Printf("Accuracy: %.4f\n\n", bundle.Evaluation.Accuracy)
	fmt.Print(bundle.Evaluation.Report())
}

func must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func withStore(path string, fn func(*storage.Store) error) error {
	store, err := storage.New(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func listVersions(path string) error {
	store, err := storage.NewReadOnly(path)
	if err != nil {
		return err
	}
	defer store.Close()

	versions, err := store.ListVersions()
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Println("no stored versions")
		return nil
	}
	for _, v := range versions {
		marker := " "
		if v.Active {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  accuracy=%.4f  rows=%d\n",
			marker, v.Version, v.CreatedAt.Format("2006-01-02 15:04:05"), v.Accuracy, v.TrainingRows)
	}
	return nil
}
