// Command pipeline runs one full scoring pass over a ChemTRAC release CSV and
// writes the scored-facility JSON consumed by the map layer.
//
// Usage:
//
//	go run ./cmd/pipeline -input data/chemtrac_2024.csv -output data/scored_facilities.json
//
// Environment variables configure logging, the anomaly ensemble, and the
// optional HTTP server, Kafka sink, and SQLite run store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/chemtrac-risk-pipeline/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/chemtrac-risk-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/anomaly"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/config"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/observability"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/pipeline"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	inputPath := flag.String("input", "", "path to the ChemTRAC release CSV")
	outputPath := flag.String("output", "", "path for the scored-facility JSON")
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		flag.Usage()
		return errors.New("missing required flags: -input, -output")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	table, err := domain.LoadToxicityTable()
	if err != nil {
		return fmt.Errorf("load toxicity table: %w", err)
	}
	receptors, err := domain.LoadReceptors()
	if err != nil {
		return fmt.Errorf("load receptors: %w", err)
	}
	engine := domain.NewProximityEngine(receptors)

	ensembleCfg := anomaly.Config{
		Seed:                  cfg.AnomalySeed,
		GlobalContamination:   cfg.GlobalContamination,
		IndustryContamination: cfg.IndustryContamination,
		MinPeerGroup:          cfg.MinPeerGroup,
	}

	var sink pipeline.Sink
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sink = writer
		logger.Info("kafka sink enabled", "topic", cfg.KafkaTopic)
	}

	var persister pipeline.Persister
	if cfg.StoreEnabled() {
		s, err := store.Open(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer func() {
			if err := s.Close(); err != nil {
				logger.Error("run store close error", "error", err)
			}
		}()
		persister = s
		logger.Info("run store enabled", "path", cfg.StorePath)
	}

	p := pipeline.New(table, engine, ensembleCfg, sink, persister, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional HTTP server for /healthz, /readyz, /metrics on long runs.
	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	if err := runOnce(ctx, p, *inputPath, *outputPath); err != nil {
		return err
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	return nil
}

func runOnce(ctx context.Context, p *pipeline.Pipeline, inputPath, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if _, err := p.Run(ctx, in, out); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
