package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gitlab.connectwisedev.com/catalog-insights/models"
	"gitlab.connectwisedev.com/catalog-insights/pkg/config"
	"gitlab.connectwisedev.com/catalog-insights/pkg/metrics"
	"gitlab.connectwisedev.com/catalog-insights/pkg/query"
)

// ingestFlags are shared by ingest and watch. Zero values keep the
// environment's setting.
type ingestFlags struct {
	batchSize   int
	workers     int
	blockSize   int64
	metricsAddr string
	createTable bool
}

func (f *ingestFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "rows per committed batch (default from BATCH_SIZE or 5000)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "parallel partition workers (default min(CPUs, 8))")
	cmd.Flags().Int64Var(&f.blockSize, "block-size", 0, "target partition size in bytes (default 64 MiB)")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&f.createTable, "create-table", false, "create the products table if it does not exist")
}

func (f *ingestFlags) apply(cfg *config.Config) {
	if f.batchSize != 0 {
		cfg.BatchSize = f.batchSize
	}
	if f.workers != 0 {
		cfg.Workers = f.workers
	}
	if f.blockSize != 0 {
		cfg.BlockSize = f.blockSize
	}
	if f.metricsAddr != "" {
		cfg.MetricsAddr = f.metricsAddr
	}
}

// loadConfig reads the environment (and .env.local in local mode), lets
// mutate apply flag overrides, then validates.
func loadConfig(mutate func(*config.Config)) (config.Config, error) {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if tableFlag != "" {
		ref, err := models.ParseTableRef(tableFlag)
		if err != nil {
			return cfg, err
		}
		if ref.Schema != "" {
			cfg.DBSchema = ref.Schema
		}
		cfg.TableName = ref.Name
	}
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// filterFlags select a filter descriptor from an inline JSON string or a
// JSON/YAML file.
type filterFlags struct {
	inline string
	file   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.inline, "filters-json", "", "filter descriptor as a JSON object")
	cmd.Flags().StringVar(&f.file, "filters-file", "", "filter descriptor file (.json, .yaml or .yml)")
}

func (f *filterFlags) load() (query.Filter, error) {
	switch {
	case f.inline != "" && f.file != "":
		return query.Filter{}, errors.New("use only one of --filters-json and --filters-file")
	case f.inline != "":
		return query.DecodeFilterJSON([]byte(f.inline))
	case f.file != "":
		data, err := os.ReadFile(f.file)
		if err != nil {
			return query.Filter{}, fmt.Errorf("failed to read filters file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(f.file)) {
		case ".yaml", ".yml":
			return query.DecodeFilterYAML(data)
		default:
			return query.DecodeFilterJSON(data)
		}
	}
	return query.Filter{}, nil
}

// serveMetrics exposes reg on addr in the background. An empty addr is a
// no-op; the returned func shuts the server down.
func serveMetrics(addr string, reg *metrics.Registry) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Printf("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()
	return func() { srv.Close() }
}
