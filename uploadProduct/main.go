package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"gitlab.connectwisedev.com/catalog-insights/pkg/config"
	"gitlab.connectwisedev.com/catalog-insights/pkg/ingest"
	"gitlab.connectwisedev.com/catalog-insights/pkg/service"
)

var (
	cfg    config.Config
	engine *ingest.Engine
)

func init() {
	config.LoadEnv() // Load environment variables first

	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	engine, err = service.NewEngine(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize ingestion engine: %v", err)
	}
}

// S3EventWrapper is a custom struct to handle either S3 events or direct CSV payload
type S3EventWrapper struct {
	Records []events.S3EventRecord `json:"Records,omitempty"`
	CSVData string                 `json:"csv_data,omitempty"` // For local testing
}

// IngestResponse is returned to the invoker on success.
type IngestResponse struct {
	RunID    string `json:"run_id"`
	Inserted int64  `json:"inserted"`
	Table    string `json:"table"`
	Message  string `json:"message"`
}

// resolveCSV returns a file path holding the event's CSV and a cleanup
// func. Inline csv_data is spooled to a temp file so the engine can
// partition it like any other source.
func resolveCSV(event S3EventWrapper) (string, func(), error) {
	noop := func() {}

	if len(event.Records) > 0 {
		s3Record := event.Records[0].S3
		log.Printf("Processing S3 event for bucket: %s, key: %s", s3Record.Bucket.Name, s3Record.Object.Key)

		if os.Getenv("APP_ENV") != "local" {
			return "", noop, errors.New("S3 event triggered, but S3 download is only simulated in the local environment")
		}
		path := os.Getenv("LOCAL_CSV_PATH")
		if path == "" {
			path = "products.csv"
		}
		log.Printf("Running in local environment, reading %s for S3 simulation.", path)
		return path, noop, nil
	}

	if event.CSVData == "" {
		return "", noop, errors.New("no S3 event record or direct CSV data found in the payload")
	}

	log.Println("Processing direct CSV data payload.")
	dir, err := os.MkdirTemp("", "upload-*")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }
	path := filepath.Join(dir, "payload.csv")
	if err := os.WriteFile(path, []byte(event.CSVData), 0o600); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to spool CSV payload: %w", err)
	}
	return path, cleanup, nil
}

func handle(ctx context.Context, eng *ingest.Engine, table string, event S3EventWrapper) (IngestResponse, error) {
	path, cleanup, err := resolveCSV(event)
	if err != nil {
		return IngestResponse{}, err
	}
	defer cleanup()

	res, err := eng.Run(ctx, path)
	if err != nil {
		return IngestResponse{RunID: res.RunID, Inserted: res.Total, Table: table}, err
	}
	return IngestResponse{
		RunID:    res.RunID,
		Inserted: res.Total,
		Table:    table,
		Message:  fmt.Sprintf("Inserted %d records into %s", res.Total, table),
	}, nil
}

func handler(ctx context.Context, event S3EventWrapper) (IngestResponse, error) {
	return handle(ctx, engine, cfg.Table().String(), event)
}

func main() {
	lambda.Start(handler)
}
