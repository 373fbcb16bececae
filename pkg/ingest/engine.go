// Package ingest bulk-loads product CSV files into the products table.
//
// Files are cut into byte-range partitions that are processed in parallel
// by a bounded pool of workers. Each worker owns one database connection
// for the life of its partition and commits rows in fixed-size batches, so
// durability is per batch: a partition that fails midway keeps the batches
// it already committed.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gitlab.connectwisedev.com/catalog-insights/models"
	"gitlab.connectwisedev.com/catalog-insights/pkg/coerce"
	"gitlab.connectwisedev.com/catalog-insights/pkg/metrics"
)

// BatchWriter writes one batch of row tuples and commits it. Tuples follow
// models.ProductColumns order.
type BatchWriter interface {
	WriteBatch(ctx context.Context, rows [][]any) error
	Close() error
}

// Connector opens a dedicated BatchWriter. It is called once per
// partition; writers are never shared between workers.
type Connector interface {
	Connect(ctx context.Context) (BatchWriter, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (BatchWriter, error)

func (f ConnectorFunc) Connect(ctx context.Context) (BatchWriter, error) { return f(ctx) }

// Config controls an Engine.
type Config struct {
	Table     models.TableRef
	BatchSize int
	Workers   int
	BlockSize int64
}

// PartitionResult reports what one partition wrote.
type PartitionResult struct {
	Partition Partition
	Rows      int64
	Batches   int
	BadLines  int
}

// RunResult aggregates a run. On failure Total still counts every row
// that was committed before the failure.
type RunResult struct {
	RunID      string
	Files      []string
	Partitions []PartitionResult
	Total      int64
}

// PartitionError is returned when a partition fails. Written rows were
// already committed and stay in the table.
type PartitionError struct {
	Partition Partition
	Written   int64
	Err       error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %s failed after %d rows: %v", e.Partition, e.Written, e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// Engine runs ingestion. It holds no per-run state and may be reused.
type Engine struct {
	cfg       Config
	connector Connector
	metrics   *metrics.Registry
}

// NewEngine validates cfg and returns an Engine. A nil registry gets a
// private one.
func NewEngine(cfg Config, connector Connector, reg *metrics.Registry) (*Engine, error) {
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.BlockSize < 1 {
		return nil, fmt.Errorf("block size must be positive, got %d", cfg.BlockSize)
	}
	if connector == nil {
		return nil, errors.New("connector is required")
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Engine{cfg: cfg, connector: connector, metrics: reg}, nil
}

// Run loads every CSV file named by sources and returns the number of
// rows submitted. The first partition failure is returned once all
// partitions already in flight have finished; partitions not yet started
// are skipped.
func (e *Engine) Run(ctx context.Context, sources ...string) (RunResult, error) {
	res := RunResult{RunID: uuid.NewString()}

	files, err := ResolveSources(sources...)
	if err != nil {
		return res, err
	}
	res.Files = files

	var parts []Partition
	for _, path := range files {
		p, err := PlanFile(path, e.cfg.BlockSize)
		if err != nil {
			return res, err
		}
		parts = append(parts, p...)
	}
	for i := range parts {
		parts[i].Index = i
	}
	log.Printf("[%s] ingesting %d file(s) as %d partition(s) into %s with %d worker(s)",
		res.RunID, len(files), len(parts), e.cfg.Table, e.cfg.Workers)

	results := make([]PartitionResult, len(parts))
	var (
		g      errgroup.Group
		failed atomic.Bool
		mu     sync.Mutex
		total  int64
	)
	g.SetLimit(e.cfg.Workers)
	for i, p := range parts {
		i, p := i, p
		g.Go(func() error {
			if failed.Load() {
				return nil
			}
			pr, err := e.IngestPartition(ctx, p)
			results[i] = pr
			mu.Lock()
			total += pr.Rows
			mu.Unlock()
			if err != nil {
				failed.Store(true)
				e.metrics.PartitionFailures.Inc()
				log.Printf("[%s] partition %s failed after %d rows: %v", res.RunID, p, pr.Rows, err)
				return &PartitionError{Partition: p, Written: pr.Rows, Err: err}
			}
			e.metrics.PartitionsProcessed.Inc()
			return nil
		})
	}
	err = g.Wait()

	res.Partitions = results
	res.Total = total
	if err != nil {
		return res, err
	}
	log.Printf("[%s] inserted %d records into %s", res.RunID, res.Total, e.cfg.Table)
	return res, nil
}

// IngestPartition coerces and writes one partition through its own
// connection, flushing every BatchSize rows and once more at the end. The
// connection is closed on every path. The returned result counts rows
// committed even when an error is returned.
func (e *Engine) IngestPartition(ctx context.Context, p Partition) (res PartitionResult, err error) {
	res.Partition = p

	f, err := os.Open(p.Path)
	if err != nil {
		return res, fmt.Errorf("failed to open %s: %w", p.Path, err)
	}
	defer f.Close()

	w, err := e.connector.Connect(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close connection: %w", cerr)
		}
	}()

	index := columnIndex(p.Header)
	r := csv.NewReader(io.NewSectionReader(f, p.Start, p.End-p.Start))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	batch := make([][]any, 0, e.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		if err := w.WriteBatch(ctx, batch); err != nil {
			e.metrics.BatchFailures.Inc()
			return fmt.Errorf("failed to write batch of %d rows: %w", len(batch), err)
		}
		e.metrics.BatchLatencySec.Observe(time.Since(start).Seconds())
		e.metrics.BatchesCommitted.Inc()
		e.metrics.RowsInserted.Add(float64(len(batch)))
		res.Rows += int64(len(batch))
		res.Batches++
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			res.BadLines++
			e.metrics.BadLines.Inc()
			continue
		}
		if err != nil {
			return res, fmt.Errorf("failed to read %s: %w", p, err)
		}

		batch = append(batch, e.coerceRow(rec, index))
		if len(batch) >= e.cfg.BatchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}

// columnIndex maps each products column to its position in header, or -1
// when the file lacks it. Missing columns load as NULL.
func columnIndex(header []string) []int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	index := make([]int, len(models.ProductColumns))
	for i, c := range models.ProductColumns {
		if j, ok := pos[c.Name]; ok {
			index[i] = j
		} else {
			index[i] = -1
		}
	}
	return index
}

func (e *Engine) coerceRow(rec []string, index []int) []any {
	row := make([]any, len(models.ProductColumns))
	for i, c := range models.ProductColumns {
		j := index[i]
		if j < 0 || j >= len(rec) {
			continue
		}
		row[i] = coerce.Field(rec[j], c.Kind)
		if row[i] == nil {
			e.metrics.NullCells.WithLabelValues(c.Name).Inc()
		}
	}
	return row
}
