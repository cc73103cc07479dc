package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/medreg/internal/pkg/logger"
	"github.com/ignite/medreg/internal/schema"
)

const (
	// DefaultWorkers bounds the concurrent row pipeline. Each worker holds
	// at most one store connection, so this also caps connection pressure.
	DefaultWorkers = 8

	// failureSampleSize caps how many failure details an outcome carries.
	// The failure count itself is always exact.
	failureSampleSize = 5
)

// Failure kinds recorded in an ImportOutcome.
const (
	FailureValidation  = "validation"
	FailurePersistence = "persistence"
)

// Persister writes one validated row to the store. Implemented by
// store.Store; tests substitute stubs.
type Persister interface {
	Insert(ctx context.Context, row schema.Row) (int64, error)
}

// FailureDetail describes one rejected row.
type FailureDetail struct {
	Kind   string     `json:"kind"`
	Reason string     `json:"reason"`
	Row    schema.Row `json:"row"`
}

// ImportOutcome aggregates one import run. Imported + Failed covers every
// data row exactly once; Failures is a bounded sample whose membership may
// vary between runs of the same file (workers race), but the counts do not.
type ImportOutcome struct {
	RunID      string          `json:"run_id"`
	Source     string          `json:"source"`
	Imported   int             `json:"imported"`
	Failed     int             `json:"failed"`
	Failures   []FailureDetail `json:"failures,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

// Coordinator runs the full import: fetch, parse, then a per-row
// normalize → map → validate → persist pipeline over a bounded worker
// pool. Row failures are isolated; only unreadable or unparseable sources
// abort the run.
type Coordinator struct {
	persister Persister
	fetcher   *SourceFetcher
	workers   int
}

// NewCoordinator builds a Coordinator. workers <= 0 selects DefaultWorkers.
func NewCoordinator(p Persister, fetcher *SourceFetcher, workers int) *Coordinator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if fetcher == nil {
		fetcher = NewSourceFetcher()
	}
	return &Coordinator{persister: p, fetcher: fetcher, workers: workers}
}

// ImportSource imports from a source identifier (local path or s3:// URL).
func (c *Coordinator) ImportSource(ctx context.Context, source string) (*ImportOutcome, error) {
	data, err := c.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return c.importData(ctx, data, source)
}

// ImportReader imports from an already-open byte stream, e.g. an HTTP
// upload. source is used for diagnostics only.
func (c *Coordinator) ImportReader(ctx context.Context, r io.Reader, source string) (*ImportOutcome, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ReadError{Source: source, Err: err}
	}
	return c.importData(ctx, data, source)
}

type rowResult struct {
	row schema.Row
	err error
}

func (c *Coordinator) importData(ctx context.Context, data []byte, source string) (*ImportOutcome, error) {
	start := time.Now()
	outcome := &ImportOutcome{
		RunID:  uuid.New().String(),
		Source: source,
	}

	reader := csv.NewReader(bytes.NewReader(stripBOM(data)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	if len(records) == 0 {
		outcome.DurationMS = time.Since(start).Milliseconds()
		return outcome, nil
	}

	mapping := MapHeaders(records[0])
	dataRows := records[1:]

	logger.Info("import started",
		"run_id", outcome.RunID,
		"source", source,
		"rows", len(dataRows),
		"mapped_columns", mapping.Mapped(),
		"workers", c.workers)

	jobs := make(chan []string)
	results := make(chan rowResult)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				results <- c.processRow(ctx, mapping, rec)
			}
		}()
	}

	go func() {
		for _, rec := range dataRows {
			jobs <- rec
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	// Single-reducer aggregation: counts are never touched from more than
	// one goroutine.
	for res := range results {
		if res.err == nil {
			outcome.Imported++
			continue
		}
		outcome.Failed++
		if len(outcome.Failures) < failureSampleSize {
			outcome.Failures = append(outcome.Failures, failureFor(res))
		}
	}

	outcome.DurationMS = time.Since(start).Milliseconds()
	logger.Info("import complete",
		"run_id", outcome.RunID,
		"source", source,
		"imported", outcome.Imported,
		"failed", outcome.Failed,
		"duration_ms", outcome.DurationMS)
	return outcome, nil
}

// processRow runs one row through the full pipeline. Every error return is
// row-scoped; the caller records it and moves on.
func (c *Coordinator) processRow(ctx context.Context, mapping HeaderMapping, rec []string) rowResult {
	row := MapRow(mapping, rec)
	if err := Validate(row); err != nil {
		return rowResult{row: row, err: err}
	}
	if _, err := c.persister.Insert(ctx, row); err != nil {
		return rowResult{row: row, err: err}
	}
	return rowResult{row: row}
}

func failureFor(res rowResult) FailureDetail {
	var verr *ValidationError
	if errors.As(res.err, &verr) {
		return FailureDetail{Kind: FailureValidation, Reason: verr.Reason, Row: verr.Row}
	}
	return FailureDetail{Kind: FailurePersistence, Reason: res.err.Error(), Row: res.row}
}
