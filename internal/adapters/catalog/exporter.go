package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cheeseshop/internal/blob"
	"cheeseshop/internal/core"
	"cheeseshop/pkg/domain"
)

// ExportFormat names a rendered catalog artifact.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// ParseExportFormat accepts json or csv in any case.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact is one stored rendering of the catalog.
type ExportArtifact struct {
	Key         string       `json:"key"`
	Format      ExportFormat `json:"format"`
	ContentType string       `json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	URL         string       `json:"url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportRecord tracks an export request and its artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Formats     []ExportFormat   `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Producers   int              `json:"producers"`
	Cheeses     int              `json:"cheeses"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportInput is an enqueue request.
type ExportInput struct {
	Formats     []ExportFormat
	RequestedBy string
}

// ExportScheduler queues catalog exports and serves their results.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
	OpenArtifact(ctx context.Context, id string, format ExportFormat) (blob.Info, io.ReadCloser, error)
}

// Snapshotter reads a consistent copy of the catalog.
type Snapshotter interface {
	Snapshot(ctx context.Context) (core.CatalogSnapshot, error)
}

// ErrQueueFull is returned when the worker cannot accept more jobs.
var ErrQueueFull = errors.New("export queue full")

const defaultQueueSize = 32

// Worker renders catalog exports asynchronously into a blob store.
type Worker struct {
	source Snapshotter
	store  blob.Store
	logger *slog.Logger

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs an export worker. A nil logger discards output.
func NewWorker(source Snapshotter, store blob.Store, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		logger: logger,
		queue:  make(chan string, defaultQueueSize),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing queued exports.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the current job.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(w.ctx, id)
		}
	}
}

// EnqueueExport registers a queued record and hands it to the worker loop.
func (w *Worker) EnqueueExport(_ context.Context, input ExportInput) (ExportRecord, error) {
	record := w.register(input)
	select {
	case w.queue <- record.ID:
	default:
		w.mu.Lock()
		delete(w.jobs, record.ID)
		w.mu.Unlock()
		w.logger.Warn("export.rejected", "export_id", record.ID, "error", ErrQueueFull.Error())
		return ExportRecord{}, ErrQueueFull
	}
	return record, nil
}

// Run executes an export synchronously and returns the final record.
func (w *Worker) Run(ctx context.Context, input ExportInput) (ExportRecord, error) {
	record := w.register(input)
	w.process(ctx, record.ID)
	final, _ := w.GetExport(record.ID)
	if final.Status == ExportStatusFailed {
		return final, errors.New(final.Error)
	}
	return final, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

// OpenArtifact streams a stored artifact of a finished export.
func (w *Worker) OpenArtifact(ctx context.Context, id string, format ExportFormat) (blob.Info, io.ReadCloser, error) {
	record, ok := w.GetExport(id)
	if !ok {
		return blob.Info{}, nil, fmt.Errorf("export %s: %w", id, blob.ErrNotFound)
	}
	for _, a := range record.Artifacts {
		if a.Format == format {
			return w.store.Get(ctx, a.Key)
		}
	}
	return blob.Info{}, nil, fmt.Errorf("export %s has no %s artifact: %w", id, format, blob.ErrNotFound)
}

func (w *Worker) register(input ExportInput) ExportRecord {
	formats := dedupeFormats(input.Formats)
	now := time.Now().UTC()
	record := &ExportRecord{
		ID:          uuid.NewString(),
		Formats:     formats,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	w.mu.Lock()
	w.jobs[record.ID] = record
	snapshot := record.copy()
	w.mu.Unlock()
	w.logger.Info("export.queued", "export_id", record.ID, "formats", formats, "requested_by", input.RequestedBy)
	return snapshot
}

func dedupeFormats(in []ExportFormat) []ExportFormat {
	if len(in) == 0 {
		return []ExportFormat{FormatJSON, FormatCSV}
	}
	seen := make(map[ExportFormat]struct{}, len(in))
	out := make([]ExportFormat, 0, len(in))
	for _, f := range in {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func (w *Worker) process(ctx context.Context, id string) {
	record, ok := w.GetExport(id)
	if !ok {
		return
	}
	w.update(id, func(r *ExportRecord) { r.Status = ExportStatusRunning })

	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		w.fail(id, fmt.Sprintf("snapshot catalog: %v", err))
		return
	}
	cheeses := 0
	for _, p := range snap.Producers {
		cheeses += len(p.Cheeses)
	}

	artifacts := make([]ExportArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		payload, contentType, err := render(format, snap)
		if err != nil {
			w.fail(id, err.Error())
			return
		}
		key := fmt.Sprintf("exports/%s/catalog.%s", id, format)
		info, err := w.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"export-id": id, "format": string(format)},
		})
		if err != nil {
			w.fail(id, fmt.Sprintf("store %s artifact: %v", format, err))
			return
		}
		artifact := ExportArtifact{
			Key:         info.Key,
			Format:      format,
			ContentType: contentType,
			SizeBytes:   info.Size,
			CreatedAt:   info.LastModified,
		}
		if url, err := w.store.SignedURL(ctx, info.Key, blob.SignedURLOptions{}); err == nil {
			artifact.URL = url
		}
		artifacts = append(artifacts, artifact)
	}

	now := time.Now().UTC()
	w.update(id, func(r *ExportRecord) {
		r.Status = ExportStatusSucceeded
		r.Error = ""
		r.Producers = len(snap.Producers)
		r.Cheeses = cheeses
		r.Artifacts = artifacts
		r.CompletedAt = &now
	})
	w.logger.Info("export.succeeded", "export_id", id, "artifacts", len(artifacts))
}

func (w *Worker) update(id string, mutate func(*ExportRecord)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if record, ok := w.jobs[id]; ok {
		mutate(record)
		record.UpdatedAt = time.Now().UTC()
	}
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.update(id, func(r *ExportRecord) {
		r.Status = ExportStatusFailed
		r.Error = reason
		r.CompletedAt = &now
	})
	w.logger.Error("export.failed", "export_id", id, "error", reason)
}

type catalogDocument struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Producers   []domain.ProducerDetail `json:"producers"`
}

var csvHeader = []string{"cheese_id", "producer_id", "producer_name", "kind", "is_raw_milk", "production_date", "price", "image"}

func render(format ExportFormat, snap core.CatalogSnapshot) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(catalogDocument{GeneratedAt: snap.TakenAt.UTC(), Producers: snap.Producers}, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write(csvHeader); err != nil {
			return nil, "", err
		}
		for _, p := range snap.Producers {
			for _, c := range p.Cheeses {
				image := ""
				if c.Image != nil {
					image = *c.Image
				}
				row := []string{
					strconv.FormatInt(c.ID, 10),
					strconv.FormatInt(p.ID, 10),
					p.Name,
					c.Kind,
					strconv.FormatBool(c.IsRawMilk),
					c.ProductionDate,
					decimal.NewFromFloat(c.Price).StringFixed(2),
					image,
				}
				if err := writer.Write(row); err != nil {
					return nil, "", err
				}
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %s", format)
	}
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]ExportFormat(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		dup.CompletedAt = &at
	}
	return dup
}
