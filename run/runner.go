// Package run orchestrates an ingestion run: one product at a time through
// resolve, fetch, extract, classify, identify, media, export, and sync.
package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/partdesk/ingest/classify"
	"github.com/partdesk/ingest/commerce"
	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/extract"
	"github.com/partdesk/ingest/fetch"
	"github.com/partdesk/ingest/media"
	"github.com/partdesk/ingest/models"
	"github.com/partdesk/ingest/pipeline"
	"github.com/partdesk/ingest/sku"
	"github.com/partdesk/ingest/supplier"
)

// Runner drives one ingestion run. All mutable run state (the identifier
// sequence, the media pipeline caches) lives here, scoped to the run.
type Runner struct {
	cfg      *config.Config
	registry *supplier.Registry
	engine   *commerce.Engine
	media    *media.Pipeline
	pipe     *pipeline.Pipeline
	seq      *sku.Sequence
	Metrics  *Metrics

	stopped atomic.Bool

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int
}

// New wires a runner. engine may be nil for export-only runs (no commerce
// backend configured).
func New(cfg *config.Config, registry *supplier.Registry, engine *commerce.Engine, mediaPipe *media.Pipeline, pipe *pipeline.Pipeline) *Runner {
	return &Runner{
		cfg:          cfg,
		registry:     registry,
		engine:       engine,
		media:        mediaPipe,
		pipe:         pipe,
		seq:          &sku.Sequence{},
		Metrics:      NewMetrics(),
		errorsByType: make(map[string]int),
	}
}

// Stop requests a coarse stop: the flag is checked between products, never
// mid-product.
func (r *Runner) Stop() {
	r.stopped.Store(true)
}

// LoadTasks reads the ordered input list from a file.
func LoadTasks(path string) ([]models.ScrapeTask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input list: %w", err)
	}
	defer f.Close()

	var tasks []models.ScrapeTask
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if task, ok := models.ParseTask(scanner.Text()); ok {
			tasks = append(tasks, task)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input list: %w", err)
	}
	return tasks, nil
}

// Run processes tasks sequentially. Every per-task error is absorbed at
// the task boundary; one failing product never aborts the batch.
func (r *Runner) Run(ctx context.Context, tasks []models.ScrapeTask) (*models.RunResult, error) {
	result := &models.RunResult{StartTime: time.Now()}

	for i, task := range tasks {
		if r.stopped.Load() || ctx.Err() != nil {
			slog.Info("stop requested, leaving remaining tasks",
				slog.Int("done", i),
				slog.Int("remaining", len(tasks)-i),
			)
			result.Skipped += len(tasks) - i
			break
		}

		start := time.Now()
		outcome := r.process(ctx, task)
		r.Metrics.ObserveTask(time.Since(start))
		r.Metrics.IncTask(outcome)

		switch outcome {
		case "succeeded":
			result.Succeeded++
		case "skipped":
			result.Skipped++
		default:
			result.Failed++
		}
	}

	result.EndTime = time.Now()
	result.RetryCount = r.registry.Retries()
	r.mu.Lock()
	result.FailedURLs = append([]string(nil), r.failedURLs...)
	result.ErrorsByType = make(map[string]int, len(r.errorsByType))
	for k, v := range r.errorsByType {
		result.ErrorsByType[k] = v
	}
	r.mu.Unlock()
	return result, nil
}

// process runs one task to its terminal outcome: "succeeded", "failed",
// or "skipped".
func (r *Runner) process(ctx context.Context, task models.ScrapeTask) string {
	adapter, pageURL, err := r.resolve(ctx, task)
	if err != nil {
		return r.fail(task, err)
	}
	if adapter == nil {
		slog.Info("no supplier for task, skipping", slog.String("task", task.Raw))
		return "skipped"
	}

	page, err := adapter.FetchAndParse(ctx, pageURL)
	if err != nil {
		return r.fail(task, err)
	}

	record := adapter.Extract(page)

	classified := classify.Classify(classify.Input{
		Name:         record.Name,
		Description:  record.Description,
		URL:          record.SourceURL,
		Tags:         record.Tags,
		OverrideCode: task.OverrideCode,
	})
	record.Category = classified.Category
	record.Attributes = models.Attributes{
		Model:       classified.Model,
		QualityTier: classified.QualityTier,
		PartBrand:   classified.PartBrand,
		Technology:  classified.Technology,
	}
	record.WarrantyMonths = classified.WarrantyMonths

	if len(record.Tags) == 0 {
		record.Tags = extract.SynthesizeTags(record.Name, record.Category, []string{
			classified.Model, classified.QualityTier, classified.PartBrand, classified.Technology,
		})
	}

	record.InternalSKU = sku.Build(
		sku.TypeCode(record.Category, record.Name),
		sku.ModelCode(classified.Model),
		sku.BrandCode(classified.PartBrand),
		r.seq.Next(),
	)

	if r.media != nil {
		assets, imageURLs := r.media.Process(ctx, page, record.InternalSKU)
		record.Images = imageURLs
		r.Metrics.AddImages(len(assets))
	}

	if r.engine != nil {
		r.Metrics.IncSyncAttempt()
		if _, err := r.engine.Sync(ctx, record); err != nil {
			return r.fail(task, err)
		}
	}

	// export after sync: a rekeyed create must surface its final
	// identifier in the output file
	if err := r.pipe.Process(record); err != nil {
		return r.fail(task, err)
	}

	slog.Info("product processed",
		slog.String("sku", record.InternalSKU),
		slog.String("name", record.Name),
		slog.String("category", record.Category),
		slog.String("url", record.SourceURL),
	)
	return "succeeded"
}

// resolve finds the adapter and product URL for one task. Direct URLs map
// to the adapter owning their host; bare identifiers are tried against
// every keyword-searchable supplier in order.
func (r *Runner) resolve(ctx context.Context, task models.ScrapeTask) (supplier.Adapter, string, error) {
	if task.URL != "" {
		return r.registry.ForURL(task.URL), task.URL, nil
	}

	for _, adapter := range r.registry.Searchable() {
		resolved, err := adapter.ResolveURL(ctx, task.Identifier)
		if err != nil {
			var notFound fetch.ErrNotFound
			if errors.As(err, &notFound) {
				continue
			}
			slog.Warn("search failed",
				slog.String("supplier", adapter.Name()),
				slog.String("identifier", task.Identifier),
				slog.Any("error", err),
			)
			continue
		}
		return adapter, resolved, nil
	}
	return nil, "", fetch.ErrNotFound{URL: task.Identifier}
}

func (r *Runner) fail(task models.ScrapeTask, err error) string {
	label := fetch.TypeLabel(err)

	r.mu.Lock()
	r.errorsByType[label]++
	r.failedURLs = append(r.failedURLs, task.Raw)
	r.mu.Unlock()
	r.Metrics.IncError(label)

	slog.Warn("task failed, batch continues",
		slog.String("task", task.Raw),
		slog.String("category", label),
		slog.Any("error", err),
	)
	return "failed"
}
