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
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/partdesk/ingest/commerce"
	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/fetch"
	"github.com/partdesk/ingest/media"
	"github.com/partdesk/ingest/models"
	"github.com/partdesk/ingest/pipeline"
	"github.com/partdesk/ingest/run"
	"github.com/partdesk/ingest/supplier"
)

func main() {
	defaultCfg := config.DefaultConfig()
	inputDefault := defaultCfg.InputFile
	if value, ok := config.EnvString("INGEST_INPUT"); ok {
		inputDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("INGEST_OUTPUT"); ok {
		outputDefault = value
	}
	commerceDefault := defaultCfg.CommerceURL
	if value, ok := config.EnvString("INGEST_COMMERCE_URL"); ok {
		commerceDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("INGEST_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	maxImagesDefault := defaultCfg.MaxImages
	if value, ok, err := config.EnvInt("INGEST_MAX_IMAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid INGEST_MAX_IMAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		maxImagesDefault = value
	}

	inputFile := flag.String("input", inputDefault, "Input list of product URLs or identifiers")
	suppliersFile := flag.String("suppliers", "", "Supplier config file (JSON); built-in suppliers when empty")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", "csv", "Output format: csv, json, or dual")
	commerceURL := flag.String("commerce-url", commerceDefault, "Commerce API base URL; export-only when empty")
	rps := flag.Float64("rps", defaultCfg.RequestsPerSecond, "Maximum requests per second per supplier")
	timeoutMs := flag.Int("timeout", int(defaultCfg.Timeout/time.Millisecond), "Request timeout (milliseconds)")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum retry attempts per request")
	maxImages := flag.Int("max-images", maxImagesDefault, "Maximum images per product")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.InputFile = *inputFile
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.CommerceURL = *commerceURL
	cfg.RequestsPerSecond = *rps
	cfg.Timeout = time.Duration(*timeoutMs) * time.Millisecond
	cfg.MaxRetries = *maxRetries
	cfg.MaxImages = *maxImages
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	suppliers, err := loadSuppliers(*suppliersFile)
	if err != nil {
		slog.Error("loading suppliers", slog.Any("error", err))
		os.Exit(1)
	}
	registry := supplier.NewRegistry(cfg, suppliers)
	if registry.Len() == 0 {
		slog.Error("no enabled suppliers")
		os.Exit(1)
	}

	tasks, err := run.LoadTasks(cfg.InputFile)
	if err != nil {
		slog.Error("loading input list", slog.Any("error", err))
		os.Exit(1)
	}
	if len(tasks) == 0 {
		slog.Error("input list is empty", slog.String("file", cfg.InputFile))
		os.Exit(1)
	}

	// The commerce token only ever lives in the environment.
	var engine *commerce.Engine
	var uploader media.Uploader
	if cfg.CommerceURL != "" {
		token, ok := config.EnvString("INGEST_COMMERCE_TOKEN")
		if !ok {
			slog.Error("INGEST_COMMERCE_TOKEN is required when a commerce URL is set")
			os.Exit(1)
		}
		client := commerce.NewClient(cfg.CommerceURL, token, cfg.Timeout)
		engine = commerce.NewEngine(client, commerce.NewClassifier(), cfg)
		uploader = client
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	mediaFetcher := fetch.New(cfg, fetch.HeaderProfile{UserAgent: cfg.UserAgent})
	mediaPipe := media.NewPipeline(mediaFetcher, uploader, cfg)

	p := pipeline.NewPipeline(writer, cfg)
	p.Start(cfg.PipelineWorkers)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	runner := run.New(cfg, registry, engine, mediaPipe, p)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current product")
		runner.Stop()
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(runner.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting ingestion run",
		slog.Int("tasks", len(tasks)),
		slog.Int("suppliers", registry.Len()),
		slog.Bool("sync", engine != nil),
	)

	result, err := runner.Run(ctx, tasks)
	if err != nil {
		slog.Error("ingestion run failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, cfg.OutputFile, p.GetMetrics())
}

func loadSuppliers(path string) ([]config.SupplierConfig, error) {
	if path == "" {
		return config.BuiltinSuppliers(), nil
	}
	return config.LoadSuppliers(path)
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.RunResult, outputFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Ingestion complete")

	total := result.Succeeded + result.Failed + result.Skipped
	fmt.Printf("  Products:      %d\n", total)
	fmt.Printf("  Succeeded:     %d\n", result.Succeeded)
	fmt.Printf("  Failed:        %d\n", result.Failed)
	fmt.Printf("  Skipped:       %d\n", result.Skipped)
	if result.RetryCount > 0 {
		fmt.Printf("  Retries:       %d\n", result.RetryCount)
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if len(result.FailedURLs) > 0 {
		fmt.Printf("  Failed inputs: %d\n", len(result.FailedURLs))
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
