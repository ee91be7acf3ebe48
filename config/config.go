package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds ingestion run configuration.
type Config struct {
	InputFile          string
	Timeout            time.Duration
	MaxRetries         int
	RetryBackoff       time.Duration
	RetryBackoffMax    time.Duration
	RequestsPerSecond  float64
	UserAgent          string
	MaxImages          int
	MaxImageDim        int
	DownloadWorkers    int
	UploadWorkers      int
	CommerceURL        string
	SyncMaxAttempts    int
	PriceTolerance     float64
	OutputFile         string
	OutputFormat       string // csv, json, or dual
	PipelineWorkers    int
	PipelineBufferSize int
	BatchSize          int
	MetricsAddr        string
	Verbose            bool
}

// DefaultConfig returns conservative defaults for an ingestion run.
func DefaultConfig() *Config {
	return &Config{
		InputFile:          "input/products.txt",
		Timeout:            15 * time.Second,
		MaxRetries:         3,
		RetryBackoff:       500 * time.Millisecond,
		RetryBackoffMax:    5 * time.Second,
		RequestsPerSecond:  2,
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		MaxImages:          8,
		MaxImageDim:        1600,
		DownloadWorkers:    4,
		UploadWorkers:      3,
		SyncMaxAttempts:    5,
		PriceTolerance:     0.01,
		OutputFile:         "output/products.csv",
		OutputFormat:       "csv",
		PipelineWorkers:    2,
		PipelineBufferSize: 256,
		BatchSize:          32,
		MetricsAddr:        "",
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.MaxImages <= 0 {
		return fmt.Errorf("max images must be positive")
	}
	if c.MaxImageDim <= 0 {
		return fmt.Errorf("max image dimension must be positive")
	}
	if c.DownloadWorkers <= 0 {
		return fmt.Errorf("download workers must be positive")
	}
	if c.UploadWorkers <= 0 {
		return fmt.Errorf("upload workers must be positive")
	}
	if c.CommerceURL != "" {
		parsed, err := url.Parse(c.CommerceURL)
		if err != nil {
			return fmt.Errorf("invalid commerce URL: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("commerce URL must include a host")
		}
	}
	if c.SyncMaxAttempts <= 0 {
		return fmt.Errorf("sync max attempts must be positive")
	}
	if c.PriceTolerance < 0 {
		return fmt.Errorf("price tolerance cannot be negative")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.PipelineWorkers <= 0 {
		return fmt.Errorf("pipeline workers must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	return nil
}

// EnvString returns the named environment variable and whether it was set.
func EnvString(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses the named environment variable as an integer.
func EnvInt(name string) (int, bool, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", name, err)
	}
	return parsed, true, nil
}
