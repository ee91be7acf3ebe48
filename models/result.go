package models

import "time"

// RunResult holds the overall outcome of one ingestion run.
type RunResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Succeeded    int
	Failed       int
	Skipped      int
	FailedURLs   []string
	ErrorsByType map[string]int
	RetryCount   int
}
