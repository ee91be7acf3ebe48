package models

import "strings"

// ScrapeTask is one input line: a direct product URL, a bare identifier to
// resolve via site search, and an optional manual classification override.
type ScrapeTask struct {
	Raw          string
	URL          string
	Identifier   string
	OverrideCode string
}

// ParseTask parses one input line. Lines are either a URL, a bare
// identifier, or "URL|CODE" where CODE selects a manual classification
// override. Empty lines and comments return ok=false.
func ParseTask(line string) (ScrapeTask, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ScrapeTask{}, false
	}

	task := ScrapeTask{Raw: line}
	if idx := strings.IndexByte(line, '|'); idx >= 0 {
		task.OverrideCode = strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
	}

	if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
		task.URL = line
	} else {
		task.Identifier = line
	}
	return task, true
}
