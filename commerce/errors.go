package commerce

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
)

// ErrorClassifier interprets commerce API error responses. Keeping the
// payload parsing behind this interface lets the duplicate-id format change
// without touching the retry state machine.
type ErrorClassifier interface {
	// DuplicateKey reports whether err is a duplicate-key rejection and,
	// if so, the numeric id of the already-stored (possibly orphaned)
	// record embedded in the payload.
	DuplicateKey(err error) (int64, bool)
	// NotFound reports whether err is a 404.
	NotFound(err error) bool
}

// payloadClassifier parses the stock error payload: a 400 whose body
// mentions a duplicate key and carries the offending record id.
type payloadClassifier struct{}

// NewClassifier returns the classifier for the stock API error format.
func NewClassifier() ErrorClassifier {
	return payloadClassifier{}
}

var duplicateIDPattern = regexp.MustCompile(`(?i)(?:"id"\s*:\s*"?|id[ =:#]+)(\d+)`)

func (payloadClassifier) DuplicateKey(err error) (int64, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}
	if apiErr.Status != http.StatusBadRequest {
		return 0, false
	}
	body := string(apiErr.Body)
	if !strings.Contains(strings.ToLower(body), "duplicate") {
		return 0, false
	}
	m := duplicateIDPattern.FindStringSubmatch(body)
	if len(m) < 2 {
		return 0, false
	}
	id, parseErr := ProductID(m[1])
	if parseErr != nil {
		return 0, false
	}
	return id, true
}

func (payloadClassifier) NotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
