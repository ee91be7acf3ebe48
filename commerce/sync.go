package commerce

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/models"
)

// SyncAttempt tracks one create/update call. It lives for the duration of
// the call and is discarded on the terminal outcome.
type SyncAttempt struct {
	Key       string
	Attempt   int
	LastError string
}

// Engine stages product records into the commerce backend. Creates run a
// bounded per-attempt state machine with duplicate-key recovery; updates
// verify the persisted price against a small tolerance.
type Engine struct {
	client      *Client
	classifier  ErrorClassifier
	maxAttempts int
	tolerance   float64

	// suffix mints the random segment for rekeyed identifiers; swapped
	// in tests for a deterministic source.
	suffix func() string
}

// NewEngine builds a sync engine.
func NewEngine(client *Client, classifier ErrorClassifier, cfg *config.Config) *Engine {
	return &Engine{
		client:      client,
		classifier:  classifier,
		maxAttempts: cfg.SyncMaxAttempts,
		tolerance:   cfg.PriceTolerance,
		suffix:      randomSuffix,
	}
}

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}

// Sync creates the record remotely, or updates it when a product with the
// same internal SKU already exists. Returns the remote product id.
func (e *Engine) Sync(ctx context.Context, record *models.ProductRecord) (int64, error) {
	existing, err := e.client.FindBySKU(ctx, record.InternalSKU)
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", record.InternalSKU, err)
	}
	if existing != nil {
		return existing.ID, e.Update(ctx, existing.ID, record)
	}
	return e.Create(ctx, record)
}

// Create runs the per-attempt state machine:
// ATTEMPT -> SUCCESS, or
// ATTEMPT -> DUPLICATE_KEY -> CLEANUP -> (RETRY_SAME_KEY | REKEY_RETRY), or
// ATTEMPT -> OTHER_ERROR -> REKEY_RETRY,
// terminating after the bounded attempt budget. On a duplicate key the
// orphaned id is parsed out of the payload and deleted; a successful delete
// earns exactly one retry with the identical key, a failed delete mints a
// fresh key never attempted in this run.
func (e *Engine) Create(ctx context.Context, record *models.ProductRecord) (int64, error) {
	key := record.InternalSKU
	attempted := map[string]struct{}{key: {}}
	sameKeyRetried := false
	attempt := SyncAttempt{Key: key}

	for attempt.Attempt = 1; attempt.Attempt <= e.maxAttempts; attempt.Attempt++ {
		attempt.Key = key
		id, err := e.client.CreateProduct(ctx, e.toProduct(record, key))
		if err == nil {
			record.InternalSKU = key
			e.verifyCreate(ctx, id, key)
			return id, nil
		}

		if orphanID, ok := e.classifier.DuplicateKey(err); ok {
			attempt.LastError = "duplicate_key"
			slog.Warn("duplicate key, cleaning up orphan",
				slog.String("key", key),
				slog.Int64("orphan_id", orphanID),
				slog.Int("attempt", attempt.Attempt),
			)
			if delErr := e.client.DeleteProduct(ctx, orphanID); delErr == nil {
				if !sameKeyRetried {
					sameKeyRetried = true
					continue
				}
			} else {
				slog.Warn("orphan delete failed, rekeying",
					slog.Int64("orphan_id", orphanID),
					slog.Any("error", delErr),
				)
			}
			key = e.rekey(record.InternalSKU, attempted)
			continue
		}

		attempt.LastError = "other"
		slog.Warn("create failed, retrying with new key",
			slog.String("key", key),
			slog.Int("attempt", attempt.Attempt),
			slog.Any("error", err),
		)
		key = e.rekey(record.InternalSKU, attempted)
	}

	return 0, fmt.Errorf("create %s: %d attempts exhausted (last error %s)",
		record.InternalSKU, e.maxAttempts, attempt.LastError)
}

// verifyCreate reads the product back after a successful create. A failed
// read-back is a warning, not a rollback: the record may be a phantom
// needing manual cleanup.
func (e *Engine) verifyCreate(ctx context.Context, id int64, key string) {
	if _, err := e.client.GetProduct(ctx, id); err != nil {
		slog.Warn("post-create verification failed, possible phantom record",
			slog.Int64("id", id),
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

// Update writes a record over an existing product. The stored price is
// read first so the signed delta is logged, and re-read afterwards to
// confirm the persisted value sits within tolerance. A mismatch is logged
// but does not fail the operation.
func (e *Engine) Update(ctx context.Context, id int64, record *models.ProductRecord) error {
	current, err := e.client.GetProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("read before update %d: %w", id, err)
	}

	delta := record.Price - current.Price
	percent := 0.0
	if current.Price != 0 {
		percent = delta / current.Price * 100
	}
	slog.Info("updating product price",
		slog.Int64("id", id),
		slog.Float64("old", current.Price),
		slog.Float64("new", record.Price),
		slog.Float64("delta", delta),
		slog.String("percent", fmt.Sprintf("%+.2f%%", percent)),
	)

	if err := e.client.UpdateProduct(ctx, id, e.toProduct(record, record.InternalSKU)); err != nil {
		return fmt.Errorf("update %d: %w", id, err)
	}

	stored, err := e.client.GetProduct(ctx, id)
	switch {
	case err != nil:
		slog.Warn("post-update read failed", slog.Int64("id", id), slog.Any("error", err))
	case math.Abs(stored.Price-record.Price) > e.tolerance:
		slog.Warn("persisted price outside tolerance",
			slog.Int64("id", id),
			slog.Float64("want", record.Price),
			slog.Float64("got", stored.Price),
		)
	}
	return nil
}

// rekey mints a collision-resistant key that differs from every key
// already attempted in this call.
func (e *Engine) rekey(base string, attempted map[string]struct{}) string {
	for {
		candidate := base + "-" + e.suffix()
		if _, ok := attempted[candidate]; !ok {
			attempted[candidate] = struct{}{}
			return candidate
		}
	}
}

func (e *Engine) toProduct(record *models.ProductRecord, key string) *Product {
	return &Product{
		SKU:          key,
		Name:         record.Name,
		Price:        record.Price,
		Currency:     record.Currency,
		Description:  record.Description,
		Images:       record.Images,
		Category:     record.Category,
		Availability: record.Availability,
		Barcode:      record.Barcode,
	}
}
