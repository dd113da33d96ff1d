package ltm

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexlapax/careercoach/pkg/log"
)

// CompositeStore pairs a VectorIndex, which cannot list by recency, with a
// Ledger that can. Together they satisfy Store.
type CompositeStore struct {
	index  VectorIndex
	ledger Ledger
}

var _ Store = (*CompositeStore)(nil)

// NewCompositeStore builds a Store from an index and a ledger.
func NewCompositeStore(index VectorIndex, ledger Ledger) *CompositeStore {
	return &CompositeStore{index: index, ledger: ledger}
}

// Store writes the index first and the ledger second. If the ledger write
// fails the index entry is removed again so no half-record stays retrievable.
func (c *CompositeStore) Store(ctx context.Context, record MemoryRecord) (string, error) {
	record, err := Prepare(record)
	if err != nil {
		return "", err
	}
	if len(record.Embedding) == 0 {
		return "", fmt.Errorf("record %s has no embedding", record.ID)
	}

	if err := c.index.Add(ctx, record); err != nil {
		return "", fmt.Errorf("failed to index record: %w", err)
	}

	if err := c.ledger.Append(ctx, record); err != nil {
		if derr := c.index.Delete(ctx, record.UserID, record.ID); derr != nil {
			log.WarnContext(ctx, "Failed to roll back index entry",
				"record_id", record.ID, "user_id", record.UserID, "error", derr)
		}
		return "", fmt.Errorf("failed to append record to ledger: %w", err)
	}

	return record.ID, nil
}

// Recent delegates to the ledger.
func (c *CompositeStore) Recent(ctx context.Context, userID string, limit int) ([]MemoryRecord, error) {
	if limit <= 0 {
		return []MemoryRecord{}, nil
	}
	return c.ledger.Recent(ctx, userID, limit)
}

// Search delegates to the index.
func (c *CompositeStore) Search(ctx context.Context, userID string, embedding []float32, limit int) ([]ScoredRecord, error) {
	if limit <= 0 {
		return []ScoredRecord{}, nil
	}
	return c.index.Search(ctx, userID, embedding, limit)
}

// Delete removes the record from both halves.
func (c *CompositeStore) Delete(ctx context.Context, userID, id string) error {
	return errors.Join(
		c.index.Delete(ctx, userID, id),
		c.ledger.Delete(ctx, userID, id),
	)
}
