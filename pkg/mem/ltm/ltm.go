package ltm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MemoryRecord represents a single interaction persisted to a user's memory space.
type MemoryRecord struct {
	// ID is a unique, time-ordered identifier for the record
	ID string `json:"id"`

	// UserID owns the memory space the record lives in
	UserID string `json:"user_id"`

	// Content is the raw interaction text
	Content string `json:"content"`

	// Metadata holds scalar tags; "type" is always present for records written by the MMU
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Embedding is the vector representation used for similarity search
	Embedding []float32 `json:"embedding,omitempty"`

	// CreatedAt is when this memory was stored
	CreatedAt time.Time `json:"created_at"`
}

// ScoredRecord is a record returned by a similarity search.
type ScoredRecord struct {
	MemoryRecord

	// Distance to the query embedding; lower is closer. Nil means unknown.
	Distance *float32
}

// Store is a complete long-term memory backend. Every method is confined to
// the memory space of a single user.
type Store interface {
	// Store persists a record. Records without an embedding are rejected.
	Store(ctx context.Context, record MemoryRecord) (string, error)

	// Recent lists up to limit records, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]MemoryRecord, error)

	// Search returns up to limit records sorted by ascending distance to embedding.
	Search(ctx context.Context, userID string, embedding []float32, limit int) ([]ScoredRecord, error)

	// Delete removes a record. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, userID, id string) error
}

// VectorIndex is the similarity half of a Store.
type VectorIndex interface {
	Add(ctx context.Context, record MemoryRecord) error
	Search(ctx context.Context, userID string, embedding []float32, limit int) ([]ScoredRecord, error)
	Delete(ctx context.Context, userID, id string) error
}

// Ledger is the recency half of a Store.
type Ledger interface {
	Append(ctx context.Context, record MemoryRecord) error
	Recent(ctx context.Context, userID string, limit int) ([]MemoryRecord, error)
	Delete(ctx context.Context, userID, id string) error
}

// NewRecordID returns a UUIDv7 so IDs sort by creation time.
func NewRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Prepare fills in the ID and timestamp and sanitizes metadata. It is applied by
// every adapter before a record is written.
func Prepare(record MemoryRecord) (MemoryRecord, error) {
	if record.UserID == "" {
		return record, fmt.Errorf("record has no user ID")
	}
	if record.ID == "" {
		record.ID = NewRecordID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.Metadata = SanitizeMetadata(record.Metadata)
	return record, nil
}

// SanitizeMetadata drops nil values and flattens anything that is not a
// string, bool or number into its JSON text.
func SanitizeMetadata(metadata map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case nil:
			continue
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64, json.Number:
			out[k] = val
		case *float64:
			if val != nil {
				out[k] = *val
			}
		default:
			b, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

// Clamp bounds a caller-supplied limit to the number of available items.
func Clamp(limit, available int) int {
	if limit > available {
		return available
	}
	if limit < 0 {
		return 0
	}
	return limit
}
