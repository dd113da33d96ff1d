package chromem_go

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/mem/ltm"
	chromem "github.com/philippgille/chromem-go"
)

// Metadata keys written next to every document.
const (
	metaKeyUserID    = "user_id"
	metaKeyCreatedAt = "created_at"
	metaKeyType      = "type"
	metaKeyJSON      = "meta"
)

// ErrNoEmbeddingFunc is returned if chromem-go ever asks us to embed a
// document. Embeddings are always computed upstream.
var ErrNoEmbeddingFunc = errors.New("chromem-go index does not compute embeddings")

// Config configures a ChromemGoIndex.
type Config struct {
	// StoragePath is the directory for persistence. Empty means in-memory.
	StoragePath string

	// Compress gzips documents on disk
	Compress bool

	// CollectionPrefix is prepended to the user ID to name its collection
	CollectionPrefix string
}

// ChromemGoIndex is an ltm.VectorIndex keeping one chromem-go collection per user.
type ChromemGoIndex struct {
	db     *chromem.DB
	prefix string
}

var _ ltm.VectorIndex = (*ChromemGoIndex)(nil)

// NewChromemGoIndex wraps an existing chromem-go database.
func NewChromemGoIndex(db *chromem.DB, collectionPrefix string) *ChromemGoIndex {
	return &ChromemGoIndex{db: db, prefix: collectionPrefix}
}

// NewChromemGoIndexWithConfig opens (or creates) the database described by cfg.
func NewChromemGoIndexWithConfig(cfg Config) (*ChromemGoIndex, error) {
	var db *chromem.DB
	if cfg.StoragePath == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.StoragePath, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem-go database at %s: %w", cfg.StoragePath, err)
		}
	}

	log.Info("Using chromem-go vector index",
		"storage_path", cfg.StoragePath,
		"collections", len(db.ListCollections()))

	return NewChromemGoIndex(db, cfg.CollectionPrefix), nil
}

// CollectionName returns the collection backing a user's memory space.
func (c *ChromemGoIndex) CollectionName(userID string) string {
	return c.prefix + userID
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, ErrNoEmbeddingFunc
}

// Add stores the record in the user's collection, creating it on first use.
func (c *ChromemGoIndex) Add(ctx context.Context, record ltm.MemoryRecord) error {
	if len(record.Embedding) == 0 {
		return fmt.Errorf("record %s has no embedding", record.ID)
	}

	name := c.CollectionName(record.UserID)
	col, err := c.db.GetOrCreateCollection(name, map[string]string{metaKeyUserID: record.UserID}, noEmbedding)
	if err != nil {
		return fmt.Errorf("failed to open collection %s: %w", name, err)
	}

	metadata, err := encodeMetadata(record)
	if err != nil {
		return err
	}

	// chromem-go normalizes vectors in place
	embedding := make([]float32, len(record.Embedding))
	copy(embedding, record.Embedding)

	err = col.AddDocument(ctx, chromem.Document{
		ID:        record.ID,
		Content:   record.Content,
		Embedding: embedding,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to add document to %s: %w", name, err)
	}

	log.DebugContext(ctx, "Indexed record", "collection", name, "record_id", record.ID)
	return nil
}

// Search returns the nearest records in the user's collection. Distance is
// reported as 1 - cosine similarity.
func (c *ChromemGoIndex) Search(ctx context.Context, userID string, embedding []float32, limit int) ([]ltm.ScoredRecord, error) {
	col := c.db.GetCollection(c.CollectionName(userID), noEmbedding)
	if col == nil {
		return []ltm.ScoredRecord{}, nil
	}

	// QueryEmbedding rejects n larger than the collection.
	n := ltm.Clamp(limit, col.Count())
	if n == 0 {
		return []ltm.ScoredRecord{}, nil
	}

	results, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", c.CollectionName(userID), err)
	}

	out := make([]ltm.ScoredRecord, 0, len(results))
	for _, res := range results {
		rec := decodeResult(userID, res)
		d := 1 - res.Similarity
		out = append(out, ltm.ScoredRecord{MemoryRecord: rec, Distance: &d})
	}
	return out, nil
}

// Delete removes a document; a missing collection or ID is not an error.
func (c *ChromemGoIndex) Delete(ctx context.Context, userID, id string) error {
	col := c.db.GetCollection(c.CollectionName(userID), noEmbedding)
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("failed to delete %s from %s: %w", id, c.CollectionName(userID), err)
	}
	return nil
}

// Count returns the number of documents indexed for a user.
func (c *ChromemGoIndex) Count(userID string) int {
	col := c.db.GetCollection(c.CollectionName(userID), noEmbedding)
	if col == nil {
		return 0
	}
	return col.Count()
}

func encodeMetadata(record ltm.MemoryRecord) (map[string]string, error) {
	raw, err := json.Marshal(record.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	m := map[string]string{
		metaKeyUserID:    record.UserID,
		metaKeyCreatedAt: record.CreatedAt.UTC().Format(time.RFC3339Nano),
		metaKeyJSON:      string(raw),
	}
	if t, ok := record.Metadata[metaKeyType].(string); ok {
		m[metaKeyType] = t
	}
	return m, nil
}

func decodeResult(userID string, res chromem.Result) ltm.MemoryRecord {
	rec := ltm.MemoryRecord{
		ID:        res.ID,
		UserID:    userID,
		Content:   res.Content,
		Embedding: res.Embedding,
		Metadata:  map[string]interface{}{},
	}
	if raw, ok := res.Metadata[metaKeyJSON]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Metadata); err != nil {
			log.Warn("Discarding unreadable document metadata", "record_id", res.ID, "error", err)
			rec.Metadata = map[string]interface{}{}
		}
	}
	if ts, ok := res.Metadata[metaKeyCreatedAt]; ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.CreatedAt = t
		}
	}
	return rec
}
