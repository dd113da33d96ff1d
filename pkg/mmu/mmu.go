package mmu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lexlapax/careercoach/pkg/errors"
	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/mem/ltm"
	"github.com/lexlapax/careercoach/pkg/reasoning"
)

// Status describes the outcome of a Save.
type Status string

const (
	StatusSaved           Status = "saved"
	StatusFailedEmbedding Status = "failed_embedding"
	StatusFailedStore     Status = "failed_store"
	StatusDisabled        Status = "disabled"
)

// SaveResult reports what happened to a single Save call. Save never returns
// an error; callers inspect the result and log it.
type SaveResult struct {
	Status Status
	ID     string
	Err    error
}

// OK reports whether the record was persisted.
func (r SaveResult) OK() bool { return r.Status == StatusSaved }

// Recall is the result of a relevance query.
type Recall struct {
	Records []ltm.ScoredRecord

	// Degraded is set when similarity search was unavailable and the records
	// are the most recent ones instead. Every Distance is nil in that case.
	Degraded bool

	// Cause is the error that forced the degraded path.
	Cause error
}

// MMU (Memory Management Unit) owns the per-user conversational memory:
// it embeds interaction text, persists it and recalls it for prompts.
type MMU interface {
	// Enabled reports whether a backing store is available.
	Enabled() bool

	// Save embeds text and persists it in the user's memory space.
	Save(ctx context.Context, userID, text string, metadata map[string]interface{}) SaveResult

	// Recent lists up to limit records, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]ltm.MemoryRecord, error)

	// Relevant returns up to topK records nearest to query.
	Relevant(ctx context.Context, userID, query string, topK int) (Recall, error)

	// BuildContext renders the relevant records as a prompt block.
	BuildContext(ctx context.Context, userID, query string, topK int) string
}

// MMUI is the implementation of the MMU interface.
type MMUI struct {
	// store is nil when the memory backend could not be opened
	store ltm.Store

	embedder reasoning.Embedder

	now func() time.Time
}

var _ MMU = (*MMUI)(nil)

// NewMMU creates an MMU over store. A nil store or embedder yields a
// disabled MMU whose operations are silent no-ops.
func NewMMU(store ltm.Store, embedder reasoning.Embedder) *MMUI {
	m := &MMUI{
		store:    store,
		embedder: embedder,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if store == nil || embedder == nil {
		m.store = nil
		log.Warn("Memory Management Unit (MMU) disabled: no memory store or embedding service")
		return m
	}

	log.Debug("Memory Management Unit (MMU) initialized",
		"ltm_store_type", fmt.Sprintf("%T", store),
		"embedder_type", fmt.Sprintf("%T", embedder),
	)
	return m
}

// Disabled returns an MMU with no backing store.
func Disabled() *MMUI {
	return &MMUI{now: func() time.Time { return time.Now().UTC() }}
}

// Enabled implements the MMU interface.
func (m *MMUI) Enabled() bool {
	return m != nil && m.store != nil
}

// Save implements the MMU interface.
func (m *MMUI) Save(ctx context.Context, userID, text string, metadata map[string]interface{}) SaveResult {
	if !m.Enabled() {
		return SaveResult{Status: StatusDisabled, Err: errors.ErrLTMUnavailable}
	}

	record := ltm.MemoryRecord{
		ID:        ltm.NewRecordID(),
		UserID:    userID,
		Content:   text,
		Metadata:  ltm.SanitizeMetadata(metadata),
		CreatedAt: m.now(),
	}

	embedding, err := m.embed(ctx, text)
	if err != nil {
		log.FromContext(ctx).Warn("Skipping memory persistence, embedding failed",
			"error", err,
			"user_id", userID,
			"content_preview", truncateString(text, 30))
		return SaveResult{Status: StatusFailedEmbedding, ID: record.ID, Err: err}
	}
	record.Embedding = embedding

	id, err := m.store.Store(ctx, record)
	if err != nil {
		return SaveResult{Status: StatusFailedStore, ID: record.ID, Err: errors.Wrap(err, "store memory record")}
	}

	log.FromContext(ctx).Debug("Stored memory record",
		"record_id", id,
		"user_id", userID,
		"type", record.Metadata["type"],
		"embedding_dimensions", len(embedding))
	return SaveResult{Status: StatusSaved, ID: id}
}

// embed produces one vector for text. Blank text counts as an embedding failure.
func (m *MMUI) embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Join(errors.ErrEmbedding, errors.ErrEmptyText)
	}
	embeddings, err := m.embedder.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, errors.Join(errors.ErrEmbedding, err)
	}
	if len(embeddings) != 1 || len(embeddings[0]) == 0 {
		return nil, errors.Join(errors.ErrEmbedding, fmt.Errorf("expected 1 embedding, got %d", len(embeddings)))
	}
	return embeddings[0], nil
}

// Recent implements the MMU interface.
func (m *MMUI) Recent(ctx context.Context, userID string, limit int) ([]ltm.MemoryRecord, error) {
	if !m.Enabled() || limit <= 0 {
		return []ltm.MemoryRecord{}, nil
	}
	records, err := m.store.Recent(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list recent memories for %s", userID)
	}
	return records, nil
}

// Relevant implements the MMU interface. When the query cannot be embedded or
// the similarity search fails it falls back to the most recent records and
// marks the recall as degraded.
func (m *MMUI) Relevant(ctx context.Context, userID, query string, topK int) (Recall, error) {
	if !m.Enabled() || topK <= 0 || strings.TrimSpace(query) == "" {
		return Recall{Records: []ltm.ScoredRecord{}}, nil
	}

	embedding, err := m.embed(ctx, query)
	if err == nil {
		var records []ltm.ScoredRecord
		records, err = m.store.Search(ctx, userID, embedding, topK)
		if err == nil {
			return Recall{Records: records}, nil
		}
	}

	logger := log.FromContext(ctx)
	logger.Warn("Similarity search unavailable, falling back to recent memories",
		"error", err,
		"user_id", userID,
		"top_k", topK)

	recent, rerr := m.store.Recent(ctx, userID, topK)
	if rerr != nil {
		return Recall{Degraded: true, Cause: err}, errors.Wrap(rerr, "fallback to recent memories for %s", userID)
	}
	out := make([]ltm.ScoredRecord, len(recent))
	for i, rec := range recent {
		out[i] = ltm.ScoredRecord{MemoryRecord: rec}
	}
	return Recall{Records: out, Degraded: true, Cause: err}, nil
}

// BuildContext implements the MMU interface. It returns "" whenever there is
// nothing to render or retrieval failed.
func (m *MMUI) BuildContext(ctx context.Context, userID, query string, topK int) string {
	recall, err := m.Relevant(ctx, userID, query, topK)
	if err != nil {
		log.FromContext(ctx).Warn("Failed to build memory context", "error", err, "user_id", userID)
		return ""
	}
	return RenderContext(recall.Records)
}

// RenderContext formats records as numbered memory blocks in the given order.
func RenderContext(records []ltm.ScoredRecord) string {
	parts := make([]string, 0, len(records))
	for i, rec := range records {
		meta := rec.Metadata
		if meta == nil {
			meta = map[string]interface{}{}
		}
		// encoding/json sorts map keys
		b, err := json.Marshal(meta)
		if err != nil {
			b = []byte("{}")
		}
		parts = append(parts, fmt.Sprintf("[MEMORY %d] meta=%s\n%s\n", i+1, b, rec.Content))
	}
	return strings.Join(parts, "\n")
}

// truncateString truncates a string to the specified length and adds "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
