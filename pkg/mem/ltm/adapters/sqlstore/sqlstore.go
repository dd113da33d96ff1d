package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lexlapax/careercoach/pkg/mem/ltm"
)

// SQLLedger implements ltm.Ledger on SQLite or PostgreSQL through sqlx.
// Timestamps are stored as Unix nanoseconds so ordering is identical on both.
type SQLLedger struct {
	db *sqlx.DB
}

var _ ltm.Ledger = (*SQLLedger)(nil)

type recordRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Content   string `db:"content"`
	Metadata  []byte `db:"metadata"`
	CreatedAt int64  `db:"created_at"`
}

// NewSQLLedger wraps an open, migrated database.
func NewSQLLedger(db *sqlx.DB) *SQLLedger {
	return &SQLLedger{db: db}
}

// Append inserts the record. The embedding is not stored.
func (s *SQLLedger) Append(ctx context.Context, record ltm.MemoryRecord) error {
	record, err := ltm.Prepare(record)
	if err != nil {
		return err
	}

	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO memory_records (id, user_id, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		record.ID, record.UserID, record.Content, string(metadataJSON), record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

// Recent returns the user's newest records first.
func (s *SQLLedger) Recent(ctx context.Context, userID string, limit int) ([]ltm.MemoryRecord, error) {
	out := []ltm.MemoryRecord{}
	if limit <= 0 {
		return out, nil
	}

	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT id, user_id, content, metadata, created_at
		FROM memory_records
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`),
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	for _, row := range rows {
		rec := ltm.MemoryRecord{
			ID:        row.ID,
			UserID:    row.UserID,
			Content:   row.Content,
			Metadata:  map[string]interface{}{},
			CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
		}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", row.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete removes a record. Unknown IDs are ignored.
func (s *SQLLedger) Delete(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM memory_records WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}
