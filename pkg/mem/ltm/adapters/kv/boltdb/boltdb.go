package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/mem/ltm"
	bolt "go.etcd.io/bbolt"
)

// Bucket layout:
//
//	users/<userID>/records   key = created_at (8 byte big endian nanos) + id
//	users/<userID>/ids       key = id, value = records key
var (
	usersBucket   = []byte("users")
	recordsBucket = []byte("records")
	idsBucket     = []byte("ids")
)

// BoltLedger implements ltm.Ledger on a BoltDB database.
type BoltLedger struct {
	db *bolt.DB
}

var _ ltm.Ledger = (*BoltLedger)(nil)

// NewBoltLedger creates a new BoltLedger with the given database connection.
func NewBoltLedger(db *bolt.DB) *BoltLedger {
	log.Debug("Initialized BoltDB ledger",
		"db_path", db.Path(),
		"read_only", db.IsReadOnly(),
	)
	return &BoltLedger{db: db}
}

// Initialize creates the top-level bucket. Append creates it lazily too.
func (b *BoltLedger) Initialize(ctx context.Context) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(usersBucket)
		return err
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize BoltDB buckets", "error", err)
		return err
	}
	return nil
}

// Append writes the record into the user's bucket, creating it on first use.
// The stored copy omits the embedding.
func (b *BoltLedger) Append(ctx context.Context, record ltm.MemoryRecord) error {
	record, err := ltm.Prepare(record)
	if err != nil {
		return err
	}
	record.Embedding = nil

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		users, err := tx.CreateBucketIfNotExists(usersBucket)
		if err != nil {
			return err
		}
		user, err := users.CreateBucketIfNotExists([]byte(record.UserID))
		if err != nil {
			return fmt.Errorf("failed to create bucket for user %s: %w", record.UserID, err)
		}
		records, err := user.CreateBucketIfNotExists(recordsBucket)
		if err != nil {
			return err
		}
		ids, err := user.CreateBucketIfNotExists(idsBucket)
		if err != nil {
			return err
		}

		key := recordKey(record)
		if err := records.Put(key, data); err != nil {
			return err
		}
		return ids.Put([]byte(record.ID), key)
	})
	if err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

// Recent walks the user's records bucket backwards, newest first.
func (b *BoltLedger) Recent(ctx context.Context, userID string, limit int) ([]ltm.MemoryRecord, error) {
	out := []ltm.MemoryRecord{}
	if limit <= 0 {
		return out, nil
	}

	err := b.db.View(func(tx *bolt.Tx) error {
		records := userSubBucket(tx, userID, recordsBucket)
		if records == nil {
			return nil
		}

		c := records.Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var rec ltm.MemoryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return out, nil
}

// Delete removes a record by ID. Unknown IDs are ignored.
func (b *BoltLedger) Delete(ctx context.Context, userID, id string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		ids := userSubBucket(tx, userID, idsBucket)
		if ids == nil {
			return nil
		}
		key := ids.Get([]byte(id))
		if key == nil {
			return nil
		}
		// key is only valid for the life of the transaction
		key = append([]byte(nil), key...)
		if err := userSubBucket(tx, userID, recordsBucket).Delete(key); err != nil {
			return err
		}
		return ids.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func userSubBucket(tx *bolt.Tx, userID string, name []byte) *bolt.Bucket {
	users := tx.Bucket(usersBucket)
	if users == nil {
		return nil
	}
	user := users.Bucket([]byte(userID))
	if user == nil {
		return nil
	}
	return user.Bucket(name)
}

func recordKey(record ltm.MemoryRecord) []byte {
	key := make([]byte, 8, 8+len(record.ID))
	binary.BigEndian.PutUint64(key, uint64(record.CreatedAt.UnixNano()))
	return append(key, record.ID...)
}
