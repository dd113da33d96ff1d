package mock

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/mem/ltm"
)

// MockStore is an in-memory ltm.Store used for testing and development.
// It also satisfies ltm.VectorIndex and ltm.Ledger so either half of a
// CompositeStore can be faked.
type MockStore struct {
	// records[UserID] holds records in insertion order
	records map[string][]ltm.MemoryRecord

	storeErr  error
	searchErr error
	recentErr error

	// Mutex for safe concurrent access
	mutex sync.RWMutex
}

var (
	_ ltm.Store       = (*MockStore)(nil)
	_ ltm.VectorIndex = (*MockStore)(nil)
	_ ltm.Ledger      = (*MockStore)(nil)
)

// NewMockStore creates a new instance of the MockStore.
func NewMockStore() *MockStore {
	log.Debug("Initialized LTM mock store adapter")
	return &MockStore{
		records: make(map[string][]ltm.MemoryRecord),
	}
}

// SetStoreError makes every write fail with err (nil clears it).
func (m *MockStore) SetStoreError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.storeErr = err
}

// SetSearchError makes Search fail with err (nil clears it).
func (m *MockStore) SetSearchError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.searchErr = err
}

// SetRecentError makes Recent fail with err (nil clears it).
func (m *MockStore) SetRecentError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.recentErr = err
}

// Store implements ltm.Store.
func (m *MockStore) Store(ctx context.Context, record ltm.MemoryRecord) (string, error) {
	record, err := ltm.Prepare(record)
	if err != nil {
		return "", err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.storeErr != nil {
		return "", m.storeErr
	}
	m.records[record.UserID] = append(m.records[record.UserID], record)

	log.DebugContext(ctx, "Stored record in mock store", "record_id", record.ID, "user_id", record.UserID)
	return record.ID, nil
}

// Add implements ltm.VectorIndex.
func (m *MockStore) Add(ctx context.Context, record ltm.MemoryRecord) error {
	_, err := m.Store(ctx, record)
	return err
}

// Append implements ltm.Ledger.
func (m *MockStore) Append(ctx context.Context, record ltm.MemoryRecord) error {
	_, err := m.Store(ctx, record)
	return err
}

// Recent returns up to limit records, newest first.
func (m *MockStore) Recent(ctx context.Context, userID string, limit int) ([]ltm.MemoryRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.recentErr != nil {
		return nil, m.recentErr
	}

	recs := m.records[userID]
	n := ltm.Clamp(limit, len(recs))
	out := make([]ltm.MemoryRecord, 0, n)
	for i := len(recs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

// Search ranks the user's records by cosine distance.
func (m *MockStore) Search(ctx context.Context, userID string, embedding []float32, limit int) ([]ltm.ScoredRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.searchErr != nil {
		return nil, m.searchErr
	}

	recs := m.records[userID]
	scored := make([]ltm.ScoredRecord, 0, len(recs))
	for _, rec := range recs {
		d, err := cosineDistance(embedding, rec.Embedding)
		if err != nil {
			return nil, err
		}
		scored = append(scored, ltm.ScoredRecord{MemoryRecord: rec, Distance: &d})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].Distance < *scored[j].Distance
	})
	return scored[:ltm.Clamp(limit, len(scored))], nil
}

// Delete removes a record; unknown IDs are ignored.
func (m *MockStore) Delete(ctx context.Context, userID, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	recs := m.records[userID]
	for i, rec := range recs {
		if rec.ID == id {
			m.records[userID] = append(recs[:i:i], recs[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of records held for a user.
func (m *MockStore) Count(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.records[userID])
}

func cosineDistance(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d != %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb))), nil
}
