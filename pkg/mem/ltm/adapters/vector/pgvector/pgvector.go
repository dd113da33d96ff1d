package pgvector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/mem/ltm"
)

var (
	// ErrMissingQueryVector is returned when a semantic search is attempted without a query vector
	ErrMissingQueryVector = errors.New("missing query vector for semantic search")

	// ErrDimensionMismatch is returned when a vector does not fit the table's column
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// PgvectorAdapter implements ltm.Store using PostgreSQL with the pgvector
// extension. A single table holds every user's records, partitioned by user_id.
type PgvectorAdapter struct {
	db            *pgxpool.Pool
	tableName     string
	dimensionSize int
	// Distance metric: cosine (default), euclidean, dot
	distanceMetric string
}

var _ ltm.Store = (*PgvectorAdapter)(nil)

// PgvectorConfig contains the configuration for a Pgvector adapter
type PgvectorConfig struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// TableName is the name of the table to use
	TableName string

	// DimensionSize is the size of vector embeddings
	DimensionSize int

	// DistanceMetric is the distance metric to use (cosine, euclidean, dot)
	DistanceMetric string
}

// NewPgvectorAdapter connects to PostgreSQL and makes sure the extension,
// table and indexes exist.
func NewPgvectorAdapter(ctx context.Context, config PgvectorConfig) (*PgvectorAdapter, error) {
	if config.ConnectionString == "" {
		return nil, errors.New("connection string cannot be empty")
	}
	if config.TableName == "" {
		config.TableName = "memory_vectors"
	}
	if config.DimensionSize <= 0 {
		config.DimensionSize = 1536 // text-embedding-3-small
	}
	config.DistanceMetric = strings.ToLower(config.DistanceMetric)
	if config.DistanceMetric == "" {
		config.DistanceMetric = "cosine"
	}
	if _, err := distanceOperator(config.DistanceMetric); err != nil {
		return nil, err
	}

	db, err := pgxpool.New(ctx, config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	adapter := &PgvectorAdapter{
		db:             db,
		tableName:      pgx.Identifier{config.TableName}.Sanitize(),
		dimensionSize:  config.DimensionSize,
		distanceMetric: config.DistanceMetric,
	}

	if err := adapter.initializeTable(ctx, config.TableName); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize pgvector table: %w", err)
	}

	log.Info("Using pgvector store",
		"table", config.TableName,
		"dimensions", config.DimensionSize,
		"metric", config.DistanceMetric)

	return adapter, nil
}

func distanceOperator(metric string) (string, error) {
	switch metric {
	case "cosine":
		return "<=>", nil
	case "euclidean":
		return "<->", nil
	case "dot":
		// negative inner product, so smaller is still closer
		return "<#>", nil
	default:
		return "", fmt.Errorf("unsupported distance metric: %s (must be cosine, euclidean, or dot)", metric)
	}
}

func indexOps(metric string) string {
	switch metric {
	case "euclidean":
		return "vector_l2_ops"
	case "dot":
		return "vector_ip_ops"
	default:
		return "vector_cosine_ops"
	}
}

// initializeTable creates the necessary table and index for vector storage if they don't exist
func (a *PgvectorAdapter) initializeTable(ctx context.Context, rawName string) error {
	if _, err := a.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create pgvector extension: %w", err)
	}

	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				content TEXT NOT NULL,
				metadata JSONB NOT NULL DEFAULT '{}',
				embedding VECTOR(%d) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			)`, a.tableName, a.dimensionSize),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (user_id, created_at DESC)",
			pgx.Identifier{rawName + "_user_created_idx"}.Sanitize(), a.tableName),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding %s) WITH (lists = 100)",
			pgx.Identifier{rawName + "_embedding_idx"}.Sanitize(), a.tableName, indexOps(a.distanceMetric)),
	}

	for _, stmt := range statements {
		if _, err := a.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection pool
func (a *PgvectorAdapter) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// DB returns the underlying connection pool.
func (a *PgvectorAdapter) DB() *pgxpool.Pool {
	return a.db
}

// Store inserts a record with its embedding.
func (a *PgvectorAdapter) Store(ctx context.Context, record ltm.MemoryRecord) (string, error) {
	record, err := ltm.Prepare(record)
	if err != nil {
		return "", err
	}
	if len(record.Embedding) != a.dimensionSize {
		return "", fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(record.Embedding), a.dimensionSize)
	}

	_, err = a.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, content, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5::vector, $6)`, a.tableName),
		record.ID,
		record.UserID,
		record.Content,
		record.Metadata,
		embedToString(record.Embedding),
		record.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store record: %w", err)
	}

	log.DebugContext(ctx, "Stored record in pgvector", "id", record.ID, "user_id", record.UserID)
	return record.ID, nil
}

// Recent returns the user's newest records first.
func (a *PgvectorAdapter) Recent(ctx context.Context, userID string, limit int) ([]ltm.MemoryRecord, error) {
	if limit <= 0 {
		return []ltm.MemoryRecord{}, nil
	}

	rows, err := a.db.Query(ctx, fmt.Sprintf(`
		SELECT id, user_id, content, metadata, created_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, a.tableName), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	out := []ltm.MemoryRecord{}
	for rows.Next() {
		var rec ltm.MemoryRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Content, &rec.Metadata, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Search orders the user's records by the configured distance operator.
func (a *PgvectorAdapter) Search(ctx context.Context, userID string, embedding []float32, limit int) ([]ltm.ScoredRecord, error) {
	if limit <= 0 {
		return []ltm.ScoredRecord{}, nil
	}
	if len(embedding) == 0 {
		return nil, ErrMissingQueryVector
	}
	if len(embedding) != a.dimensionSize {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(embedding), a.dimensionSize)
	}

	op, _ := distanceOperator(a.distanceMetric)
	rows, err := a.db.Query(ctx, fmt.Sprintf(`
		SELECT id, user_id, content, metadata, embedding::text, created_at, (embedding %s $2::vector) AS distance
		FROM %s
		WHERE user_id = $1
		ORDER BY distance ASC
		LIMIT $3`, op, a.tableName), userID, embedToString(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to perform semantic search: %w", err)
	}
	defer rows.Close()

	out := []ltm.ScoredRecord{}
	for rows.Next() {
		var (
			rec          ltm.ScoredRecord
			embeddingStr string
			distance     float64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Content, &rec.Metadata, &embeddingStr, &rec.CreatedAt, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Embedding = stringToEmbed(embeddingStr)
		d := float32(distance)
		rec.Distance = &d
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Delete removes a record. Unknown IDs are ignored.
func (a *PgvectorAdapter) Delete(ctx context.Context, userID, id string) error {
	if id == "" {
		return errors.New("record ID cannot be empty")
	}
	_, err := a.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, a.tableName), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Helper function to convert []float32 to string for pgvector
func embedToString(embedding []float32) string {
	elements := make([]string, len(embedding))
	for i, v := range embedding {
		elements[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(elements, ",") + "]"
}

// Helper function to convert pgvector string to []float32
func stringToEmbed(embeddingStr string) []float32 {
	embeddingStr = strings.TrimSpace(embeddingStr)
	embeddingStr = strings.TrimPrefix(embeddingStr, "[")
	embeddingStr = strings.TrimSuffix(embeddingStr, "]")
	if embeddingStr == "" {
		return nil
	}

	elements := strings.Split(embeddingStr, ",")
	embedding := make([]float32, len(elements))
	for i, element := range elements {
		val, err := strconv.ParseFloat(strings.TrimSpace(element), 32)
		if err != nil {
			log.Error("Failed to parse embedding element", "error", err, "element", element)
			val = 0
		}
		embedding[i] = float32(val)
	}
	return embedding
}
