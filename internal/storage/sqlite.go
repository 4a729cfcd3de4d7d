package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/bull/legal-rag/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS indexes (
    name TEXT PRIMARY KEY,
    dimension INTEGER NOT NULL,
    metric TEXT NOT NULL,
    cloud TEXT,
    region TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS records (
    index_name TEXT NOT NULL,
    id TEXT NOT NULL,
    doc_id TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    text TEXT NOT NULL,
    vector BLOB NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (index_name, id),
    FOREIGN KEY (index_name) REFERENCES indexes(name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_records_doc_id ON records(index_name, doc_id);
`

// SQLiteStore is an embedded Index that scores every record in Go.
// It suits local use and tests; large corpora belong in Qdrant.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	mu   sync.RWMutex
	spec *IndexSpec
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create data directory: %w", domain.ErrStore, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", domain.ErrStore, err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enable foreign keys: %w", domain.ErrStore, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", domain.ErrStore, err)
	}

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// EnsureIndex creates the named index or attaches to an existing one with
// the same dimension and metric.
func (s *SQLiteStore) EnsureIndex(ctx context.Context, spec IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	spec.Metric, _ = ParseMetric(string(spec.Metric))

	var (
		dimension int
		metric    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, metric FROM indexes WHERE name = ?`, spec.Name).Scan(&dimension, &metric)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO indexes (name, dimension, metric, cloud, region) VALUES (?, ?, ?, ?, ?)`,
			spec.Name, spec.Dimension, string(spec.Metric), spec.Cloud, spec.Region)
		if err != nil {
			return fmt.Errorf("%w: create index %s: %w", domain.ErrStore, spec.Name, err)
		}
		s.logger.Info("Created index", "backend", "sqlite", "name", spec.Name, "dimension", spec.Dimension, "metric", spec.Metric)
	case err != nil:
		return fmt.Errorf("%w: look up index %s: %w", domain.ErrStore, spec.Name, err)
	default:
		if dimension != spec.Dimension {
			return fmt.Errorf("%w: index %s has dimension %d, requested %d",
				ErrDimensionMismatch, spec.Name, dimension, spec.Dimension)
		}
		if Metric(metric) != spec.Metric {
			return fmt.Errorf("%w: index %s uses %s, requested %s",
				ErrMetricMismatch, spec.Name, metric, spec.Metric)
		}
	}

	s.mu.Lock()
	s.spec = &spec
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) current() (IndexSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.spec == nil {
		return IndexSpec{}, ErrIndexNotReady
	}
	return *s.spec, nil
}

// Upsert writes all records in one transaction, overwriting by id.
func (s *SQLiteStore) Upsert(ctx context.Context, records []domain.VectorRecord) (int, error) {
	spec, err := s.current()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := validateRecords(records, spec.Dimension); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %w", domain.ErrStore, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (index_name, id, doc_id, chunk_index, text, vector)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (index_name, id) DO UPDATE SET
			doc_id = excluded.doc_id,
			chunk_index = excluded.chunk_index,
			text = excluded.text,
			vector = excluded.vector,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare upsert: %w", domain.ErrStore, err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx, spec.Name, r.ID, r.Metadata.DocID, r.Metadata.ChunkIndex,
			r.Metadata.Text, encodeVector(r.Values))
		if err != nil {
			return 0, fmt.Errorf("%w: upsert %s: %w", domain.ErrStore, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit upsert: %w", domain.ErrStore, err)
	}
	return len(records), nil
}

// Query ranks every record in the index against vector and returns the best topK.
// Equal scores are ordered by id.
func (s *SQLiteStore) Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedChunk, error) {
	spec, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := validateQuery(vector, topK, spec.Dimension); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, chunk_index, text, vector FROM records WHERE index_name = ?`, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	results := []domain.RetrievedChunk{}
	for rows.Next() {
		var (
			chunk domain.RetrievedChunk
			blob  []byte
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocID, &chunk.ChunkIndex, &chunk.Text, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan record: %w", domain.ErrStore, err)
		}
		stored := decodeVector(blob)
		if len(stored) != len(vector) {
			s.logger.Warn("Skipping record with wrong dimension", "id", chunk.ID, "dimension", len(stored))
			continue
		}
		chunk.Score = similarity(spec.Metric, vector, stored)
		results = append(results, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %w", domain.ErrStore, err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Stats reports the record count of the ensured index.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	spec, err := s.current()
	if err != nil {
		return nil, err
	}
	var count uint64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE index_name = ?`, spec.Name).Scan(&count); err != nil {
		return nil, fmt.Errorf("%w: count records: %w", domain.ErrStore, err)
	}
	return &Stats{
		Name:        spec.Name,
		Backend:     "sqlite",
		Dimension:   spec.Dimension,
		Metric:      spec.Metric,
		RecordCount: count,
	}, nil
}

// Reset deletes every record in the ensured index. The index definition stays.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	spec, err := s.current()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE index_name = ?`, spec.Name); err != nil {
		return fmt.Errorf("%w: reset index %s: %w", domain.ErrStore, spec.Name, err)
	}
	return nil
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnreachable, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
