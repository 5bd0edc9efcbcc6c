package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is a SQLite-backed vector store.
type VectorStore struct {
	db   *sql.DB
	path string

	mu         sync.RWMutex
	dimensions int
}

// NewVectorStore opens (or creates) the vector database in dataDir.
// If dataDir is empty, defaults to ~/.sercha-rag/data. A zero dimensions
// value is taken from existing rows, or fixed by the first upsert.
func NewVectorStore(dataDir string, dimensions int) (*VectorStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-rag", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vectors.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &VectorStore{db: db, path: dbPath, dimensions: dimensions}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if s.dimensions == 0 {
		var dims sql.NullInt64
		if err := db.QueryRow("SELECT dimensions FROM vectors LIMIT 1").Scan(&dims); err != nil && !errors.Is(err, sql.ErrNoRows) {
			db.Close()
			return nil, fmt.Errorf("reading dimensions: %w", err)
		}
		s.dimensions = int(dims.Int64)
	}

	return s, nil
}

// Path returns the database file path.
func (s *VectorStore) Path() string {
	return s.path
}

// migrate runs all pending up migrations and records their versions.
func (s *VectorStore) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_vectors.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

func storeErr(op, namespace string, err error) error {
	return &domain.VectorStoreError{Op: op, Namespace: namespace, Err: err}
}

// Upsert inserts or overwrites records in the namespace.
func (s *VectorStore) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if namespace == "" {
		return storeErr("upsert", "", fmt.Errorf("%w: namespace is required", domain.ErrInvalidInput))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dimensions
	for _, r := range records {
		if r.ID == "" {
			return storeErr("upsert", namespace, fmt.Errorf("%w: record id is required", domain.ErrInvalidInput))
		}
		if dims == 0 {
			dims = len(r.Vector)
		}
		if len(r.Vector) == 0 || len(r.Vector) != dims {
			return storeErr("upsert", namespace, fmt.Errorf("record %s: dimension %d, want %d", r.ID, len(r.Vector), dims))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("upsert", namespace, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (namespace, id, document_id, chunk_index, metadata, embedding, dimensions, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (namespace, id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_index = excluded.chunk_index,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return storeErr("upsert", namespace, err)
	}
	defer stmt.Close()

	for _, r := range records {
		metaJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return storeErr("upsert", namespace, fmt.Errorf("marshalling metadata of %s: %w", r.ID, err))
		}
		docID, _ := r.Metadata[domain.MetaDocumentID].(string)
		chunkIndex, _ := r.Metadata[domain.MetaChunkIndex].(int)

		if _, err := stmt.ExecContext(ctx, namespace, r.ID, docID, chunkIndex,
			string(metaJSON), float32SliceToBytes(r.Vector), len(r.Vector)); err != nil {
			return storeErr("upsert", namespace, fmt.Errorf("writing %s: %w", r.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("upsert", namespace, err)
	}
	s.dimensions = dims
	return nil
}

// Query returns the topK most similar records of the namespace.
func (s *VectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int, filter domain.Filter) ([]driven.VectorMatch, error) {
	if dims := s.dims(); dims != 0 && len(vector) != dims {
		return nil, storeErr("query", namespace, fmt.Errorf("query dimension %d, want %d", len(vector), dims))
	}
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, metadata, embedding FROM vectors WHERE namespace = ?", namespace)
	if err != nil {
		return nil, storeErr("query", namespace, err)
	}
	defer rows.Close()

	queryMag := similarity.Magnitude(vector)
	var matches []driven.VectorMatch
	for rows.Next() {
		var (
			id       string
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&id, &metaJSON, &blob); err != nil {
			return nil, storeErr("query", namespace, err)
		}
		meta, err := decodeMetadata(metaJSON)
		if err != nil {
			return nil, storeErr("query", namespace, fmt.Errorf("decoding metadata of %s: %w", id, err))
		}
		if !filter.Matches(meta) {
			continue
		}
		vec := bytesToFloat32Slice(blob)
		matches = append(matches, driven.VectorMatch{
			ID:       id,
			Score:    similarity.Score(vector, vec, queryMag, similarity.Magnitude(vec)),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query", namespace, err)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes records selected by req from the namespace.
func (s *VectorStore) Delete(ctx context.Context, namespace string, req driven.DeleteRequest) (int, error) {
	if req.IsEmpty() {
		return 0, storeErr("delete", namespace, fmt.Errorf("%w: empty delete selector", domain.ErrInvalidInput))
	}

	ids := req.IDs
	switch {
	case len(ids) > 0:
	case req.DocumentID != "":
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM vectors WHERE namespace = ? AND document_id = ?", namespace, req.DocumentID)
		if err != nil {
			return 0, storeErr("delete", namespace, err)
		}
		n, _ := res.RowsAffected()
		return int(n), nil
	default:
		var err error
		if ids, err = s.idsMatching(ctx, namespace, req.Filter); err != nil {
			return 0, storeErr("delete", namespace, err)
		}
		if len(ids) == 0 {
			return 0, nil
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("delete", namespace, err)
	}
	defer tx.Rollback()

	removed := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, "DELETE FROM vectors WHERE namespace = ? AND id = ?", namespace, id)
		if err != nil {
			return 0, storeErr("delete", namespace, err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr("delete", namespace, err)
	}
	return removed, nil
}

func (s *VectorStore) idsMatching(ctx context.Context, namespace string, filter domain.Filter) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, metadata FROM vectors WHERE namespace = ?", namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, metaJSON string
		if err := rows.Scan(&id, &metaJSON); err != nil {
			return nil, err
		}
		meta, err := decodeMetadata(metaJSON)
		if err != nil {
			return nil, err
		}
		if filter.Matches(meta) {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// Stats counts records and distinct documents per namespace.
func (s *VectorStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace, COUNT(*), COUNT(DISTINCT document_id)
		FROM vectors GROUP BY namespace
	`)
	if err != nil {
		return domain.StoreStats{}, storeErr("stats", "", err)
	}
	defer rows.Close()

	stats := domain.StoreStats{
		Namespaces: make(map[string]domain.NamespaceStats),
		Dimensions: s.dims(),
	}
	for rows.Next() {
		var (
			ns   string
			recs int
			docs int
		)
		if err := rows.Scan(&ns, &recs, &docs); err != nil {
			return domain.StoreStats{}, storeErr("stats", "", err)
		}
		stats.Namespaces[ns] = domain.NamespaceStats{Records: recs, Documents: docs}
	}
	if err := rows.Err(); err != nil {
		return domain.StoreStats{}, storeErr("stats", "", err)
	}
	return stats, nil
}

func (s *VectorStore) dims() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// Ping verifies the database connection.
func (s *VectorStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeErr("ping", "", err)
	}
	return nil
}

// Close closes the database connection.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

// decodeMetadata restores metadata written by Upsert. JSON numbers come
// back as float64; the chunk index is turned back into an int.
func decodeMetadata(raw string) (map[string]any, error) {
	meta := make(map[string]any)
	if raw == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}
	if f, ok := meta[domain.MetaChunkIndex].(float64); ok {
		meta[domain.MetaChunkIndex] = int(f)
	}
	return meta, nil
}

// float32SliceToBytes converts a float32 slice to little-endian bytes.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts little-endian bytes to a float32 slice.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
