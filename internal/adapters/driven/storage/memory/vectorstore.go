package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

var errClosed = errors.New("store closed")

type storedRecord struct {
	vector    []float32
	magnitude float32
	metadata  map[string]any
}

// VectorStore is an in-memory implementation of driven.VectorStore.
// Records are partitioned by namespace and ranked by brute-force cosine
// similarity.
type VectorStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]storedRecord
	dimensions int
	closed     bool
}

// NewVectorStore creates a new in-memory vector store. A zero dimensions
// value is fixed by the first upsert.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		namespaces: make(map[string]map[string]storedRecord),
		dimensions: dimensions,
	}
}

// Upsert inserts or overwrites records in the namespace.
func (s *VectorStore) Upsert(_ context.Context, namespace string, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &domain.VectorStoreError{Op: "upsert", Namespace: namespace, Err: errClosed}
	}
	if namespace == "" {
		return &domain.VectorStoreError{Op: "upsert", Err: fmt.Errorf("%w: namespace is required", domain.ErrInvalidInput)}
	}

	dims := s.dimensions
	for _, r := range records {
		if r.ID == "" {
			return &domain.VectorStoreError{Op: "upsert", Namespace: namespace, Err: fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)}
		}
		if dims == 0 {
			dims = len(r.Vector)
		}
		if len(r.Vector) == 0 || len(r.Vector) != dims {
			return &domain.VectorStoreError{Op: "upsert", Namespace: namespace,
				Err: fmt.Errorf("record %s: dimension %d, want %d", r.ID, len(r.Vector), dims)}
		}
	}
	s.dimensions = dims

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]storedRecord)
		s.namespaces[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = storedRecord{
			vector:    append([]float32(nil), r.Vector...),
			magnitude: similarity.Magnitude(r.Vector),
			metadata:  copyMetadata(r.Metadata),
		}
	}
	return nil
}

// Query returns the topK most similar records of the namespace.
func (s *VectorStore) Query(_ context.Context, namespace string, vector []float32, topK int, filter domain.Filter) ([]driven.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, &domain.VectorStoreError{Op: "query", Namespace: namespace, Err: errClosed}
	}
	if s.dimensions != 0 && len(vector) != s.dimensions {
		return nil, &domain.VectorStoreError{Op: "query", Namespace: namespace,
			Err: fmt.Errorf("query dimension %d, want %d", len(vector), s.dimensions)}
	}
	ns, ok := s.namespaces[namespace]
	if !ok || topK <= 0 {
		return nil, nil
	}

	queryMag := similarity.Magnitude(vector)
	matches := make([]driven.VectorMatch, 0, len(ns))
	for id, rec := range ns {
		if !filter.Matches(rec.metadata) {
			continue
		}
		matches = append(matches, driven.VectorMatch{
			ID:       id,
			Score:    similarity.Score(vector, rec.vector, queryMag, rec.magnitude),
			Metadata: copyMetadata(rec.metadata),
		})
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
func (s *VectorStore) Delete(_ context.Context, namespace string, req driven.DeleteRequest) (int, error) {
	if req.IsEmpty() {
		return 0, &domain.VectorStoreError{Op: "delete", Namespace: namespace, Err: fmt.Errorf("%w: empty delete selector", domain.ErrInvalidInput)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, &domain.VectorStoreError{Op: "delete", Namespace: namespace, Err: errClosed}
	}
	ns, ok := s.namespaces[namespace]
	if !ok {
		return 0, nil
	}

	removed := 0
	switch {
	case len(req.IDs) > 0:
		for _, id := range req.IDs {
			if _, ok := ns[id]; ok {
				delete(ns, id)
				removed++
			}
		}
	case req.DocumentID != "":
		for id, rec := range ns {
			if rec.metadata[domain.MetaDocumentID] == req.DocumentID {
				delete(ns, id)
				removed++
			}
		}
	default:
		for id, rec := range ns {
			if req.Filter.Matches(rec.metadata) {
				delete(ns, id)
				removed++
			}
		}
	}
	if len(ns) == 0 {
		delete(s.namespaces, namespace)
	}
	return removed, nil
}

// Stats counts records and distinct documents per namespace.
func (s *VectorStore) Stats(_ context.Context) (domain.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.StoreStats{}, &domain.VectorStoreError{Op: "stats", Err: errClosed}
	}
	stats := domain.StoreStats{
		Namespaces: make(map[string]domain.NamespaceStats, len(s.namespaces)),
		Dimensions: s.dimensions,
	}
	for name, ns := range s.namespaces {
		docs := make(map[any]struct{})
		for _, rec := range ns {
			docs[rec.metadata[domain.MetaDocumentID]] = struct{}{}
		}
		stats.Namespaces[name] = domain.NamespaceStats{Records: len(ns), Documents: len(docs)}
	}
	return stats, nil
}

// Ping reports whether the store is open.
func (s *VectorStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &domain.VectorStoreError{Op: "ping", Err: errClosed}
	}
	return nil
}

// Close drops all records.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.namespaces = nil
	return nil
}

func copyMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
