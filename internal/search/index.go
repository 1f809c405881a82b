// Package search provides full-text search over free-text survey answers.
package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// SearchIndex wraps a Bleve index of response documents.
// All public methods are safe for concurrent use.
type SearchIndex struct {
	index  bleve.Index
	path   string // empty for an in-memory index
	logger *slog.Logger
	mu     sync.RWMutex // Protects index swaps during Rebuild
}

// Options configures the search index.
type Options struct {
	DataPath string // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger
}

// mappingVersion is bumped whenever the mapping changes, forcing a rebuild
// of an on-disk index on startup.
const mappingVersion = "1"

// NewSearchIndex creates or opens a search index.
// An on-disk index with an outdated mapping or that fails to open is
// removed and recreated; callers repopulate it with Reindex.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		logger.Info("Created in-memory search index")
		return &SearchIndex{index: index, logger: logger}, nil
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	indexPath := filepath.Join(opts.DataPath, "responses.bleve")
	versionPath := filepath.Join(opts.DataPath, "responses.version")

	var index bleve.Index
	if _, statErr := os.Stat(indexPath); statErr == nil {
		existing, readErr := os.ReadFile(versionPath)
		if readErr == nil && string(existing) == mappingVersion {
			opened, err := bleve.Open(indexPath)
			if err == nil {
				index = opened
			} else {
				logger.Warn("Failed to open existing search index, recreating", "path", indexPath, "error", err)
			}
		} else {
			logger.Info("Search index mapping changed, recreating", "new_version", mappingVersion)
		}
		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if index == nil {
		created, err := bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		index = created
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("Failed to write search version file", "error", err)
		}
		logger.Info("Created search index", "path", indexPath)
	}

	return &SearchIndex{index: index, path: indexPath, logger: logger}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexResponse adds or replaces the document for a response.
func (s *SearchIndex) IndexResponse(r *domain.Response) error {
	doc := NewResponseDocument(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// RemoveResponse deletes a response document. Missing documents are ignored.
func (s *SearchIndex) RemoveResponse(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the number of indexed responses.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Reindex replaces the index contents with the given responses.
func (s *SearchIndex) Reindex(responses []*domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if s.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if rmErr := os.RemoveAll(s.path); rmErr != nil {
			return fmt.Errorf("remove index: %w", rmErr)
		}
		index, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index

	const batchSize = 500
	for i := 0; i < len(responses); i += batchSize {
		end := min(i+batchSize, len(responses))

		batch := s.index.NewBatch()
		for _, r := range responses[i:end] {
			doc := NewResponseDocument(r)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	s.logger.Info("Rebuilt search index", "documents", len(responses))
	return nil
}
