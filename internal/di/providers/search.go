package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/feedbackapp/feedback-server/internal/config"
	"github.com/feedbackapp/feedback-server/internal/logger"
	"github.com/feedbackapp/feedback-server/internal/search"
	"github.com/feedbackapp/feedback-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// SearchIndex is nil when search is disabled.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.SearchIndex == nil {
		return nil
	}
	return h.Close()
}

// Indexer returns the index as a service.ResponseIndexer, or nil when disabled.
func (h *SearchIndexHandle) Indexer() service.ResponseIndexer {
	if h.SearchIndex == nil {
		return nil
	}
	return h.SearchIndex
}

// Searcher returns the index as a service.ResponseSearcher, or nil when disabled.
func (h *SearchIndexHandle) Searcher() service.ResponseSearcher {
	if h.SearchIndex == nil {
		return nil
	}
	return h.SearchIndex
}

// ProvideSearchIndex provides the Bleve response index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Response search disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Search.DataPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount, "path", cfg.Search.DataPath)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// RebuildSearchIndexIfNeeded repopulates an empty index from the store.
// An in-memory index always starts empty. Should be called after all services are wired.
func RebuildSearchIndexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	analytics := do.MustInvoke[*service.AnalyticsService](i)
	log := do.MustInvoke[*logger.Logger](i)

	if indexHandle.SearchIndex == nil {
		return
	}
	if docCount, _ := indexHandle.DocumentCount(); docCount > 0 {
		return
	}

	go func() {
		if err := analytics.RebuildIndex(context.Background()); err != nil {
			log.Error("Initial search reindex failed", "error", err)
		}
	}()
}
