package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/feedbackapp/feedback-server/internal/catalog"
	"github.com/feedbackapp/feedback-server/internal/config"
	"github.com/feedbackapp/feedback-server/internal/logger"
	"github.com/feedbackapp/feedback-server/internal/watcher"
)

// CatalogHandle wraps the survey definition catalog and the watcher that
// hot-reloads its definition file.
type CatalogHandle struct {
	*catalog.Catalog
	watcher *watcher.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	if h.watcher == nil {
		return nil
	}
	h.cancel()
	return h.watcher.Stop()
}

// ProvideCatalog provides the survey definition catalog. When a catalog file
// is configured it is loaded now and reloaded whenever it changes on disk.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cat, err := catalog.New(log.Logger)
	if err != nil {
		return nil, err
	}

	path := cfg.Survey.CatalogFile
	if path == "" {
		log.Info("Survey catalog initialized", "definitions", cat.IDs())
		return &CatalogHandle{Catalog: cat}, nil
	}

	if err := cat.LoadFile(path); err != nil {
		return nil, err
	}

	w, err := watcher.New(log.Logger, watcher.Options{})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := cat.Watch(ctx, w, path); err != nil {
			log.Error("Survey definition watcher stopped", "error", err)
		}
	}()

	log.Info("Survey catalog initialized", "definitions", cat.IDs(), "watching", path)

	return &CatalogHandle{Catalog: cat, watcher: w, cancel: cancel}, nil
}
