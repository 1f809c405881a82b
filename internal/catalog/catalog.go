// Package catalog holds the survey definitions that sessions and analytics
// read their question trees from.
//
// A default definition is compiled into the binary. An operator can point
// the server at a JSON file that adds definitions; that file is reloaded
// whenever it changes on disk. A definition is immutable once registered:
// a changed question tree must be published under a new id.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"sync"

	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
	"github.com/feedbackapp/feedback-server/internal/watcher"
)

// DefaultDefinition is the id of the embedded definition.
const DefaultDefinition = "conference-2026"

//go:embed definitions/conference-2026.json
var embeddedDefinition []byte

// Catalog is a concurrency-safe registry of definitions keyed by id.
type Catalog struct {
	logger *slog.Logger

	mu   sync.RWMutex
	defs map[string]*Definition
}

// New creates a catalog seeded with the embedded default definition.
func New(logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	def, err := Parse(embeddedDefinition)
	if err != nil {
		return nil, fmt.Errorf("load embedded definition: %w", err)
	}

	return &Catalog{
		logger: logger,
		defs:   map[string]*Definition{def.ID: def},
	}, nil
}

// Register adds a definition. Registering an id again is a no-op when the
// content is identical and a Conflict error otherwise.
func (c *Catalog) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkImmutable(def); err != nil {
		return err
	}
	c.defs[def.ID] = def
	return nil
}

// checkImmutable must be called with c.mu held.
func (c *Catalog) checkImmutable(def *Definition) error {
	existing, ok := c.defs[def.ID]
	if !ok || reflect.DeepEqual(existing, def) {
		return nil
	}
	return domainerrors.Conflict(fmt.Sprintf(
		"survey definition %q is already registered with different content; publish it under a new id", def.ID))
}

// Get returns the definition with the given id.
func (c *Catalog) Get(id string) (*Definition, error) {
	c.mu.RLock()
	def, ok := c.defs[id]
	c.mu.RUnlock()
	if !ok {
		return nil, domainerrors.NotFoundf("survey definition %q not found", id)
	}
	return def, nil
}

// Has reports whether a definition is registered.
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.defs[id]
	return ok
}

// IDs returns the registered definition ids, sorted.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.defs))
	for id := range c.defs {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Pages returns the page flow for a definition and participant type.
func (c *Catalog) Pages(defID string, pt domain.ParticipantType) ([]domain.Page, error) {
	def, err := c.Get(defID)
	if err != nil {
		return nil, err
	}
	pages := def.Pages(pt)
	if len(pages) == 0 {
		return nil, domainerrors.NotFoundf("no %s flow in survey definition %q", pt, defID)
	}
	return pages, nil
}

// LoadFile parses a definition file and registers every definition in it.
// The file holds either a single definition object or an array of them.
// Nothing is registered if any definition fails validation or would change
// an already registered id.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read definition file: %w", err)
	}

	defs, err := parseFile(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, def := range defs {
		if err := c.checkImmutable(def); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	for _, def := range defs {
		c.defs[def.ID] = def
	}

	c.logger.Info("Survey definitions loaded", "path", path, "count", len(defs))
	return nil
}

// Watch reloads path whenever the watcher reports a settled change.
// A file that fails to parse leaves the previously loaded definitions in place.
// It blocks until ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context, w *watcher.Watcher, path string) error {
	if err := w.Watch(path); err != nil {
		return fmt.Errorf("watch definition file: %w", err)
	}

	go w.Start(ctx) //nolint:errcheck // Start only returns nil

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.Events():
			if ev.Type == watcher.EventRemoved {
				c.logger.Warn("Survey definition file removed, keeping loaded definitions", "path", ev.Path)
				continue
			}
			if err := c.LoadFile(ev.Path); err != nil {
				c.logger.Error("Failed to reload survey definitions", "path", ev.Path, "error", err)
			}
		case err := <-w.Errors():
			c.logger.Warn("Definition watcher error", "error", err)
		}
	}
}
