// Package templates manages reusable extraction templates: the org-wide
// catalog and the selection flow that lets a user reuse one for a new
// document.
package templates

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docuflow/internal/entity"
	"github.com/joseph-ayodele/docuflow/internal/extraction"
)

// CacheStore mirrors the fetched catalog into local persistence. Optional.
type CacheStore interface {
	ReplaceAll(ctx context.Context, templates []entity.TemplateInfo) error
}

// Catalog loads and caches the organization's extraction templates.
type Catalog struct {
	svc    extraction.Service
	store  CacheStore
	logger *slog.Logger
	ttl    time.Duration

	mu        sync.Mutex
	cached    []entity.TemplateInfo
	fetchedAt time.Time
}

func NewCatalog(svc extraction.Service, store CacheStore, ttl time.Duration, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Catalog{svc: svc, store: store, logger: logger, ttl: ttl}
}

// Templates returns the full catalog, fetching from the remote service when
// the cache is cold or stale.
func (c *Catalog) Templates(ctx context.Context) ([]entity.TemplateInfo, error) {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.fetchedAt) < c.ttl {
		out := make([]entity.TemplateInfo, len(c.cached))
		copy(out, c.cached)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.svc.ListTemplates(ctx)
	if err != nil {
		c.logger.Error("templates.catalog.list_failed", "error", err)
		return nil, err
	}

	c.mu.Lock()
	c.cached = resp.Templates
	c.fetchedAt = time.Now()
	out := make([]entity.TemplateInfo, len(c.cached))
	copy(out, c.cached)
	c.mu.Unlock()

	c.logger.Info("templates.catalog.refreshed",
		"count", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if c.store != nil {
		if err := c.store.ReplaceAll(ctx, out); err != nil {
			c.logger.Warn("templates.catalog.cache_store_failed", "error", err)
		}
	}
	return out, nil
}

// ForFolder returns only templates whose folder association exactly matches
// folderName. Non-matching templates are hidden, not disabled.
func (c *Catalog) ForFolder(ctx context.Context, folderName string) ([]entity.TemplateInfo, error) {
	all, err := c.Templates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.TemplateInfo, 0, len(all))
	for _, t := range all {
		if t.FolderName == folderName {
			out = append(out, t)
		}
	}
	return out, nil
}

// Invalidate drops the cache; the next read refetches.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
	c.fetchedAt = time.Time{}
}
