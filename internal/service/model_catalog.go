package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ba6-ai-server/internal/domain"
	"ba6-ai-server/internal/metrics"
	apperrors "ba6-ai-server/pkg/errors"
)

const DefaultCatalogTTL = 10 * time.Minute

// ModelCatalog serves a typed, cached view of the upstream model catalog.
//
// The snapshot moves through empty -> populated(fetchedAt) -> stale ->
// refreshing -> populated. It is per-instance and best effort; nothing
// billing-related depends on it.
type ModelCatalog struct {
	client     domain.CatalogClient
	snapshots  domain.CatalogSnapshotCache
	allowLists map[domain.Modality][]domain.AllowListEntry
	classifier *ModelClassifier
	ttl        time.Duration
	now        func() time.Time
	logger     domain.Logger
	metrics    metrics.Recorder

	mu        sync.RWMutex
	snapshot  []domain.ModelDescriptor
	fetchedAt time.Time
	refresh   singleflight.Group
}

// ModelCatalogOption configures a ModelCatalog
type ModelCatalogOption func(*ModelCatalog)

// WithSnapshotCache shares fetched catalogs through cache.
func WithSnapshotCache(cache domain.CatalogSnapshotCache) ModelCatalogOption {
	return func(c *ModelCatalog) { c.snapshots = cache }
}

// WithCatalogTTL overrides the freshness window.
func WithCatalogTTL(ttl time.Duration) ModelCatalogOption {
	return func(c *ModelCatalog) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCatalogClock overrides the clock used for freshness checks.
func WithCatalogClock(now func() time.Time) ModelCatalogOption {
	return func(c *ModelCatalog) { c.now = now }
}

// WithCatalogMetrics records refresh outcomes.
func WithCatalogMetrics(rec metrics.Recorder) ModelCatalogOption {
	return func(c *ModelCatalog) { c.metrics = rec }
}

func NewModelCatalog(client domain.CatalogClient, rules CatalogRules, logger domain.Logger, opts ...ModelCatalogOption) *ModelCatalog {
	c := &ModelCatalog{
		client:     client,
		allowLists: rules.AllowLists,
		classifier: NewModelClassifier(rules.Keywords),
		ttl:        DefaultCatalogTTL,
		now:        time.Now,
		logger:     logger,
		metrics:    metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListModels returns the models for modality, or the full catalog when
// modality is ModalityNone.
func (c *ModelCatalog) ListModels(ctx context.Context, modality domain.Modality) ([]domain.ModelDescriptor, error) {
	models, err := c.catalog(ctx)
	if err != nil {
		if fallback := c.allowListFallback(modality); fallback != nil {
			c.logger.Warn("Model catalog unavailable, serving allow-list", "modality", modality, "error", err.Error())
			return fallback, nil
		}
		if stale := c.staleSnapshot(); stale != nil {
			c.logger.Warn("Model catalog unavailable, serving stale snapshot", "modality", modality, "error", err.Error())
			return c.filter(stale, modality), nil
		}
		c.logger.Error("Model catalog unavailable", err, "modality", modality)
		return nil, apperrors.NewInternalError("Failed to load models", err)
	}
	return c.filter(models, modality), nil
}

// AllowList returns the configured entries for modality.
func (c *ModelCatalog) AllowList(modality domain.Modality) []domain.AllowListEntry {
	return c.allowLists[modality]
}

// CanonicalID returns the allow-listed spelling of id for modality, or id
// unchanged when it is not allow-listed.
func (c *ModelCatalog) CanonicalID(modality domain.Modality, id string) string {
	for _, entry := range c.allowLists[modality] {
		if strings.EqualFold(entry.ID, id) {
			return entry.ID
		}
	}
	return id
}

func (c *ModelCatalog) filter(models []domain.ModelDescriptor, modality domain.Modality) []domain.ModelDescriptor {
	if modality == domain.ModalityNone {
		return models
	}
	if allowed := c.applyAllowList(models, modality); allowed != nil {
		return allowed
	}
	matched := c.classifier.Filter(models, modality)
	if len(matched) == 0 {
		return models
	}
	return matched
}

// applyAllowList returns the allow-list in its own order, enriched with live
// descriptors matched case-insensitively by id. nil means no allow-list.
func (c *ModelCatalog) applyAllowList(models []domain.ModelDescriptor, modality domain.Modality) []domain.ModelDescriptor {
	entries := c.allowLists[modality]
	if len(entries) == 0 {
		return nil
	}
	byID := make(map[string]domain.ModelDescriptor, len(models))
	for _, model := range models {
		// The last record for a repeated id wins.
		byID[strings.ToLower(model.ID)] = model
	}
	out := make([]domain.ModelDescriptor, 0, len(entries))
	for _, entry := range entries {
		if live, ok := byID[strings.ToLower(entry.ID)]; ok {
			out = append(out, live)
			continue
		}
		out = append(out, entry.Descriptor())
	}
	return out
}

func (c *ModelCatalog) allowListFallback(modality domain.Modality) []domain.ModelDescriptor {
	if modality == domain.ModalityNone {
		return nil
	}
	return c.applyAllowList(nil, modality)
}

func (c *ModelCatalog) staleSnapshot() []domain.ModelDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// catalog returns the fresh snapshot, refreshing it at most once per window.
// Concurrent callers on an expired snapshot share one refresh.
func (c *ModelCatalog) catalog(ctx context.Context) ([]domain.ModelDescriptor, error) {
	c.mu.RLock()
	snapshot, fetchedAt := c.snapshot, c.fetchedAt
	c.mu.RUnlock()
	if snapshot != nil && c.now().Sub(fetchedAt) < c.ttl {
		return snapshot, nil
	}

	v, err, _ := c.refresh.Do("catalog", func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.ModelDescriptor), nil
}

func (c *ModelCatalog) fetch(ctx context.Context) ([]domain.ModelDescriptor, error) {
	if c.snapshots != nil {
		cached, err := c.snapshots.LoadCatalog(ctx)
		switch {
		case err != nil:
			c.logger.Warn("Catalog snapshot cache read failed", "error", err.Error())
		case cached == nil:
		case c.now().Sub(cached.FetchedAt) < c.ttl:
			c.metrics.ObserveCatalogRefresh("cache", "hit")
			models := cached.Models
			if models == nil {
				models = []domain.ModelDescriptor{}
			}
			c.storeAt(models, cached.FetchedAt)
			return models, nil
		default:
			// Expired shared entries only back the stale fallback.
			c.metrics.ObserveCatalogRefresh("cache", "expired")
			c.keepIfEmpty(cached)
		}
	}

	if c.client == nil {
		c.metrics.ObserveCatalogRefresh("upstream", "error")
		return nil, domain.ErrMissingCredentials
	}

	models, err := c.client.ListModels(ctx)
	if err != nil {
		c.metrics.ObserveCatalogRefresh("upstream", "error")
		return nil, err
	}
	if models == nil {
		models = []domain.ModelDescriptor{}
	}
	fetchedAt := c.now()
	c.metrics.ObserveCatalogRefresh("upstream", "ok")
	c.storeAt(models, fetchedAt)
	c.logger.Info("Model catalog refreshed", "count", len(models))

	if c.snapshots != nil {
		if err := c.snapshots.StoreCatalog(ctx, domain.CatalogSnapshot{FetchedAt: fetchedAt, Models: models}); err != nil {
			c.logger.Warn("Catalog snapshot cache write failed", "error", err.Error())
		}
	}
	return models, nil
}

func (c *ModelCatalog) storeAt(models []domain.ModelDescriptor, fetchedAt time.Time) {
	c.mu.Lock()
	c.snapshot = models
	c.fetchedAt = fetchedAt
	c.mu.Unlock()
}

// keepIfEmpty adopts an expired shared snapshot when this instance has none,
// keeping its original fetch time so it is never served as fresh.
func (c *ModelCatalog) keepIfEmpty(cached *domain.CatalogSnapshot) {
	if cached.Models == nil {
		return
	}
	c.mu.Lock()
	if c.snapshot == nil {
		c.snapshot = cached.Models
		c.fetchedAt = cached.FetchedAt
	}
	c.mu.Unlock()
}
