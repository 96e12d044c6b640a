// Package sitecache resolves embedding domains to sites. Every widget
// request starts with such a lookup, so results are cached in process or in
// Redis when several instances share the load.
package sitecache

import (
	"context"
	"errors"
	"log"
	"time"

	"commentbox/internal/metrics"
	"commentbox/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNoDomain      = errors.New("no domain provided")
	ErrUnknownDomain = errors.New("unknown domain")
)

// Cache stores sites by normalized domain. Misses are never cached, so a
// new site is visible immediately.
type Cache interface {
	Get(ctx context.Context, domain string) (*models.Site, bool)
	Set(ctx context.Context, site *models.Site, ttl time.Duration)
	Delete(ctx context.Context, domain string)
}

type Resolver struct {
	db    *gorm.DB
	cache Cache
	ttl   time.Duration
}

func NewResolver(db *gorm.DB, cache Cache, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{db: db, cache: cache, ttl: ttl}
}

// Lookup returns the site registered for domain. The domain may carry a
// scheme or a path.
func (r *Resolver) Lookup(ctx context.Context, domain string) (*models.Site, error) {
	if domain == "" {
		return nil, ErrNoDomain
	}
	normalized, ok := models.NormalizeDomain(domain)
	if !ok {
		metrics.SiteCacheLookups.WithLabelValues("invalid").Inc()
		return nil, ErrUnknownDomain
	}
	if site, ok := r.cache.Get(ctx, normalized); ok {
		metrics.SiteCacheLookups.WithLabelValues("hit").Inc()
		return site, nil
	}

	var site models.Site
	err := r.db.WithContext(ctx).Where("domain = ?", normalized).First(&site).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.SiteCacheLookups.WithLabelValues("unknown").Inc()
		return nil, ErrUnknownDomain
	}
	if err != nil {
		return nil, err
	}
	metrics.SiteCacheLookups.WithLabelValues("miss").Inc()
	r.cache.Set(ctx, &site, r.ttl)
	return &site, nil
}

// Known reports whether domain belongs to a registered site.
func (r *Resolver) Known(ctx context.Context, domain string) bool {
	_, err := r.Lookup(ctx, domain)
	if err != nil && !errors.Is(err, ErrUnknownDomain) && !errors.Is(err, ErrNoDomain) {
		log.Printf("sitecache: lookup %q: %v", domain, err)
	}
	return err == nil
}

// Forget drops a cached site, e.g. after it was changed.
func (r *Resolver) Forget(ctx context.Context, domain string) {
	if normalized, ok := models.NormalizeDomain(domain); ok {
		r.cache.Delete(ctx, normalized)
	}
}
