package sitecache

import (
	"context"
	"log"
	"time"

	"commentbox/internal/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

type lruItem struct {
	Site      models.Site
	ExpiresAt time.Time
}

// LRU is the in-process cache used when no Redis is configured.
type LRU struct {
	cache *lru.Cache[string, lruItem]
}

func NewLRU(size int) *LRU {
	if size <= 0 {
		size = 500
	}
	l, err := lru.New[string, lruItem](size)
	if err != nil {
		log.Fatalf("Failed to create LRU cache: %v", err)
	}
	return &LRU{cache: l}
}

func (c *LRU) Get(_ context.Context, domain string) (*models.Site, bool) {
	val, ok := c.cache.Get(domain)
	if !ok {
		return nil, false
	}
	// expired
	if time.Now().After(val.ExpiresAt) {
		c.cache.Remove(domain)
		return nil, false
	}
	site := val.Site
	return &site, true
}

func (c *LRU) Set(_ context.Context, site *models.Site, ttl time.Duration) {
	c.cache.Add(site.Domain, lruItem{Site: *site, ExpiresAt: time.Now().Add(ttl)})
}

func (c *LRU) Delete(_ context.Context, domain string) {
	c.cache.Remove(domain)
}
