package sitecache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"commentbox/internal/models"

	"github.com/redis/go-redis/v9"
)

// Redis shares cached sites between instances.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to redisURL and checks the connection.
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisWithClient(client), nil
}

func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "site:"}
}

func (r *Redis) key(domain string) string {
	return r.prefix + domain
}

// Get treats Redis errors as misses; the database stays the source of truth.
func (r *Redis) Get(ctx context.Context, domain string) (*models.Site, bool) {
	raw, err := r.client.Get(ctx, r.key(domain)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("sitecache: redis get %s: %v", domain, err)
		return nil, false
	}
	var site models.Site
	if err := json.Unmarshal(raw, &site); err != nil {
		log.Printf("sitecache: decode %s: %v", domain, err)
		return nil, false
	}
	return &site, true
}

func (r *Redis) Set(ctx context.Context, site *models.Site, ttl time.Duration) {
	raw, err := json.Marshal(site)
	if err != nil {
		log.Printf("sitecache: encode %s: %v", site.Domain, err)
		return
	}
	if err := r.client.Set(ctx, r.key(site.Domain), raw, ttl).Err(); err != nil {
		log.Printf("sitecache: redis set %s: %v", site.Domain, err)
	}
}

func (r *Redis) Delete(ctx context.Context, domain string) {
	if err := r.client.Del(ctx, r.key(domain)).Err(); err != nil {
		log.Printf("sitecache: redis del %s: %v", domain, err)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
