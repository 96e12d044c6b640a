// Package sessionstore builds the server-side session store. The cookie only
// carries a signed session id; the widget's reaction history lives in Redis
// or, without Redis, in process memory.
package sessionstore

import (
	"fmt"
	"net/http"
	"strconv"

	"commentbox/internal/config"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memstore"
	redisstore "github.com/gin-contrib/sessions/redis"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "session:"
	poolSize  = 10
)

// New returns a Redis-backed store when redisURL is set, otherwise an
// in-memory one, with the cookie options applied.
func New(conf config.SessionConfig, redisURL string) (sessions.Store, error) {
	var store sessions.Store
	if redisURL != "" {
		rs, err := newRedis(conf, redisURL)
		if err != nil {
			return nil, err
		}
		store = rs
	} else {
		store = memstore.NewStore([]byte(conf.Secret))
	}
	store.Options(Options(conf))
	return store, nil
}

func newRedis(conf config.SessionConfig, redisURL string) (sessions.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	store, err := redisstore.NewStoreWithDB(poolSize, "tcp", opts.Addr, opts.Username, opts.Password,
		strconv.Itoa(opts.DB), []byte(conf.Secret))
	if err != nil {
		return nil, fmt.Errorf("connect session redis: %w", err)
	}
	rs, err := redisstore.GetRedisStore(store)
	if err != nil {
		return nil, err
	}
	// reaction histories grow without bound
	rs.SetMaxLength(0)
	rs.SetKeyPrefix(keyPrefix)
	return store, nil
}

// Options are the cookie settings for conf.
func Options(conf config.SessionConfig) sessions.Options {
	opts := sessions.Options{
		Path:     "/",
		MaxAge:   conf.MaxAge,
		HttpOnly: true,
		Secure:   conf.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if conf.Secure {
		// the widget runs in a third-party iframe
		opts.SameSite = http.SameSiteNoneMode
	}
	return opts
}
