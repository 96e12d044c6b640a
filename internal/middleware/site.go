package middleware

import (
	"errors"
	"log"
	"net/http"
	"time"

	"commentbox/internal/models"
	"commentbox/internal/sitecache"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SiteKey is the gin context key holding the *models.Site a widget request targets.
const SiteKey = "site"

// FailFunc writes an error payload in the caller's transport.
type FailFunc func(c *gin.Context, status int, payload interface{})

// HostCheck requires a domain form value naming a registered site.
func HostCheck(sites *sitecache.Resolver, fail FailFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		site, err := sites.Lookup(c.Request.Context(), c.PostForm("domain"))
		if err != nil {
			content := "unknown domain"
			switch {
			case errors.Is(err, sitecache.ErrNoDomain):
				content = "no domain provided"
			case !errors.Is(err, sitecache.ErrUnknownDomain):
				log.Printf("host check: %v", err)
			}
			fail(c, http.StatusBadRequest, gin.H{"placement": "comments_container", "content": content})
			c.Abort()
			return
		}
		c.Set(SiteKey, site)
		c.Next()
	}
}

// CurrentSite returns the site stored by HostCheck.
func CurrentSite(c *gin.Context) *models.Site {
	if v, ok := c.Get(SiteKey); ok {
		if s, ok := v.(*models.Site); ok {
			return s
		}
	}
	return nil
}

// WidgetCORS allows browser calls from registered site domains and from
// any explicitly configured origin.
func WidgetCORS(sites *sitecache.Resolver, extra []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: extra,
		AllowOriginWithContextFunc: func(c *gin.Context, origin string) bool {
			return sites.Known(c.Request.Context(), origin)
		},
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
