package middleware

import (
	"fmt"

	"commentbox/internal/identity"
	"commentbox/internal/scope"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const ScopeKey = "scope"

// ErrorFunc reports err in the caller's error format.
type ErrorFunc func(c *gin.Context, err error)

// LoadScope computes the moderation scope of the current account once per
// request. Anonymous visitors get an empty scope.
func LoadScope(db *gorm.DB, fail ErrorFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, err := scope.For(c.Request.Context(), db, identity.CurrentUser(c))
		if err != nil {
			fail(c, fmt.Errorf("load scope: %w", err))
			c.Abort()
			return
		}
		c.Set(ScopeKey, sc)
		c.Next()
	}
}

// CurrentScope returns the scope stored by LoadScope, empty when missing.
func CurrentScope(c *gin.Context) *scope.Scope {
	if v, ok := c.Get(ScopeKey); ok {
		if sc, ok := v.(*scope.Scope); ok {
			return sc
		}
	}
	sc, _ := scope.For(c.Request.Context(), nil, nil)
	return sc
}
