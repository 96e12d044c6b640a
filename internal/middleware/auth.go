package middleware

import (
	"net/http"

	"commentbox/internal/identity"
	"commentbox/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LoadUser retrieves the account from the session and sets it on the context.
// Missing or stale ids leave the request anonymous.
func LoadUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(identity.SessionUserKey)

		if userID != nil {
			var user models.User
			result := db.WithContext(c.Request.Context()).First(&user, userID)
			if result.Error == nil && user.IsActive {
				c.Set(identity.UserKey, &user)
			}
		}
		c.Next()
	}
}

// StaffRequired lets through staff and superusers only.
func StaffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := identity.CurrentUser(c)
		if u == nil || (!u.IsStaff && !u.IsSuperuser) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user not staff"})
			return
		}
		c.Next()
	}
}
