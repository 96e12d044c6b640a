package router

import (
	"net/http"

	"commentbox/internal/config"
	"commentbox/internal/handlers"
	"commentbox/internal/metrics"
	"commentbox/internal/middleware"
	"commentbox/internal/render"
	"commentbox/internal/services"
	"commentbox/internal/sitecache"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	DB       *gorm.DB
	Config   *config.AppConfig
	Sites    *sitecache.Resolver
	Renderer render.Renderer
	Sessions sessions.Store
}

// RegisterRoutes installs the shared middleware and every route.
func RegisterRoutes(r *gin.Engine, d Deps) {
	conf := d.Config

	r.Use(metrics.Middleware())
	r.Use(middleware.WidgetCORS(d.Sites, conf.CORS.AllowOrigins))
	r.Use(sessions.Sessions(conf.Session.Name, d.Sessions))
	r.Use(middleware.LoadUser(d.DB))

	// Services
	accounts := services.NewAccountService(d.DB, conf.Widget)
	comments := services.NewCommentService(d.DB, conf.Widget)
	threads := services.NewThreadService(d.DB, conf.Widget)
	reactions := services.NewReactionService(d.DB)
	moderation := services.NewModerationService(d.DB)
	admin := services.NewAdminService(d.DB)
	sites := services.NewSiteService(d.DB)

	// Handlers
	transport := handlers.NewTransport(d.Renderer)
	authHandler := handlers.NewAuthHandler(transport, accounts)
	commentHandler := handlers.NewCommentHandler(transport, comments, moderation, d.Sites)
	reactionHandler := handlers.NewReactionHandler(transport, reactions, comments, threads)
	threadHandler := handlers.NewThreadHandler(transport, threads, d.Sites, conf.Widget)
	adminHandler := handlers.NewAdminHandler(accounts, admin, moderation, sites, d.Sites)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	// Widget, public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.POST("/logout", authHandler.Logout)
	r.POST("/set_avatar", authHandler.SetAvatar)

	r.GET("/comments", commentHandler.List)
	r.GET("/thread_info", threadHandler.Info)
	r.GET("/header", threadHandler.Header)
	r.GET("/footer", threadHandler.Footer)
	r.GET("/comment_count", threadHandler.CommentCount)

	widgetScope := middleware.LoadScope(d.DB, func(c *gin.Context, err error) {
		transport.Fail(c, render.PlacementComments, err)
	})

	// Widget, domain checked
	hosted := r.Group("/")
	hosted.Use(middleware.HostCheck(d.Sites, transport.Respond))
	{
		hosted.POST("/comment", commentHandler.Post)
		hosted.POST("/comment/:id/like", reactionHandler.LikeComment)
		hosted.POST("/comment/:id/dislike", reactionHandler.DislikeComment)
		hosted.POST("/comment/:id/hide", widgetScope, commentHandler.Hide)
		hosted.POST("/comment/:id/unhide", widgetScope, commentHandler.Unhide)
		hosted.POST("/thread/:id/like", reactionHandler.LikeThread)
		hosted.POST("/thread/:id/dislike", reactionHandler.DislikeThread)
	}

	// Admin API
	r.POST("/admin/login", adminHandler.Login)
	r.POST("/admin/logout", adminHandler.Logout)

	staff := r.Group("/admin")
	staff.Use(middleware.StaffRequired(), middleware.LoadScope(d.DB, handlers.AdminError))
	{
		staff.GET("/threads", adminHandler.Threads)
		staff.GET("/threads/:thread_id/comments", adminHandler.Comments)
		staff.POST("/threads/:thread_id/comments/bulk", adminHandler.BulkComments)

		staff.POST("/comments/:id/hide", adminHandler.HideComment)
		staff.POST("/comments/:id/unhide", adminHandler.UnhideComment)
		staff.POST("/comments/:id/delete", adminHandler.DeleteComment)

		staff.GET("/sites", adminHandler.Sites)
		staff.POST("/sites", adminHandler.CreateSite)
		staff.POST("/sites/:site_id", adminHandler.UpdateSite)
		staff.GET("/sites/:site_id/threads", adminHandler.Threads)
		staff.GET("/sites/:site_id/users", adminHandler.Users)
		staff.POST("/sites/:site_id/admins", adminHandler.AssignAdmin)

		staff.POST("/users/bulk", adminHandler.BulkUsers)
		staff.POST("/users/:site_id/:user_id/hide", adminHandler.HideUser)
		staff.POST("/users/:site_id/:user_id/unhide", adminHandler.UnhideUser)
		staff.POST("/users/:site_id/:user_id/delete", adminHandler.DeleteUserComments)
		staff.DELETE("/users/:user_id", adminHandler.DeleteAccount)
	}
}
