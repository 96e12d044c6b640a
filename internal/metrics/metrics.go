// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentbox_reactions_total",
		Help: "Likes and dislikes recorded, by target and kind",
	}, []string{"target", "kind"})

	CommentsPostedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentbox_comments_posted_total",
		Help: "Comments posted through the widget, by poster type",
	}, []string{"poster"})

	ModerationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentbox_moderation_actions_total",
		Help: "Moderation actions applied, by action",
	}, []string{"action"})

	ThreadsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commentbox_threads_created_total",
		Help: "Threads created lazily on first widget request",
	})

	SiteCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentbox_site_cache_lookups_total",
		Help: "Site domain lookups, by result",
	}, []string{"result"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commentbox_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)

// Moderation action labels.
const (
	ActionHideComment   = "hide_comment"
	ActionUnhideComment = "unhide_comment"
	ActionDeleteComment = "delete_comment"
	ActionHideUser      = "hide_user"
	ActionUnhideUser    = "unhide_user"
	ActionDeleteUser    = "delete_user"
)

// Middleware records request durations by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
