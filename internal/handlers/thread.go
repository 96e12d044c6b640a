package handlers

import (
	"net/http"

	"commentbox/internal/config"
	"commentbox/internal/identity"
	"commentbox/internal/render"
	"commentbox/internal/services"
	"commentbox/internal/sitecache"
	"commentbox/internal/utils"

	"github.com/gin-gonic/gin"
)

// ThreadHandler serves the widget's read endpoints around a thread.
type ThreadHandler struct {
	*Transport
	threads *services.ThreadService
	sites   *sitecache.Resolver
	widget  config.WidgetConfig
}

func NewThreadHandler(t *Transport, threads *services.ThreadService, sites *sitecache.Resolver, widget config.WidgetConfig) *ThreadHandler {
	return &ThreadHandler{Transport: t, threads: threads, sites: sites, widget: widget}
}

// Info is the widget's first call on page load: it registers the thread and
// its titles and hands out the visitor's avatar.
func (h *ThreadHandler) Info(c *gin.Context) {
	site, err := querySite(c, h.sites)
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	url := c.Query("thread")
	if url == "" {
		h.Respond(c, http.StatusBadRequest, gin.H{"placement": render.PlacementComments, "content": "thread url not provided"})
		return
	}
	titles := services.Titles{
		Selector: render.Plain(c.Query("selector_title")),
		Page:     render.Plain(c.Query("page_title")),
		H1:       render.Plain(c.Query("h1_title")),
	}
	info, err := h.threads.Info(c.Request.Context(), site, url, titles, identity.Resolve(c))
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	h.Respond(c, http.StatusOK, info)
}

func (h *ThreadHandler) Header(c *gin.Context) {
	site, err := querySite(c, h.sites)
	if err != nil {
		h.Fail(c, render.PlacementHeader, err)
		return
	}
	t, err := h.threads.Thread(c.Request.Context(), site, utils.StringToUint(c.Query("thread")))
	if err != nil {
		h.Fail(c, render.PlacementHeader, err)
		return
	}
	html, err := h.render.Header(t)
	if err != nil {
		h.Fail(c, render.PlacementHeader, err)
		return
	}
	h.Respond(c, http.StatusOK, gin.H{"html": html, "html_container_name": render.PlacementHeader})
}

func (h *ThreadHandler) Footer(c *gin.Context) {
	site, err := querySite(c, h.sites)
	if err != nil {
		h.Fail(c, render.PlacementFooter, err)
		return
	}
	if _, err := h.threads.Thread(c.Request.Context(), site, utils.StringToUint(c.Query("thread"))); err != nil {
		h.Fail(c, render.PlacementFooter, err)
		return
	}

	avatar := identity.WidgetSession(c).AvatarNum()
	if avatar == 0 {
		avatar = h.widget.DefaultAvatar
	}
	html, err := h.render.Footer(render.FooterView{
		User:       identity.CurrentUser(c),
		Site:       site,
		AvatarNum:  avatar,
		CustomerID: site.CustomerIDValue(),
	})
	if err != nil {
		h.Fail(c, render.PlacementFooter, err)
		return
	}
	h.Respond(c, http.StatusOK, gin.H{"html": html, "html_container_name": render.PlacementFooter})
}

// CommentCount reports the visible comments of a thread, for comment
// counters placed outside the widget.
func (h *ThreadHandler) CommentCount(c *gin.Context) {
	site, err := querySite(c, h.sites)
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	n, err := h.threads.CommentCount(c.Request.Context(), site, c.Query("thread_url"))
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	h.Respond(c, http.StatusOK, gin.H{"comment_count": n})
}
