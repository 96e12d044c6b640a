package handlers

import (
	"context"
	"net/http"
	"strings"

	"commentbox/internal/identity"
	"commentbox/internal/middleware"
	"commentbox/internal/models"
	"commentbox/internal/render"
	"commentbox/internal/scope"
	"commentbox/internal/services"
	"commentbox/internal/sitecache"
	"commentbox/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	*Transport
	comments   *services.CommentService
	moderation *services.ModerationService
	sites      *sitecache.Resolver
}

func NewCommentHandler(t *Transport, comments *services.CommentService, moderation *services.ModerationService, sites *sitecache.Resolver) *CommentHandler {
	return &CommentHandler{Transport: t, comments: comments, moderation: moderation, sites: sites}
}

// List returns the comment list fragment of a thread.
func (h *CommentHandler) List(c *gin.Context) {
	site, err := querySite(c, h.sites)
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	threadID := utils.StringToUint(c.Query("thread"))
	if threadID == 0 {
		h.Respond(c, http.StatusBadRequest, gin.H{"placement": render.PlacementComments, "content": "thread not provided"})
		return
	}

	who := identity.Resolve(c)
	if c.Query("all") != "" {
		who.Session().SetAllComments()
	}
	l, err := h.comments.List(c.Request.Context(), site, threadID, who)
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	html, err := commentsHTML(h.render, site, l, who.Session())
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	h.Respond(c, http.StatusOK, gin.H{"html": html, "html_container_name": render.PlacementComments})
}

// Post stores a comment and returns the redrawn list.
func (h *CommentHandler) Post(c *gin.Context) {
	site := middleware.CurrentSite(c)
	in := services.PostInput{
		ThreadURL:  c.PostForm("thread_url"),
		Text:       c.PostForm("text"),
		PosterName: c.PostForm("poster_name"),
		IPAddress:  c.PostForm("ip_address"),
	}
	// thread is an id once the widget knows it, a url before that
	if thread := strings.TrimSpace(c.PostForm("thread")); thread != "" {
		if id := utils.StringToUint(thread); id != 0 {
			in.ThreadID = id
		} else if in.ThreadURL == "" {
			in.ThreadURL = thread
		}
	}
	if in.IPAddress == "" {
		in.IPAddress = c.ClientIP()
	}

	who := identity.Resolve(c)
	comment, err := h.comments.Post(c.Request.Context(), site, in, who)
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	h.redraw(c, comment.ID, who, gin.H{"comment_id": comment.ID})
}

func (h *CommentHandler) Hide(c *gin.Context) {
	h.moderate(c, h.moderation.HideComment)
}

func (h *CommentHandler) Unhide(c *gin.Context) {
	h.moderate(c, h.moderation.UnhideComment)
}

type commentAction func(ctx context.Context, sc *scope.Scope, commentID uint) (*models.Comment, error)

// moderate runs a widget moderation action; only admins of the comment's
// site may use it.
func (h *CommentHandler) moderate(c *gin.Context, action commentAction) {
	id, ok := idParam(c, "id")
	if !ok {
		h.Respond(c, http.StatusNotFound, gin.H{"placement": render.PlacementComments, "content": "comment not found"})
		return
	}
	if _, err := h.comments.OnSite(c.Request.Context(), middleware.CurrentSite(c), id); err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	if _, err := action(c.Request.Context(), middleware.CurrentScope(c), id); err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	h.redraw(c, id, identity.Resolve(c), nil)
}

// redraw answers with the list of the thread commentID belongs to.
func (h *CommentHandler) redraw(c *gin.Context, commentID uint, who identity.Identity, extra gin.H) {
	site := middleware.CurrentSite(c)
	l, err := h.comments.ListForComment(c.Request.Context(), site, commentID, who)
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	html, err := commentsHTML(h.render, site, l, who.Session())
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	resp := gin.H{"placement": render.PlacementComments, "content": html}
	for k, v := range extra {
		resp[k] = v
	}
	h.Respond(c, http.StatusOK, resp)
}
