package handlers

import (
	"context"
	"net/http"

	"commentbox/internal/identity"
	"commentbox/internal/middleware"
	"commentbox/internal/render"
	"commentbox/internal/services"

	"github.com/gin-gonic/gin"
)

// ReactionHandler serves likes and dislikes from the widget. Comment
// reactions redraw the comment list, thread reactions the header.
type ReactionHandler struct {
	*Transport
	reactions *services.ReactionService
	comments  *services.CommentService
	threads   *services.ThreadService
}

func NewReactionHandler(t *Transport, reactions *services.ReactionService, comments *services.CommentService, threads *services.ThreadService) *ReactionHandler {
	return &ReactionHandler{Transport: t, reactions: reactions, comments: comments, threads: threads}
}

type reactFunc func(ctx context.Context, id uint, who identity.Identity) (services.Counts, error)

func (h *ReactionHandler) LikeComment(c *gin.Context) {
	h.comment(c, h.reactions.LikeComment)
}

func (h *ReactionHandler) DislikeComment(c *gin.Context) {
	h.comment(c, h.reactions.DislikeComment)
}

func (h *ReactionHandler) LikeThread(c *gin.Context) {
	h.thread(c, h.reactions.LikeThread)
}

func (h *ReactionHandler) DislikeThread(c *gin.Context) {
	h.thread(c, h.reactions.DislikeThread)
}

// comment reacts to a comment on a thread of the requesting site.
func (h *ReactionHandler) comment(c *gin.Context, react reactFunc) {
	id, ok := idParam(c, "id")
	if !ok {
		h.Respond(c, http.StatusNotFound, gin.H{"placement": render.PlacementComments, "content": "comment not found"})
		return
	}
	ctx := c.Request.Context()
	site := middleware.CurrentSite(c)
	if _, err := h.comments.OnSite(ctx, site, id); err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	who := identity.Resolve(c)
	if _, err := react(ctx, id, who); err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}

	l, err := h.comments.ListForComment(ctx, site, id, who)
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	html, err := commentsHTML(h.render, site, l, who.Session())
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}
	h.Respond(c, http.StatusOK, gin.H{"placement": render.PlacementComments, "content": html})
}

// thread reacts to a thread of the site named by the domain form value.
func (h *ReactionHandler) thread(c *gin.Context, react reactFunc) {
	id, ok := idParam(c, "id")
	if !ok {
		h.Respond(c, http.StatusNotFound, gin.H{"placement": render.PlacementHeader, "content": "thread not found"})
		return
	}
	ctx := c.Request.Context()
	site := middleware.CurrentSite(c)
	if _, err := h.threads.Thread(ctx, site, id); err != nil {
		h.Fail(c, render.PlacementHeader, err)
		return
	}
	if _, err := react(ctx, id, identity.Resolve(c)); err != nil {
		h.Fail(c, render.PlacementHeader, err)
		return
	}

	t, err := h.threads.Thread(ctx, site, id)
	if err != nil {
		h.Fail(c, render.PlacementHeader, err)
		return
	}
	html, err := h.render.Header(t)
	if err != nil {
		h.Fail(c, render.PlacementHeader, err)
		return
	}
	h.Respond(c, http.StatusOK, gin.H{"placement": render.PlacementHeader, "content": html})
}
