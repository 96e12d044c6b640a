package handlers

import (
	"errors"
	"fmt"

	"commentbox/internal/models"
	"commentbox/internal/render"
	"commentbox/internal/services"
	"commentbox/internal/sitecache"
	"commentbox/internal/widget"

	"github.com/gin-gonic/gin"
)

// querySite resolves the domain query parameter of GET widget calls.
func querySite(c *gin.Context, sites *sitecache.Resolver) (*models.Site, error) {
	domain := c.Query("domain")
	site, err := sites.Lookup(c.Request.Context(), domain)
	switch {
	case errors.Is(err, sitecache.ErrNoDomain):
		return nil, fmt.Errorf("%w: no domain provided", services.ErrValidation)
	case errors.Is(err, sitecache.ErrUnknownDomain):
		return nil, fmt.Errorf("%w: domain with name %s does not exist", services.ErrValidation, domain)
	}
	return site, err
}

// commentsHTML renders a listing with the visitor's session state.
func commentsHTML(r render.Renderer, site *models.Site, l *services.Listing, ws *widget.Session) (string, error) {
	last, _ := ws.LastPosted()
	return r.Comments(render.CommentsView{
		Comments:       l.Comments,
		PostedComments: ws.IDs(widget.PostedComments),
		LastPostedID:   last,
		LikedComments:  ws.IDs(widget.LikedComments),
		Disliked:       ws.IDs(widget.DislikedComments),
		SiteAdmin:      l.SiteAdmin,
		CustomerID:     site.CustomerIDValue(),
		AllComments:    ws.AllComments(),
	})
}
