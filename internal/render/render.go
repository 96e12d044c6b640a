// Package render turns widget state into the HTML fragments the embeddable
// widget swaps into its containers.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"commentbox/internal/config"
	"commentbox/internal/models"

	"github.com/gin-contrib/multitemplate"
)

// Placement names the widget container a fragment belongs to.
const (
	PlacementComments = "comments_container"
	PlacementHeader   = "comments_header"
	PlacementFooter   = "comments_footer"
)

const (
	tmplComments     = "comments.html"
	tmplHeader       = "header.html"
	tmplFooter       = "footer.html"
	tmplPostResponse = "post_response.html"
)

var (
	//go:embed templates/comments.html
	commentsHTML string
	//go:embed templates/header.html
	headerHTML string
	//go:embed templates/footer.html
	footerHTML string
	//go:embed templates/post_response.html
	postResponseHTML string
)

// CommentsView is everything the comment list depends on.
type CommentsView struct {
	Comments       []models.Comment
	PostedComments []uint
	LastPostedID   uint
	LikedComments  []uint
	Disliked       []uint
	SiteAdmin      bool
	CustomerID     string
	AllComments    bool
}

type FooterView struct {
	User       *models.User
	Site       *models.Site
	AvatarNum  int
	CustomerID string
}

// Envelope wraps a response for cross-origin iframe posts; the page hands it
// to the embedding window with postMessage.
type Envelope struct {
	StatusCode  int    `json:"status_code"`
	RespData    string `json:"resp_data"`
	RequestPath string `json:"request_path"`
	IframeID    string `json:"iframeId"`
}

type Renderer interface {
	Comments(v CommentsView) (string, error)
	Header(t *models.Thread) (string, error)
	Footer(v FooterView) (string, error)
	PostResponse(e Envelope) (string, error)
}

// HTMLRenderer is the default Renderer backed by html/template sets.
type HTMLRenderer struct {
	templates multitemplate.Render
	widget    config.WidgetConfig
}

func NewHTMLRenderer(widget config.WidgetConfig) *HTMLRenderer {
	funcs := template.FuncMap{
		"timeAgo": timeAgo,
	}
	r := multitemplate.New()
	r.AddFromStringsFuncs(tmplComments, funcs, commentsHTML)
	r.AddFromStringsFuncs(tmplHeader, funcs, headerHTML)
	r.AddFromStringsFuncs(tmplFooter, funcs, footerHTML)
	r.AddFromStringsFuncs(tmplPostResponse, funcs, postResponseHTML)
	return &HTMLRenderer{templates: r, widget: widget}
}

type commentItem struct {
	ID        uint
	Name      string
	Avatar    string
	HTML      template.HTML
	CreatedAt time.Time
	Likes     int
	Dislikes  int
	Hidden    bool
	Posted    bool
	Last      bool
	Liked     bool
	Disliked  bool
}

type commentsPage struct {
	Items      []commentItem
	SiteAdmin  bool
	CustomerID string
	HasMore    bool
	Total      int
}

// Comments renders the thread's comment list. Hidden comments are shown to
// site admins only, and the list is cut to the configured length until the
// visitor asks for all comments.
func (r *HTMLRenderer) Comments(v CommentsView) (string, error) {
	posted := set(v.PostedComments)
	liked := set(v.LikedComments)
	disliked := set(v.Disliked)

	page := commentsPage{SiteAdmin: v.SiteAdmin, CustomerID: v.CustomerID}
	for i := range v.Comments {
		c := &v.Comments[i]
		if c.Hidden && !v.SiteAdmin {
			continue
		}
		page.Total++
		page.Items = append(page.Items, commentItem{
			ID:        c.ID,
			Name:      Plain(c.PosterName),
			Avatar:    c.Avatar(),
			HTML:      Text(c.Text),
			CreatedAt: c.CreatedAt,
			Likes:     c.Likes,
			Dislikes:  c.Dislikes,
			Hidden:    c.Hidden,
			Posted:    posted[c.ID],
			Last:      c.ID == v.LastPostedID,
			Liked:     liked[c.ID],
			Disliked:  disliked[c.ID],
		})
	}
	if limit := r.widget.DefaultComments; !v.AllComments && limit > 0 && len(page.Items) > limit {
		page.Items = page.Items[:limit]
		page.HasMore = true
	}
	return r.execute(tmplComments, page)
}

func (r *HTMLRenderer) Header(t *models.Thread) (string, error) {
	return r.execute(tmplHeader, t)
}

func (r *HTMLRenderer) Footer(v FooterView) (string, error) {
	avatars := make([]int, 0, r.widget.AvatarMax-r.widget.AvatarMin+1)
	for n := r.widget.AvatarMin; n <= r.widget.AvatarMax; n++ {
		avatars = append(avatars, n)
	}
	return r.execute(tmplFooter, struct {
		FooterView
		Avatars []int
	}{v, avatars})
}

func (r *HTMLRenderer) PostResponse(e Envelope) (string, error) {
	return r.execute(tmplPostResponse, e)
}

func (r *HTMLRenderer) execute(name string, data interface{}) (string, error) {
	t, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not registered", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func set(ids []uint) map[uint]bool {
	m := make(map[uint]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func timeAgo(t time.Time) string {
	seconds := int(time.Since(t).Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 2592000:
		return plural(seconds/86400, "day")
	case seconds < 31536000:
		return plural(seconds/2592000, "month")
	}
	return plural(seconds/31536000, "year")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
