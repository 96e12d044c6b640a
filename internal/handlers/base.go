package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"commentbox/internal/identity"
	"commentbox/internal/render"
	"commentbox/internal/services"
	"commentbox/internal/utils"

	"github.com/gin-gonic/gin"
)

// Transport writes widget responses. Browser XHR and GET calls get JSON
// (JSONP when a callback is given); plain form posts come from the widget's
// hidden iframe and get an HTML page that posts the result to the parent.
type Transport struct {
	render render.Renderer
}

func NewTransport(r render.Renderer) *Transport {
	return &Transport{render: r}
}

// Respond writes payload with status in the caller's transport. The widget
// session is saved first so the cookie goes out with the response; a failed
// save replaces the payload with an internal error.
func (t *Transport) Respond(c *gin.Context, status int, payload interface{}) {
	if err := identity.SaveSession(c); err != nil {
		log.Printf("save session: %v", err)
		status = http.StatusInternalServerError
		payload = gin.H{"placement": render.PlacementComments, "content": "internal error"}
	}

	if c.Request.Method == http.MethodGet || wantsJSON(c) {
		if c.Request.Method == http.MethodGet && c.Query("callback") != "" {
			c.JSONP(status, payload)
			return
		}
		c.JSON(status, payload)
		return
	}

	var data string
	switch v := payload.(type) {
	case string:
		data = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			log.Printf("encode response: %v", err)
			status, data = http.StatusInternalServerError, "internal error"
		} else {
			data = string(b)
		}
	}

	page, err := t.render.PostResponse(render.Envelope{
		StatusCode:  status,
		RespData:    data,
		RequestPath: c.Request.URL.Path,
		IframeID:    c.PostForm("iframeId"),
	})
	if err != nil {
		log.Printf("render post response: %v", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	// the iframe reads the status from the envelope
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// Fail reports err to the widget in the container named by placement.
func (t *Transport) Fail(c *gin.Context, placement string, err error) {
	status := statusOf(err)
	content := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		content = "internal error"
	}
	t.Respond(c, status, gin.H{"placement": placement, "content": content})
}

func wantsJSON(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AdminError writes the admin API error payload.
func AdminError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// idParam parses a positive numeric route parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id := utils.StringToUint(c.Param(name))
	return id, id != 0
}
