// Package identity resolves who is acting on a request: an anonymous visitor
// known only by their widget session, or a logged-in account.
package identity

import (
	"commentbox/internal/models"
	"commentbox/internal/widget"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// UserKey is the gin context key holding the loaded *models.User.
const UserKey = "user"

// SessionUserKey is the session key holding the logged-in account id.
const SessionUserKey = "user_id"

const widgetKey = "widget_session"

type Identity interface {
	// Account returns the logged-in account, nil for anonymous visitors.
	Account() *models.User
	Session() *widget.Session
	IsAnonymous() bool
}

type Anonymous struct {
	Widget *widget.Session
}

func (a Anonymous) Account() *models.User    { return nil }
func (a Anonymous) Session() *widget.Session { return a.Widget }
func (a Anonymous) IsAnonymous() bool        { return true }

type Authenticated struct {
	User   *models.User
	Widget *widget.Session
}

func (a Authenticated) Account() *models.User    { return a.User }
func (a Authenticated) Session() *widget.Session { return a.Widget }
func (a Authenticated) IsAnonymous() bool        { return false }

// New builds the identity for user, anonymous when user is nil or inactive.
func New(user *models.User, ws *widget.Session) Identity {
	if user == nil || !user.IsActive {
		return Anonymous{Widget: ws}
	}
	return Authenticated{User: user, Widget: ws}
}

// WidgetSession returns the request's widget session, creating it once per request.
func WidgetSession(c *gin.Context) *widget.Session {
	if v, ok := c.Get(widgetKey); ok {
		return v.(*widget.Session)
	}
	ws := widget.New(sessions.Default(c))
	c.Set(widgetKey, ws)
	return ws
}

// CurrentUser returns the account loaded by the LoadUser middleware.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// Resolve never fails: missing or invalid credentials yield Anonymous.
func Resolve(c *gin.Context) Identity {
	return New(CurrentUser(c), WidgetSession(c))
}

// SaveSession writes the widget session back if the request changed it.
func SaveSession(c *gin.Context) error {
	if v, ok := c.Get(widgetKey); ok {
		return v.(*widget.Session).Save()
	}
	return nil
}

// Login binds the account to the visitor's session.
func Login(c *gin.Context, u *models.User) {
	sessions.Default(c).Set(SessionUserKey, u.ID)
	c.Set(UserKey, u)
}

// Logout forgets the account; the widget state is cleared by the caller.
func Logout(c *gin.Context) {
	sessions.Default(c).Delete(SessionUserKey)
	c.Set(UserKey, nil)
}
