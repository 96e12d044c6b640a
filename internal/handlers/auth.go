package handlers

import (
	"fmt"
	"net/http"

	"commentbox/internal/identity"
	"commentbox/internal/render"
	"commentbox/internal/services"
	"commentbox/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// AuthHandler serves the widget's account endpoints.
type AuthHandler struct {
	*Transport
	accounts *services.AccountService
}

func NewAuthHandler(t *Transport, accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{Transport: t, accounts: accounts}
}

// Register creates an account and logs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	in := services.RegisterInput{
		Email:     c.PostForm("email"),
		FullName:  c.PostForm("full_name"),
		Password:  c.PostForm("password"),
		Password2: c.PostForm("password2"),
		AvatarNum: int(utils.StringToUint(c.PostForm("avatar_num"))),
	}
	u, err := h.accounts.Register(c.Request.Context(), in)
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}

	identity.Login(c, u)
	if err := sessions.Default(c).Save(); err != nil {
		h.Fail(c, render.PlacementComments, fmt.Errorf("save session: %w", err))
		return
	}
	h.Respond(c, http.StatusOK, u.DisplayName())
}

// Login authenticates on the requesting site and loads the account's
// reactions into the session.
func (h *AuthHandler) Login(c *gin.Context) {
	siteID := utils.StringToUint(c.PostForm("site_id"))
	u, data, err := h.accounts.Login(c.Request.Context(), c.PostForm("email"), c.PostForm("password"), siteID)
	if err != nil {
		h.Fail(c, render.PlacementComments, err)
		return
	}

	identity.Login(c, u)
	identity.WidgetSession(c).Seed(data)
	h.Respond(c, http.StatusOK, u.DisplayName())
}

func (h *AuthHandler) Logout(c *gin.Context) {
	identity.Logout(c)
	identity.WidgetSession(c).Clear()
	h.Respond(c, http.StatusOK, "logged out")
}

// SetAvatar stores the chosen avatar for the visitor and, when logged in,
// on the account.
func (h *AuthHandler) SetAvatar(c *gin.Context) {
	n := int(utils.StringToUint(c.PostForm("avatar_num")))
	if err := h.accounts.SetAvatar(c.Request.Context(), identity.Resolve(c), n); err != nil {
		h.Fail(c, render.PlacementFooter, err)
		return
	}
	h.Respond(c, http.StatusOK, "ok")
}
