package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"commentbox/internal/identity"
	"commentbox/internal/middleware"
	"commentbox/internal/scope"
	"commentbox/internal/services"
	"commentbox/internal/sitecache"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// AdminHandler is the JSON API of the moderation panel. Everything is
// bounded by the scope LoadScope computed for the logged-in staff member,
// and anything outside it reads as not found.
type AdminHandler struct {
	accounts   *services.AccountService
	admin      *services.AdminService
	moderation *services.ModerationService
	sites      *services.SiteService
	resolver   *sitecache.Resolver
}

func NewAdminHandler(accounts *services.AccountService, admin *services.AdminService, moderation *services.ModerationService, sites *services.SiteService, resolver *sitecache.Resolver) *AdminHandler {
	return &AdminHandler{accounts: accounts, admin: admin, moderation: moderation, sites: sites, resolver: resolver}
}

type loginRequest struct {
	Email    string `form:"email" json:"email" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type bulkRequest struct {
	Action string `form:"action" json:"action" binding:"required,oneof=hide delete"`
	SiteID uint   `form:"site_id" json:"site_id"`
	IDs    []uint `form:"ids" json:"ids"`
}

type siteRequest struct {
	Domain           string `form:"domain" json:"domain" binding:"required"`
	AnonymousAllowed bool   `form:"anonymous_allowed" json:"anonymous_allowed"`
	CustomerID       string `form:"customer_id" json:"customer_id"`
}

type siteUpdateRequest struct {
	AnonymousAllowed *bool   `form:"anonymous_allowed" json:"anonymous_allowed"`
	CustomerID       *string `form:"customer_id" json:"customer_id"`
}

type assignRequest struct {
	UserID uint `form:"user_id" json:"user_id" binding:"required"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}
	u, err := h.accounts.StaffLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		AdminError(c, err)
		return
	}
	identity.Login(c, u)
	if err := sessions.Default(c).Save(); err != nil {
		AdminError(c, fmt.Errorf("save session: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *AdminHandler) Logout(c *gin.Context) {
	identity.Logout(c)
	if err := sessions.Default(c).Save(); err != nil {
		AdminError(c, fmt.Errorf("save session: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// Threads lists threads in scope, optionally of one site.
func (h *AdminHandler) Threads(c *gin.Context) {
	q := services.ThreadQuery{
		SortBy:   c.Query("sort_by"),
		Interval: c.Query("interval"),
		Now:      time.Now(),
	}
	if c.Param("site_id") != "" {
		id, ok := idParam(c, "site_id")
		if !ok {
			AdminError(c, fmt.Errorf("%w: site %s", services.ErrNotFound, c.Param("site_id")))
			return
		}
		q.SiteID = id
	}
	threads, err := h.admin.Threads(c.Request.Context(), middleware.CurrentScope(c), q)
	if err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads, "sort_by": q.SortBy, "interval": q.Interval})
}

func (h *AdminHandler) Comments(c *gin.Context) {
	id, ok := idParam(c, "thread_id")
	if !ok {
		AdminError(c, fmt.Errorf("%w: thread %s", services.ErrNotFound, c.Param("thread_id")))
		return
	}
	page, err := h.admin.Comments(c.Request.Context(), middleware.CurrentScope(c), id, boolQuery(c, "hidden"))
	if err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// BulkComments hides or deletes the submitted comments of a thread. Ids
// outside the scope or the thread are skipped.
func (h *AdminHandler) BulkComments(c *gin.Context) {
	threadID, ok := idParam(c, "thread_id")
	if !ok {
		AdminError(c, fmt.Errorf("%w: thread %s", services.ErrNotFound, c.Param("thread_id")))
		return
	}
	var req bulkRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be hide or delete"})
		return
	}

	ctx, sc := c.Request.Context(), middleware.CurrentScope(c)
	var done []uint
	var err error
	if req.Action == "hide" {
		done, err = h.moderation.BulkHideComments(ctx, sc, threadID, req.IDs)
	} else {
		done, err = h.moderation.BulkDeleteComments(ctx, sc, threadID, req.IDs)
	}
	if err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": req.Action, "ids": done})
}

func (h *AdminHandler) HideComment(c *gin.Context) {
	h.commentAction(c, h.moderation.HideComment)
}

func (h *AdminHandler) UnhideComment(c *gin.Context) {
	h.commentAction(c, h.moderation.UnhideComment)
}

func (h *AdminHandler) DeleteComment(c *gin.Context) {
	h.commentAction(c, h.moderation.DeleteComment)
}

func (h *AdminHandler) commentAction(c *gin.Context, action commentAction) {
	id, ok := idParam(c, "id")
	if !ok {
		AdminError(c, fmt.Errorf("%w: comment %s", services.ErrNotFound, c.Param("id")))
		return
	}
	comment, err := action(c.Request.Context(), middleware.CurrentScope(c), id)
	if errors.Is(err, services.ErrForbidden) {
		err = fmt.Errorf("%w: comment %d", services.ErrNotFound, id)
	}
	if err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

func (h *AdminHandler) Users(c *gin.Context) {
	siteID, ok := idParam(c, "site_id")
	if !ok {
		AdminError(c, fmt.Errorf("%w: site %s", services.ErrNotFound, c.Param("site_id")))
		return
	}
	page, err := h.admin.Users(c.Request.Context(), middleware.CurrentScope(c), siteID, boolQuery(c, "hidden"))
	if err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// BulkUsers hides the submitted users on a site or deletes their comments there.
func (h *AdminHandler) BulkUsers(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBind(&req); err != nil || req.SiteID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site_id and an action of hide or delete required"})
		return
	}

	ctx, sc := c.Request.Context(), middleware.CurrentScope(c)
	var done []uint
	var err error
	if req.Action == "hide" {
		done, err = h.moderation.BulkHideUsers(ctx, sc, req.SiteID, req.IDs)
	} else {
		done, err = h.moderation.BulkDeleteUsers(ctx, sc, req.SiteID, req.IDs)
	}
	if err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": req.Action, "ids": done})
}

func (h *AdminHandler) HideUser(c *gin.Context) {
	h.userAction(c, h.moderation.HideUser)
}

func (h *AdminHandler) UnhideUser(c *gin.Context) {
	h.userAction(c, h.moderation.UnhideUser)
}

func (h *AdminHandler) DeleteUserComments(c *gin.Context) {
	h.userAction(c, h.moderation.DeleteUserComments)
}

type userAction func(ctx context.Context, sc *scope.Scope, siteID, userID uint) error

func (h *AdminHandler) userAction(c *gin.Context, action userAction) {
	siteID, okSite := idParam(c, "site_id")
	userID, okUser := idParam(c, "user_id")
	if !okSite || !okUser {
		AdminError(c, fmt.Errorf("%w: user %s on site %s", services.ErrNotFound, c.Param("user_id"), c.Param("site_id")))
		return
	}
	if err := action(c.Request.Context(), middleware.CurrentScope(c), siteID, userID); err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site_id": siteID, "user_id": userID})
}

func (h *AdminHandler) Sites(c *gin.Context) {
	sites, err := h.sites.List(c.Request.Context(), middleware.CurrentScope(c))
	if err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sites": sites})
}

// CreateSite registers a new embedding domain. Superusers only.
func (h *AdminHandler) CreateSite(c *gin.Context) {
	var req siteRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain required"})
		return
	}
	site, err := h.sites.Create(c.Request.Context(), identity.CurrentUser(c), services.SiteInput{
		Domain:           req.Domain,
		AnonymousAllowed: req.AnonymousAllowed,
		CustomerID:       req.CustomerID,
	})
	if err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"site": site})
}

// UpdateSite changes a site's settings and drops its cached copy so widget
// requests see the change. Superusers only.
func (h *AdminHandler) UpdateSite(c *gin.Context) {
	siteID, ok := idParam(c, "site_id")
	if !ok {
		AdminError(c, fmt.Errorf("%w: site %s", services.ErrNotFound, c.Param("site_id")))
		return
	}
	var req siteUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid site settings"})
		return
	}
	site, err := h.sites.Update(c.Request.Context(), identity.CurrentUser(c), siteID, services.SiteUpdate{
		AnonymousAllowed: req.AnonymousAllowed,
		CustomerID:       req.CustomerID,
	})
	if err != nil {
		AdminError(c, err)
		return
	}
	h.resolver.Forget(c.Request.Context(), site.Domain)
	c.JSON(http.StatusOK, gin.H{"site": site})
}

// AssignAdmin makes a staff account an admin of a site. Superusers only.
func (h *AdminHandler) AssignAdmin(c *gin.Context) {
	siteID, ok := idParam(c, "site_id")
	if !ok {
		AdminError(c, fmt.Errorf("%w: site %s", services.ErrNotFound, c.Param("site_id")))
		return
	}
	var req assignRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	if err := h.sites.AssignAdmin(c.Request.Context(), identity.CurrentUser(c), siteID, req.UserID); err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site_id": siteID, "user_id": req.UserID})
}

// DeleteAccount removes an account with everything it wrote. Superusers only.
func (h *AdminHandler) DeleteAccount(c *gin.Context) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		AdminError(c, fmt.Errorf("%w: user %s", services.ErrNotFound, c.Param("user_id")))
		return
	}
	if err := h.accounts.DeleteAccount(c.Request.Context(), identity.CurrentUser(c), userID); err != nil {
		AdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

func boolQuery(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}
