package testutils

import (
	"fmt"
	"time"

	"commentbox/internal/models"
	"commentbox/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultPassword is the plain password of every fixture account.
const DefaultPassword = "password"

// UserOption configures a test user.
type UserOption func(*models.User)

func WithEmail(email string) UserOption {
	return func(u *models.User) { u.Email = email }
}

func WithFullName(name string) UserOption {
	return func(u *models.User) { u.FullName = name }
}

// AsStaff marks the account as a site administrator.
func AsStaff() UserOption {
	return func(u *models.User) { u.IsStaff = true }
}

// AsSuperuser marks the account as staff and superuser.
func AsSuperuser() UserOption {
	return func(u *models.User) {
		u.IsStaff = true
		u.IsSuperuser = true
	}
}

func Inactive() UserOption {
	return func(u *models.User) { u.IsActive = false }
}

// CreateTestUser creates an active account with a unique email.
func CreateTestUser(conn *gorm.DB, opts ...UserOption) *models.User {
	hash, err := utils.HashPassword(DefaultPassword)
	if err != nil {
		panic(fmt.Sprintf("Failed to hash password: %v", err))
	}
	u := &models.User{
		Email:     fmt.Sprintf("test_%s@example.com", uuid.New().String()),
		FullName:  "Test User",
		Password:  hash,
		IsActive:  true,
		AvatarNum: 6,
	}
	for _, opt := range opts {
		opt(u)
	}
	if err := conn.Create(u).Error; err != nil {
		panic(fmt.Sprintf("Failed to create test user: %v", err))
	}
	if !u.IsActive {
		conn.Model(u).UpdateColumn("is_active", false)
	}
	return u
}

// SiteOption configures a test site.
type SiteOption func(*models.Site)

func WithDomain(domain string) SiteOption {
	return func(s *models.Site) { s.Domain = domain }
}

func WithCustomerID(id string) SiteOption {
	return func(s *models.Site) { s.CustomerID = &id }
}

// CreateTestSite creates a site with a unique domain, administered by admins.
func CreateTestSite(conn *gorm.DB, admins []*models.User, opts ...SiteOption) *models.Site {
	s := &models.Site{
		Domain: fmt.Sprintf("site-%s.example.com", uuid.New().String()[:8]),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := conn.Create(s).Error; err != nil {
		panic(fmt.Sprintf("Failed to create test site: %v", err))
	}
	for _, a := range admins {
		if err := conn.Exec("INSERT INTO site_admins (site_id, user_id) VALUES (?, ?)", s.ID, a.ID).Error; err != nil {
			panic(fmt.Sprintf("Failed to assign site admin: %v", err))
		}
	}
	return s
}

// CreateTestThread creates a thread on site. An empty url gets a unique one.
func CreateTestThread(conn *gorm.DB, site *models.Site, url string) *models.Thread {
	if url == "" {
		url = "/" + uuid.New().String()
	}
	t := &models.Thread{SiteID: site.ID, URL: url, AllowComments: true}
	if err := conn.Create(t).Error; err != nil {
		panic(fmt.Sprintf("Failed to create test thread: %v", err))
	}
	return t
}

// CommentOption configures a test comment.
type CommentOption func(*models.Comment)

func ByUser(u *models.User) CommentOption {
	return func(c *models.Comment) {
		c.UserID = &u.ID
		c.PosterName = u.DisplayName()
	}
}

func HiddenComment() CommentOption {
	return func(c *models.Comment) { c.Hidden = true }
}

func CreatedAt(at time.Time) CommentOption {
	return func(c *models.Comment) { c.CreatedAt = at }
}

// CreateTestComment creates an anonymous comment unless ByUser is given.
func CreateTestComment(conn *gorm.DB, thread *models.Thread, opts ...CommentOption) *models.Comment {
	c := &models.Comment{
		ThreadID:   thread.ID,
		PosterName: "Anonymous",
		Text:       "test comment",
		AvatarNum:  6,
	}
	for _, opt := range opts {
		opt(c)
	}
	hidden := c.Hidden
	if err := conn.Omit("Thread", "User").Create(c).Error; err != nil {
		panic(fmt.Sprintf("Failed to create test comment: %v", err))
	}
	if hidden {
		conn.Model(c).UpdateColumn("hidden", true)
	}
	return c
}

// HideUserOn adds site to the user's hidden set without the staff guard.
func HideUserOn(conn *gorm.DB, u *models.User, site *models.Site) {
	if err := conn.Exec("INSERT INTO user_hidden_sites (user_id, site_id) VALUES (?, ?)", u.ID, site.ID).Error; err != nil {
		panic(fmt.Sprintf("Failed to hide user: %v", err))
	}
}
