package models

import (
	"time"
)

type Thread struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SiteID          uint      `gorm:"not null;uniqueIndex:idx_site_url" json:"site_id"`
	Site            Site      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	URL             string    `gorm:"size:255;not null;uniqueIndex:idx_site_url" json:"url"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	AllowComments   bool      `gorm:"default:true" json:"allow_comments"`
	LikedByCount    int       `gorm:"default:0;not null" json:"-"` // anonymous likes only
	DislikedByCount int       `gorm:"default:0;not null" json:"-"` // anonymous dislikes only
	SelectorTitle   string    `gorm:"size:500" json:"selector_title"`
	PageTitle       string    `gorm:"size:500" json:"page_title"`
	H1Title         string    `gorm:"size:500" json:"h1_title"`

	// filled in by queries, not stored
	Likes         int        `gorm:"-" json:"likes"`
	Dislikes      int        `gorm:"-" json:"dislikes"`
	LastCommentAt *time.Time `gorm:"-" json:"last_comment_at,omitempty"`
	CommentCount  int        `gorm:"-" json:"comment_count"`
}

// Title picks the first non-empty of selector, page and h1 title, falling back to the URL.
func (t *Thread) Title() string {
	switch {
	case t.SelectorTitle != "":
		return t.SelectorTitle
	case t.PageTitle != "":
		return t.PageTitle
	case t.H1Title != "":
		return t.H1Title
	default:
		return t.URL
	}
}
