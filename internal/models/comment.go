package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ThreadID        uint      `gorm:"not null;index" json:"thread_id"`
	Thread          Thread    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID          *uint     `gorm:"index" json:"user_id"` // nil for anonymous posts
	User            *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	PosterName      string    `gorm:"size:100;not null" json:"poster_name"`
	Text            string    `gorm:"type:text;not null" json:"text"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	LikedByCount    int       `gorm:"default:0;not null" json:"-"`
	DislikedByCount int       `gorm:"default:0;not null" json:"-"`
	Hidden          bool      `gorm:"default:false;index" json:"hidden"`
	AvatarNum       int       `gorm:"default:6" json:"avatar_num"`
	IPAddress       *string   `gorm:"size:45" json:"-"`

	Likes    int `gorm:"-" json:"likes"`
	Dislikes int `gorm:"-" json:"dislikes"`
}

// Avatar returns the two-digit avatar selector, preferring the author's choice.
func (c *Comment) Avatar() string {
	if c.User != nil {
		return fmt.Sprintf("%02d", c.User.AvatarNum)
	}
	return fmt.Sprintf("%02d", c.AvatarNum)
}

// Hide marks the comment hidden. Idempotent.
func (c *Comment) Hide(tx *gorm.DB) error {
	c.Hidden = true
	return tx.Model(c).UpdateColumn("hidden", true).Error
}

func (c *Comment) Unhide(tx *gorm.DB) error {
	c.Hidden = false
	return tx.Model(c).UpdateColumn("hidden", false).Error
}

// DeleteBy hard-deletes the comment when actor is staff and is a no-op otherwise.
// Callers are expected to have checked scope already; this is the last guard.
// It reports whether a row was removed.
func (c *Comment) DeleteBy(tx *gorm.DB, actor *User) (bool, error) {
	if actor == nil || !actor.IsStaff {
		return false, nil
	}
	if err := tx.Where("target_type = ? AND target_id = ?", TargetComment, c.ID).Delete(&Reaction{}).Error; err != nil {
		return false, err
	}
	res := tx.Delete(&Comment{}, c.ID)
	return res.RowsAffected > 0, res.Error
}
