package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName    string    `gorm:"size:255" json:"full_name"`
	Password    string    `gorm:"not null" json:"-"` // bcrypt hash
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	IsStaff     bool      `gorm:"default:false" json:"is_staff"`
	IsSuperuser bool      `gorm:"default:false" json:"is_superuser"`
	AvatarNum   int       `gorm:"default:6" json:"avatar_num"`
	CreatedAt   time.Time `json:"created"`
	HiddenOn    []Site    `gorm:"many2many:user_hidden_sites;constraint:OnDelete:CASCADE;" json:"-"`
}

// DisplayName falls back to the email when no name was given.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// MayBeModerated reports whether hide/delete operations may touch the account.
// Staff and superusers are never moderated, whoever asks.
func MayBeModerated(u *User) bool {
	return u != nil && !u.IsStaff && !u.IsSuperuser
}

// IsHiddenOn checks the site-scoped hidden membership.
func (u *User) IsHiddenOn(tx *gorm.DB, siteID uint) (bool, error) {
	var count int64
	err := tx.Table("user_hidden_sites").
		Where("user_id = ? AND site_id = ?", u.ID, siteID).
		Count(&count).Error
	return count > 0, err
}

// Hide adds siteID to the account's hidden set. No-op for protected accounts.
func (u *User) Hide(tx *gorm.DB, siteID uint) error {
	if !MayBeModerated(u) {
		return nil
	}
	hidden, err := u.IsHiddenOn(tx, siteID)
	if err != nil || hidden {
		return err
	}
	return tx.Exec("INSERT INTO user_hidden_sites (user_id, site_id) VALUES (?, ?)", u.ID, siteID).Error
}

// Unhide removes siteID from the hidden set. No-op for protected accounts.
func (u *User) Unhide(tx *gorm.DB, siteID uint) error {
	if !MayBeModerated(u) {
		return nil
	}
	return tx.Exec("DELETE FROM user_hidden_sites WHERE user_id = ? AND site_id = ?", u.ID, siteID).Error
}

// DeleteCommentsOn removes the account's comments posted on one site.
func (u *User) DeleteCommentsOn(tx *gorm.DB, siteID uint) error {
	if !MayBeModerated(u) {
		return nil
	}
	ids := tx.Model(&Comment{}).
		Select("comments.id").
		Joins("JOIN threads ON threads.id = comments.thread_id").
		Where("comments.user_id = ? AND threads.site_id = ?", u.ID, siteID)
	if err := tx.Where("target_type = ? AND target_id IN (?)", TargetComment, ids).Delete(&Reaction{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN (?)", ids).Delete(&Comment{}).Error
}

// Delete removes the account together with its comments and reactions.
// Protected accounts are left untouched.
func (u *User) Delete(tx *gorm.DB) error {
	if !MayBeModerated(u) {
		return nil
	}
	owned := tx.Model(&Comment{}).Select("id").Where("user_id = ?", u.ID)
	if err := tx.Where("target_type = ? AND target_id IN (?)", TargetComment, owned).Delete(&Reaction{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", u.ID).Delete(&Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", u.ID).Delete(&Reaction{}).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM user_hidden_sites WHERE user_id = ?", u.ID).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM site_admins WHERE user_id = ?", u.ID).Error; err != nil {
		return err
	}
	return tx.Delete(&User{}, u.ID).Error
}
