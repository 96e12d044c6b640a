// Package scope computes which sites, threads, comments and accounts an actor
// may see and moderate. A Scope is built once per request and then used to
// narrow every admin query and every caller-submitted id list.
package scope

import (
	"context"

	"commentbox/internal/models"

	"gorm.io/gorm"
)

type Scope struct {
	actor   *models.User
	all     bool
	siteIDs []uint
}

// For loads the scope of actor. Superusers see everything, staff see the
// sites they administer, everybody else sees nothing.
func For(ctx context.Context, db *gorm.DB, actor *models.User) (*Scope, error) {
	s := &Scope{actor: actor}
	switch {
	case actor == nil:
	case actor.IsSuperuser:
		s.all = true
	case actor.IsStaff:
		err := db.WithContext(ctx).Table("site_admins").
			Where("user_id = ?", actor.ID).
			Order("site_id").
			Pluck("site_id", &s.siteIDs).Error
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scope) Actor() *models.User { return s.actor }

// All reports whether the scope is unrestricted.
func (s *Scope) All() bool { return s.all }

// Empty reports whether the actor can see nothing at all.
func (s *Scope) Empty() bool { return !s.all && len(s.siteIDs) == 0 }

// SiteIDs lists the administered sites; nil for superusers.
func (s *Scope) SiteIDs() []uint { return s.siteIDs }

func (s *Scope) ContainsSite(siteID uint) bool {
	if s.all {
		return true
	}
	for _, id := range s.siteIDs {
		if id == siteID {
			return true
		}
	}
	return false
}

// Sites returns a query over the sites in scope.
func (s *Scope) Sites(db *gorm.DB) *gorm.DB {
	q := db.Model(&models.Site{})
	if s.all {
		return q
	}
	if len(s.siteIDs) == 0 {
		return q.Where("1 = 0")
	}
	return q.Where("sites.id IN ?", s.siteIDs)
}

// Threads returns a query over the threads in scope.
func (s *Scope) Threads(db *gorm.DB) *gorm.DB {
	q := db.Model(&models.Thread{})
	if s.all {
		return q
	}
	if len(s.siteIDs) == 0 {
		return q.Where("1 = 0")
	}
	return q.Where("threads.site_id IN ?", s.siteIDs)
}

// Thread loads one thread with its site. Threads outside the scope are
// reported as gorm.ErrRecordNotFound.
func (s *Scope) Thread(db *gorm.DB, threadID uint) (*models.Thread, error) {
	var t models.Thread
	if err := s.Threads(db).Preload("Site").Where("threads.id = ?", threadID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// Comments returns a query over the comments in scope.
func (s *Scope) Comments(db *gorm.DB) *gorm.DB {
	q := db.Model(&models.Comment{})
	if s.all {
		return q
	}
	if len(s.siteIDs) == 0 {
		return q.Where("1 = 0")
	}
	threads := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Thread{}).
		Select("threads.id").
		Where("threads.site_id IN ?", s.siteIDs)
	return q.Where("comments.thread_id IN (?)", threads)
}

// Comment loads one comment with its thread and site, or gorm.ErrRecordNotFound.
func (s *Scope) Comment(db *gorm.DB, commentID uint) (*models.Comment, error) {
	var c models.Comment
	if err := s.Comments(db).Preload("Thread.Site").Where("comments.id = ?", commentID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Scope) ContainsComment(db *gorm.DB, commentID uint) (bool, error) {
	if s.Empty() {
		return false, nil
	}
	var count int64
	err := s.Comments(db).Where("comments.id = ?", commentID).Count(&count).Error
	return count > 0, err
}

// Users returns a query over the accounts in scope. Staff and superusers are
// never part of it. Site admins see the accounts that commented on one of
// their sites.
func (s *Scope) Users(db *gorm.DB) *gorm.DB {
	q := db.Model(&models.User{}).Where("users.is_staff = ? AND users.is_superuser = ?", false, false)
	if s.all {
		return q
	}
	if len(s.siteIDs) == 0 {
		return q.Where("1 = 0")
	}
	return q.Where("users.id IN (?)", commentersOn(db, s.siteIDs))
}

// UsersOn narrows Users to the accounts that commented on siteID.
func (s *Scope) UsersOn(db *gorm.DB, siteID uint) *gorm.DB {
	return s.Users(db).Where("users.id IN (?)", commentersOn(db, []uint{siteID}))
}

// User loads one account in scope, or gorm.ErrRecordNotFound.
func (s *Scope) User(db *gorm.DB, userID uint) (*models.User, error) {
	var u models.User
	if err := s.Users(db).Where("users.id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FilterCommentIDs keeps the ids that are in scope, dropping the rest silently.
func (s *Scope) FilterCommentIDs(db *gorm.DB, ids []uint) ([]uint, error) {
	if len(ids) == 0 || s.Empty() {
		return nil, nil
	}
	var out []uint
	err := s.Comments(db).Where("comments.id IN ?", ids).Order("comments.id").Pluck("comments.id", &out).Error
	return out, err
}

// FilterUserIDs keeps the account ids that are in scope.
func (s *Scope) FilterUserIDs(db *gorm.DB, ids []uint) ([]uint, error) {
	if len(ids) == 0 || s.Empty() {
		return nil, nil
	}
	var out []uint
	err := s.Users(db).Where("users.id IN ?", ids).Order("users.id").Pluck("users.id", &out).Error
	return out, err
}

func commentersOn(db *gorm.DB, siteIDs []uint) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Comment{}).
		Select("DISTINCT comments.user_id").
		Joins("JOIN threads ON threads.id = comments.thread_id").
		Where("comments.user_id IS NOT NULL AND threads.site_id IN ?", siteIDs)
}
