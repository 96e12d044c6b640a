package services

import (
	"context"
	"errors"
	"time"

	"commentbox/internal/models"
	"commentbox/internal/scope"

	"gorm.io/gorm"
)

// ThreadQuery filters the admin thread list.
type ThreadQuery struct {
	SiteID   uint // 0: every site in scope
	SortBy   string
	Interval string
	Now      time.Time
}

type CommentPage struct {
	Thread      *models.Thread   `json:"thread"`
	Comments    []models.Comment `json:"comments"`
	HiddenCount int64            `json:"hidden_comments_count"`
	OnlyHidden  bool             `json:"hidden"`
}

type UserPage struct {
	Site        *models.Site  `json:"site"`
	Users       []models.User `json:"users"`
	HiddenCount int64         `json:"hidden_users_count"`
	OnlyHidden  bool          `json:"hidden"`
}

// AdminService answers the read side of the admin panel. Anything outside
// the actor's scope reads as not found.
type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) Threads(ctx context.Context, sc *scope.Scope, q ThreadQuery) ([]models.Thread, error) {
	db := s.db.WithContext(ctx)
	query := sc.Threads(db).Preload("Site")
	if q.SiteID != 0 {
		if !sc.ContainsSite(q.SiteID) {
			return nil, notFound(gorm.ErrRecordNotFound, "site %d", q.SiteID)
		}
		query = query.Where("threads.site_id = ?", q.SiteID)
	}
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	query, err := scope.CreatedSince(query, q.Interval, now)
	if errors.Is(err, scope.ErrUnknownInterval) {
		return nil, invalid("unknown interval %q", q.Interval)
	}
	if err != nil {
		return nil, err
	}

	var threads []models.Thread
	if err := scope.Sorted(query, q.SortBy).Find(&threads).Error; err != nil {
		return nil, err
	}
	if err := fillThreadCounts(db, threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// Comments lists a thread's comments, only the hidden ones when onlyHidden.
func (s *AdminService) Comments(ctx context.Context, sc *scope.Scope, threadID uint, onlyHidden bool) (*CommentPage, error) {
	db := s.db.WithContext(ctx)
	thread, err := sc.Thread(db, threadID)
	if err != nil {
		return nil, notFound(err, "thread %d", threadID)
	}

	base := db.Model(&models.Comment{}).Where("thread_id = ?", thread.ID)
	var hiddenCount int64
	if err := base.Where("hidden = ?", true).Count(&hiddenCount).Error; err != nil {
		return nil, err
	}

	query := db.Preload("User").Where("thread_id = ?", thread.ID)
	if onlyHidden {
		query = query.Where("hidden = ?", true)
	}
	var comments []models.Comment
	if err := query.Order("created_at ASC").Order("id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	if err := fillCommentCounts(db, comments); err != nil {
		return nil, err
	}
	threads := []models.Thread{*thread}
	if err := fillThreadCounts(db, threads); err != nil {
		return nil, err
	}
	return &CommentPage{Thread: &threads[0], Comments: comments, HiddenCount: hiddenCount, OnlyHidden: onlyHidden}, nil
}

// Users lists the commenters of a site in scope, only the ones hidden on it
// when onlyHidden.
func (s *AdminService) Users(ctx context.Context, sc *scope.Scope, siteID uint, onlyHidden bool) (*UserPage, error) {
	db := s.db.WithContext(ctx)
	var site models.Site
	if err := sc.Sites(db).Where("sites.id = ?", siteID).First(&site).Error; err != nil {
		return nil, notFound(err, "site %d", siteID)
	}

	hiddenOnSite := db.Session(&gorm.Session{NewDB: true}).
		Table("user_hidden_sites").
		Select("user_id").
		Where("site_id = ?", siteID)

	var hiddenCount int64
	if err := sc.UsersOn(db, siteID).Where("users.id IN (?)", hiddenOnSite).Count(&hiddenCount).Error; err != nil {
		return nil, err
	}

	query := sc.UsersOn(db, siteID)
	if onlyHidden {
		query = query.Where("users.id IN (?)", hiddenOnSite)
	}
	var users []models.User
	if err := query.Order("users.id").Find(&users).Error; err != nil {
		return nil, err
	}
	return &UserPage{Site: &site, Users: users, HiddenCount: hiddenCount, OnlyHidden: onlyHidden}, nil
}
