package services

import (
	"context"
	"errors"

	"commentbox/internal/metrics"
	"commentbox/internal/models"
	"commentbox/internal/scope"

	"gorm.io/gorm"
)

// ModerationService hides and deletes comments and accounts on behalf of
// site admins. Every operation is bounded by the actor's scope.
type ModerationService struct {
	db *gorm.DB
}

func NewModerationService(db *gorm.DB) *ModerationService {
	return &ModerationService{db: db}
}

func (s *ModerationService) HideComment(ctx context.Context, sc *scope.Scope, commentID uint) (*models.Comment, error) {
	c, err := s.setCommentHidden(ctx, sc, commentID, true)
	if err == nil {
		metrics.ModerationTotal.WithLabelValues(metrics.ActionHideComment).Inc()
	}
	return c, err
}

func (s *ModerationService) UnhideComment(ctx context.Context, sc *scope.Scope, commentID uint) (*models.Comment, error) {
	c, err := s.setCommentHidden(ctx, sc, commentID, false)
	if err == nil {
		metrics.ModerationTotal.WithLabelValues(metrics.ActionUnhideComment).Inc()
	}
	return c, err
}

// DeleteComment removes a comment in scope. The model guard keeps it a
// no-op for non-staff actors.
func (s *ModerationService) DeleteComment(ctx context.Context, sc *scope.Scope, commentID uint) (*models.Comment, error) {
	var (
		c       *models.Comment
		deleted bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if c, err = commentInScope(tx, sc, commentID); err != nil {
			return err
		}
		deleted, err = c.DeleteBy(tx, sc.Actor())
		return err
	})
	if err != nil {
		return nil, err
	}
	if deleted {
		metrics.ModerationTotal.WithLabelValues(metrics.ActionDeleteComment).Inc()
	}
	return c, nil
}

func (s *ModerationService) setCommentHidden(ctx context.Context, sc *scope.Scope, commentID uint, hidden bool) (*models.Comment, error) {
	var c *models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if c, err = commentInScope(tx, sc, commentID); err != nil {
			return err
		}
		if hidden {
			return c.Hide(tx)
		}
		return c.Unhide(tx)
	})
	return c, err
}

// commentInScope reports a missing comment as ErrNotFound and an existing
// one outside the scope as ErrForbidden.
func commentInScope(tx *gorm.DB, sc *scope.Scope, commentID uint) (*models.Comment, error) {
	c, err := sc.Comment(lockForUpdate(tx), commentID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	var count int64
	if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, notFound(gorm.ErrRecordNotFound, "comment %d", commentID)
	}
	return nil, forbidden("comment %d is outside your sites", commentID)
}

// HideUser hides a commenter on one site. Staff accounts are never in scope.
func (s *ModerationService) HideUser(ctx context.Context, sc *scope.Scope, siteID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := userOnSite(tx, sc, siteID, userID)
		if err != nil {
			return err
		}
		return u.Hide(tx, siteID)
	})
	if err == nil {
		metrics.ModerationTotal.WithLabelValues(metrics.ActionHideUser).Inc()
	}
	return err
}

func (s *ModerationService) UnhideUser(ctx context.Context, sc *scope.Scope, siteID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := userOnSite(tx, sc, siteID, userID)
		if err != nil {
			return err
		}
		return u.Unhide(tx, siteID)
	})
	if err == nil {
		metrics.ModerationTotal.WithLabelValues(metrics.ActionUnhideUser).Inc()
	}
	return err
}

// DeleteUserComments removes the account's comments on one site only.
func (s *ModerationService) DeleteUserComments(ctx context.Context, sc *scope.Scope, siteID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := userOnSite(tx, sc, siteID, userID)
		if err != nil {
			return err
		}
		return u.DeleteCommentsOn(tx, siteID)
	})
	if err == nil {
		metrics.ModerationTotal.WithLabelValues(metrics.ActionDeleteUser).Inc()
	}
	return err
}

func userOnSite(tx *gorm.DB, sc *scope.Scope, siteID, userID uint) (*models.User, error) {
	if !sc.ContainsSite(siteID) {
		return nil, notFound(gorm.ErrRecordNotFound, "site %d", siteID)
	}
	u, err := sc.User(tx, userID)
	if err != nil {
		return nil, notFound(err, "user %d", userID)
	}
	return u, nil
}

// BulkHideComments hides the submitted comments that are in scope, and in
// threadID when it is non-zero. It returns the ids actually hidden.
func (s *ModerationService) BulkHideComments(ctx context.Context, sc *scope.Scope, threadID uint, ids []uint) ([]uint, error) {
	var done []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if done, err = filterComments(tx, sc, threadID, ids); err != nil || len(done) == 0 {
			return err
		}
		return tx.Model(&models.Comment{}).Where("id IN ?", done).UpdateColumn("hidden", true).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.ModerationTotal.WithLabelValues(metrics.ActionHideComment).Add(float64(len(done)))
	return done, nil
}

// BulkDeleteComments deletes the submitted comments that are in scope.
func (s *ModerationService) BulkDeleteComments(ctx context.Context, sc *scope.Scope, threadID uint, ids []uint) ([]uint, error) {
	var done []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		filtered, err := filterComments(tx, sc, threadID, ids)
		if err != nil {
			return err
		}
		for _, id := range filtered {
			c := models.Comment{ID: id}
			deleted, err := c.DeleteBy(tx, sc.Actor())
			if err != nil {
				return err
			}
			if deleted {
				done = append(done, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ModerationTotal.WithLabelValues(metrics.ActionDeleteComment).Add(float64(len(done)))
	return done, nil
}

func filterComments(tx *gorm.DB, sc *scope.Scope, threadID uint, ids []uint) ([]uint, error) {
	filtered, err := sc.FilterCommentIDs(tx, ids)
	if err != nil || threadID == 0 || len(filtered) == 0 {
		return filtered, err
	}
	var out []uint
	err = tx.Model(&models.Comment{}).
		Where("id IN ? AND thread_id = ?", filtered, threadID).
		Order("id").
		Pluck("id", &out).Error
	return out, err
}

// BulkHideUsers hides the submitted accounts in scope on siteID.
func (s *ModerationService) BulkHideUsers(ctx context.Context, sc *scope.Scope, siteID uint, ids []uint) ([]uint, error) {
	done, err := s.eachUser(ctx, sc, siteID, ids, func(tx *gorm.DB, u *models.User) error {
		return u.Hide(tx, siteID)
	})
	if err == nil {
		metrics.ModerationTotal.WithLabelValues(metrics.ActionHideUser).Add(float64(len(done)))
	}
	return done, err
}

// BulkDeleteUsers removes the submitted accounts' comments on siteID.
func (s *ModerationService) BulkDeleteUsers(ctx context.Context, sc *scope.Scope, siteID uint, ids []uint) ([]uint, error) {
	done, err := s.eachUser(ctx, sc, siteID, ids, func(tx *gorm.DB, u *models.User) error {
		return u.DeleteCommentsOn(tx, siteID)
	})
	if err == nil {
		metrics.ModerationTotal.WithLabelValues(metrics.ActionDeleteUser).Add(float64(len(done)))
	}
	return done, err
}

func (s *ModerationService) eachUser(ctx context.Context, sc *scope.Scope, siteID uint, ids []uint, fn func(tx *gorm.DB, u *models.User) error) ([]uint, error) {
	if !sc.ContainsSite(siteID) {
		return nil, notFound(gorm.ErrRecordNotFound, "site %d", siteID)
	}
	var done []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		filtered, err := sc.FilterUserIDs(tx, ids)
		if err != nil {
			return err
		}
		var users []models.User
		if len(filtered) > 0 {
			if err := tx.Where("id IN ?", filtered).Order("id").Find(&users).Error; err != nil {
				return err
			}
		}
		for i := range users {
			if err := fn(tx, &users[i]); err != nil {
				return err
			}
			done = append(done, users[i].ID)
		}
		return nil
	})
	return done, err
}
