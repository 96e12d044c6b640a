package services

import (
	"context"
	"errors"

	"commentbox/internal/identity"
	"commentbox/internal/metrics"
	"commentbox/internal/models"
	"commentbox/internal/scope"
	"commentbox/internal/widget"

	"gorm.io/gorm"
)

// Counts is the effective like/dislike state of one thread or comment.
type Counts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// reactor records and reverts one identity's reactions. Anonymous visitors
// move the entity counters, accounts own reaction rows.
type reactor interface {
	prior(tx *gorm.DB, tt models.TargetType, id uint) (models.ReactionKind, error)
	apply(tx *gorm.DB, tt models.TargetType, id uint, kind models.ReactionKind) error
	undo(tx *gorm.DB, tt models.TargetType, id uint, kind models.ReactionKind) error
}

type anonymousReactor struct {
	ws *widget.Session
}

func (r anonymousReactor) prior(_ *gorm.DB, tt models.TargetType, id uint) (models.ReactionKind, error) {
	liked, disliked := sessionKeys(tt)
	switch {
	case r.ws.Contains(disliked, id):
		return models.KindDislike, nil
	case r.ws.Contains(liked, id):
		return models.KindLike, nil
	}
	return "", nil
}

func (r anonymousReactor) apply(tx *gorm.DB, tt models.TargetType, id uint, kind models.ReactionKind) error {
	col := counterColumn(kind)
	return tx.Table(tableOf(tt)).Where("id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + ?", 1)).Error
}

func (r anonymousReactor) undo(tx *gorm.DB, tt models.TargetType, id uint, kind models.ReactionKind) error {
	col := counterColumn(kind)
	return tx.Table(tableOf(tt)).Where("id = ? AND "+col+" > 0", id).
		UpdateColumn(col, gorm.Expr(col+" - ?", 1)).Error
}

type accountReactor struct {
	user *models.User
}

func (r accountReactor) prior(tx *gorm.DB, tt models.TargetType, id uint) (models.ReactionKind, error) {
	var row models.Reaction
	err := tx.Where("target_type = ? AND target_id = ? AND user_id = ?", tt, id, r.user.ID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return row.Kind, err
}

func (r accountReactor) apply(tx *gorm.DB, tt models.TargetType, id uint, kind models.ReactionKind) error {
	return tx.Create(&models.Reaction{TargetType: tt, TargetID: id, UserID: r.user.ID, Kind: kind}).Error
}

func (r accountReactor) undo(tx *gorm.DB, tt models.TargetType, id uint, kind models.ReactionKind) error {
	return tx.Where("target_type = ? AND target_id = ? AND user_id = ? AND kind = ?", tt, id, r.user.ID, kind).
		Delete(&models.Reaction{}).Error
}

func reactorFor(who identity.Identity) reactor {
	if u := who.Account(); u != nil {
		return accountReactor{user: u}
	}
	return anonymousReactor{ws: who.Session()}
}

type ReactionService struct {
	db *gorm.DB
}

func NewReactionService(db *gorm.DB) *ReactionService {
	return &ReactionService{db: db}
}

func (s *ReactionService) LikeThread(ctx context.Context, threadID uint, who identity.Identity) (Counts, error) {
	return s.react(ctx, models.TargetThread, threadID, who, models.KindLike)
}

func (s *ReactionService) DislikeThread(ctx context.Context, threadID uint, who identity.Identity) (Counts, error) {
	return s.react(ctx, models.TargetThread, threadID, who, models.KindDislike)
}

func (s *ReactionService) LikeComment(ctx context.Context, commentID uint, who identity.Identity) (Counts, error) {
	return s.react(ctx, models.TargetComment, commentID, who, models.KindLike)
}

func (s *ReactionService) DislikeComment(ctx context.Context, commentID uint, who identity.Identity) (Counts, error) {
	return s.react(ctx, models.TargetComment, commentID, who, models.KindDislike)
}

// UndoLike reverts a like. Without a recorded like it changes nothing.
func (s *ReactionService) UndoLike(ctx context.Context, tt models.TargetType, id uint, who identity.Identity) (Counts, error) {
	return s.revert(ctx, tt, id, who, models.KindLike)
}

func (s *ReactionService) UndoDislike(ctx context.Context, tt models.TargetType, id uint, who identity.Identity) (Counts, error) {
	return s.revert(ctx, tt, id, who, models.KindDislike)
}

// Effective returns counter plus account rows for one target.
func (s *ReactionService) Effective(ctx context.Context, tt models.TargetType, id uint) (Counts, error) {
	return effectiveCounts(s.db.WithContext(ctx), tt, id)
}

// react records kind for who. Repeating the same reaction is a no-op, the
// opposite reaction is undone first.
func (s *ReactionService) react(ctx context.Context, tt models.TargetType, id uint, who identity.Identity, kind models.ReactionKind) (Counts, error) {
	r := reactorFor(who)
	var counts Counts
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockTarget(tx, tt, id, who); err != nil {
			return err
		}
		prev, err := r.prior(tx, tt, id)
		if err != nil {
			return err
		}
		if prev != kind {
			if prev != "" {
				if err := r.undo(tx, tt, id, prev); err != nil {
					return err
				}
			}
			if err := r.apply(tx, tt, id, kind); err != nil {
				return err
			}
			changed = true
		}
		counts, err = effectiveCounts(tx, tt, id)
		return err
	})
	if err != nil {
		return Counts{}, err
	}

	liked, disliked := sessionKeys(tt)
	ws := who.Session()
	if kind == models.KindLike {
		ws.Remove(disliked, id)
		ws.Add(liked, id)
	} else {
		ws.Remove(liked, id)
		ws.Add(disliked, id)
	}
	if changed {
		metrics.ReactionsTotal.WithLabelValues(string(tt), string(kind)).Inc()
	}
	return counts, nil
}

func (s *ReactionService) revert(ctx context.Context, tt models.TargetType, id uint, who identity.Identity, kind models.ReactionKind) (Counts, error) {
	r := reactorFor(who)
	var counts Counts
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockTarget(tx, tt, id, who); err != nil {
			return err
		}
		prev, err := r.prior(tx, tt, id)
		if err != nil {
			return err
		}
		if prev == kind {
			if err := r.undo(tx, tt, id, kind); err != nil {
				return err
			}
		}
		counts, err = effectiveCounts(tx, tt, id)
		return err
	})
	if err != nil {
		return Counts{}, err
	}

	liked, disliked := sessionKeys(tt)
	if kind == models.KindLike {
		who.Session().Remove(liked, id)
	} else {
		who.Session().Remove(disliked, id)
	}
	return counts, nil
}

// lockTarget loads and locks the target row and checks whether who may react.
//
// A thread refuses accounts hidden on its site. A comment refuses only site
// admins of that comment who are hidden on its site; other hidden accounts
// may still react to comments.
func (s *ReactionService) lockTarget(tx *gorm.DB, tt models.TargetType, id uint, who identity.Identity) error {
	var siteID uint
	switch tt {
	case models.TargetThread:
		var t models.Thread
		if err := lockForUpdate(tx).Select("id", "site_id").First(&t, id).Error; err != nil {
			return notFound(err, "thread %d", id)
		}
		siteID = t.SiteID
	case models.TargetComment:
		var c models.Comment
		if err := lockForUpdate(tx).Select("id", "thread_id").First(&c, id).Error; err != nil {
			return notFound(err, "comment %d", id)
		}
		var t models.Thread
		if err := tx.Select("id", "site_id").First(&t, c.ThreadID).Error; err != nil {
			return notFound(err, "thread %d", c.ThreadID)
		}
		siteID = t.SiteID
	default:
		return invalid("unknown target type %q", tt)
	}

	u := who.Account()
	if u == nil {
		return nil
	}
	if tt == models.TargetComment {
		sc, err := scope.For(tx.Statement.Context, tx, u)
		if err != nil {
			return err
		}
		if !sc.ContainsSite(siteID) {
			return nil
		}
	}
	hidden, err := u.IsHiddenOn(tx, siteID)
	if err != nil {
		return err
	}
	if hidden {
		return forbidden("user is disabled on site with id %d", siteID)
	}
	return nil
}

func effectiveCounts(tx *gorm.DB, tt models.TargetType, id uint) (Counts, error) {
	var row struct {
		LikedByCount    int
		DislikedByCount int
	}
	err := tx.Table(tableOf(tt)).
		Select("liked_by_count, disliked_by_count").
		Where("id = ?", id).
		Scan(&row).Error
	if err != nil {
		return Counts{}, err
	}
	counts, err := reactionCounts(tx, tt, []uint{id})
	if err != nil {
		return Counts{}, err
	}
	return Counts{
		Likes:    row.LikedByCount + counts[id][models.KindLike],
		Dislikes: row.DislikedByCount + counts[id][models.KindDislike],
	}, nil
}

func sessionKeys(tt models.TargetType) (liked, disliked string) {
	if tt == models.TargetThread {
		return widget.LikedThreads, widget.DislikedThreads
	}
	return widget.LikedComments, widget.DislikedComments
}

func tableOf(tt models.TargetType) string {
	if tt == models.TargetThread {
		return "threads"
	}
	return "comments"
}

func counterColumn(kind models.ReactionKind) string {
	if kind == models.KindLike {
		return "liked_by_count"
	}
	return "disliked_by_count"
}
