package services

import (
	"commentbox/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type kindCount struct {
	TargetID uint
	Kind     models.ReactionKind
	Count    int
}

// reactionCounts groups account reaction rows of one target type by id and kind.
func reactionCounts(tx *gorm.DB, tt models.TargetType, ids []uint) (map[uint]map[models.ReactionKind]int, error) {
	out := make(map[uint]map[models.ReactionKind]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var results []kindCount
	err := tx.Model(&models.Reaction{}).
		Select("target_id, kind, COUNT(*) as count").
		Where("target_type = ? AND target_id IN ?", tt, ids).
		Group("target_id, kind").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if out[r.TargetID] == nil {
			out[r.TargetID] = map[models.ReactionKind]int{}
		}
		out[r.TargetID][r.Kind] = r.Count
	}
	return out, nil
}

// fillCommentCounts sets the effective like and dislike counts on comments.
func fillCommentCounts(tx *gorm.DB, comments []models.Comment) error {
	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	counts, err := reactionCounts(tx, models.TargetComment, ids)
	if err != nil {
		return err
	}
	for i := range comments {
		comments[i].Likes = comments[i].LikedByCount + counts[comments[i].ID][models.KindLike]
		comments[i].Dislikes = comments[i].DislikedByCount + counts[comments[i].ID][models.KindDislike]
	}
	return nil
}

// fillThreadCounts sets effective reaction counts, visible comment counts and
// the last comment time on threads.
func fillThreadCounts(tx *gorm.DB, threads []models.Thread) error {
	if len(threads) == 0 {
		return nil
	}
	ids := make([]uint, len(threads))
	for i, t := range threads {
		ids[i] = t.ID
	}
	counts, err := reactionCounts(tx, models.TargetThread, ids)
	if err != nil {
		return err
	}

	type commentStat struct {
		ThreadID uint
		Count    int
	}
	var stats []commentStat
	err = tx.Model(&models.Comment{}).
		Select("thread_id, COUNT(*) as count").
		Where("thread_id IN ?", ids).
		Group("thread_id").
		Scan(&stats).Error
	if err != nil {
		return err
	}
	commentCount := make(map[uint]int, len(stats))
	for _, s := range stats {
		commentCount[s.ThreadID] = s.Count
	}

	// newest comment per thread, read as rows so the time column keeps its type
	var latest []models.Comment
	err = tx.Select("thread_id, created_at").
		Where("thread_id IN ?", ids).
		Order("created_at DESC").
		Find(&latest).Error
	if err != nil {
		return err
	}
	last := make(map[uint]models.Comment, len(threads))
	for _, c := range latest {
		if _, ok := last[c.ThreadID]; !ok {
			last[c.ThreadID] = c
		}
	}

	for i := range threads {
		t := &threads[i]
		t.Likes = t.LikedByCount + counts[t.ID][models.KindLike]
		t.Dislikes = t.DislikedByCount + counts[t.ID][models.KindDislike]
		t.CommentCount = commentCount[t.ID]
		if c, ok := last[t.ID]; ok {
			at := c.CreatedAt
			t.LastCommentAt = &at
		}
	}
	return nil
}

// lockForUpdate adds a row lock on databases that support it.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
