package models

import (
	"time"
)

type TargetType string

const (
	TargetThread  TargetType = "thread"
	TargetComment TargetType = "comment"
)

type ReactionKind string

const (
	KindLike    ReactionKind = "like"
	KindDislike ReactionKind = "dislike"
)

// Reaction is an account's like or dislike on a thread or comment.
// One row per (target, user): an account can never like and dislike the same target.
type Reaction struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	TargetType TargetType   `gorm:"size:10;not null;uniqueIndex:idx_reaction_target_user,priority:1" json:"target_type"`
	TargetID   uint         `gorm:"not null;uniqueIndex:idx_reaction_target_user,priority:2;index" json:"target_id"`
	UserID     uint         `gorm:"not null;uniqueIndex:idx_reaction_target_user,priority:3;index" json:"user_id"`
	Kind       ReactionKind `gorm:"size:10;not null" json:"kind"`
	CreatedAt  time.Time    `json:"created_at"`
}
