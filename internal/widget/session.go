// Package widget keeps the per-visitor state the embeddable widget relies on
// between requests: what the visitor posted, liked and disliked, whether the
// full comment list was requested, and the chosen avatar.
package widget

import (
	"encoding/gob"
)

// Session keys. They are shared with the widget JavaScript, do not rename.
const (
	PostedComments   = "posted_comments"
	LikedThreads     = "liked_threads"
	DislikedThreads  = "disliked_threads"
	LikedComments    = "liked_comments"
	DislikedComments = "disliked_comments"
	AllCommentsKey   = "all_comments"
	AvatarNumKey     = "user_avatar_num"
)

func init() {
	// the redis session store encodes values with gob
	gob.Register([]uint{})
}

// Store is the subset of sessions.Session the widget needs.
type Store interface {
	Get(key interface{}) interface{}
	Set(key interface{}, val interface{})
	Delete(key interface{})
	Save() error
}

// DomainData is an account's reaction and posting history, used to seed a
// fresh session on login.
type DomainData struct {
	LikedThreads     []uint `json:"liked_threads"`
	DislikedThreads  []uint `json:"disliked_threads"`
	PostedComments   []uint `json:"posted_comments"`
	LikedComments    []uint `json:"liked_comments"`
	DislikedComments []uint `json:"disliked_comments"`
}

type Session struct {
	store Store
	dirty bool
}

func New(store Store) *Session {
	return &Session{store: store}
}

// IDs returns the id list stored under key, oldest first.
func (s *Session) IDs(key string) []uint {
	switch v := s.store.Get(key).(type) {
	case []uint:
		out := make([]uint, len(v))
		copy(out, v)
		return out
	case []int:
		out := make([]uint, 0, len(v))
		for _, id := range v {
			if id > 0 {
				out = append(out, uint(id))
			}
		}
		return out
	case []interface{}:
		out := make([]uint, 0, len(v))
		for _, raw := range v {
			switch id := raw.(type) {
			case uint:
				out = append(out, id)
			case int:
				out = append(out, uint(id))
			case float64:
				out = append(out, uint(id))
			}
		}
		return out
	default:
		return nil
	}
}

func (s *Session) Contains(key string, id uint) bool {
	for _, v := range s.IDs(key) {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id to the list under key. Adding an id twice keeps one entry.
func (s *Session) Add(key string, id uint) []uint {
	ids := s.IDs(key)
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	ids = append(ids, id)
	s.set(key, ids)
	return ids
}

// Remove drops id from the list under key, if present.
func (s *Session) Remove(key string, id uint) []uint {
	ids := s.IDs(key)
	out := ids[:0]
	removed := false
	for _, v := range ids {
		if v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	if removed {
		s.set(key, out)
	}
	return out
}

// LastPosted returns the most recent comment posted from this session.
func (s *Session) LastPosted() (uint, bool) {
	ids := s.IDs(PostedComments)
	if len(ids) == 0 {
		return 0, false
	}
	return ids[len(ids)-1], true
}

func (s *Session) AllComments() bool {
	v, _ := s.store.Get(AllCommentsKey).(bool)
	return v
}

func (s *Session) SetAllComments() {
	s.set(AllCommentsKey, true)
}

func (s *Session) ClearAllComments() {
	if s.store.Get(AllCommentsKey) != nil {
		s.store.Delete(AllCommentsKey)
		s.dirty = true
	}
}

// AvatarNum returns the avatar chosen in this session, 0 when none.
func (s *Session) AvatarNum() int {
	v, _ := s.store.Get(AvatarNumKey).(int)
	return v
}

func (s *Session) SetAvatarNum(n int) {
	s.set(AvatarNumKey, n)
}

// Seed replaces the reaction and posting lists with an account's history.
func (s *Session) Seed(d DomainData) {
	s.set(LikedThreads, nonNil(d.LikedThreads))
	s.set(DislikedThreads, nonNil(d.DislikedThreads))
	s.set(PostedComments, nonNil(d.PostedComments))
	s.set(LikedComments, nonNil(d.LikedComments))
	s.set(DislikedComments, nonNil(d.DislikedComments))
}

// Clear drops every widget key, used on logout.
func (s *Session) Clear() {
	for _, k := range []string{PostedComments, LikedThreads, DislikedThreads, LikedComments, DislikedComments, AllCommentsKey, AvatarNumKey} {
		s.store.Delete(k)
	}
	s.dirty = true
}

// Save persists pending changes. It is a no-op when nothing changed.
func (s *Session) Save() error {
	if !s.dirty {
		return nil
	}
	s.dirty = false
	return s.store.Save()
}

func (s *Session) set(key string, val interface{}) {
	s.store.Set(key, val)
	s.dirty = true
}

func nonNil(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}
