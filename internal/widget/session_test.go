package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_AddRemoveContains(t *testing.T) {
	s := New(MapStore{})

	assert.Empty(t, s.IDs(LikedComments))
	s.Add(LikedComments, 3)
	s.Add(LikedComments, 5)
	s.Add(LikedComments, 3)

	assert.Equal(t, []uint{3, 5}, s.IDs(LikedComments))
	assert.True(t, s.Contains(LikedComments, 5))
	assert.False(t, s.Contains(DislikedComments, 5))

	s.Remove(LikedComments, 3)
	assert.Equal(t, []uint{5}, s.IDs(LikedComments))

	// removing an absent id is a no-op
	s.Remove(LikedComments, 42)
	assert.Equal(t, []uint{5}, s.IDs(LikedComments))
}

func TestSession_LastPosted(t *testing.T) {
	s := New(MapStore{})

	_, ok := s.LastPosted()
	assert.False(t, ok)

	s.Add(PostedComments, 10)
	s.Add(PostedComments, 11)
	last, ok := s.LastPosted()
	assert.True(t, ok)
	assert.Equal(t, uint(11), last)
}

func TestSession_AcceptsLegacyIntLists(t *testing.T) {
	store := MapStore{LikedThreads: []int{1, 2}, DislikedThreads: []interface{}{float64(7)}}
	s := New(store)

	assert.Equal(t, []uint{1, 2}, s.IDs(LikedThreads))
	assert.Equal(t, []uint{7}, s.IDs(DislikedThreads))
}

func TestSession_FlagsAndAvatar(t *testing.T) {
	s := New(MapStore{})

	assert.False(t, s.AllComments())
	s.SetAllComments()
	assert.True(t, s.AllComments())
	s.ClearAllComments()
	assert.False(t, s.AllComments())

	assert.Equal(t, 0, s.AvatarNum())
	s.SetAvatarNum(12)
	assert.Equal(t, 12, s.AvatarNum())
}

func TestSession_SeedAndClear(t *testing.T) {
	s := New(MapStore{})
	s.Add(LikedThreads, 99)

	s.Seed(DomainData{
		LikedThreads:   []uint{1},
		PostedComments: []uint{4, 8},
	})

	assert.Equal(t, []uint{1}, s.IDs(LikedThreads))
	assert.Empty(t, s.IDs(DislikedThreads))
	last, _ := s.LastPosted()
	assert.Equal(t, uint(8), last)

	s.Clear()
	assert.Empty(t, s.IDs(LikedThreads))
	assert.Empty(t, s.IDs(PostedComments))
}

type countingStore struct {
	MapStore
	saves int
}

func (c *countingStore) Save() error {
	c.saves++
	return nil
}

func TestSession_SaveOnlyWhenDirty(t *testing.T) {
	store := &countingStore{MapStore: MapStore{}}
	s := New(store)

	assert.NoError(t, s.Save())
	assert.Equal(t, 0, store.saves)

	s.Add(LikedComments, 1)
	assert.NoError(t, s.Save())
	assert.NoError(t, s.Save())
	assert.Equal(t, 1, store.saves)
}
