package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	assert.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestRandomAvatar(t *testing.T) {
	for i := 0; i < 200; i++ {
		n := RandomAvatar(1, 28)
		assert.True(t, AvatarInRange(n, 1, 28), "got %d", n)
	}
	assert.Equal(t, 6, RandomAvatar(6, 6))
	assert.Len(t, AvatarRange(1, 28), 28)
}

func TestStringToUint(t *testing.T) {
	assert.Equal(t, uint(12), StringToUint("12"))
	assert.Equal(t, uint(0), StringToUint("-1"))
	assert.Equal(t, uint(0), StringToUint("abc"))
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{" Bob@Example.COM ", "bob@example.com", true},
		{"Bob <bob@example.com>", "", false},
		{"bob@", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeEmail(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
