package utils

import (
	"math/rand"
)

// RandomAvatar returns a random avatar number in [min, max].
func RandomAvatar(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}

// AvatarInRange checks an avatar number against [min, max].
func AvatarInRange(n, min, max int) bool {
	return n >= min && n <= max
}

// AvatarRange lists every selectable avatar number, for the footer picker.
func AvatarRange(min, max int) []int {
	out := make([]int, 0, max-min+1)
	for i := min; i <= max; i++ {
		out = append(out, i)
	}
	return out
}
