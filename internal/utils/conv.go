package utils

import (
	"strconv"
	"strings"
)

// StringToUint parses an id, returning 0 for anything that is not a positive integer.
func StringToUint(s string) uint {
	i, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return uint(i)
}
