package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NormalizeEmail lowercases and trims s, returning ok only for a bare address.
// Display-name forms such as "Bob <bob@example.com>" are rejected.
func NormalizeEmail(s string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(s))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", false
	}
	return email, true
}
