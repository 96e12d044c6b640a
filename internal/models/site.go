package models

import (
	"regexp"
	"strings"
)

// Site is a tenant: one embedding domain.
type Site struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	Domain           string  `gorm:"uniqueIndex;size:255;not null" json:"domain"` // no scheme, no path
	AnonymousAllowed bool    `gorm:"default:false" json:"anonymous_allowed"`
	CustomerID       *string `gorm:"size:255" json:"customer_id"`
	Admins           []User  `gorm:"many2many:site_admins;constraint:OnDelete:CASCADE;" json:"-"`
}

var domainPattern = regexp.MustCompile(`^(https?://)?([a-z0-9_.-]+\.[a-z0-9]{2,5}(:\d+)?)`)

// NormalizeDomain strips the scheme and any path from a site address.
// The second return value is false when the input does not look like a host.
func NormalizeDomain(raw string) (string, bool) {
	m := domainPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(raw)))
	if m == nil {
		return "", false
	}
	return m[2], true
}

// CustomerIDValue returns the opaque customer id or "" when unset.
func (s *Site) CustomerIDValue() string {
	if s == nil || s.CustomerID == nil {
		return ""
	}
	return *s.CustomerID
}
