package model

import "time"

// Credential is the opaque bearer token authorizing Drive calls, plus the
// moment it was obtained. Google token responses carry an expiry, but the
// stored form keeps only the raw token string, so AcquiredAt drives the
// freshness policy in AuthSession.
type Credential struct {
	Token      string
	AcquiredAt time.Time
}

// IsZero reports whether no credential is present.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// FreshAt reports whether the credential was acquired within ttl of now.
// A zero credential is never fresh.
func (c Credential) FreshAt(now time.Time, ttl time.Duration) bool {
	if c.IsZero() {
		return false
	}
	return now.Sub(c.AcquiredAt) < ttl
}
