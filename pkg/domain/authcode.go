package domain

import (
	"regexp"
	"time"
)

// CodeTTL is how long a one-time code stays redeemable after creation.
const CodeTTL = 5 * time.Minute

// AuthCode is a short-lived, single-use code tied to an email address.
// The same structure serves both 2FA and password-reset; only the flow
// that created it decides how it is consumed.
type AuthCode struct {
	Code      string
	Email     string
	CreatedAt string // RFC 3339, written in UTC
}

// Persisted timestamps occasionally arrive with a bare hour offset
// ("2023-01-02T15:04:05-07") instead of "-07:00".
var bareOffsetRe = regexp.MustCompile(`([+-]\d{2})$`)

// ExpiredAt reports whether the code is expired relative to now.
// A code is still valid at exactly CreatedAt+CodeTTL and expired strictly
// after. An unparseable creation timestamp counts as expired: failing
// closed is preferable to accepting a code whose age is unknown.
func (c *AuthCode) ExpiredAt(now time.Time) bool {
	created, err := parseCreatedAt(c.CreatedAt)
	if err != nil {
		return true
	}
	return now.UTC().After(created.Add(CodeTTL))
}

func parseCreatedAt(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t.UTC(), nil
	}
	// One repair attempt for a truncated zone offset, then fail closed.
	repaired := bareOffsetRe.ReplaceAllString(s, "$1:00")
	if repaired == s {
		return time.Time{}, err
	}
	t, err = time.Parse(time.RFC3339, repaired)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
