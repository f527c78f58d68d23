package cache

import (
	"time"
)

// Entry is a cached response body with its validators.
type Entry struct {
	Data         []byte    `json:"data"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`

	// Expires is when the entry stops being fresh.
	Expires time.Time `json:"expires"`

	StoredAt time.Time `json:"stored_at"`
}

// IsExpired returns true once the entry needs revalidation.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the remaining freshness, 0 if already stale.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// CanRevalidate reports whether a stale entry can be checked with a
// conditional request instead of being refetched.
func (e *Entry) CanRevalidate() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}
