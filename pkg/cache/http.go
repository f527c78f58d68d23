package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is the freshness used when the response says nothing.
const DefaultTTL = 5 * time.Minute

// ResponseToEntry converts an HTTP response to an Entry. The body is read
// and restored so the caller can still consume it.
func ResponseToEntry(resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	entry := &Entry{
		Data:        body,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        resp.Header.Get("ETag"),
		Expires:     FreshUntil(resp.Header, now),
		StoredAt:    now,
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			entry.LastModified = t
		}
	}
	return entry, nil
}

// Cacheable reports whether the response headers allow storing the body.
func Cacheable(header http.Header) bool {
	for _, directive := range cacheControl(header) {
		if directive == "no-store" {
			return false
		}
	}
	return true
}

// FreshUntil computes the end of freshness from Cache-Control max-age,
// then Expires, falling back to DefaultTTL.
func FreshUntil(header http.Header, now time.Time) time.Time {
	for _, directive := range cacheControl(header) {
		if directive == "no-cache" {
			return now
		}
		if v, ok := strings.CutPrefix(directive, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
				return now.Add(time.Duration(secs) * time.Second)
			}
		}
	}

	if v := header.Get("Expires"); v != "" {
		expires, err := http.ParseTime(v)
		if err != nil {
			// RFC 9111: an invalid Expires means already expired
			return now
		}
		if expires.Before(now) {
			return now
		}
		return expires
	}
	return now.Add(DefaultTTL)
}

func cacheControl(header http.Header) []string {
	var directives []string
	for _, line := range header.Values("Cache-Control") {
		for _, d := range strings.Split(line, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				directives = append(directives, d)
			}
		}
	}
	return directives
}

// AddConditionalHeaders adds If-None-Match (preferred) or If-Modified-Since.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
