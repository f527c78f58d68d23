package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{"expired entry", time.Now().Add(-1 * time.Hour), true},
		{"valid entry", time.Now().Add(1 * time.Hour), false},
		{"just expired", time.Now().Add(-1 * time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	stale := &Entry{Expires: time.Now().Add(-time.Minute)}
	if ttl := stale.TTL(); ttl != 0 {
		t.Errorf("TTL() of stale entry = %v, want 0", ttl)
	}

	fresh := &Entry{Expires: time.Now().Add(time.Hour)}
	if ttl := fresh.TTL(); ttl <= 59*time.Minute || ttl > time.Hour {
		t.Errorf("TTL() = %v, want about 1h", ttl)
	}
}

func TestEntry_CanRevalidate(t *testing.T) {
	if (&Entry{}).CanRevalidate() {
		t.Error("entry without validators should not be revalidatable")
	}
	if !(&Entry{ETag: `"v1"`}).CanRevalidate() {
		t.Error("entry with ETag should be revalidatable")
	}
	if !(&Entry{LastModified: time.Now()}).CanRevalidate() {
		t.Error("entry with Last-Modified should be revalidatable")
	}
}
