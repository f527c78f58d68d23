package sessionstore

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"
)

func openTestJar(t *testing.T, path string) *Jar {
	t.Helper()
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func cookieValue(cookies []*http.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestJar_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "skilly.db")
	api := mustURL(t, "http://127.0.0.1:8080/v1/sign-in")

	first := openTestJar(t, path)
	first.SetCookies(api, []*http.Cookie{{Name: "skilly_session", Value: "tok", Path: "/"}})
	if got := cookieValue(first.Cookies(api), "skilly_session"); got != "tok" {
		t.Fatalf("in-memory cookie = %q", got)
	}
	first.Close()

	second := openTestJar(t, path)
	home := mustURL(t, "http://127.0.0.1:8080/v1/home")
	if got := cookieValue(second.Cookies(home), "skilly_session"); got != "tok" {
		t.Errorf("reloaded cookie = %q, want tok", got)
	}
	if n, _ := second.Count(context.Background()); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestJar_DefaultPathSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skilly.db")
	signIn := mustURL(t, "http://127.0.0.1:8080/v1/auth/sign-in")

	first := openTestJar(t, path)
	first.SetCookies(signIn, []*http.Cookie{{Name: "pending", Value: "1"}})
	first.Close()

	second := openTestJar(t, path)
	if got := cookieValue(second.Cookies(mustURL(t, "http://127.0.0.1:8080/v1/auth/confirm")), "pending"); got != "1" {
		t.Errorf("cookie under /v1/auth = %q, want 1", got)
	}
	if got := cookieValue(second.Cookies(mustURL(t, "http://127.0.0.1:8080/v1/home")), "pending"); got != "" {
		t.Errorf("cookie leaked to /v1/home after reload: %q", got)
	}
}

func TestDefaultPath(t *testing.T) {
	tests := map[string]string{
		"":                 "/",
		"/":                "/",
		"/v1":              "/",
		"/v1/sign-in":      "/v1",
		"/v1/auth/sign-in": "/v1/auth",
		"relative/path":    "/",
	}
	for in, want := range tests {
		if got := defaultPath(in); got != want {
			t.Errorf("defaultPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJar_UpdateKeepsOneRow(t *testing.T) {
	j := openTestJar(t, filepath.Join(t.TempDir(), "skilly.db"))
	u := mustURL(t, "http://127.0.0.1:8080/")

	j.SetCookies(u, []*http.Cookie{{Name: "skilly_session", Value: "a", Path: "/"}})
	j.SetCookies(u, []*http.Cookie{{Name: "skilly_session", Value: "b", Path: "/"}})

	if n, _ := j.Count(context.Background()); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
	if got := cookieValue(j.Cookies(u), "skilly_session"); got != "b" {
		t.Errorf("cookie = %q, want b", got)
	}
}

func TestJar_DeletionCookieRemovesRow(t *testing.T) {
	j := openTestJar(t, filepath.Join(t.TempDir(), "skilly.db"))
	u := mustURL(t, "http://127.0.0.1:8080/")

	j.SetCookies(u, []*http.Cookie{{Name: "skilly_session", Value: "a", Path: "/"}})
	j.SetCookies(u, []*http.Cookie{{Name: "skilly_session", Value: "", Path: "/", MaxAge: -1}})

	if n, _ := j.Count(context.Background()); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
	if got := j.Cookies(u); len(got) != 0 {
		t.Errorf("Cookies() = %v, want none", got)
	}
}

func TestJar_ExpiredCookiesPurgedOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skilly.db")
	u := mustURL(t, "http://127.0.0.1:8080/")

	j := openTestJar(t, path)
	j.SetCookies(u, []*http.Cookie{
		{Name: "short", Value: "x", Path: "/", Expires: time.Now().Add(time.Hour)},
		{Name: "long", Value: "y", Path: "/", Expires: time.Now().Add(48 * time.Hour)},
	})
	j.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()
	// pretend two hours passed before the next run
	reopened.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if err := reopened.load(context.Background()); err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if n, _ := reopened.Count(context.Background()); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestJar_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skilly.db")
	u := mustURL(t, "http://127.0.0.1:8080/")

	j := openTestJar(t, path)
	j.SetCookies(u, []*http.Cookie{{Name: "skilly_session", Value: "tok", Path: "/"}})
	if err := j.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := j.Cookies(u); len(got) != 0 {
		t.Errorf("Cookies() after Clear = %v", got)
	}
	j.Close()

	reopened := openTestJar(t, path)
	if got := reopened.Cookies(u); len(got) != 0 {
		t.Errorf("Cookies() after reopen = %v", got)
	}
}

var _ http.CookieJar = (*Jar)(nil)
