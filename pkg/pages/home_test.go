package pages

import (
	"context"
	"net/http"
	"testing"

	"github.com/Sternrassler/skilly-client/internal/testutil"
)

func homeFeed() map[string]any {
	return map[string]any{
		"username":         "ann",
		"teach_categories": []string{"cooking"},
		"learn_categories": []string{"yoga"},
		"recommended":      []any{map[string]any{"username": "bob"}},
		"chats":            []any{map[string]any{"id": "c1", "username": "bob", "last_message": "hi"}},
		"events":           []any{map[string]any{"id": "e1", "name": "Meetup"}},
		"is_maintained":    false,
	}
}

func TestHomePage_LoadsFeed(t *testing.T) {
	f := newFixture(t, "/home")
	f.mock.SetJSON("/v1/home", http.StatusOK, homeFeed())

	page := NewHomePage(f.api, f.nav, f.notifier)
	if err := page.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	data := page.Data()
	if data == nil || data.Username != "ann" || len(data.Recommended) != 1 || len(data.Events) != 1 {
		t.Fatalf("Data() = %+v", data)
	}
	if page.Failed() {
		t.Error("Failed() = true after success")
	}
	req, _ := f.mock.LastRequest("/v1/home")
	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
}

func TestHomePage_RedirectFollowed(t *testing.T) {
	f := newFixture(t, "/home")
	f.mock.SetResponse("/v1/home", testutil.NewRedirectResponse("/profile/fill"))

	page := NewHomePage(f.api, f.nav, f.notifier)
	if err := page.Initialize(context.Background()); err == nil {
		t.Fatal("Initialize() error = nil, want redirect")
	}
	f.assertPushes(t, "/profile/fill")
	f.assertNoErrors(t)

	// the page is being left, nothing else may start
	if err := page.Retry(context.Background()); err != nil {
		t.Errorf("Retry() after redirect = %v, want nil", err)
	}
	if got := f.mock.RequestCount("/v1/home"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestHomePage_UnauthorizedNavigatesToLogin(t *testing.T) {
	f := newFixture(t, "/home")
	f.mock.SetResponse("/v1/home", testutil.NewUnauthorizedResponse())

	page := NewHomePage(f.api, f.nav, f.notifier)
	_ = page.Initialize(context.Background())

	f.assertPushes(t, "/login")
	f.assertNoErrors(t)
}

func TestHomePage_FailureThenRetry(t *testing.T) {
	f := newFixture(t, "/home")
	f.mock.SetResponse("/v1/home", testutil.MockResponse{StatusCode: http.StatusInternalServerError})

	page := NewHomePage(f.api, f.nav, f.notifier)
	ctx := context.Background()
	if err := page.Initialize(ctx); err == nil {
		t.Fatal("Initialize() error = nil, want server error")
	}
	if !page.Failed() {
		t.Error("Failed() = false after error")
	}
	f.assertLastError(t, msgHomeFailed)

	f.mock.SetJSON("/v1/home", http.StatusOK, homeFeed())
	if err := page.Retry(ctx); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if page.Failed() || page.Data() == nil {
		t.Error("Retry() did not recover the feed")
	}
}

func TestHomePage_Navigation(t *testing.T) {
	f := newFixture(t, "/home")
	page := NewHomePage(f.api, f.nav, f.notifier)

	page.OpenUser("bob")
	page.OpenChat("c1")
	page.OpenEvent("e1")
	page.SearchCategory(Teach, "cooking")

	f.assertPushes(t, "/profile/user/bob", "/chats/c1", "/event/e1", "/search?teach=cooking")
}

func TestHomePage_SignOut(t *testing.T) {
	f := newFixture(t, "/home")
	f.mock.SetJSON("/v1/profile/sign-out", http.StatusOK, map[string]string{"redirect": "/"})

	page := NewHomePage(f.api, f.nav, f.notifier)
	if err := page.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	f.assertPushes(t, "/")
	all := f.notifier.All()
	if len(all) != 1 || all[0].Error || all[0].Message != msgSignedOut {
		t.Errorf("notifications = %+v", all)
	}
}
