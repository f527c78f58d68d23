package pages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/Sternrassler/skilly-client/internal/testutil"
	"github.com/Sternrassler/skilly-client/pkg/pagination"
)

func chatRecords(n int, offset int) []any {
	out := make([]any, n)
	for i := range out {
		id := offset + i
		out[i] = map[string]any{
			"id":           fmt.Sprintf("c%d", id),
			"username":     fmt.Sprintf("user%d", id),
			"last_message": "hi",
			"status":       "unread",
		}
	}
	return out
}

func TestChatsPage_LoadsUntilEmptyPage(t *testing.T) {
	f := newFixture(t, "/chats")
	f.mock.SetPages("/v1/chats", "chats", chatRecords(20, 0))

	page := NewChatsPage(f.api, f.nav, f.notifier)
	ctx := context.Background()

	if err := page.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := len(page.Chats()); got != 20 {
		t.Fatalf("after first page: %d chats, want 20", got)
	}
	if !page.HasMore() {
		t.Error("HasMore() = false after a full page")
	}

	res := page.LoadMore(ctx)
	if res.Outcome != pagination.OutcomeExhausted || res.Cursor != 2 {
		t.Errorf("LoadMore() = %+v, want exhausted at cursor 2", res)
	}
	if page.HasMore() {
		t.Error("HasMore() = true after the empty page")
	}

	if res := page.LoadMore(ctx); res.Outcome != pagination.OutcomeSkipped {
		t.Errorf("LoadMore() after exhaustion = %v, want skipped", res.Outcome)
	}
	if got := f.mock.RequestCount("/v1/chats"); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if got := len(page.Chats()); got != 20 {
		t.Errorf("final list has %d chats, want 20", got)
	}
	f.assertNoErrors(t)
}

func TestChatsPage_PagesInOrder(t *testing.T) {
	f := newFixture(t, "/chats")
	f.mock.SetPages("/v1/chats", "chats", chatRecords(3, 0), chatRecords(2, 3))

	page := NewChatsPage(f.api, f.nav, f.notifier)
	ctx := context.Background()
	if err := page.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	page.LoadMore(ctx)
	page.LoadMore(ctx)

	chats := page.Chats()
	if len(chats) != 5 {
		t.Fatalf("got %d chats, want 5", len(chats))
	}
	for i, c := range chats {
		if want := fmt.Sprintf("c%d", i); c.ID != want {
			t.Errorf("chat[%d].ID = %q, want %q", i, c.ID, want)
		}
	}
	for i, req := range f.mock.Requests() {
		if want := fmt.Sprintf("page=%d", i+1); req.Query != want {
			t.Errorf("request %d query = %q, want %q", i, req.Query, want)
		}
	}
}

func TestChatsPage_UnauthorizedNavigatesOnce(t *testing.T) {
	f := newFixture(t, "/chats")
	f.mock.SetResponse("/v1/chats", testutil.NewUnauthorizedResponse())

	page := NewChatsPage(f.api, f.nav, f.notifier)
	ctx := context.Background()

	err := page.Initialize(ctx)
	if err == nil {
		t.Fatal("Initialize() error = nil, want unauthorized")
	}
	if res := page.LoadMore(ctx); res.Outcome != pagination.OutcomeSkipped {
		t.Errorf("LoadMore() after session loss = %v, want skipped", res.Outcome)
	}

	f.assertPushes(t, "/login")
	f.assertNoErrors(t)
	if got := f.mock.RequestCount("/v1/chats"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if page.Session().Active() {
		t.Error("session handler still active")
	}
}

func TestChatsPage_ServerErrorNotifiesAndAllowsRetry(t *testing.T) {
	f := newFixture(t, "/chats")
	f.mock.SetResponse("/v1/chats", testutil.NewServerErrorResponse("database unavailable"))

	page := NewChatsPage(f.api, f.nav, f.notifier)
	ctx := context.Background()

	if err := page.Initialize(ctx); err == nil {
		t.Fatal("Initialize() error = nil, want server error")
	}
	f.assertLastError(t, "database unavailable")

	f.mock.SetPages("/v1/chats", "chats", chatRecords(2, 0))
	if res := page.LoadMore(ctx); res.Outcome != pagination.OutcomeAppended || res.Cursor != 1 {
		t.Errorf("retry = %+v, want page 1 appended", res)
	}
	if len(f.nav.Pushes()) != 0 {
		t.Errorf("unexpected navigation: %v", f.nav.Pushes())
	}
}

func TestChatsPage_ServerErrorWithoutMessage(t *testing.T) {
	f := newFixture(t, "/chats")
	f.mock.SetResponse("/v1/chats", testutil.MockResponse{StatusCode: http.StatusBadGateway})

	page := NewChatsPage(f.api, f.nav, f.notifier)
	_ = page.Initialize(context.Background())

	f.assertLastError(t, msgChatsFailed)
}

func TestChatsPage_InitializeOnce(t *testing.T) {
	f := newFixture(t, "/chats")
	f.mock.SetPages("/v1/chats", "chats", chatRecords(1, 0))

	page := NewChatsPage(f.api, f.nav, f.notifier)
	ctx := context.Background()
	if err := page.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := page.Initialize(ctx); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize() = %v, want ErrAlreadyInitialized", err)
	}
	if got := f.mock.RequestCount("/v1/chats"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestChatsPage_ConcurrentLoadMoreIsSingleFlight(t *testing.T) {
	f := newFixture(t, "/chats")
	entered := make(chan struct{})
	release := make(chan struct{})
	f.mock.SetHandler("/v1/chats", func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"chats":[{"id":"c1","username":"ann","last_message":"hi"}]}`)
	})

	page := NewChatsPage(f.api, f.nav, f.notifier)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		page.LoadMore(ctx)
	}()
	<-entered

	if !page.Loading() {
		t.Error("Loading() = false while the request is in flight")
	}
	for i := 0; i < 5; i++ {
		if res := page.LoadMore(ctx); res.Outcome != pagination.OutcomeSkipped {
			t.Errorf("overlapping LoadMore() = %v, want skipped", res.Outcome)
		}
	}
	close(release)
	wg.Wait()

	if got := f.mock.RequestCount("/v1/chats"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if page.Loading() {
		t.Error("Loading() = true after completion")
	}
}

func TestChatsPage_OpenChat(t *testing.T) {
	f := newFixture(t, "/chats")
	page := NewChatsPage(f.api, f.nav, f.notifier)
	page.OpenChat("ann")
	f.assertPushes(t, "/chat/ann")
}
