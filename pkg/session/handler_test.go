package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
	"github.com/Sternrassler/skilly-client/pkg/pagination"
)

func unauthorized() error {
	return fmt.Errorf("load chats: %w", &client.APIError{StatusCode: 401, ErrorClass: client.ErrorClassUnauthorized})
}

func TestHandler_UnauthorizedNavigatesOnce(t *testing.T) {
	nav := navigation.NewHistory("/chats")
	h := NewHandler(nav)

	lister := pagination.NewLister[string]("chats", pagination.FetchFunc[string](
		func(ctx context.Context, c pagination.Cursor) ([]string, error) {
			if c == 1 {
				return []string{"a", "b"}, nil
			}
			return nil, unauthorized()
		}), nil)
	h.Register(lister)

	ctx := context.Background()
	lister.Load(ctx)
	res := lister.Load(ctx)
	if !h.Observe(res.Err) {
		t.Fatal("Observe should consume a 401")
	}

	// a second failure reported by another collaborator
	if !h.Observe(unauthorized()) {
		t.Fatal("Observe should consume a second 401")
	}

	if h.State() != StateRedirecting {
		t.Errorf("State() = %v, want redirecting", h.State())
	}
	if got := nav.Pushes(); len(got) != 1 || got[0] != LoginPath {
		t.Errorf("pushes = %v, want exactly one %s", got, LoginPath)
	}

	snap := lister.State().Snapshot()
	if len(snap.Items) != 2 {
		t.Errorf("items = %v, want untouched", snap.Items)
	}
	if !snap.Aborted {
		t.Error("registered list should be aborted")
	}
	if out := lister.Load(ctx); out.Outcome != pagination.OutcomeSkipped {
		t.Errorf("load after session loss = %v, want skipped", out.Outcome)
	}
}

func TestHandler_ConcurrentSessionLoss(t *testing.T) {
	nav := navigation.NewHistory("/home")
	h := NewHandler(nav)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Observe(unauthorized())
		}()
	}
	wg.Wait()

	if got := nav.Pushes(); len(got) != 1 {
		t.Errorf("pushes = %v, want exactly one", got)
	}
}

func TestHandler_Redirect(t *testing.T) {
	nav := navigation.NewHistory("/home")
	h := NewHandler(nav)
	var guard pagination.Guard
	h.Register(&guard)

	if !h.Observe(&client.RedirectError{Path: "/profile/fill"}) {
		t.Fatal("Observe should consume a redirect")
	}
	if h.Target() != "/profile/fill" {
		t.Errorf("Target() = %q", h.Target())
	}
	if !guard.Closed() {
		t.Error("registered guard should be aborted")
	}

	// terminal: a later 401 does not navigate again
	h.Observe(unauthorized())
	if got := nav.Pushes(); len(got) != 1 || got[0] != "/profile/fill" {
		t.Errorf("pushes = %v", got)
	}
}

func TestHandler_IgnoresOtherErrors(t *testing.T) {
	nav := navigation.NewHistory("/chats")
	h := NewHandler(nav)

	tests := []error{
		nil,
		errors.New("boom"),
		&client.APIError{StatusCode: 500, ErrorClass: client.ErrorClassServer},
		&client.APIError{ErrorClass: client.ErrorClassNetwork},
	}
	for _, err := range tests {
		if h.Observe(err) {
			t.Errorf("Observe(%v) = true, want false", err)
		}
	}
	if !h.Active() || len(nav.Entries()) != 0 {
		t.Error("non-session errors must not navigate")
	}
}

func TestHandler_RegisterAfterRedirect(t *testing.T) {
	h := NewHandler(navigation.NewHistory("/"))
	h.SessionLost()

	var guard pagination.Guard
	h.Register(&guard)
	if !guard.Closed() {
		t.Error("list registered after session loss should be aborted at once")
	}
}
