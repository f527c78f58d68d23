package pages

import (
	"context"
	"net/url"
	"sync"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
	"github.com/Sternrassler/skilly-client/pkg/pagination"
)

const msgHomeFailed = "Failed to load home data. Please try again later."

// HomeAPI is what the home page needs from the backend.
type HomeAPI interface {
	Home(ctx context.Context) (*client.HomeData, error)
	SignOut(ctx context.Context) (string, error)
}

// HomePage shows the home feed. Users without a completed profile are sent
// wherever the backend redirects them.
type HomePage struct {
	base
	api   HomeAPI
	guard pagination.Guard

	mu     sync.Mutex
	data   *client.HomeData
	failed bool
}

// NewHomePage creates the home page.
func NewHomePage(api HomeAPI, nav navigation.Navigator, notifier Notifier) *HomePage {
	p := &HomePage{
		base: newBase("home", nav, notifier),
		api:  api,
	}
	p.session.Register(&p.guard)
	return p
}

// Initialize loads the feed. It must be called once.
func (p *HomePage) Initialize(ctx context.Context) error {
	if err := p.markInitialized(); err != nil {
		return err
	}
	return p.Retry(ctx)
}

// Retry reloads the feed. It does nothing while a load is running or after
// the page was left.
func (p *HomePage) Retry(ctx context.Context) error {
	if !p.guard.TryAcquire() {
		p.logger.Debug().Msg("Home load already running")
		return nil
	}
	defer p.guard.Release()

	data, err := p.api.Home(ctx)

	p.mu.Lock()
	if err == nil {
		p.data = data
	}
	p.failed = err != nil
	p.mu.Unlock()

	if err != nil {
		p.report(err, msgHomeFailed)
		return err
	}
	p.logger.Info().
		Int("recommended", len(data.Recommended)).
		Int("chats", len(data.Chats)).
		Int("events", len(data.Events)).
		Msg("Home feed loaded")
	return nil
}

// Data returns the last loaded feed, nil before the first success.
func (p *HomePage) Data() *client.HomeData {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

// Failed reports whether the last load failed.
func (p *HomePage) Failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// OpenUser navigates to a recommended user's profile.
func (p *HomePage) OpenUser(username string) {
	p.navigate("/profile/user/" + url.PathEscape(username))
}

// OpenChat navigates to a chat from the feed.
func (p *HomePage) OpenChat(id string) {
	p.navigate("/chats/" + url.PathEscape(id))
}

// OpenEvent navigates to an event.
func (p *HomePage) OpenEvent(id string) {
	p.navigate("/event/" + url.PathEscape(id))
}

// SearchCategory opens the search filtered to one category.
func (p *HomePage) SearchCategory(kind CategoryKind, category string) {
	p.navigate("/search?" + url.Values{string(kind): {category}}.Encode())
}

// SignOut ends the session.
func (p *HomePage) SignOut(ctx context.Context) error {
	return p.signOut(ctx, p.api)
}
