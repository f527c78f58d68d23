package pages

import (
	"context"
	"net/url"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
	"github.com/Sternrassler/skilly-client/pkg/pagination"
)

const msgChatsFailed = "Failed to load chats. Please try again later."

// ChatsAPI is what the chat list needs from the backend.
type ChatsAPI interface {
	ListChats(ctx context.Context, page int) ([]client.Chat, error)
}

// ChatsPage is the paginated chat list.
type ChatsPage struct {
	base
	chats *pagination.Lister[client.Chat]
}

// NewChatsPage creates the chat list page.
func NewChatsPage(api ChatsAPI, nav navigation.Navigator, notifier Notifier) *ChatsPage {
	fetch := pagination.FetchFunc[client.Chat](func(ctx context.Context, cursor pagination.Cursor) ([]client.Chat, error) {
		return api.ListChats(ctx, int(cursor))
	})
	p := &ChatsPage{
		base:  newBase("chats", nav, notifier),
		chats: pagination.NewLister[client.Chat]("chats", fetch, func(c client.Chat) string { return c.ID }),
	}
	p.session.Register(p.chats)
	return p
}

// Initialize loads the first page. It must be called once; failures are
// reported and returned.
func (p *ChatsPage) Initialize(ctx context.Context) error {
	if err := p.markInitialized(); err != nil {
		return err
	}
	return p.LoadMore(ctx).Err
}

// LoadMore loads the next page unless a load is running or the list ended.
func (p *ChatsPage) LoadMore(ctx context.Context) pagination.LoadResult {
	return p.handleLoad(p.chats.Load(ctx), msgChatsFailed)
}

// Chats returns the loaded chats in order.
func (p *ChatsPage) Chats() []client.Chat {
	return p.chats.State().Items()
}

// HasMore reports whether LoadMore can fetch anything.
func (p *ChatsPage) HasMore() bool {
	return p.chats.State().HasMore()
}

// Loading reports whether a page request is in flight.
func (p *ChatsPage) Loading() bool {
	return p.chats.State().Snapshot().InFlight
}

// OpenChat navigates to the conversation with username.
func (p *ChatsPage) OpenChat(username string) {
	p.navigate("/chat/" + url.PathEscape(username))
}
