package pages

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/filter"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
	"github.com/Sternrassler/skilly-client/pkg/pagination"
)

const (
	msgSearchFailed     = "Failed to search users. Please try again later."
	msgCategoriesFailed = "Failed to load categories. Please try again later."
)

// CategoryKind selects the teach or learn side of a profile.
type CategoryKind string

const (
	Teach CategoryKind = filter.KeyTeach
	Learn CategoryKind = filter.KeyLearn
)

// SearchAPI is what the search page needs from the backend.
type SearchAPI interface {
	SearchUsers(ctx context.Context, req client.SearchRequest) ([]client.SearchResult, error)
	Categories(ctx context.Context) ([]string, error)
}

// SearchPage is the user search with URL-synchronized filters.
type SearchPage struct {
	base
	api     SearchAPI
	sync    *filter.Synchronizer
	results *pagination.Lister[client.SearchResult]

	mu         sync.Mutex
	filters    filter.State
	categories []string
}

// NewSearchPage creates the search page for the URL it was opened at,
// e.g. "/search?username=ann&teach=cooking,yoga".
func NewSearchPage(api SearchAPI, nav navigation.Navigator, notifier Notifier, currentURL string) *SearchPage {
	p := &SearchPage{
		base: newBase("search", nav, notifier),
		api:  api,
		sync: filter.NewSynchronizer(filter.SearchSchema, nav, currentURL),
		results: pagination.NewLister[client.SearchResult]("search", nil,
			func(r client.SearchResult) string { return r.Username }),
	}
	p.filters = p.sync.Load()
	p.session.Register(p.results)
	return p
}

// Initialize loads the category catalogue and, when the URL carried
// filters, runs the search. It must be called once.
func (p *SearchPage) Initialize(ctx context.Context) error {
	if err := p.markInitialized(); err != nil {
		return err
	}

	if err := p.LoadCategories(ctx); err != nil && !p.session.Active() {
		return err
	}

	if !filter.TriggersInitialFetch(p.Filters()) {
		return nil
	}
	res, err := p.Search(ctx)
	if err != nil {
		return err
	}
	return res.Err
}

// LoadCategories fetches the category catalogue.
func (p *SearchPage) LoadCategories(ctx context.Context) error {
	categories, err := p.api.Categories(ctx)
	if err != nil {
		p.report(err, msgCategoriesFailed)
		return err
	}
	p.mu.Lock()
	p.categories = categories
	p.mu.Unlock()
	return nil
}

// Search starts a fresh search with the current filters. A search without
// criteria is rejected with a *filter.ValidationError before any request.
// While a page request is in flight the search is skipped.
func (p *SearchPage) Search(ctx context.Context) (pagination.LoadResult, error) {
	snapshot := p.Filters()
	if err := filter.Validate(snapshot); err != nil {
		p.notifier.Error(err.Error())
		return pagination.LoadResult{Outcome: pagination.OutcomeSkipped}, err
	}
	res := p.results.Restart(ctx, searchFetcher(p.api, snapshot))
	return p.handleLoad(res, msgSearchFailed), nil
}

// LoadMore loads the next page of the current search. Without a search it
// skips.
func (p *SearchPage) LoadMore(ctx context.Context) pagination.LoadResult {
	return p.handleLoad(p.results.Load(ctx), msgSearchFailed)
}

// searchFetcher binds a filter snapshot to the search endpoint.
func searchFetcher(api SearchAPI, st filter.State) pagination.PageFetcher[client.SearchResult] {
	req := client.SearchRequest{
		Username:        strings.TrimSpace(st.FreeText),
		TeachCategories: st.Values(filter.KeyTeach),
		LearnCategories: st.Values(filter.KeyLearn),
		ShowKnownPeople: st.Flag(filter.KeyKnown),
	}
	return pagination.FetchFunc[client.SearchResult](func(ctx context.Context, cursor pagination.Cursor) ([]client.SearchResult, error) {
		r := req
		r.Page = int(cursor)
		return api.SearchUsers(ctx, r)
	})
}

// SetUsername edits the free-text term.
func (p *SearchPage) SetUsername(username string) {
	p.edit(func(st *filter.State) { st.SetFreeText(username) })
}

// AddCategory selects a category.
func (p *SearchPage) AddCategory(kind CategoryKind, category string) {
	p.edit(func(st *filter.State) { st.Add(string(kind), category) })
}

// RemoveCategory deselects a category.
func (p *SearchPage) RemoveCategory(kind CategoryKind, category string) {
	p.edit(func(st *filter.State) { st.Remove(string(kind), category) })
}

// SetShowKnown toggles whether people the user already knows are listed.
func (p *SearchPage) SetShowKnown(on bool) {
	p.edit(func(st *filter.State) { st.SetFlag(filter.KeyKnown, on) })
}

// ResetFilters clears every filter and drops the current search with its
// results. LoadMore skips until the next Search.
func (p *SearchPage) ResetFilters() {
	p.edit(func(st *filter.State) { *st = filter.State{} })
	p.results.Clear()
}

// edit applies fn to the filters and mirrors the result into the URL.
func (p *SearchPage) edit(fn func(*filter.State)) {
	p.mu.Lock()
	fn(&p.filters)
	snapshot := p.filters.Clone()
	p.mu.Unlock()

	p.sync.Save(snapshot)
}

// Filters returns a copy of the current filters.
func (p *SearchPage) Filters() filter.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filters.Clone()
}

// Categories returns the category catalogue.
func (p *SearchPage) Categories() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.categories...)
}

// Results returns the loaded results in order.
func (p *SearchPage) Results() []client.SearchResult {
	return p.results.State().Items()
}

// HasMore reports whether LoadMore can fetch anything.
func (p *SearchPage) HasMore() bool {
	return p.results.HasMore()
}

// OpenProfile navigates to a user's profile.
func (p *SearchPage) OpenProfile(username string) {
	p.navigate("/profile/" + url.PathEscape(username))
}
