// Package pagination keeps incrementally loaded lists in sync with a paged
// backend listing.
//
// A ListState holds the records loaded so far, the cursor of the next page
// and whether the listing is exhausted. Every fetch is admitted by the
// list's single-flight Guard, so at most one page request is outstanding per
// list and pages are appended in request order. A page with zero records is
// the end-of-list marker: the list becomes exhausted and refuses further
// fetches until it is reset.
//
// Admission hands out a Ticket bound to the list's generation. Reset and
// Abort bump the generation, so a page that arrives for an older generation
// is dropped instead of being mixed into the restarted list.
//
// Example usage:
//
//	chats := pagination.NewLister[client.Chat]("chats",
//		pagination.FetchFunc[client.Chat](func(ctx context.Context, c pagination.Cursor) ([]client.Chat, error) {
//			return api.ListChats(ctx, int(c))
//		}),
//		func(c client.Chat) string { return c.ID },
//	)
//
//	res := chats.Load(ctx) // page 1
//	res = chats.Load(ctx)  // page 2, or OutcomeExhausted
//
// Metrics:
//   - skilly_page_fetches_total{list, outcome}
//   - skilly_page_fetch_duration_seconds{list}
//   - skilly_list_duplicates_total{list}
package pagination
