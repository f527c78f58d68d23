package pagination

import "context"

// PageFetcher loads one page of a listing. Implementations perform exactly
// one round trip per call and do not retry. A nil or empty page with a nil
// error means the listing has no more records.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, cursor Cursor) ([]T, error)
}

// FetchFunc adapts a function to PageFetcher.
type FetchFunc[T any] func(ctx context.Context, cursor Cursor) ([]T, error)

// FetchPage calls f.
func (f FetchFunc[T]) FetchPage(ctx context.Context, cursor Cursor) ([]T, error) {
	return f(ctx, cursor)
}
