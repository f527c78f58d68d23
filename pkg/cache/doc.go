// Package cache keeps Skilly reference data (the category catalogue, profile
// pictures) in Redis so repeated CLI runs do not refetch it.
//
// Entries carry the freshness the server advertised (Cache-Control max-age
// or Expires). Once an entry is stale it is kept for a grace window so the
// client can revalidate it with If-None-Match / If-Modified-Since and reuse
// the body on 304 Not Modified.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//	key := cache.Key{Endpoint: "/v1/categories/list"}
//
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch and Set
//	case entry.IsExpired():
//		cache.AddConditionalHeaders(req, entry)
//	default:
//		// use entry.Data
//	}
//
// Paginated listings (chats, search) are never cached: every page load is
// exactly one round trip.
//
// # Metrics
//
//   - skilly_cache_hits_total{state="fresh|revalidated"}
//   - skilly_cache_misses_total
//   - skilly_cache_stored_bytes
//   - skilly_cache_errors_total{operation}
package cache
