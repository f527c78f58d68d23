package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "skilly:cache"

// Key identifies a cached response.
type Key struct {
	// Endpoint is the API path, e.g. "/v1/profile/picture/ann".
	Endpoint string

	// Query holds the request's query parameters.
	Query url.Values

	// Scope separates entries that depend on who asks. Empty for public data.
	Scope string
}

// String renders a deterministic Redis key.
//
// Example:
//
//	skilly:cache:v1/categories/list
//	skilly:cache:v1/profile/picture/ann:size=small:scope=ann
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(KeyPrefix)

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		b.WriteString(":")
		b.WriteString(endpoint)
	}

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		values := append([]string(nil), k.Query[name]...)
		sort.Strings(values)
		b.WriteString(":")
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(strings.Join(values, ","))
	}

	if k.Scope != "" {
		b.WriteString(":scope=")
		b.WriteString(k.Scope)
	}
	return b.String()
}
