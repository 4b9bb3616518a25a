package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached response: the logical endpoint path plus its
// canonicalized query parameter set.
type Key struct {
	// Path is the endpoint path (e.g., "/books/recent")
	Path string

	// Params are the query parameters (e.g., {"page": "1", "limit": "20"})
	Params url.Values
}

// NewKey builds a Key from a path and a flat parameter map.
func NewKey(path string, params map[string]string) Key {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return Key{Path: path, Params: values}
}

// String generates a deterministic cache key string.
// Format: shelf:path:param1=val1:param2=val2
//
// Example:
//
//	shelf:books:limit=20:page=1
func (k Key) String() string {
	parts := []string{"shelf"}

	// Add path (normalized)
	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Add query params (sorted for determinism)
	if len(k.Params) > 0 {
		paramKeys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			paramKeys = append(paramKeys, key)
		}
		sort.Strings(paramKeys)

		for _, key := range paramKeys {
			// Join repeated values so tag=a&tag=b and tag=a stay distinct
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Params[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
