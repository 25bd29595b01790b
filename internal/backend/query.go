package backend

import (
	"net/url"
	"strconv"
	"strings"
)

// Query builds url.Values while skipping empty values.
type Query url.Values

func NewQuery() Query { return Query{} }

func (q Query) Str(key, value string) Query {
	if value = strings.TrimSpace(value); value != "" {
		url.Values(q).Set(key, value)
	}
	return q
}

func (q Query) Int(key string, value int) Query {
	if value > 0 {
		url.Values(q).Set(key, strconv.Itoa(value))
	}
	return q
}

func (q Query) Values() url.Values { return url.Values(q) }

// PathEscape joins path segments, escaping each one.
func PathEscape(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(strings.TrimSpace(s)))
	}
	return "/" + strings.Join(parts, "/")
}
