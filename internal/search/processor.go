package search

import "strings"

// NormalizeQuery trims the query and collapses internal whitespace runs to single spaces.
// Case is preserved. Queries that differ only in spacing share one query-cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
