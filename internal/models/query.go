package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned by Validate when the query has no words.
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchQuery is the body of a search request.
type SearchQuery struct {
	Query string `json:"query"`
	// Limit, when positive, truncates the ranked results further than the configured maximum.
	Limit int `json:"limit,omitempty"`
}

// Validate rejects whitespace-only queries and clamps a negative limit to zero.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	return nil
}
