package models

// SearchResult is a single ranked hit.
type SearchResult struct {
	Item  Item    `json:"item"`
	Score float64 `json:"score"`
	// Rank is 1-based.
	Rank int `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []SearchResult `json:"results"`
	Total     int            `json:"total"`
	Query     string         `json:"query"`
	QueryTime int64          `json:"query_time_ms"`
}
