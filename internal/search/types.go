package search

import (
	"context"
	"errors"
)

// ErrThrottled is returned by a Backend when the upstream API reports a rate limit.
var ErrThrottled = errors.New("search: rate limit exceeded")

// Recipe is a read-only search hit. Link (the recipe's canonical share URL) is
// its identity; there is no separate numeric id.
type Recipe struct {
	Link        string
	Name        string
	Label       string
	Source      string
	SourceURL   string
	Image       Image
	Yield       float64
	Calories    float64
	TotalTime   float64
	Ingredients []string
	CuisineType []string
	MealType    []string
}

// Image is a sized image reference.
type Image struct {
	URL    string
	Width  int
	Height int
}

// Page is one response from the search endpoint. Next is the opaque
// continuation cursor; empty means there are no further pages.
type Page struct {
	Hits  []Recipe
	Count int
	Next  string
}

// ResultSet is the accumulated result list for the current query.
type ResultSet struct {
	Items      []Recipe
	TotalCount int
	Cursor     string
}

// HasMore reports whether a continuation cursor is present.
func (r ResultSet) HasMore() bool {
	return r.Cursor != ""
}

func (r ResultSet) clone() ResultSet {
	r.Items = append([]Recipe(nil), r.Items...)
	return r
}

// Session tracks the query the user currently wants and the last one whose
// results were applied.
type Session struct {
	QueryText              string
	LastCompletedQueryText string
	InFlight               bool
}

// Backend issues search requests against the remote recipe API.
type Backend interface {
	Search(ctx context.Context, query string) (Page, error)
	Next(ctx context.Context, cursor string) (Page, error)
}

// Suggester returns autocomplete suggestions for a partial query.
type Suggester interface {
	Autocomplete(ctx context.Context, partial string) ([]string, error)
}
