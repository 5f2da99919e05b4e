package search

import "unicode/utf8"

// MinSuggestChars is the shortest partial query sent to the autocomplete endpoint.
const MinSuggestChars = 3

// QueryCursor holds the text being edited and the text last searched for.
type QueryCursor struct {
	Input        string
	LastSearched string
}

func (c *QueryCursor) SetInput(text string) {
	c.Input = text
}

func (c *QueryCursor) MarkSearched(text string) {
	c.LastSearched = text
}

// Changed reports whether the input differs from the last search and a new
// search is warranted.
func (c QueryCursor) Changed() bool {
	return c.Input != "" && c.Input != c.LastSearched
}

// ShouldSuggest reports whether the input is long enough for autocomplete.
func (c QueryCursor) ShouldSuggest() bool {
	return utf8.RuneCountInString(c.Input) >= MinSuggestChars
}
