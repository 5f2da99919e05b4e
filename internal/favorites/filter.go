package favorites

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

type recordSource []Record

func (s recordSource) String(i int) string { return s[i].Name }
func (s recordSource) Len() int            { return len(s) }

// Filter returns the saved records whose names fuzzy-match query, best match
// first. An empty query returns every record in display order.
func (s *Store) Filter(query string) []Record {
	records := s.Records()
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}
	matches := fuzzy.FindFrom(query, recordSource(records))
	out := make([]Record, 0, len(matches))
	for _, m := range matches {
		out = append(out, records[m.Index])
	}
	return out
}
