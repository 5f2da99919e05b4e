package favorites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/csheth/recipescout/internal/search"
)

var (
	// ErrInvalidEntry marks an entry missing one of name, url or link.
	ErrInvalidEntry = errors.New("favorites: invalid entry")
	// ErrNotFound is returned by Remove when the link is not stored.
	ErrNotFound = errors.New("favorites: not found")
)

// DuplicateMessage is the soft-reject message for a recipe that is already saved.
const DuplicateMessage = "Recipe already in favorites"

// Record is a saved recipe, keyed by Link.
type Record struct {
	Link     string
	Name     string
	ImageURL string
}

// Entry is the wire form exchanged with a Gateway.
type Entry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Link string `json:"link"`
}

// Validate reports which required fields are empty.
func (e Entry) Validate() error {
	var missing []string
	if strings.TrimSpace(e.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(e.URL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(e.Link) == "" {
		missing = append(missing, "link")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidEntry, strings.Join(missing, ", "))
	}
	return nil
}

func (e Entry) Record() Record {
	return Record{Link: e.Link, Name: e.Name, ImageURL: e.URL}
}

func (r Record) Entry() Entry {
	return Entry{Name: r.Name, URL: r.ImageURL, Link: r.Link}
}

// AddResult is the remote store's answer to Add. Success set means the
// request was a handled no-op such as a duplicate, not a new record.
type AddResult struct {
	Success           bool   `json:"success,omitempty"`
	Error             string `json:"error,omitempty"`
	Message           string `json:"message,omitempty"`
	PreSignedImageURL string `json:"preSignedImageUrl,omitempty"`
}

// Gateway is the remote favorites store.
type Gateway interface {
	Fetch(ctx context.Context) ([]Entry, error)
	Add(ctx context.Context, e Entry) (AddResult, error)
	Remove(ctx context.Context, link string) error
}

// FromRecipe builds the record saved for a search hit.
func FromRecipe(r search.Recipe) Record {
	name := r.Name
	if name == "" {
		name = r.Label
	}
	return Record{Link: r.Link, Name: name, ImageURL: r.Image.URL}
}
