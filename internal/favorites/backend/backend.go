// Package backend holds the owner-scoped favorites repositories and the
// adapter that exposes one of them as a favorites.Gateway.
package backend

import (
	"context"
	"errors"
	"log/slog"

	"github.com/csheth/recipescout/internal/favorites"
)

// ErrDuplicate is returned by Insert when the owner already saved the link.
var ErrDuplicate = errors.New("favorites: duplicate")

// Repository stores favorites per owner. Delete returns favorites.ErrNotFound
// when the link is absent.
type Repository interface {
	List(ctx context.Context, owner string) ([]favorites.Entry, error)
	Insert(ctx context.Context, owner string, e favorites.Entry) error
	Delete(ctx context.Context, owner, link string) error
}

// ImageHoster copies a recipe image into storage the service controls.
// stored is persisted with the favorite; display is a short-lived URL for
// the client. SourceURL recovers the original image from a stored value,
// or returns "" when it cannot.
type ImageHoster interface {
	Rehost(ctx context.Context, owner, imageURL string) (stored, display string, err error)
	DisplayURL(ctx context.Context, stored string) (string, error)
	SourceURL(stored string) string
}

// Gateway exposes a Repository for one owner with the add/remove
// semantics clients expect.
type Gateway struct {
	Repo   Repository
	Owner  string
	Images ImageHoster
	Logger *slog.Logger
}

var _ favorites.Gateway = (*Gateway)(nil)

func (g *Gateway) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func (g *Gateway) Fetch(ctx context.Context) ([]favorites.Entry, error) {
	entries, err := g.Repo.List(ctx, g.Owner)
	if err != nil {
		return nil, err
	}
	if g.Images == nil {
		return entries, nil
	}
	for i := range entries {
		display, err := g.Images.DisplayURL(ctx, entries[i].URL)
		if err != nil {
			display = g.Images.SourceURL(entries[i].URL)
			g.logger().Warn("favorite image url, using source image", "link", entries[i].Link, "source", display, "err", err)
		}
		entries[i].URL = display
	}
	return entries, nil
}

// Add validates and stores e. Invalid input and duplicates are reported in
// the result, not as errors.
func (g *Gateway) Add(ctx context.Context, e favorites.Entry) (favorites.AddResult, error) {
	if err := e.Validate(); err != nil {
		return favorites.AddResult{Error: favorites.InvalidDataMessage}, nil
	}

	var display string
	if g.Images != nil {
		saved, err := g.saved(ctx, e.Link)
		if err != nil {
			return favorites.AddResult{}, err
		}
		if saved {
			return favorites.AddResult{Success: true, Message: favorites.DuplicateMessage}, nil
		}
		stored, shown, err := g.Images.Rehost(ctx, g.Owner, e.URL)
		if err != nil {
			g.logger().Warn("favorite image rehost failed, keeping source url", "link", e.Link, "err", err)
		} else {
			e.URL, display = stored, shown
		}
	}

	err := g.Repo.Insert(ctx, g.Owner, e)
	switch {
	case errors.Is(err, ErrDuplicate):
		return favorites.AddResult{Success: true, Message: favorites.DuplicateMessage}, nil
	case err != nil:
		return favorites.AddResult{}, err
	}
	return favorites.AddResult{PreSignedImageURL: display}, nil
}

// saved reports whether the owner already stored link.
func (g *Gateway) saved(ctx context.Context, link string) (bool, error) {
	entries, err := g.Repo.List(ctx, g.Owner)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Link == link {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gateway) Remove(ctx context.Context, link string) error {
	return g.Repo.Delete(ctx, g.Owner, link)
}
