package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/csheth/recipescout/internal/favorites"
)

// File keeps every owner's favorites in one JSON document on disk.
type File struct {
	Path string

	mu sync.Mutex
}

func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) List(_ context.Context, owner string) ([]favorites.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return append([]favorites.Entry(nil), doc[owner]...), nil
}

func (f *File) Insert(_ context.Context, owner string, e favorites.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return err
	}
	for _, existing := range doc[owner] {
		if existing.Link == e.Link {
			return ErrDuplicate
		}
	}
	doc[owner] = append(doc[owner], e)
	return f.write(doc)
}

func (f *File) Delete(_ context.Context, owner, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return err
	}
	entries := doc[owner]
	for i, e := range entries {
		if e.Link != link {
			continue
		}
		doc[owner] = append(entries[:i:i], entries[i+1:]...)
		if len(doc[owner]) == 0 {
			delete(doc, owner)
		}
		return f.write(doc)
	}
	return favorites.ErrNotFound
}

func (f *File) load() (map[string][]favorites.Entry, error) {
	doc := make(map[string][]favorites.Entry)
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return doc, nil
}

func (f *File) write(doc map[string][]favorites.Entry) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
