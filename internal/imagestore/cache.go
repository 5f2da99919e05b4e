// Package imagestore downloads recipe images through an on-disk cache and
// re-hosts them in S3 for saved favorites.
package imagestore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheSubdir        = "recipescout/images"
	defaultTTL         = 24 * time.Hour
	partialSuffix      = ".part"
	metaSuffix         = ".meta"
	defaultHTTPTimeout = 30 * time.Second
	maxImageBytes      = 10 << 20
)

// Cache stores downloaded images keyed by the SHA-1 of their URL. Entries
// older than the TTL are revalidated with If-None-Match/If-Modified-Since.
type Cache struct {
	dir    string
	ttl    time.Duration
	client *http.Client
}

// Image is a cached file and what the origin said about it.
type Image struct {
	Path        string
	ContentType string
	Size        int64
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	ContentType  string    `json:"contentType"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

// NewCache creates dir if needed. An empty dir uses the user cache directory.
func NewCache(dir string, ttl time.Duration, client *http.Client) (*Cache, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "recipescout-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Cache{dir: dir, ttl: ttl, client: client}, nil
}

// Fetch returns the cached image for imageURL, downloading or revalidating
// it as needed. A stale copy is served when the origin cannot be reached.
func (c *Cache) Fetch(ctx context.Context, imageURL string) (Image, error) {
	key := Key(imageURL)
	imgPath, metaPath, partialPath := c.pathsFor(key)

	meta, _ := readMeta(metaPath)
	info, statErr := os.Stat(imgPath)
	if statErr == nil && info.Size() > 0 && time.Since(meta.CachedAt) < c.ttl {
		return Image{Path: imgPath, ContentType: meta.ContentType, Size: info.Size()}, nil
	}
	if statErr != nil {
		info = nil
	}

	img, err := c.download(ctx, imageURL, imgPath, metaPath, partialPath, meta, info)
	if err == nil {
		return img, nil
	}
	if info != nil && info.Size() > 0 {
		return Image{Path: imgPath, ContentType: meta.ContentType, Size: info.Size()}, nil
	}
	return Image{}, err
}

func (c *Cache) download(ctx context.Context, imageURL, imgPath, metaPath, partialPath string, meta cacheMeta, current os.FileInfo) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Image{}, err
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Image{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current == nil {
			return Image{}, fmt.Errorf("image download: unexpected 304 for %s", imageURL)
		}
		meta.CachedAt = time.Now().UTC()
		if err := writeMeta(metaPath, meta); err != nil {
			return Image{}, err
		}
		return Image{Path: imgPath, ContentType: meta.ContentType, Size: current.Size()}, nil
	case http.StatusOK:
		return c.saveBody(resp, imgPath, metaPath, partialPath)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Image{}, fmt.Errorf("image download failed: %s (%s)", resp.Status, string(body))
	}
}

func (c *Cache) saveBody(resp *http.Response, imgPath, metaPath, partialPath string) (Image, error) {
	file, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Image{}, err
	}
	n, err := io.Copy(file, io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		file.Close()
		return Image{}, err
	}
	if err := file.Close(); err != nil {
		return Image{}, err
	}
	if n > maxImageBytes {
		os.Remove(partialPath)
		return Image{}, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	if err := os.Rename(partialPath, imgPath); err != nil {
		return Image{}, err
	}

	meta := cacheMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		ContentType:  resp.Header.Get("Content-Type"),
		CachedAt:     time.Now().UTC(),
		Size:         n,
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return Image{}, err
	}
	return Image{Path: imgPath, ContentType: meta.ContentType, Size: n}, nil
}

func (c *Cache) pathsFor(key string) (string, string, string) {
	base := filepath.Join(c.dir, key)
	return base + ".img", base + metaSuffix, base + partialSuffix
}

// Key is the cache and object key derived from an image URL.
func Key(imageURL string) string {
	sum := sha1.Sum([]byte(imageURL))
	return hex.EncodeToString(sum[:])
}

func readMeta(path string) (cacheMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheMeta{}, err
	}
	var meta cacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func writeMeta(path string, meta cacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
