package imagestore

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/csheth/recipescout/internal/favorites/backend"
)

const defaultPresignTTL = 15 * time.Minute

// Uploader is the part of the S3 client used for uploads.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the part of the S3 presign client used for display URLs.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Rehoster copies favorite images into a bucket under
// {prefix}/{owner}/{sha1}{ext} and hands out presigned GET URLs for them.
// Stored references have the form s3://{bucket}/{key}?source={image url}.
type Rehoster struct {
	Cache     *Cache
	Uploader  Uploader
	Presigner Presigner
	Bucket    string
	Prefix    string
	TTL       time.Duration
}

var _ backend.ImageHoster = (*Rehoster)(nil)

// NewRehoster wires a Rehoster to an S3 client.
func NewRehoster(cache *Cache, client *s3.Client, bucket, prefix string, ttl time.Duration) *Rehoster {
	return &Rehoster{
		Cache:     cache,
		Uploader:  client,
		Presigner: s3.NewPresignClient(client),
		Bucket:    bucket,
		Prefix:    prefix,
		TTL:       ttl,
	}
}

func (r *Rehoster) Rehost(ctx context.Context, owner, imageURL string) (string, string, error) {
	img, err := r.Cache.Fetch(ctx, imageURL)
	if err != nil {
		return "", "", fmt.Errorf("fetch image: %w", err)
	}
	file, err := os.Open(img.Path)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	key := r.objectKey(owner, imageURL, img.ContentType)
	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	_, err = r.Uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.Bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(img.Size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("upload image: %w", err)
	}

	display, err := r.presign(ctx, key)
	if err != nil {
		return "", "", err
	}
	return r.storedRef(key, imageURL), display, nil
}

// DisplayURL presigns stored references to this bucket and returns any other
// URL unchanged.
func (r *Rehoster) DisplayURL(ctx context.Context, stored string) (string, error) {
	ref, ok := r.parseRef(stored)
	if !ok {
		return stored, nil
	}
	return r.presign(ctx, strings.TrimPrefix(ref.Path, "/"))
}

// SourceURL returns the image a stored reference was copied from, or ""
// when the reference does not record one.
func (r *Rehoster) SourceURL(stored string) string {
	ref, ok := r.parseRef(stored)
	if !ok {
		return stored
	}
	return ref.Query().Get("source")
}

func (r *Rehoster) parseRef(stored string) (*url.URL, bool) {
	ref, err := url.Parse(stored)
	if err != nil || ref.Scheme != "s3" || ref.Host != r.Bucket {
		return nil, false
	}
	return ref, true
}

func (r *Rehoster) presign(ctx context.Context, key string) (string, error) {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	req, err := r.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign image: %w", err)
	}
	return req.URL, nil
}

func (r *Rehoster) storedRef(key, source string) string {
	ref := url.URL{Scheme: "s3", Host: r.Bucket, Path: "/" + key}
	ref.RawQuery = url.Values{"source": {source}}.Encode()
	return ref.String()
}

func (r *Rehoster) objectKey(owner, imageURL, contentType string) string {
	prefix := strings.Trim(r.Prefix, "/")
	if prefix == "" {
		prefix = "favorites"
	}
	return path.Join(prefix, owner, Key(imageURL)+extensionFor(contentType))
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".jpg"
	}
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
