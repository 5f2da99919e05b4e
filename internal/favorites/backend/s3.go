package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/csheth/recipescout/internal/favorites"
)

// ObjectAPI is the subset of the S3 client the favorites stores use.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 keeps one JSON document per owner under prefix/{owner}.json.
type S3 struct {
	api    ObjectAPI
	bucket string
	prefix string

	mu sync.Mutex
}

func NewS3(api ObjectAPI, bucket, prefix string) *S3 {
	if prefix == "" {
		prefix = "favorites"
	}
	return &S3{api: api, bucket: bucket, prefix: strings.TrimSuffix(prefix, "/")}
}

func (s *S3) key(owner string) string {
	return s.prefix + "/" + owner + ".json"
}

func (s *S3) List(ctx context.Context, owner string) ([]favorites.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, owner)
}

func (s *S3) Insert(ctx context.Context, owner string, e favorites.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load(ctx, owner)
	if err != nil {
		return err
	}
	for _, existing := range entries {
		if existing.Link == e.Link {
			return ErrDuplicate
		}
	}
	return s.store(ctx, owner, append(entries, e))
}

func (s *S3) Delete(ctx context.Context, owner, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load(ctx, owner)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if e.Link == link {
			return s.store(ctx, owner, append(entries[:i:i], entries[i+1:]...))
		}
	}
	return favorites.ErrNotFound
}

func (s *S3) load(ctx context.Context, owner string) ([]favorites.Entry, error) {
	resp, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(owner)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get favorites object from S3: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var entries []favorites.Entry
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode favorites object: %w", err)
	}
	return entries, nil
}

func (s *S3) store(ctx context.Context, owner string, entries []favorites.Entry) error {
	if entries == nil {
		entries = []favorites.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(owner)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put favorites object to S3: %w", err)
	}
	return nil
}
