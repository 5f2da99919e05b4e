package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Kinds of repository accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindRedis  = "redis"
	KindSQL    = "sql"
	KindS3     = "s3"
)

// Options selects and configures a repository.
type Options struct {
	Kind      string
	Path      string
	RedisURL  string
	SQLDriver string
	SQLDSN    string
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
}

// Open builds the repository named by opts.Kind. The returned close function
// releases any connection it holds.
func Open(ctx context.Context, opts Options) (Repository, func() error, error) {
	noop := func() error { return nil }
	switch opts.Kind {
	case KindMemory, "":
		return NewMemory(), noop, nil
	case KindFile:
		if opts.Path == "" {
			return nil, nil, fmt.Errorf("file favorites: path is required")
		}
		return NewFile(opts.Path), noop, nil
	case KindRedis:
		client, err := NewRedisClient(ctx, opts.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedis(client), client.Close, nil
	case KindSQL:
		db, err := OpenSQL(opts.SQLDriver, opts.SQLDSN)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		slog.Info("SETUP: favorites database ready", "driver", db.Dialector.Name())
		return NewSQL(db), sqlDB.Close, nil
	case KindS3:
		client, err := NewS3Client(ctx, opts.Region, opts.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return NewS3(client, opts.Bucket, opts.Prefix), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown favorites backend %q", opts.Kind)
	}
}

// NewS3Client loads the default AWS configuration. A non-empty endpoint
// switches to path-style addressing for S3-compatible stores.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
