package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/csheth/recipescout/internal/favorites"
)

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("SETUP: connected to Redis", "addr", opts.Addr)
	return client, nil
}

// Redis stores each owner's favorites in the hash favorites:{owner}, field
// link, value JSON.
type Redis struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

type redisEntry struct {
	favorites.Entry
	AddedAt time.Time `json:"addedAt"`
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client, prefix: "favorites:", now: time.Now}
}

func (r *Redis) key(owner string) string {
	return r.prefix + owner
}

func (r *Redis) List(ctx context.Context, owner string) ([]favorites.Entry, error) {
	fields, err := r.client.HGetAll(ctx, r.key(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list favorites: %w", err)
	}
	stored := make([]redisEntry, 0, len(fields))
	for link, raw := range fields {
		var e redisEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode favorite %s: %w", link, err)
		}
		stored = append(stored, e)
	}
	sort.Slice(stored, func(i, j int) bool {
		if !stored[i].AddedAt.Equal(stored[j].AddedAt) {
			return stored[i].AddedAt.Before(stored[j].AddedAt)
		}
		return stored[i].Link < stored[j].Link
	})
	out := make([]favorites.Entry, 0, len(stored))
	for _, e := range stored {
		out = append(out, e.Entry)
	}
	return out, nil
}

func (r *Redis) Insert(ctx context.Context, owner string, e favorites.Entry) error {
	raw, err := json.Marshal(redisEntry{Entry: e, AddedAt: r.now().UTC()})
	if err != nil {
		return err
	}
	ok, err := r.client.HSetNX(ctx, r.key(owner), e.Link, raw).Result()
	if err != nil {
		return fmt.Errorf("redis add favorite: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, owner, link string) error {
	n, err := r.client.HDel(ctx, r.key(owner), link).Result()
	if err != nil {
		return fmt.Errorf("redis remove favorite: %w", err)
	}
	if n == 0 {
		return favorites.ErrNotFound
	}
	return nil
}
