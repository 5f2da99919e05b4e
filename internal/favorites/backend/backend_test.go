package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/csheth/recipescout/internal/favorites"
)

var (
	pho   = favorites.Entry{Name: "Pho", URL: "https://img/pho.jpg", Link: "https://r/pho"}
	laksa = favorites.Entry{Name: "Laksa", URL: "https://img/laksa.jpg", Link: "https://r/laksa"}
)

// exerciseRepository runs the behaviour every repository shares.
func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	got, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, repo.Insert(ctx, "alice", pho))
	require.NoError(t, repo.Insert(ctx, "alice", laksa))
	require.NoError(t, repo.Insert(ctx, "bob", pho))

	err = repo.Insert(ctx, "alice", pho)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err = repo.List(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []favorites.Entry{pho, laksa}, got)

	require.NoError(t, repo.Delete(ctx, "alice", pho.Link))
	assert.ErrorIs(t, repo.Delete(ctx, "alice", pho.Link), favorites.ErrNotFound)

	got, err = repo.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []favorites.Entry{laksa}, got)

	got, err = repo.List(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []favorites.Entry{pho}, got)
}

func TestMemoryRepository(t *testing.T) {
	t.Parallel()
	exerciseRepository(t, NewMemory())
}

func TestFileRepository(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "favorites.json")
	exerciseRepository(t, NewFile(path))

	// A fresh handle reads what the first one wrote.
	got, err := NewFile(path).List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []favorites.Entry{laksa}, got)
}

func TestFileRepositoryRejectsCorruptDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "favorites.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewFile(path).List(context.Background(), "alice")
	assert.Error(t, err)
}

func TestSQLRepository(t *testing.T) {
	t.Parallel()

	db, err := OpenSQL("sqlite", ":memory:")
	require.NoError(t, err)
	exerciseRepository(t, NewSQL(db))
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := OpenSQL("oracle", "")
	assert.Error(t, err)
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func TestS3Repository(t *testing.T) {
	t.Parallel()

	objects := newFakeObjects()
	exerciseRepository(t, NewS3(objects, "recipes", "favorites/"))
	assert.Contains(t, objects.objects, "recipes/favorites/alice.json")
	assert.Contains(t, objects.objects, "recipes/favorites/bob.json")
}

func TestRedisRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("6379/tcp"),
				wait.ForLog("Ready to accept connections"),
			).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	exerciseRepository(t, NewRedis(client))
}

func TestOpenUnknownKind(t *testing.T) {
	t.Parallel()

	_, _, err := Open(context.Background(), Options{Kind: "carrier-pigeon"})
	assert.Error(t, err)

	_, _, err = Open(context.Background(), Options{Kind: KindFile})
	assert.Error(t, err)

	repo, closeFn, err := Open(context.Background(), Options{Kind: KindMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, repo)
	assert.NoError(t, closeFn())
}

type fakeImages struct {
	rehostErr  error
	displayErr error
	rehosted   []string
}

func (f *fakeImages) Rehost(_ context.Context, owner, imageURL string) (string, string, error) {
	if f.rehostErr != nil {
		return "", "", f.rehostErr
	}
	f.rehosted = append(f.rehosted, imageURL)
	return "s3://bucket/" + owner + "/img", "https://signed/" + owner, nil
}

func (f *fakeImages) DisplayURL(_ context.Context, stored string) (string, error) {
	if f.displayErr != nil {
		return "", f.displayErr
	}
	return "https://signed/for/" + stored, nil
}

func (f *fakeImages) SourceURL(stored string) string {
	if stored == "s3://bucket/alice/img" {
		return pho.URL
	}
	return ""
}

func TestGatewayAddSemantics(t *testing.T) {
	t.Parallel()

	g := &Gateway{Repo: NewMemory(), Owner: "alice"}
	ctx := context.Background()

	res, err := g.Add(ctx, pho)
	require.NoError(t, err)
	assert.Equal(t, favorites.AddResult{}, res)

	res, err = g.Add(ctx, pho)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, favorites.DuplicateMessage, res.Message)

	res, err = g.Add(ctx, favorites.Entry{Name: "no link", URL: "u"})
	require.NoError(t, err)
	assert.Equal(t, favorites.InvalidDataMessage, res.Error)

	entries, err := g.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []favorites.Entry{pho}, entries)

	require.NoError(t, g.Remove(ctx, pho.Link))
	assert.ErrorIs(t, g.Remove(ctx, pho.Link), favorites.ErrNotFound)
}

func TestGatewayRehostsImages(t *testing.T) {
	t.Parallel()

	images := &fakeImages{}
	repo := NewMemory()
	g := &Gateway{Repo: repo, Owner: "alice", Images: images}
	ctx := context.Background()

	res, err := g.Add(ctx, pho)
	require.NoError(t, err)
	assert.Equal(t, "https://signed/alice", res.PreSignedImageURL)
	assert.Equal(t, []string{pho.URL}, images.rehosted)

	stored, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/alice/img", stored[0].URL)

	fetched, err := g.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://signed/for/s3://bucket/alice/img", fetched[0].URL)
}

func TestGatewayKeepsSourceImageWhenRehostFails(t *testing.T) {
	t.Parallel()

	g := &Gateway{Repo: NewMemory(), Owner: "alice", Images: &fakeImages{rehostErr: errors.New("s3 down")}}
	res, err := g.Add(context.Background(), laksa)
	require.NoError(t, err)
	assert.Empty(t, res.PreSignedImageURL)

	stored, err := g.Repo.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, laksa.URL, stored[0].URL)
}

func TestGatewaySkipsRehostForDuplicates(t *testing.T) {
	t.Parallel()

	images := &fakeImages{}
	g := &Gateway{Repo: NewMemory(), Owner: "alice", Images: images}
	ctx := context.Background()

	_, err := g.Add(ctx, pho)
	require.NoError(t, err)
	res, err := g.Add(ctx, pho)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, favorites.DuplicateMessage, res.Message)
	assert.Equal(t, []string{pho.URL}, images.rehosted, "a duplicate must not upload the image again")
}

func TestGatewayFetchFallsBackToSourceImage(t *testing.T) {
	t.Parallel()

	images := &fakeImages{}
	g := &Gateway{Repo: NewMemory(), Owner: "alice", Images: images}
	ctx := context.Background()
	_, err := g.Add(ctx, pho)
	require.NoError(t, err)

	images.displayErr = errors.New("presign failed")
	fetched, err := g.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, pho.URL, fetched[0].URL)
}
