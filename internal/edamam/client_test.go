package edamam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/recipescout/internal/search"
)

const firstPage = `{
  "from": 1, "to": 2, "count": 50,
  "_links": {"next": {"href": "%s/next?_cont=abc", "title": "Next page"}},
  "hits": [
    {"recipe": {
      "label": "Chicken Vesuvio",
      "shareAs": "http://www.edamam.com/recipe/chicken-vesuvio-b79327d05b8e5b838ad6cfd9576b30b6/chicken",
      "url": "http://www.seriouseats.com/recipes/chicken-vesuvio",
      "image": "https://img/large.jpg",
      "images": {"SMALL": {"url": "https://img/small.jpg", "width": 200, "height": 200}},
      "source": "Serious Eats",
      "yield": 4, "calories": 4228.04, "totalTime": 60,
      "ingredientLines": ["1 chicken"], "cuisineType": ["italian"], "mealType": ["lunch/dinner"]
    }},
    {"recipe": {"label": "No Link"}}
  ]
}`

const lastPage = `{"count": 50, "_links": {}, "hits": [
  {"recipe": {"label": "Chicken Paprikash", "shareAs": "http://www.edamam.com/recipe/chicken-paprikash-8275bb28647abcedef0baaf2dcf34f8b/chicken", "image": "https://img/p.jpg"}}
]}`

func TestClientPaginates(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "chicken", r.URL.Query().Get("q"))
			assert.Equal(t, "public", r.URL.Query().Get("type"))
			assert.Equal(t, "id", r.URL.Query().Get("app_id"))
			assert.Equal(t, "key", r.URL.Query().Get("app_key"))
			fmt.Fprintf(w, firstPage, srv.URL)
		case "/next":
			assert.Equal(t, "abc", r.URL.Query().Get("_cont"))
			fmt.Fprint(w, lastPage)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(Config{SearchURL: srv.URL + "/search", AppID: "id", AppKey: "key"})
	page, err := c.Search(context.Background(), "chicken")
	require.NoError(t, err)
	assert.Equal(t, 50, page.Count)
	assert.Equal(t, srv.URL+"/next?_cont=abc", page.Next)
	require.Len(t, page.Hits, 1)

	hit := page.Hits[0]
	assert.Equal(t, "Chicken Vesuvio", hit.Name)
	assert.Equal(t, "http://www.edamam.com/recipe/chicken-vesuvio-b79327d05b8e5b838ad6cfd9576b30b6/chicken", hit.Link)
	assert.Equal(t, search.Image{URL: "https://img/small.jpg", Width: 200, Height: 200}, hit.Image)
	assert.Equal(t, []string{"italian"}, hit.CuisineType)

	next, err := c.Next(context.Background(), page.Next)
	require.NoError(t, err)
	assert.Empty(t, next.Next)
	require.Len(t, next.Hits, 1)
	assert.Equal(t, "Chicken Paprikash", next.Hits[0].Name)
	assert.Equal(t, "https://img/p.jpg", next.Hits[0].Image.URL)
}

func TestClientProxyCursor(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://api.edamam.com/api/recipes/v2?_cont=xyz", r.URL.Query().Get("nextPage"))
		assert.Empty(t, r.URL.Query().Get("app_key"))
		fmt.Fprint(w, lastPage)
	}))
	defer srv.Close()

	c := New(Config{SearchURL: srv.URL + "/api/search", CursorParam: "nextPage"})
	page, err := c.Next(context.Background(), "https://api.edamam.com/api/recipes/v2?_cont=xyz")
	require.NoError(t, err)
	assert.Len(t, page.Hits, 1)
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "busy":
			w.WriteHeader(http.StatusTooManyRequests)
		case "broken":
			http.Error(w, strings.Repeat("x", 2048), http.StatusBadGateway)
		default:
			fmt.Fprint(w, "{not json")
		}
	}))
	defer srv.Close()

	c := New(Config{SearchURL: srv.URL})
	ctx := context.Background()

	_, err := c.Search(ctx, "busy")
	assert.ErrorIs(t, err, search.ErrThrottled)

	_, err = c.Search(ctx, "broken")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Len(t, statusErr.Body, errorBodyLimit)

	_, err = c.Search(ctx, "garbage")
	assert.ErrorContains(t, err, "decode")

	_, err = c.Next(ctx, "")
	assert.Error(t, err)
}

func TestRawCapsBodySize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := rawBodyLimit
		if r.URL.Path == "/huge" {
			size++
		}
		fmt.Fprint(w, strings.Repeat("a", size))
	}))
	defer srv.Close()

	c := New(Config{SearchURL: srv.URL})
	ctx := context.Background()

	body, err := c.Raw(ctx, srv.URL+"/fits")
	require.NoError(t, err)
	assert.Len(t, body, rawBodyLimit)

	_, err = c.Raw(ctx, srv.URL+"/huge")
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestAutocompleteAcceptsBothShapes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		if r.URL.Path == "/wrapped" {
			fmt.Fprint(w, `{"data":["chicken","chickpea"]}`)
			return
		}
		fmt.Fprint(w, `["chicken","chickpea"]`)
	}))
	defer srv.Close()

	for _, path := range []string{"/bare", "/wrapped"} {
		c := New(Config{AutocompleteURL: srv.URL + path})
		got, err := c.Autocomplete(context.Background(), "chi")
		require.NoError(t, err, path)
		assert.Equal(t, []string{"chicken", "chickpea"}, got, path)
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shareAs, label, want string
	}{
		{"http://www.edamam.com/recipe/chicken-vesuvio-b79327d05b8e5b838ad6cfd9576b30b6/chicken", "x", "Chicken Vesuvio"},
		{"http://www.edamam.com/recipe/pad-thai/", "x", "Pad Thai"},
		{"", "Plain Label", "Plain Label"},
		{"https://example.com/somewhere-else", " Fallback ", "Fallback"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, DisplayName(tc.shareAs, tc.label), tc.shareAs)
	}
}
