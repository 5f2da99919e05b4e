package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/recipescout/internal/favorites"
	"github.com/csheth/recipescout/internal/favorites/backend"
	"github.com/csheth/recipescout/internal/notify"
	"github.com/csheth/recipescout/internal/search"
)

// pagedBackend serves pages of perPage recipes per query, up to pages pages.
type pagedBackend struct {
	mu      sync.Mutex
	perPage int
	pages   int
	nexts   int
}

func (b *pagedBackend) page(query string, n int) search.Page {
	hits := make([]search.Recipe, 0, b.perPage)
	for i := range b.perPage {
		idx := n*b.perPage + i
		hits = append(hits, search.Recipe{
			Link:     fmt.Sprintf("https://recipes.test/%s/%d", query, idx),
			Name:     fmt.Sprintf("%s dish %d", query, idx),
			Source:   "Test Kitchen",
			Calories: 420,
			Image:    search.Image{URL: fmt.Sprintf("https://img.test/%d.jpg", idx)},
		})
	}
	p := search.Page{Hits: hits, Count: b.perPage * b.pages}
	if n+1 < b.pages {
		p.Next = fmt.Sprintf("%s|%d", query, n+1)
	}
	return p
}

func (b *pagedBackend) Search(_ context.Context, query string) (search.Page, error) {
	return b.page(query, 0), nil
}

func (b *pagedBackend) Next(_ context.Context, cursor string) (search.Page, error) {
	b.mu.Lock()
	b.nexts++
	b.mu.Unlock()
	var query string
	var n int
	if _, err := fmt.Sscanf(strings.Replace(cursor, "|", " ", 1), "%s %d", &query, &n); err != nil {
		return search.Page{}, err
	}
	return b.page(query, n), nil
}

type fakeSuggester struct{}

func (fakeSuggester) Autocomplete(_ context.Context, partial string) ([]string, error) {
	return []string{partial + " soup", partial + " salad"}, nil
}

func newTestModel(t *testing.T, b search.Backend) (*model, *notify.Queue, *backend.Memory) {
	t.Helper()
	queue := notify.NewQueue(0)
	repo := backend.NewMemory()
	engine := search.NewEngine(b, search.WithNotifier(queue))
	store := favorites.NewStore(&backend.Gateway{Repo: repo, Owner: "tester"}, favorites.WithNotifier(queue))
	feed := search.NewFeed(fakeSuggester{}, queue, nil)

	teaModel, ok := New(Config{Engine: engine, Feed: feed, Favorites: store, Notices: queue}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	t.Cleanup(teaModel.shutdown)
	teaModel.Update(tea.WindowSizeMsg{Width: 100, Height: 12})
	return teaModel, queue, repo
}

// finish runs a job synchronously and feeds its envelope to the model.
func finish(m *model, kind jobKind, run jobRunner) {
	payload, _ := run(context.Background())
	m.Update(jobResultEnvelope{Snapshot: jobSnapshot{Kind: kind}, Payload: payload})
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestEnterStartsSearch(t *testing.T) {
	m, _, _ := newTestModel(t, &pagedBackend{perPage: 3, pages: 1})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 24})
	m.input.SetValue("chicken")

	_, cmd := m.Update(key(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("enter should start a search job")
	}
	if m.cursor.LastSearched != "chicken" {
		t.Fatalf("last searched not recorded, got %q", m.cursor.LastSearched)
	}

	finish(m, jobKindSearch, searchJob(m.engine, "chicken"))
	if len(m.results.Items) != 3 {
		t.Fatalf("expected 3 results, got %d", len(m.results.Items))
	}
	view := m.View()
	for i := 0; i < 3; i++ {
		if want := fmt.Sprintf("chicken dish %d", i); !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if !strings.Contains(view, "end of results") {
		t.Fatalf("single page should report the end of results:\n%s", view)
	}
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	m, _, _ := newTestModel(t, &pagedBackend{perPage: 3, pages: 1})
	m.input.SetValue("   ")
	if _, cmd := m.Update(key(tea.KeyEnter)); cmd != nil {
		t.Fatal("blank input should not search")
	}
}

func TestScrollingToSentinelRequestsNextPage(t *testing.T) {
	b := &pagedBackend{perPage: 10, pages: 3}
	m, _, _ := newTestModel(t, b)

	m.startSearch("pie")
	finish(m, jobKindSearch, searchJob(m.engine, "pie"))
	if got := len(m.results.Items); got != 10 {
		t.Fatalf("expected 10 results, got %d", got)
	}
	if len(m.pageRequests) != 0 {
		t.Fatal("sentinel is off screen, no page should be requested yet")
	}

	m.Update(key(tea.KeyEsc))
	if !m.listFocused {
		t.Fatal("esc should move focus to the result list")
	}
	for i := 0; i < 3; i++ {
		m.Update(runes("j"))
	}
	if len(m.pageRequests) != 1 {
		t.Fatalf("scrolling the sentinel into view should request a page (selected=%d offset=%d)", m.selected, m.viewport.YOffset)
	}

	<-m.pageRequests
	_, cmd := m.Update(pageRequestMsg{})
	if cmd == nil {
		t.Fatal("page request should start a next-page job")
	}
	finish(m, jobKindNextPage, nextPageJob(m.engine))
	if got := len(m.results.Items); got != 20 {
		t.Fatalf("expected 20 results after the next page, got %d", got)
	}
}

func TestPageRequestSkippedWithoutCursor(t *testing.T) {
	m, _, _ := newTestModel(t, &pagedBackend{perPage: 2, pages: 1})
	m.startSearch("soup")
	finish(m, jobKindSearch, searchJob(m.engine, "soup"))

	_, cmd := m.Update(pageRequestMsg{})
	if cmd == nil {
		t.Fatal("the page request listener should be re-armed")
	}
	if m.running[jobKindNextPage] != 0 {
		t.Fatal("no next-page job should run without a cursor")
	}
}

func TestSuggestionsFollowInput(t *testing.T) {
	m, _, _ := newTestModel(t, &pagedBackend{perPage: 1, pages: 1})

	m.Update(runes("chi"))
	if m.cursor.Input != "chi" {
		t.Fatalf("cursor input not updated, got %q", m.cursor.Input)
	}
	seq := m.suggestSeq
	if _, cmd := m.Update(suggestTickMsg{seq: seq - 1}); cmd != nil {
		t.Fatal("an outdated debounce tick should be ignored")
	}
	if _, cmd := m.Update(suggestTickMsg{seq: seq}); cmd == nil {
		t.Fatal("the current debounce tick should start a suggest job")
	}

	finish(m, jobKindSuggest, suggestJob(m.feed, "chi"))
	if len(m.suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %v", m.suggestions)
	}

	m.Update(key(tea.KeyDown))
	m.Update(key(tea.KeyDown))
	if _, cmd := m.Update(key(tea.KeyEnter)); cmd == nil {
		t.Fatal("enter on a suggestion should search")
	}
	if m.cursor.LastSearched != "chi salad" {
		t.Fatalf("search should use the selected suggestion, got %q", m.cursor.LastSearched)
	}
	if len(m.suggestions) != 0 {
		t.Fatal("suggestions should clear once a search starts")
	}
}

func TestLateSuggestionsAreDropped(t *testing.T) {
	m, _, _ := newTestModel(t, &pagedBackend{perPage: 1, pages: 1})
	m.Update(runes("chick"))

	m.Update(jobResultEnvelope{
		Snapshot: jobSnapshot{Kind: jobKindSuggest},
		Payload:  suggestDoneMsg{partial: "chi", suggestions: []string{"chili"}},
	})
	if len(m.suggestions) != 0 {
		t.Fatalf("suggestions for an older partial should be dropped, got %v", m.suggestions)
	}
}

func TestCompletedSearchClearsSuggestions(t *testing.T) {
	m, _, _ := newTestModel(t, &pagedBackend{perPage: 1, pages: 1})
	m.suggestions = []string{"stale"}
	m.startSearch("rice")
	finish(m, jobKindSearch, searchJob(m.engine, "rice"))
	if len(m.suggestions) != 0 {
		t.Fatalf("completed search should clear suggestions, got %v", m.suggestions)
	}
}

func TestToggleFavoriteFromResults(t *testing.T) {
	m, _, repo := newTestModel(t, &pagedBackend{perPage: 2, pages: 1})
	m.startSearch("taco")
	finish(m, jobKindSearch, searchJob(m.engine, "taco"))
	m.focusList()

	_, cmd := m.Update(key(tea.KeyCtrlF))
	if cmd == nil {
		t.Fatal("ctrl+f should start a toggle job")
	}
	rec := favorites.FromRecipe(m.results.Items[0])
	finish(m, jobKindToggle, toggleJob(m.store, rec))

	if !m.store.Has(rec.Link) {
		t.Fatal("recipe should be saved")
	}
	if !strings.Contains(m.View(), "★") {
		t.Fatalf("saved recipe should be marked:\n%s", m.View())
	}
	saved, _ := repo.List(context.Background(), "tester")
	if len(saved) != 1 {
		t.Fatalf("gateway should hold one favorite, got %d", len(saved))
	}

	finish(m, jobKindToggle, toggleJob(m.store, rec))
	if m.store.Has(rec.Link) {
		t.Fatal("second toggle should remove the recipe")
	}
	if !strings.Contains(m.View(), favorites.RemovedMessage) {
		t.Fatalf("removal toast missing:\n%s", m.View())
	}
}

func TestToastShowsLatestNotice(t *testing.T) {
	m, queue, _ := newTestModel(t, &pagedBackend{perPage: 1, pages: 1})
	queue.Notify(notify.New(notify.KindTransient, "first"))
	queue.Notify(notify.New(notify.KindThrottled, search.ThrottledMessage))

	m.Update(jobResultEnvelope{Snapshot: jobSnapshot{Kind: jobKindSearch}, Payload: pageDoneMsg{}})
	view := m.View()
	if !strings.Contains(view, search.ThrottledMessage) || !strings.Contains(view, "(+1 more)") {
		t.Fatalf("toast should show the newest notice and the count of older ones:\n%s", view)
	}

	m.Update(toastExpiredMsg{seq: m.toastSeq})
	if strings.Contains(m.View(), search.ThrottledMessage) {
		t.Fatal("toast should expire")
	}
}

func TestFavoritesPaneFilters(t *testing.T) {
	m, _, repo := newTestModel(t, &pagedBackend{perPage: 1, pages: 1})
	ctx := context.Background()
	for _, e := range []favorites.Entry{
		{Name: "Apple Pie", URL: "https://img/1.jpg", Link: "https://r/pie"},
		{Name: "Lentil Soup", URL: "https://img/2.jpg", Link: "https://r/soup"},
	} {
		if err := repo.Insert(ctx, "tester", e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	finish(m, jobKindHydrate, hydrateJob(m.store))

	m.Update(key(tea.KeyTab))
	if m.pane != paneFavorites {
		t.Fatal("tab should switch to favorites")
	}
	view := m.View()
	if !strings.Contains(view, "Apple Pie") || !strings.Contains(view, "Lentil Soup") {
		t.Fatalf("all favorites should be listed:\n%s", view)
	}

	m.Update(runes("pie"))
	view = m.View()
	if !strings.Contains(view, "Apple Pie") || strings.Contains(view, "Lentil Soup") {
		t.Fatalf("filter should keep only matching favorites:\n%s", view)
	}

	m.Update(key(tea.KeyCtrlF))
	finish(m, jobKindToggle, toggleJob(m.store, m.favRecords[0]))
	if m.store.Has("https://r/pie") {
		t.Fatal("ctrl+f in the favorites pane should remove the selection")
	}
}

func TestHelpToggleResizesViewport(t *testing.T) {
	m, _, _ := newTestModel(t, &pagedBackend{perPage: 1, pages: 1})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	before := m.viewport.Height
	m.focusList()

	m.Update(runes("?"))
	if !m.helpVisible {
		t.Fatal("? should show help")
	}
	if m.viewport.Height >= before {
		t.Fatalf("help should take room from the viewport (%d >= %d)", m.viewport.Height, before)
	}
	if !strings.Contains(m.View(), "toggle favorite") {
		t.Fatal("help should list the favorite key")
	}
}
