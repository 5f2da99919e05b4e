package tui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/recipescout/internal/favorites"
	"github.com/csheth/recipescout/internal/notify"
	"github.com/csheth/recipescout/internal/scroll"
	"github.com/csheth/recipescout/internal/search"
)

// Config wires runtime dependencies into the TUI program.
type Config struct {
	Engine    *search.Engine
	Feed      *search.Feed
	Favorites *favorites.Store
	// Notices must be the queue the engine, feed and store notify into.
	Notices      *notify.Queue
	Logger       *slog.Logger
	InitialQuery string
	PageWindow   time.Duration
	Clock        scroll.Clock
}

type pane int

const (
	paneResults pane = iota
	paneFavorites
)

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	maxSuggestionsShown       = 5
	cardHeight                = 2
	cardGap                   = 1
)

type model struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	jobs   *jobBus

	engine  *search.Engine
	feed    *search.Feed
	store   *favorites.Store
	notices *notify.Queue

	trigger      *scroll.Trigger
	observer     *viewportObserver
	pageRequests chan struct{}

	pane        pane
	listFocused bool
	input       textinput.Model
	filter      textinput.Model
	spinner     spinner.Model
	viewport    viewport.Model
	width       int
	height      int

	cursor      search.QueryCursor
	suggestions []string
	suggestIdx  int
	suggestSeq  int

	results     search.ResultSet
	spans       []span
	selected    int
	favRecords  []favorites.Record
	favSelected int

	running     map[jobKind]int
	toast       notify.Notification
	toastExtra  int
	toastSeq    int
	hasToast    bool
	helpVisible bool
	dirty       bool
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notices := config.Notices
	if notices == nil {
		notices = notify.NewQueue(0)
	}

	input := textinput.New()
	input.Placeholder = "Search recipes, e.g. chicken curry"
	input.CharLimit = 120
	input.Width = 60
	input.Focus()

	filter := textinput.New()
	filter.Placeholder = "Filter favorites…"
	filter.CharLimit = 80
	filter.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	ctx, cancel := context.WithCancel(context.Background())
	m := &model{
		config:       config,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
		jobs:         newJobBus(ctx, logger),
		engine:       config.Engine,
		feed:         config.Feed,
		store:        config.Favorites,
		notices:      notices,
		observer:     &viewportObserver{},
		pageRequests: make(chan struct{}, 1),
		input:        input,
		filter:       filter,
		spinner:      spin,
		viewport:     vp,
		suggestIdx:   -1,
		running:      map[jobKind]int{},
		dirty:        true,
	}

	opts := []scroll.TriggerOption{}
	if config.PageWindow > 0 {
		opts = append(opts, scroll.WithWindow(config.PageWindow))
	}
	if config.Clock != nil {
		opts = append(opts, scroll.WithClock(config.Clock))
	}
	m.trigger = scroll.NewTrigger(m.observer, m.engine.CanLoadMore, m.requestPage, opts...)
	return m
}

// requestPage is the trigger's load callback. It may run on a timer
// goroutine, so it only signals the update loop.
func (m *model) requestPage() {
	select {
	case m.pageRequests <- struct{}{}:
	default:
	}
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, waitForPageRequest(m.ctx, m.pageRequests)}
	if m.store != nil {
		cmds = append(cmds, m.jobs.Start(jobKindHydrate, hydrateJob(m.store)))
	}
	if q := strings.TrimSpace(m.config.InitialQuery); q != "" {
		m.input.SetValue(q)
		m.cursor.SetInput(q)
		cmds = append(cmds, m.startSearch(q))
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	if m.dirty {
		m.refresh()
	}
	m.syncSentinel()
	return m, cmd
}

func (m *model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return nil
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.dirty = true
			return cmd
		}
		return nil
	case jobSignalMsg:
		first := !m.busy()
		m.running[msg.Snapshot.Kind]++
		m.dirty = true
		if first {
			return m.spinner.Tick
		}
		return nil
	case jobResultEnvelope:
		if m.running[msg.Snapshot.Kind] > 0 {
			m.running[msg.Snapshot.Kind]--
		}
		cmd := m.update(msg.Payload)
		return tea.Batch(cmd, m.drainNotices())
	case searchDoneMsg:
		m.handleSearchDone(msg)
		return nil
	case pageDoneMsg:
		m.dirty = true
		return nil
	case suggestDoneMsg:
		if msg.partial == m.cursor.Input && m.cursor.Changed() {
			m.suggestions = trimSuggestions(msg.suggestions)
			m.suggestIdx = -1
			m.resize(m.width, m.height)
		}
		return nil
	case toggleDoneMsg, hydrateDoneMsg:
		m.dirty = true
		return nil
	case pageRequestMsg:
		next := waitForPageRequest(m.ctx, m.pageRequests)
		if m.running[jobKindNextPage] > 0 || !m.engine.CanLoadMore() {
			return next
		}
		return tea.Batch(next, m.jobs.Start(jobKindNextPage, nextPageJob(m.engine)))
	case suggestTickMsg:
		if msg.seq != m.suggestSeq || m.feed == nil || !m.cursor.ShouldSuggest() || !m.cursor.Changed() {
			return nil
		}
		return m.jobs.Start(jobKindSuggest, suggestJob(m.feed, m.cursor.Input))
	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.hasToast = false
		}
		return nil
	case tea.MouseMsg:
		if m.pane != paneResults {
			return nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *model) handleSearchDone(msg searchDoneMsg) {
	switch msg.outcome {
	case search.OutcomeReplaced:
		m.selected = 0
		m.viewport.GotoTop()
	case search.OutcomeStale:
		return
	}
	if msg.outcome.Applied() {
		m.clearSuggestions()
	}
	m.dirty = true
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		m.shutdown()
		return tea.Quit
	case "tab":
		m.switchPane()
		return nil
	case "ctrl+f":
		return m.toggleSelected()
	}
	if m.pane == paneFavorites {
		return m.handleFavoritesKey(msg)
	}
	if m.listFocused {
		return m.handleListKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m *model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		query := strings.TrimSpace(m.input.Value())
		if m.suggestIdx >= 0 && m.suggestIdx < len(m.suggestions) {
			query = m.suggestions[m.suggestIdx]
			m.input.SetValue(query)
			m.input.CursorEnd()
			m.cursor.SetInput(query)
		}
		if query == "" {
			return nil
		}
		m.clearSuggestions()
		return m.startSearch(query)
	case "esc":
		if len(m.suggestions) > 0 {
			m.clearSuggestions()
			return nil
		}
		m.focusList()
		return nil
	case "up":
		if len(m.suggestions) > 0 {
			m.suggestIdx--
			if m.suggestIdx < -1 {
				m.suggestIdx = len(m.suggestions) - 1
			}
		}
		return nil
	case "down":
		if len(m.suggestions) > 0 {
			m.suggestIdx++
			if m.suggestIdx >= len(m.suggestions) {
				m.suggestIdx = -1
			}
			return nil
		}
		if len(m.results.Items) > 0 {
			m.focusList()
		}
		return nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		return tea.Batch(cmd, m.inputChanged(after))
	}
	return cmd
}

func (m *model) inputChanged(value string) tea.Cmd {
	m.cursor.SetInput(strings.TrimSpace(value))
	m.suggestIdx = -1
	if !m.cursor.ShouldSuggest() {
		m.clearSuggestions()
		return nil
	}
	m.suggestSeq++
	return suggestAfter(m.suggestSeq)
}

func (m *model) handleListKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		m.shutdown()
		return tea.Quit
	case "/", "i", "esc":
		m.listFocused = false
		m.dirty = true
		return m.input.Focus()
	case "?":
		m.helpVisible = !m.helpVisible
		m.resize(m.width, m.height)
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "pgdown", "ctrl+d":
		m.moveSelection(m.cardsPerPage())
	case "pgup", "ctrl+u":
		m.moveSelection(-m.cardsPerPage())
	case "home", "g":
		m.moveSelection(-len(m.results.Items))
	case "end", "G":
		m.moveSelection(len(m.results.Items))
	case "f":
		return m.toggleSelected()
	}
	return nil
}

func (m *model) handleFavoritesKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up":
		if m.favSelected > 0 {
			m.favSelected--
			m.dirty = true
		}
		return nil
	case "down":
		if m.favSelected < len(m.favRecords)-1 {
			m.favSelected++
			m.dirty = true
		}
		return nil
	case "esc":
		m.filter.SetValue("")
		m.favSelected = 0
		m.dirty = true
		return nil
	}
	before := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.favSelected = 0
		m.dirty = true
	}
	return cmd
}

func (m *model) startSearch(query string) tea.Cmd {
	m.cursor.MarkSearched(query)
	m.dirty = true
	return m.jobs.Start(jobKindSearch, searchJob(m.engine, query))
}

func (m *model) toggleSelected() tea.Cmd {
	if m.store == nil {
		return nil
	}
	var rec favorites.Record
	switch m.pane {
	case paneResults:
		r, ok := favoriteFromSelection(m.results.Items, m.selected)
		if !ok {
			return nil
		}
		rec = r
	case paneFavorites:
		if m.favSelected < 0 || m.favSelected >= len(m.favRecords) {
			return nil
		}
		rec = m.favRecords[m.favSelected]
	}
	m.dirty = true
	return m.jobs.Start(jobKindToggle, toggleJob(m.store, rec))
}

func (m *model) switchPane() {
	if m.pane == paneResults {
		m.pane = paneFavorites
		m.input.Blur()
		m.filter.Focus()
	} else {
		m.pane = paneResults
		m.filter.Blur()
		if !m.listFocused {
			m.input.Focus()
		}
	}
	m.dirty = true
}

func (m *model) focusList() {
	m.listFocused = true
	m.input.Blur()
	m.dirty = true
}

func (m *model) clearSuggestions() {
	if m.feed != nil {
		m.feed.Clear()
	}
	m.suggestions = nil
	m.suggestIdx = -1
	m.suggestSeq++
	m.resize(m.width, m.height)
}

func (m *model) moveSelection(delta int) {
	n := len(m.results.Items)
	if n == 0 {
		return
	}
	m.selected = max(0, min(n-1, m.selected+delta))
	m.ensureSelectedVisible()
	m.dirty = true
}

func (m *model) ensureSelectedVisible() {
	if m.selected < 0 || m.selected >= len(m.spans) {
		return
	}
	sp := m.spans[m.selected]
	switch {
	case sp.start < m.viewport.YOffset:
		m.viewport.SetYOffset(sp.start)
	case sp.end > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(sp.end - m.viewport.Height)
	}
}

func (m *model) cardsPerPage() int {
	return max(1, m.viewport.Height/(cardHeight+cardGap))
}

func (m *model) busy() bool {
	for _, n := range m.running {
		if n > 0 {
			return true
		}
	}
	return false
}

// drainNotices moves queued notifications into the toast line.
func (m *model) drainNotices() tea.Cmd {
	items := m.notices.Drain()
	if len(items) == 0 {
		return nil
	}
	m.toast = items[len(items)-1]
	m.toastExtra = len(items) - 1
	m.hasToast = true
	m.toastSeq++
	m.dirty = true
	return expireToastAfter(m.toastSeq)
}

func (m *model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	m.viewport.Width = max(minViewportWidth, width-viewportHorizontalPadding)
	m.input.Width = max(20, m.viewport.Width-4)
	m.filter.Width = m.input.Width

	chrome := 7
	if n := min(len(m.suggestions), maxSuggestionsShown); n > 0 {
		chrome += n + 1
	}
	if m.helpVisible {
		chrome += len(helpLines) + 1
	}
	m.viewport.Height = max(3, height-chrome)
	m.dirty = true
}

// refresh re-renders the list into the viewport.
func (m *model) refresh() {
	m.dirty = false
	m.results = m.engine.Results()
	if m.selected >= len(m.results.Items) {
		m.selected = max(0, len(m.results.Items)-1)
	}
	if m.store != nil {
		m.favRecords = m.store.Filter(m.filter.Value())
		if m.favSelected >= len(m.favRecords) {
			m.favSelected = max(0, len(m.favRecords)-1)
		}
	}

	switch m.pane {
	case paneResults:
		content, spans := m.renderResults()
		m.spans = spans
		m.viewport.SetContent(content)
		if m.listFocused {
			m.ensureSelectedVisible()
		}
	case paneFavorites:
		m.viewport.SetContent(m.renderFavorites())
	}
}

// syncSentinel keeps the trigger attached to the current sentinel item and
// reports its visibility for the viewport's window.
func (m *model) syncSentinel() {
	if m.pane != paneResults {
		return
	}
	idx := scroll.SentinelIndex(len(m.results.Items))
	if idx < 0 || idx >= len(m.spans) {
		m.trigger.Detach()
		return
	}
	m.trigger.Attach(scroll.Sentinel{Key: m.results.Items[idx].Link, Index: idx})
	m.observer.report(m.spans, m.viewport.YOffset, m.viewport.Height)
}

func (m *model) shutdown() {
	m.trigger.Close()
	m.cancel()
}

func trimSuggestions(in []string) []string {
	if len(in) > maxSuggestionsShown {
		in = in[:maxSuggestionsShown]
	}
	return append([]string(nil), in...)
}
