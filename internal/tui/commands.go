package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/recipescout/internal/favorites"
	"github.com/csheth/recipescout/internal/search"
)

const (
	suggestDebounce = 200 * time.Millisecond
	toastLifetime   = 4 * time.Second
)

type searchDoneMsg struct {
	query   string
	outcome search.Outcome
}

type pageDoneMsg struct {
	outcome search.Outcome
}

type suggestDoneMsg struct {
	partial     string
	suggestions []string
}

type toggleDoneMsg struct {
	result favorites.ToggleResult
}

type hydrateDoneMsg struct {
	report favorites.HydrateReport
}

type pageRequestMsg struct{}

type suggestTickMsg struct {
	seq int
}

type toastExpiredMsg struct {
	seq int
}

var errOutcomeFailed = errors.New("request failed")

func outcomeErr(out search.Outcome) error {
	if out == search.OutcomeFailed || out == search.OutcomeThrottled {
		return errOutcomeFailed
	}
	return nil
}

func searchJob(engine *search.Engine, query string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		out := engine.Search(ctx, query)
		return searchDoneMsg{query: query, outcome: out}, outcomeErr(out)
	}
}

func nextPageJob(engine *search.Engine) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		out := engine.LoadNextPage(ctx)
		return pageDoneMsg{outcome: out}, outcomeErr(out)
	}
}

func suggestJob(feed *search.Feed, partial string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		return suggestDoneMsg{partial: partial, suggestions: feed.Suggest(ctx, partial)}, nil
	}
}

func toggleJob(store *favorites.Store, rec favorites.Record) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		res := store.Toggle(ctx, rec)
		var err error
		if res.Status == favorites.StatusRolledBack || res.Message != "" {
			err = errors.New(res.Message)
		}
		return toggleDoneMsg{result: res}, err
	}
}

func hydrateJob(store *favorites.Store) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		report := store.Hydrate(ctx)
		return hydrateDoneMsg{report: report}, report.Err
	}
}

// waitForPageRequest delivers the next load requested by the scroll trigger.
func waitForPageRequest(ctx context.Context, requests <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-requests:
			return pageRequestMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func suggestAfter(seq int) tea.Cmd {
	return tea.Tick(suggestDebounce, func(time.Time) tea.Msg {
		return suggestTickMsg{seq: seq}
	})
}

func expireToastAfter(seq int) tea.Cmd {
	return tea.Tick(toastLifetime, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}
