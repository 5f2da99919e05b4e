package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/csheth/recipescout/internal/notify"
)

const SuggestFailedMessage = "Couldn't load suggestions"

// Feed holds autocomplete suggestions. Its lifecycle is independent of the
// Engine; the latest completed call wins.
type Feed struct {
	suggester Suggester
	notifier  notify.Notifier
	logger    *slog.Logger

	mu          sync.Mutex
	suggestions []string
}

func NewFeed(s Suggester, n notify.Notifier, logger *slog.Logger) *Feed {
	if n == nil {
		n = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{suggester: s, notifier: n, logger: logger}
}

// Suggest queries the suggestion endpoint for partial. Inputs shorter than
// MinSuggestChars clear the list without a request. On failure the previous
// list is kept.
func (f *Feed) Suggest(ctx context.Context, partial string) []string {
	if utf8.RuneCountInString(partial) < MinSuggestChars {
		f.Clear()
		return nil
	}
	got, err := f.suggester.Autocomplete(ctx, partial)
	if err != nil {
		f.logger.Warn("autocomplete failed", "partial", partial, "err", err)
		switch {
		case errors.Is(err, context.Canceled):
		case errors.Is(err, ErrThrottled):
			f.notifier.Notify(notify.New(notify.KindThrottled, ThrottledMessage))
		default:
			f.notifier.Notify(notify.New(notify.KindTransient, SuggestFailedMessage))
		}
		return f.Suggestions()
	}

	f.mu.Lock()
	f.suggestions = append([]string(nil), got...)
	f.mu.Unlock()
	return append([]string(nil), got...)
}

func (f *Feed) Suggestions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.suggestions...)
}

func (f *Feed) Clear() {
	f.mu.Lock()
	f.suggestions = nil
	f.mu.Unlock()
}
