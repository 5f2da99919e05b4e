package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/csheth/recipescout/internal/notify"
)

const (
	ThrottledMessage    = "Usage limits are exceeded, try again later."
	SearchFailedMessage = "Error fetching recipes"
	NextPageMessage     = "Error fetching next page"
	UnexpectedMessage   = "Something went wrong, please try again."
)

const (
	opSearch   = "search"
	opNextPage = "next_page"
)

var errBackendPanic = errors.New("search: backend panic")

// Engine owns the result set for one search session. Backend calls are made
// without holding the lock; every apply path re-validates the session before
// mutating state, so completions may arrive in any order.
type Engine struct {
	backend  Backend
	notifier notify.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  engineMetrics

	mu       sync.Mutex
	results  ResultSet
	session  Session
	inFlight int
	pending  bool
}

type Option func(*engineOptions)

type engineOptions struct {
	notifier notify.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
}

func WithNotifier(n notify.Notifier) Option {
	return func(o *engineOptions) { o.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *engineOptions) { o.tracer = t }
}

func WithMeter(m metric.Meter) Option {
	return func(o *engineOptions) { o.meter = m }
}

// NewEngine returns an engine with an empty result set.
func NewEngine(backend Backend, opts ...Option) *Engine {
	o := engineOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = notify.Discard
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Engine{
		backend:  backend,
		notifier: o.notifier,
		logger:   o.logger,
		tracer:   o.tracer,
		metrics:  newEngineMetrics(o.meter),
	}
}

// Search issues one request for query. An empty query is a no-op. The
// response is discarded when the session has moved on to another query by
// the time it completes.
func (e *Engine) Search(ctx context.Context, query string) Outcome {
	if strings.TrimSpace(query) == "" {
		return OutcomeSkipped
	}
	ctx, span := e.tracer.Start(ctx, "search.Search",
		trace.WithAttributes(attribute.String("search.query", query)))
	defer span.End()

	e.mu.Lock()
	e.session.QueryText = query
	e.inFlight++
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
	}()

	page, err := e.call(ctx, opSearch, func(ctx context.Context) (Page, error) {
		return e.backend.Search(ctx, query)
	})
	if err != nil {
		return e.finish(ctx, span, opSearch, e.failure(err, SearchFailedMessage), err)
	}

	e.mu.Lock()
	var out Outcome
	switch {
	case e.session.QueryText != query:
		out = OutcomeStale
	case query == e.session.LastCompletedQueryText:
		e.results = fromPage(page)
		out = OutcomeRefreshed
	default:
		e.results = fromPage(page)
		e.session.LastCompletedQueryText = query
		out = OutcomeReplaced
	}
	e.mu.Unlock()

	return e.finish(ctx, span, opSearch, out, nil)
}

// LoadNextPage fetches the page behind the current continuation cursor and
// appends it. It issues no request when the cursor is absent or another page
// load is pending.
func (e *Engine) LoadNextPage(ctx context.Context) Outcome {
	e.mu.Lock()
	if e.results.Cursor == "" || e.pending {
		e.mu.Unlock()
		return OutcomeSkipped
	}
	cursor := e.results.Cursor
	query := e.session.QueryText
	e.pending = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.pending = false
		e.mu.Unlock()
	}()

	ctx, span := e.tracer.Start(ctx, "search.LoadNextPage",
		trace.WithAttributes(attribute.String("search.query", query)))
	defer span.End()

	page, err := e.call(ctx, opNextPage, func(ctx context.Context) (Page, error) {
		return e.backend.Next(ctx, cursor)
	})
	if err != nil {
		return e.finish(ctx, span, opNextPage, e.failure(err, NextPageMessage), err)
	}

	e.mu.Lock()
	var out Outcome
	if e.session.QueryText != query || e.results.Cursor != cursor {
		out = OutcomeStale
	} else {
		e.results.Items = append(e.results.Items, page.Hits...)
		e.results.TotalCount = page.Count
		e.results.Cursor = page.Next
		out = OutcomeAppended
	}
	e.mu.Unlock()

	return e.finish(ctx, span, opNextPage, out, nil)
}

// Reset discards the result set and session, as when the consuming view goes away.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = ResultSet{}
	e.session = Session{}
}

// Results returns a copy of the accumulated result set.
func (e *Engine) Results() ResultSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results.clone()
}

func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	s.InFlight = e.inFlight > 0
	return s
}

func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results.HasMore()
}

// CanLoadMore reports whether LoadNextPage would issue a request.
func (e *Engine) CanLoadMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results.HasMore() && !e.pending
}

func (e *Engine) call(ctx context.Context, op string, fn func(context.Context) (Page, error)) (page Page, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errBackendPanic, r)
		}
		e.metrics.request(ctx, op, time.Since(start))
	}()
	return fn(ctx)
}

func (e *Engine) failure(err error, message string) Outcome {
	switch {
	case errors.Is(err, ErrThrottled):
		e.notifier.Notify(notify.New(notify.KindThrottled, ThrottledMessage))
		return OutcomeThrottled
	case errors.Is(err, errBackendPanic):
		e.notifier.Notify(notify.New(notify.KindHardFailure, UnexpectedMessage))
		return OutcomeFailed
	case errors.Is(err, context.Canceled):
		return OutcomeFailed
	default:
		e.notifier.Notify(notify.New(notify.KindTransient, message))
		return OutcomeFailed
	}
}

func (e *Engine) finish(ctx context.Context, span trace.Span, op string, out Outcome, err error) Outcome {
	span.SetAttributes(attribute.String("search.outcome", out.String()))
	e.metrics.outcome(ctx, op, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("search request failed", "op", op, "outcome", out.String(), "err", err)
		return out
	}
	e.logger.Debug("search request completed", "op", op, "outcome", out.String())
	return out
}

func fromPage(p Page) ResultSet {
	return ResultSet{
		Items:      append([]Recipe(nil), p.Hits...),
		TotalCount: p.Count,
		Cursor:     p.Next,
	}
}
