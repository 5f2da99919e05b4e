package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/csheth/recipescout/internal/notify"
)

const (
	InvalidDataMessage  = "Invalid favorite data"
	RemoveFailedMessage = "Couldn't remove favorite"
	AddFailedMessage    = "Couldn't add favorite"
	LoadFailedMessage   = "Couldn't load favorites"
	RemovedMessage      = "Removed!"
)

var errGatewayPanic = errors.New("favorites: gateway panic")

type Op int

const (
	OpAdded Op = iota
	OpRemoved
)

func (o Op) String() string {
	if o == OpRemoved {
		return "removed"
	}
	return "added"
}

type Status int

const (
	StatusApplied Status = iota
	StatusRolledBack
)

func (s Status) String() string {
	if s == StatusRolledBack {
		return "rolled_back"
	}
	return "applied"
}

// ToggleResult tells the caller whether an optimistic change stuck.
type ToggleResult struct {
	Op      Op
	Status  Status
	Record  Record
	Message string
}

// HydrateReport summarizes an initial load.
type HydrateReport struct {
	Loaded   int // valid entries fetched; provisional records are not counted
	Rejected int
	Err      error
}

// slot holds a record and, while an add is unconfirmed, the token of the
// toggle that inserted it.
type slot struct {
	Record
	token uint64
}

// Store owns the link -> record mapping for one session. Mutations are
// applied locally first and reconciled with the gateway afterwards.
type Store struct {
	gateway  Gateway
	notifier notify.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
	toggles  metric.Int64Counter

	mu        sync.Mutex
	records   map[string]slot
	nextToken uint64
}

type Option func(*Store)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Store) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Store) {
		if m == nil {
			return
		}
		c, err := m.Int64Counter("favorites_toggles_total",
			metric.WithDescription("Favorite toggles by operation and status"))
		if err != nil {
			otel.Handle(err)
			return
		}
		s.toggles = c
	}
}

func NewStore(g Gateway, opts ...Option) *Store {
	toggles, _ := metricnoop.NewMeterProvider().Meter("").Int64Counter("favorites_toggles_total")
	s := &Store{
		gateway:  g,
		notifier: notify.Discard,
		logger:   slog.Default(),
		tracer:   tracenoop.NewTracerProvider().Tracer(""),
		toggles:  toggles,
		records:  make(map[string]slot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the remote favorites. Entries missing a required field are
// skipped with one validation notification each. Records with an add still
// in flight survive the reload.
func (s *Store) Hydrate(ctx context.Context) HydrateReport {
	ctx, span := s.tracer.Start(ctx, "favorites.Hydrate")
	defer span.End()

	entries, err := s.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("favorites hydrate failed", "err", err)
		if !errors.Is(err, context.Canceled) {
			s.notifier.Notify(notify.New(notify.KindTransient, LoadFailedMessage))
		}
		return HydrateReport{Err: err}
	}

	var report HydrateReport
	next := make(map[string]slot, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			report.Rejected++
			s.logger.Warn("favorites entry rejected", "link", e.Link, "err", err)
			s.notifier.Notify(notify.New(notify.KindValidation, InvalidDataMessage))
			continue
		}
		next[e.Link] = slot{Record: e.Record()}
	}

	report.Loaded = len(next)

	s.mu.Lock()
	for link, sl := range s.records {
		if sl.token != 0 {
			next[link] = sl
		}
	}
	s.records = next
	s.mu.Unlock()

	span.SetAttributes(
		attribute.Int("favorites.loaded", report.Loaded),
		attribute.Int("favorites.rejected", report.Rejected),
	)
	return report
}

// Toggle removes rec if it is saved and adds it otherwise.
func (s *Store) Toggle(ctx context.Context, rec Record) ToggleResult {
	if strings.TrimSpace(rec.Link) == "" {
		s.notifier.Notify(notify.New(notify.KindValidation, InvalidDataMessage))
		return ToggleResult{Op: OpAdded, Status: StatusRolledBack, Record: rec, Message: InvalidDataMessage}
	}

	s.mu.Lock()
	prev, present := s.records[rec.Link]
	var token uint64
	if present {
		delete(s.records, rec.Link)
	} else {
		s.nextToken++
		token = s.nextToken
		s.records[rec.Link] = slot{Record: rec, token: token}
	}
	s.mu.Unlock()

	var res ToggleResult
	if present {
		res = s.remove(ctx, prev.Record)
	} else {
		res = s.add(ctx, rec, token)
	}
	s.toggles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", res.Op.String()),
		attribute.String("status", res.Status.String()),
	))
	return res
}

func (s *Store) remove(ctx context.Context, rec Record) ToggleResult {
	ctx, span := s.tracer.Start(ctx, "favorites.Remove",
		trace.WithAttributes(attribute.String("favorites.link", rec.Link)))
	defer span.End()

	res := ToggleResult{Op: OpRemoved, Status: StatusApplied, Record: rec}
	err := s.guard(func() error { return s.gateway.Remove(ctx, rec.Link) })
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		s.notifier.Notify(notify.New(notify.KindSuccess, RemovedMessage))
	default:
		span.RecordError(err)
		s.logger.Warn("favorites remove failed", "link", rec.Link, "err", err)
		s.notifier.Notify(notify.New(notify.KindTransient, RemoveFailedMessage))
		res.Message = RemoveFailedMessage
	}
	return res
}

func (s *Store) add(ctx context.Context, rec Record, token uint64) ToggleResult {
	ctx, span := s.tracer.Start(ctx, "favorites.Add",
		trace.WithAttributes(attribute.String("favorites.link", rec.Link)))
	defer span.End()

	var out AddResult
	err := s.guard(func() error {
		var err error
		out, err = s.gateway.Add(ctx, rec.Entry())
		return err
	})

	rolledBack := func(kind notify.Kind, msg string) ToggleResult {
		s.rollback(rec.Link, token)
		s.notifier.Notify(notify.New(kind, msg))
		span.SetAttributes(attribute.String("favorites.status", StatusRolledBack.String()))
		return ToggleResult{Op: OpAdded, Status: StatusRolledBack, Record: rec, Message: msg}
	}

	switch {
	case errors.Is(err, errGatewayPanic):
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("favorites add panicked", "link", rec.Link, "err", err)
		return rolledBack(notify.KindHardFailure, AddFailedMessage)
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("favorites add failed", "link", rec.Link, "err", err)
		return rolledBack(notify.KindTransient, AddFailedMessage)
	case out.Error != "":
		return rolledBack(notify.KindSoftReject, out.Error)
	case out.Success:
		msg := out.Message
		if msg == "" {
			msg = DuplicateMessage
		}
		return rolledBack(notify.KindSoftReject, msg)
	}

	s.mu.Lock()
	if sl, ok := s.records[rec.Link]; ok && sl.token == token {
		if out.PreSignedImageURL != "" {
			sl.ImageURL = out.PreSignedImageURL
		}
		sl.token = 0
		s.records[rec.Link] = sl
		rec = sl.Record
	}
	s.mu.Unlock()
	return ToggleResult{Op: OpAdded, Status: StatusApplied, Record: rec}
}

// rollback deletes link only if it still holds the provisional record
// inserted under token.
func (s *Store) rollback(link string, token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.records[link]; ok && sl.token == token {
		delete(s.records, link)
	}
}

func (s *Store) fetch(ctx context.Context) (entries []Entry, err error) {
	err = s.guard(func() error {
		var err error
		entries, err = s.gateway.Fetch(ctx)
		return err
	})
	return entries, err
}

func (s *Store) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errGatewayPanic, r)
		}
	}()
	return fn()
}

func (s *Store) Has(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[link]
	return ok
}

func (s *Store) Get(link string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.records[link]
	return sl.Record, ok
}

// Provisional reports whether link is saved locally but not yet confirmed.
func (s *Store) Provisional(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.records[link]
	return ok && sl.token != 0
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a snapshot sorted by name, then link.
func (s *Store) Records() []Record {
	s.mu.Lock()
	out := make([]Record, 0, len(s.records))
	for _, sl := range s.records {
		out = append(out, sl.Record)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].Link < out[j].Link
	})
	return out
}

// Snapshot returns a copy of the mapping.
func (s *Store) Snapshot() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Record, len(s.records))
	for k, sl := range s.records {
		out[k] = sl.Record
	}
	return out
}
