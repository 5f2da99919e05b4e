package tui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

type jobKind string

type jobStatus string

const (
	jobKindSearch   jobKind = "search"
	jobKindNextPage jobKind = "next-page"
	jobKindSuggest  jobKind = "suggest"
	jobKindToggle   jobKind = "toggle"
	jobKindHydrate  jobKind = "hydrate"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs work off the update loop. Every job reports a start signal and
// a result envelope carrying its payload message.
type jobBus struct {
	ctx    context.Context
	logger *slog.Logger
}

func newJobBus(ctx context.Context, logger *slog.Logger) *jobBus {
	return &jobBus{ctx: ctx, logger: logger}
}

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	id := string(kind) + "-" + uuid.NewString()[:8]
	started := time.Now()
	startSnapshot := jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: startSnapshot}
	}

	runCmd := func() tea.Msg {
		payload, err := runner(b.ctx)
		snapshot := jobSnapshot{
			ID:          id,
			Kind:        kind,
			StartedAt:   started,
			CompletedAt: time.Now(),
			Status:      jobStatusSucceeded,
		}
		if err != nil {
			snapshot.Status = jobStatusFailed
			snapshot.Err = err.Error()
		}
		snapshot.Duration = snapshot.CompletedAt.Sub(started)
		b.logger.Debug("job finished", "id", id, "kind", kind, "status", snapshot.Status, "duration", snapshot.Duration, "err", err)
		return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
	}

	return tea.Sequence(startCmd, runCmd)
}
