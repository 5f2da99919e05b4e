package search

// Outcome is the tagged result of a search or pagination request.
type Outcome int

const (
	// OutcomeSkipped means no request was issued.
	OutcomeSkipped Outcome = iota
	// OutcomeReplaced means a new query's first page replaced the result set.
	OutcomeReplaced
	// OutcomeRefreshed means a restarted identical query overwrote the result set.
	OutcomeRefreshed
	// OutcomeAppended means a continuation page was appended.
	OutcomeAppended
	// OutcomeStale means the response no longer matched the session and was discarded.
	OutcomeStale
	// OutcomeThrottled means the API reported a rate limit.
	OutcomeThrottled
	// OutcomeFailed means the request failed; prior state is preserved.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeReplaced:
		return "replaced"
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeAppended:
		return "appended"
	case OutcomeStale:
		return "stale"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Applied reports whether the outcome mutated the result set.
func (o Outcome) Applied() bool {
	return o == OutcomeReplaced || o == OutcomeRefreshed || o == OutcomeAppended
}
