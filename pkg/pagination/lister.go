package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/skilly-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pageFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skilly_page_fetches_total",
		Help: "Page loads by list and outcome",
	}, []string{"list", "outcome"})

	pageFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skilly_page_fetch_duration_seconds",
		Help:    "Duration of admitted page fetches by list",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"list"})

	listDuplicatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skilly_list_duplicates_total",
		Help: "Records dropped because an earlier page already delivered them",
	}, []string{"list"})
)

// Outcome is the result kind of a Load.
type Outcome int

const (
	// OutcomeSkipped means the guard refused: a fetch was in flight or the
	// list is exhausted or aborted. No request was made.
	OutcomeSkipped Outcome = iota

	// OutcomeAppended means a non-empty page was added.
	OutcomeAppended

	// OutcomeExhausted means the server returned an empty page.
	OutcomeExhausted

	// OutcomeStale means the list was reset or aborted while the request
	// was in flight; the page was dropped.
	OutcomeStale

	// OutcomeFailed means the fetch failed; Err is set and the list is
	// ready for a retry.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAppended:
		return "appended"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// LoadResult reports a Load.
type LoadResult struct {
	Outcome    Outcome
	Cursor     Cursor
	Added      int
	Duplicates int
	Err        error
}

// Lister drives a ListState with a PageFetcher.
type Lister[T any] struct {
	name   string
	state  *ListState[T]
	logger zerolog.Logger

	mu      sync.Mutex
	fetcher PageFetcher[T]
}

// NewLister creates a lister. name labels logs and metrics. key may be nil
// to keep duplicates.
func NewLister[T any](name string, fetcher PageFetcher[T], key KeyFunc[T]) *Lister[T] {
	return &Lister[T]{
		name:    name,
		state:   NewListState(key),
		logger:  logging.NewLogger("pagination", logging.FieldList, name),
		fetcher: fetcher,
	}
}

// State exposes the underlying list.
func (l *Lister[T]) State() *ListState[T] {
	return l.state
}

// Load fetches the next page if the guard admits it. A lister without a
// page fetcher has nothing to load and skips.
func (l *Lister[T]) Load(ctx context.Context) LoadResult {
	l.mu.Lock()
	fetcher := l.fetcher
	var (
		ticket Ticket
		ok     bool
	)
	if fetcher != nil {
		ticket, ok = l.state.TryAcquire()
	}
	l.mu.Unlock()

	if !ok {
		l.logger.Debug().Bool("has_fetcher", fetcher != nil).Msg("Load refused by guard")
		pageFetchesTotal.WithLabelValues(l.name, OutcomeSkipped.String()).Inc()
		return LoadResult{Outcome: OutcomeSkipped}
	}
	return l.run(ctx, ticket, fetcher)
}

// Restart empties the list and loads the first page with fetcher, which
// replaces the current one when non-nil. It is refused while a fetch is in
// flight and skipped when no fetcher was ever bound.
func (l *Lister[T]) Restart(ctx context.Context, fetcher PageFetcher[T]) LoadResult {
	l.mu.Lock()
	if fetcher == nil {
		fetcher = l.fetcher
	}
	var (
		ticket Ticket
		ok     bool
	)
	if fetcher != nil {
		ticket, ok = l.state.Restart()
		if ok {
			l.fetcher = fetcher
		}
	}
	l.mu.Unlock()

	if !ok {
		l.logger.Debug().Bool("has_fetcher", fetcher != nil).Msg("Restart refused by guard")
		pageFetchesTotal.WithLabelValues(l.name, OutcomeSkipped.String()).Inc()
		return LoadResult{Outcome: OutcomeSkipped}
	}
	return l.run(ctx, ticket, fetcher)
}

// Clear empties the list and unbinds its page fetcher, so nothing is loaded
// until the next Restart. A page still in flight is discarded on arrival.
func (l *Lister[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetcher = nil
	l.state.Reset()
	l.logger.Debug().Msg("List cleared")
}

// HasMore reports whether Load could fetch another page.
func (l *Lister[T]) HasMore() bool {
	l.mu.Lock()
	bound := l.fetcher != nil
	l.mu.Unlock()
	return bound && l.state.HasMore()
}

// Abort stops the list for good.
func (l *Lister[T]) Abort() {
	l.state.Abort()
	l.logger.Debug().Msg("List aborted")
}

func (l *Lister[T]) run(ctx context.Context, ticket Ticket, fetcher PageFetcher[T]) LoadResult {
	start := time.Now()
	page, err := fetcher.FetchPage(ctx, ticket.Cursor)
	pageFetchDuration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())

	res := LoadResult{Cursor: ticket.Cursor}
	if err != nil {
		l.state.Release(ticket)
		res.Outcome = OutcomeFailed
		res.Err = err
		l.logger.Warn().Err(err).Int("cursor", int(ticket.Cursor)).Msg("Page fetch failed")
		pageFetchesTotal.WithLabelValues(l.name, res.Outcome.String()).Inc()
		return res
	}

	applied := l.state.Append(ticket, page)
	res.Added = applied.Added
	res.Duplicates = applied.Duplicates
	switch {
	case applied.Stale:
		res.Outcome = OutcomeStale
		l.logger.Debug().Int("cursor", int(ticket.Cursor)).Msg("Discarded page of an older generation")
	case applied.Exhausted:
		res.Outcome = OutcomeExhausted
		l.logger.Info().Int("cursor", int(ticket.Cursor)).Msg("List exhausted")
	default:
		res.Outcome = OutcomeAppended
		l.logger.Info().
			Int("cursor", int(ticket.Cursor)).
			Int("added", applied.Added).
			Int("duplicates", applied.Duplicates).
			Msg("Page loaded")
	}
	if applied.Duplicates > 0 {
		listDuplicatesTotal.WithLabelValues(l.name).Add(float64(applied.Duplicates))
	}
	pageFetchesTotal.WithLabelValues(l.name, res.Outcome.String()).Inc()
	return res
}
