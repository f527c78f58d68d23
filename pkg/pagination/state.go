package pagination

// Cursor is the number of the next page to request.
type Cursor int

// InitialCursor is the first page of every listing.
const InitialCursor Cursor = 1

// KeyFunc returns the stable identity of a record.
type KeyFunc[T any] func(T) string

// Ticket is the admission handed out by TryAcquire. It names the page to
// fetch and binds the result to the generation it was requested under.
type Ticket struct {
	Cursor     Cursor
	generation uint64
}

// AppendResult describes what Append did with a page.
type AppendResult struct {
	// Added is the number of records appended.
	Added int

	// Duplicates is the number of records dropped because their key was
	// already present.
	Duplicates int

	// Exhausted is true when the page was empty and closed the list.
	Exhausted bool

	// Stale is true when the ticket belonged to an older generation and
	// the page was discarded.
	Stale bool
}

// Snapshot is a consistent copy of a list's state.
type Snapshot[T any] struct {
	Items      []T
	Cursor     Cursor
	Exhausted  bool
	Aborted    bool
	InFlight   bool
	Generation uint64
}

// ListState is an incrementally loaded list. All transitions go through
// its methods and are serialized by the embedded guard's lock.
type ListState[T any] struct {
	guard Guard

	items      []T
	cursor     Cursor
	exhausted  bool
	aborted    bool
	generation uint64

	key  KeyFunc[T]
	seen map[string]struct{}
}

// NewListState creates an empty list. With a non-nil key, records whose key
// is already present are dropped on Append.
func NewListState[T any](key KeyFunc[T]) *ListState[T] {
	s := &ListState[T]{
		cursor: InitialCursor,
		key:    key,
	}
	if key != nil {
		s.seen = make(map[string]struct{})
	}
	return s
}

// TryAcquire admits one page fetch. It returns false, changing nothing,
// while a fetch is in flight or once the list is exhausted or aborted.
func (s *ListState[T]) TryAcquire() (Ticket, bool) {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()

	if !s.guard.tryAcquireLocked() {
		return Ticket{}, false
	}
	return Ticket{Cursor: s.cursor, generation: s.generation}, true
}

// Append applies a fetched page and ends the flight. An empty page marks
// the list exhausted and leaves items and cursor as they are. A non-empty
// page is appended in order and advances the cursor by one.
func (s *ListState[T]) Append(ticket Ticket, page []T) AppendResult {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()

	s.guard.inFlight = false
	if ticket.generation != s.generation {
		return AppendResult{Stale: true}
	}

	if len(page) == 0 {
		s.exhausted = true
		s.guard.closed = true
		return AppendResult{Exhausted: true}
	}

	var res AppendResult
	for _, record := range page {
		if s.key != nil {
			k := s.key(record)
			if _, dup := s.seen[k]; dup {
				res.Duplicates++
				continue
			}
			s.seen[k] = struct{}{}
		}
		s.items = append(s.items, record)
		res.Added++
	}
	s.cursor++
	return res
}

// Release ends a flight that failed. Items, cursor and exhaustion stay
// untouched so the same page can be retried.
func (s *ListState[T]) Release(ticket Ticket) {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	s.guard.inFlight = false
}

// Reset empties the list and rewinds it to the first page. Results of a
// flight admitted before the reset are discarded when they arrive.
// An aborted list stays closed.
func (s *ListState[T]) Reset() {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	s.resetLocked()
}

// Restart resets the list and admits the first page in one step. It
// refuses while a fetch is in flight or after Abort.
func (s *ListState[T]) Restart() (Ticket, bool) {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()

	if s.guard.inFlight || s.aborted {
		return Ticket{}, false
	}
	s.resetLocked()
	s.guard.tryAcquireLocked()
	return Ticket{Cursor: s.cursor, generation: s.generation}, true
}

// Abort stops the list for good, as if it were exhausted, keeping the
// loaded items. A flight already in progress is discarded on arrival.
func (s *ListState[T]) Abort() {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()

	s.aborted = true
	s.guard.closed = true
	s.generation++
}

// Snapshot returns a copy of the current state.
func (s *ListState[T]) Snapshot() Snapshot[T] {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()

	items := make([]T, len(s.items))
	copy(items, s.items)
	return Snapshot[T]{
		Items:      items,
		Cursor:     s.cursor,
		Exhausted:  s.exhausted,
		Aborted:    s.aborted,
		InFlight:   s.guard.inFlight,
		Generation: s.generation,
	}
}

// Items returns a copy of the loaded records in arrival order.
func (s *ListState[T]) Items() []T {
	return s.Snapshot().Items
}

// Len returns the number of loaded records.
func (s *ListState[T]) Len() int {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	return len(s.items)
}

// HasMore reports whether another page may be requested.
func (s *ListState[T]) HasMore() bool {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	return !s.exhausted && !s.aborted
}

func (s *ListState[T]) resetLocked() {
	s.items = nil
	s.cursor = InitialCursor
	s.exhausted = false
	s.guard.closed = s.aborted
	if s.key != nil {
		s.seen = make(map[string]struct{})
	}
	s.generation++
}
