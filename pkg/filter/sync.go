package filter

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/Sternrassler/skilly-client/pkg/logging"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
	"github.com/rs/zerolog"
)

// Schema names the query keys of a page's filters.
type Schema struct {
	// Path is the page path the query is attached to, e.g. "/search".
	Path string

	// FreeText is the key of the free-text term.
	FreeText string

	// Multi lists the keys of multi-value filters.
	Multi []string

	// Flags lists the keys of boolean flags.
	Flags []string
}

// Search page filter keys.
const (
	KeyUsername = "username"
	KeyTeach    = "teach"
	KeyLearn    = "learn"
	KeyKnown    = "known"
)

// SearchSchema is the schema of the user search page.
var SearchSchema = Schema{
	Path:     "/search",
	FreeText: KeyUsername,
	Multi:    []string{KeyTeach, KeyLearn},
	Flags:    []string{KeyKnown},
}

const (
	listSeparator = ","
	flagOn        = "true"
)

// Parse reads the schema's keys from q. Unknown keys and malformed values
// are ignored.
func (sc Schema) Parse(q url.Values) State {
	var st State
	if sc.FreeText != "" {
		st.FreeText = q.Get(sc.FreeText)
	}
	for _, name := range sc.Multi {
		for _, v := range strings.Split(q.Get(name), listSeparator) {
			st.Add(name, v)
		}
	}
	for _, name := range sc.Flags {
		if q.Get(name) == flagOn {
			st.SetFlag(name, true)
		}
	}
	return st
}

// Encode writes st into a copy of base. Keys outside the schema are kept;
// schema keys with a default value are removed.
func (sc Schema) Encode(st State, base url.Values) url.Values {
	q := make(url.Values, len(base))
	for k, v := range base {
		q[k] = append([]string(nil), v...)
	}

	if sc.FreeText != "" {
		if st.FreeText != "" {
			q.Set(sc.FreeText, st.FreeText)
		} else {
			q.Del(sc.FreeText)
		}
	}
	for _, name := range sc.Multi {
		if values := st.Multi[name]; len(values) > 0 {
			q.Set(name, strings.Join(values, listSeparator))
		} else {
			q.Del(name)
		}
	}
	for _, name := range sc.Flags {
		if st.Flags[name] {
			q.Set(name, flagOn)
		} else {
			q.Del(name)
		}
	}
	return q
}

// Synchronizer keeps a page's URL in step with its filters.
type Synchronizer struct {
	schema Schema
	nav    navigation.Navigator
	logger zerolog.Logger

	mu    sync.Mutex
	query url.Values
}

// NewSynchronizer creates a synchronizer for the page currently shown at
// current (path and query).
func NewSynchronizer(schema Schema, nav navigation.Navigator, current string) *Synchronizer {
	s := &Synchronizer{
		schema: schema,
		nav:    nav,
		logger: logging.NewLogger("filter", "path", schema.Path),
		query:  url.Values{},
	}
	u, err := url.Parse(current)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", current).Msg("Ignoring unparsable page URL")
		return s
	}
	// ParseQuery keeps the pairs that did parse
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Malformed query parameters ignored")
	}
	s.query = q
	return s
}

// Load returns the filters encoded in the current URL.
func (s *Synchronizer) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.Parse(s.query)
}

// Save writes st to the URL in place and returns the new location.
func (s *Synchronizer) Save(st State) string {
	s.mu.Lock()
	s.query = s.schema.Encode(st, s.query)
	target := s.schema.Path
	if encoded := s.query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	s.mu.Unlock()

	s.nav.Replace(target)
	s.logger.Debug().Str("url", target).Msg("Filters saved to URL")
	return target
}

// TriggersInitialFetch reports whether a page opened with st should search
// right away.
func TriggersInitialFetch(st State) bool {
	return !st.IsDefault()
}

// ErrNoCriteria is wrapped by ValidationError when a search has nothing to
// search for.
var ErrNoCriteria = errors.New("no search criteria")

// ValidationError is a search rejected before any request is made.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks that st can drive a search. Flags alone are not criteria.
func Validate(st State) error {
	if st.HasCriteria() {
		return nil
	}
	return &ValidationError{
		Message: "Please enter a username or select at least one category",
		Err:     ErrNoCriteria,
	}
}
