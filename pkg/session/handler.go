// Package session reacts to the loss of the user's session. Once the backend
// answers 401 (or instructs a redirect), every list registered on the page is
// aborted and the user is sent away exactly once.
package session

import (
	"sync"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/logging"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var redirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skilly_session_redirects_total",
	Help: "Page redirects caused by session loss or backend redirect instructions",
}, []string{"reason"})

// LoginPath is the login entry point.
const LoginPath = "/login"

// State of a Handler.
type State int

const (
	// StateActive is the normal state.
	StateActive State = iota

	// StateRedirecting is terminal: the page is being left.
	StateRedirecting
)

func (s State) String() string {
	if s == StateRedirecting {
		return "redirecting"
	}
	return "active"
}

// Abortable is anything that can be stopped for good: lists, guards.
type Abortable interface {
	Abort()
}

// Handler watches a page's failures for session loss.
type Handler struct {
	nav    navigation.Navigator
	logger zerolog.Logger

	mu     sync.Mutex
	state  State
	target string
	lists  []Abortable
}

// NewHandler creates a handler that navigates with nav.
func NewHandler(nav navigation.Navigator) *Handler {
	return &Handler{
		nav:    nav,
		logger: logging.NewLogger("session"),
	}
}

// Register adds lists to abort on session loss. Lists registered after the
// handler started redirecting are aborted immediately.
func (h *Handler) Register(lists ...Abortable) {
	h.mu.Lock()
	redirecting := h.state == StateRedirecting
	if !redirecting {
		h.lists = append(h.lists, lists...)
	}
	h.mu.Unlock()

	if redirecting {
		for _, l := range lists {
			l.Abort()
		}
	}
}

// Observe inspects err. Unauthorized errors trigger SessionLost and
// redirect instructions trigger Follow; both report true, meaning the error
// is handled and must not be shown to the user. Other errors report false.
func (h *Handler) Observe(err error) bool {
	if err == nil {
		return false
	}
	if client.IsUnauthorized(err) {
		h.SessionLost()
		return true
	}
	if path, ok := client.AsRedirect(err); ok {
		h.Follow(path)
		return true
	}
	return false
}

// SessionLost aborts every registered list and navigates to the login page.
func (h *Handler) SessionLost() {
	h.leave(LoginPath, "unauthorized")
}

// Follow aborts every registered list and navigates to path.
func (h *Handler) Follow(path string) {
	h.leave(path, "redirect")
}

// leave performs the Active -> Redirecting transition once. Later calls
// are no-ops.
func (h *Handler) leave(target, reason string) {
	h.mu.Lock()
	if h.state == StateRedirecting {
		h.mu.Unlock()
		h.logger.Debug().Str("target", target).Msg("Already redirecting")
		return
	}
	h.state = StateRedirecting
	h.target = target
	lists := h.lists
	h.lists = nil
	h.mu.Unlock()

	for _, l := range lists {
		l.Abort()
	}
	redirectsTotal.WithLabelValues(reason).Inc()
	h.logger.Info().Str("target", target).Str("reason", reason).Msg("Leaving page")
	h.nav.Push(target)
}

// State returns the current state.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Active reports whether the page is still usable.
func (h *Handler) Active() bool {
	return h.State() == StateActive
}

// Target returns where the handler navigated, "" while active.
func (h *Handler) Target() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.target
}
