// Package pages holds the page controllers of the Skilly client. A
// controller owns the state of one page (lists, filters, loaded records),
// is initialized exactly once and reports every failure either through its
// Notifier or by navigating away.
package pages

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/logging"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
	"github.com/Sternrassler/skilly-client/pkg/pagination"
	"github.com/Sternrassler/skilly-client/pkg/session"
	"github.com/rs/zerolog"
)

// ErrAlreadyInitialized is returned by a second Initialize call.
var ErrAlreadyInitialized = errors.New("page already initialized")

// Notifier shows transient messages to the user.
type Notifier interface {
	Error(message string)
	Success(message string)
}

// Notification is one message recorded by Notifications.
type Notification struct {
	Error   bool
	Message string
}

// Notifications is a Notifier that records messages.
type Notifications struct {
	mu   sync.Mutex
	list []Notification
}

// Error implements Notifier.
func (n *Notifications) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, Notification{Error: true, Message: message})
}

// Success implements Notifier.
func (n *Notifications) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, Notification{Message: message})
}

// All returns the recorded messages, oldest first.
func (n *Notifications) All() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.list...)
}

// Errors returns the recorded error messages.
func (n *Notifications) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, msg := range n.list {
		if msg.Error {
			out = append(out, msg.Message)
		}
	}
	return out
}

// base carries what every page shares.
type base struct {
	nav      navigation.Navigator
	notifier Notifier
	session  *session.Handler
	logger   zerolog.Logger

	initMu      sync.Mutex
	initialized bool
}

func newBase(name string, nav navigation.Navigator, notifier Notifier) base {
	return base{
		nav:      nav,
		notifier: notifier,
		session:  session.NewHandler(nav),
		logger:   logging.NewLogger("pages", logging.FieldPage, name),
	}
}

// markInitialized flips the page to initialized, once.
func (b *base) markInitialized() error {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	if b.initialized {
		return ErrAlreadyInitialized
	}
	b.initialized = true
	return nil
}

// Session returns the page's session-loss handler.
func (b *base) Session() *session.Handler {
	return b.session
}

// report ends a failure path: session loss and redirects navigate, every
// other failure becomes a notification.
func (b *base) report(err error, fallback string) {
	if b.session.Observe(err) {
		return
	}
	if errors.Is(err, context.Canceled) {
		b.logger.Debug().Err(err).Msg("Request cancelled")
		return
	}
	b.logger.Warn().Err(err).Str("error_class", string(client.ClassOf(err))).Msg(fallback)
	b.notifier.Error(client.UserMessage(err, fallback))
}

// handleLoad reports a failed page load and passes the result through.
func (b *base) handleLoad(res pagination.LoadResult, fallback string) pagination.LoadResult {
	if res.Outcome == pagination.OutcomeFailed {
		b.report(res.Err, fallback)
	}
	return res
}

// navigate pushes target unless the page is already being left.
func (b *base) navigate(target string) {
	if !b.session.Active() {
		return
	}
	b.nav.Push(target)
}

const (
	msgSignedOut      = "Logged out successfully"
	msgSignOutFailed  = "Failed to logout. Please try again."
	defaultSignOutURL = "/login"
)

// SignOutAPI ends the session on the backend.
type SignOutAPI interface {
	SignOut(ctx context.Context) (string, error)
}

// signOut ends the session and leaves the page for wherever the backend
// points.
func (b *base) signOut(ctx context.Context, api SignOutAPI) error {
	target, err := api.SignOut(ctx)
	if err != nil {
		b.report(err, msgSignOutFailed)
		return err
	}
	if target == "" {
		target = defaultSignOutURL
	}
	b.notifier.Success(msgSignedOut)
	b.session.Follow(target)
	return nil
}
