package pages

import (
	"context"
	"sync"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
)

// AuthMode selects sign in or sign up.
type AuthMode int

const (
	ModeSignIn AuthMode = iota
	ModeSignUp
)

func (m AuthMode) String() string {
	if m == ModeSignUp {
		return "sign-up"
	}
	return "sign-in"
}

func (m AuthMode) failure() string {
	if m == ModeSignUp {
		return "An error occurred while signing up. Please try again."
	}
	return "An error occurred while signing in. Please try again."
}

// AuthAPI is what the landing page needs from the backend.
type AuthAPI interface {
	SignIn(ctx context.Context, creds client.Credentials) (string, error)
	SignUp(ctx context.Context, creds client.Credentials) (string, error)
	SessionValid(ctx context.Context) (bool, error)
}

// AuthPage is the landing page with the sign in and sign up forms.
// Unauthorized answers are wrong credentials here, not a lost session, so
// failures are always shown.
type AuthPage struct {
	base
	api AuthAPI

	mu       sync.Mutex
	loggedIn bool
}

// NewAuthPage creates the landing page.
func NewAuthPage(api AuthAPI, nav navigation.Navigator, notifier Notifier) *AuthPage {
	return &AuthPage{
		base: newBase("auth", nav, notifier),
		api:  api,
	}
}

// CheckLoginStatus checks whether the stored session is still valid. Any
// failure counts as logged out.
func (p *AuthPage) CheckLoginStatus(ctx context.Context) bool {
	ok, err := p.api.SessionValid(ctx)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Login status check failed")
	}
	p.mu.Lock()
	p.loggedIn = ok
	p.mu.Unlock()
	return ok
}

// LoggedIn returns the result of the last CheckLoginStatus.
func (p *AuthPage) LoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loggedIn
}

// Enter goes straight to the home page for a logged-in user. It reports
// false when the user has to authenticate first.
func (p *AuthPage) Enter() bool {
	if !p.LoggedIn() {
		return false
	}
	p.navigate(homePath)
	return true
}

// Submit posts creds in mode and follows the returned redirect. On failure
// the backend's message is shown when it sent one.
func (p *AuthPage) Submit(ctx context.Context, mode AuthMode, creds client.Credentials) error {
	call := p.api.SignIn
	if mode == ModeSignUp {
		call = p.api.SignUp
	}

	target, err := call(ctx, creds)
	if err != nil {
		p.logger.Warn().Err(err).Str("mode", mode.String()).Msg("Authentication failed")
		p.notifier.Error(client.UserMessage(err, mode.failure()))
		return err
	}

	p.mu.Lock()
	p.loggedIn = true
	p.mu.Unlock()
	if target == "" {
		target = homePath
	}
	p.logger.Info().Str("mode", mode.String()).Str("target", target).Msg("Authenticated")
	p.nav.Push(target)
	return nil
}
