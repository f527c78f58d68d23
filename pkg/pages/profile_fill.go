package pages

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
)

const (
	msgProfileStatusFailed = "Failed to check profile status. Please try again later."
	msgUsernameFailed      = "Failed to check username availability. Please try again."
	msgFillFailed          = "Failed to submit profile. Please try again."
	msgFillSubmitted       = "Profile information submitted successfully!"
	msgPictureUploaded     = "Profile picture uploaded successfully!"
	msgPictureMissing      = "Please select and crop an image before uploading."

	settingsPath = "/profile/settings"
	homePath     = "/home"
)

// FormError is a form rejected before any request. Its text is meant for
// the user.
type FormError string

func (e FormError) Error() string { return string(e) }

// Validation failures of the profile fill form, in the order they are
// checked.
const (
	ErrUsernameRequired    FormError = "Please enter a username"
	ErrUsernameTaken       FormError = "This username is already taken"
	ErrDisplayNameRequired FormError = "Please enter your name"
	ErrDescriptionRequired FormError = "Please enter a description"
)

// ErrNoPicture is returned by UploadPicture without a picture.
var ErrNoPicture = errors.New("no picture selected")

// ProfileFillAPI is what the profile fill page needs from the backend.
type ProfileFillAPI interface {
	Profile(ctx context.Context) (*client.ProfileSettings, error)
	Categories(ctx context.Context) ([]string, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	FillProfile(ctx context.Context, fill client.ProfileFill) error
	UploadProfilePicture(ctx context.Context, filename string, picture io.Reader) error
}

// ProfileFillPage completes the profile of a new account. Accounts that are
// already registered are sent to the settings page.
type ProfileFillPage struct {
	base
	api ProfileFillAPI

	mu         sync.Mutex
	form       client.ProfileFill
	categories []string
	// available is nil until the current username was checked.
	available *bool
	submitted bool
}

// NewProfileFillPage creates the profile fill page.
func NewProfileFillPage(api ProfileFillAPI, nav navigation.Navigator, notifier Notifier) *ProfileFillPage {
	return &ProfileFillPage{
		base: newBase("profile_fill", nav, notifier),
		api:  api,
	}
}

// Initialize checks whether the profile still needs filling and loads the
// category catalogue. It must be called once.
func (p *ProfileFillPage) Initialize(ctx context.Context) error {
	if err := p.markInitialized(); err != nil {
		return err
	}

	settings, err := p.api.Profile(ctx)
	if err != nil {
		p.report(err, msgProfileStatusFailed)
		return err
	}
	if settings.IsRegistered {
		p.logger.Info().Str("username", settings.Username).Msg("Profile already filled")
		p.session.Follow(settingsPath)
		return nil
	}

	categories, err := p.api.Categories(ctx)
	if err != nil {
		p.report(err, msgCategoriesFailed)
		return err
	}
	p.mu.Lock()
	p.categories = categories
	p.mu.Unlock()
	return nil
}

// Categories returns the category catalogue.
func (p *ProfileFillPage) Categories() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.categories...)
}

// Form returns a copy of the form.
func (p *ProfileFillPage) Form() client.ProfileFill {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.form
	f.TeachCategories = append([]string(nil), f.TeachCategories...)
	f.LearnCategories = append([]string(nil), f.LearnCategories...)
	return f
}

// SetUsername changes the username and forgets its availability.
func (p *ProfileFillPage) SetUsername(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if username != p.form.Username {
		p.available = nil
	}
	p.form.Username = username
}

// SetDisplayName changes the display name.
func (p *ProfileFillPage) SetDisplayName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.form.DisplayName = name
}

// SetDescription changes the description.
func (p *ProfileFillPage) SetDescription(description string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.form.Description = description
}

// ToggleCategory adds or removes a teach or learn category.
func (p *ProfileFillPage) ToggleCategory(kind CategoryKind, category string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch kind {
	case Teach:
		p.form.TeachCategories = toggle(p.form.TeachCategories, category)
	case Learn:
		p.form.LearnCategories = toggle(p.form.LearnCategories, category)
	}
}

// CheckUsername asks the backend whether the current username is free and
// remembers the answer for Submit.
func (p *ProfileFillPage) CheckUsername(ctx context.Context) (bool, error) {
	p.mu.Lock()
	username := p.form.Username
	p.mu.Unlock()

	available, err := p.api.CheckUsername(ctx, username)
	if err != nil {
		p.report(err, msgUsernameFailed)
		return false, err
	}

	p.mu.Lock()
	// the username may have changed while the check was running
	if p.form.Username == username {
		p.available = &available
	}
	p.mu.Unlock()
	return available, nil
}

// Validate checks the form. The username must have been checked and found
// free.
func (p *ProfileFillPage) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case strings.TrimSpace(p.form.Username) == "":
		return ErrUsernameRequired
	case p.available == nil || !*p.available:
		return ErrUsernameTaken
	case strings.TrimSpace(p.form.DisplayName) == "":
		return ErrDisplayNameRequired
	case strings.TrimSpace(p.form.Description) == "":
		return ErrDescriptionRequired
	}
	return nil
}

// Submit validates and posts the form. Validation failures are returned
// without a request.
func (p *ProfileFillPage) Submit(ctx context.Context) error {
	if err := p.Validate(); err != nil {
		return err
	}
	form := p.Form()
	if err := p.api.FillProfile(ctx, form); err != nil {
		p.report(err, msgFillFailed)
		return err
	}

	p.mu.Lock()
	p.submitted = true
	p.mu.Unlock()
	p.notifier.Success(msgFillSubmitted)
	p.logger.Info().Str("username", form.Username).Msg("Profile submitted")
	return nil
}

// Submitted reports whether the form was accepted.
func (p *ProfileFillPage) Submitted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitted
}

// UploadPicture uploads the picture and moves on to the home page.
func (p *ProfileFillPage) UploadPicture(ctx context.Context, picture []byte) error {
	if len(picture) == 0 {
		p.notifier.Error(msgPictureMissing)
		return ErrNoPicture
	}
	if err := p.api.UploadProfilePicture(ctx, pictureFilename, bytes.NewReader(picture)); err != nil {
		p.report(err, msgPictureUploadFailed)
		return err
	}
	p.notifier.Success(msgPictureUploaded)
	p.navigate(homePath)
	return nil
}
