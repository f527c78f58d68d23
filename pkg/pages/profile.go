package pages

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
	"github.com/Sternrassler/skilly-client/pkg/pagination"
)

const (
	msgProfileLoadFailed   = "Failed to load profile settings. Please try again later."
	msgProfileSaved        = "Profile settings updated successfully!"
	msgProfileSaveFailed   = "Failed to update profile settings. Please try again."
	msgPictureUploadFailed = "Failed to upload profile picture. Please try again."
	msgAccountDeleted      = "Account deleted successfully"
	msgAccountDeleteFailed = "Failed to delete account. Please try again."

	pictureFilename = "profile.jpg"
)

// ProfileAPI is what the profile settings page needs from the backend.
type ProfileAPI interface {
	Profile(ctx context.Context) (*client.ProfileSettings, error)
	UpdateProfile(ctx context.Context, settings client.ProfileSettings) error
	Categories(ctx context.Context) ([]string, error)
	ProfilePicture(ctx context.Context, username string) ([]byte, error)
	UploadProfilePicture(ctx context.Context, filename string, picture io.Reader) error
	DeleteAccount(ctx context.Context) (string, error)
	SignOut(ctx context.Context) (string, error)
}

// ProfilePage edits the settings of the signed-in user.
type ProfilePage struct {
	base
	api  ProfileAPI
	busy pagination.Guard

	mu             sync.Mutex
	settings       client.ProfileSettings
	loaded         bool
	categories     []string
	picture        []byte
	pendingPicture []byte
}

// NewProfilePage creates the profile settings page.
func NewProfilePage(api ProfileAPI, nav navigation.Navigator, notifier Notifier) *ProfilePage {
	p := &ProfilePage{
		base: newBase("profile", nav, notifier),
		api:  api,
	}
	p.session.Register(&p.busy)
	return p
}

// Initialize loads the settings, the category catalogue and the current
// picture. It must be called once.
func (p *ProfilePage) Initialize(ctx context.Context) error {
	if err := p.markInitialized(); err != nil {
		return err
	}

	settings, err := p.api.Profile(ctx)
	if err != nil {
		p.report(err, msgProfileLoadFailed)
		return err
	}
	p.mu.Lock()
	p.settings = *settings
	p.loaded = true
	p.mu.Unlock()

	categories, err := p.api.Categories(ctx)
	if err != nil {
		p.report(err, msgCategoriesFailed)
		if !p.session.Active() {
			return err
		}
	} else {
		p.mu.Lock()
		p.categories = categories
		p.mu.Unlock()
	}

	// a missing picture is not worth a notification
	picture, err := p.api.ProfilePicture(ctx, settings.Username)
	if err != nil {
		p.logger.Debug().Err(err).Str("username", settings.Username).Msg("No profile picture")
		return nil
	}
	p.mu.Lock()
	p.picture = picture
	p.mu.Unlock()
	return nil
}

// Settings returns a copy of the edited settings.
func (p *ProfilePage) Settings() client.ProfileSettings {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.settings
	s.TeachCategories = append([]string(nil), s.TeachCategories...)
	s.LearnCategories = append([]string(nil), s.LearnCategories...)
	return s
}

// Categories returns the category catalogue.
func (p *ProfilePage) Categories() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.categories...)
}

// Picture returns the current picture, the pending one if set.
func (p *ProfilePage) Picture() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingPicture != nil {
		return p.pendingPicture
	}
	return p.picture
}

// Edit applies fn to the settings. Changes are kept locally until Save.
func (p *ProfilePage) Edit(fn func(*client.ProfileSettings)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.settings)
}

// ToggleCategory adds category to the teach or learn list, or removes it
// when present.
func (p *ProfilePage) ToggleCategory(kind CategoryKind, category string) {
	p.Edit(func(s *client.ProfileSettings) {
		switch kind {
		case Teach:
			s.TeachCategories = toggle(s.TeachCategories, category)
		case Learn:
			s.LearnCategories = toggle(s.LearnCategories, category)
		}
	})
}

// SetPicture stages a new picture, uploaded by the next Save.
func (p *ProfilePage) SetPicture(picture []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingPicture = picture
}

// Save posts the settings and uploads a staged picture. A failed upload
// does not undo the saved settings. Save does nothing while another save or
// delete is running.
func (p *ProfilePage) Save(ctx context.Context) error {
	if !p.busy.TryAcquire() {
		return nil
	}
	defer p.busy.Release()

	p.mu.Lock()
	if !p.loaded {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	settings := p.Settings()
	if err := p.api.UpdateProfile(ctx, settings); err != nil {
		p.report(err, msgProfileSaveFailed)
		return err
	}

	p.mu.Lock()
	pending := p.pendingPicture
	p.mu.Unlock()
	if pending != nil {
		if err := p.api.UploadProfilePicture(ctx, pictureFilename, bytes.NewReader(pending)); err != nil {
			p.report(err, msgPictureUploadFailed)
		} else {
			p.mu.Lock()
			p.picture = pending
			p.pendingPicture = nil
			p.mu.Unlock()
		}
	}

	p.notifier.Success(msgProfileSaved)
	p.logger.Info().Str("username", settings.Username).Msg("Profile settings saved")
	return nil
}

// DeleteAccount removes the account and follows the backend's redirect.
func (p *ProfilePage) DeleteAccount(ctx context.Context) error {
	if !p.busy.TryAcquire() {
		return nil
	}
	defer p.busy.Release()

	target, err := p.api.DeleteAccount(ctx)
	if err != nil {
		p.report(err, msgAccountDeleteFailed)
		return err
	}
	if target == "" {
		target = "/"
	}
	p.notifier.Success(msgAccountDeleted)
	p.session.Follow(target)
	return nil
}

// SignOut ends the session.
func (p *ProfilePage) SignOut(ctx context.Context) error {
	return p.signOut(ctx, p.api)
}

// toggle returns list with v removed if present, appended otherwise.
func toggle(list []string, v string) []string {
	out := make([]string, 0, len(list)+1)
	found := false
	for _, item := range list {
		if item == v {
			found = true
			continue
		}
		out = append(out, item)
	}
	if !found {
		out = append(out, v)
	}
	return out
}
