package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/pages"
	"github.com/Sternrassler/skilly-client/pkg/pagination"
	"github.com/spf13/cobra"
)

const envPassword = "SKILLY_PASSWORD"

// done turns the outcome of a page action into the command result. Pages
// already notified the user of failures, so only navigation away is
// explained here.
func (a *app) done(err error) error {
	if a.sessionLost() {
		fmt.Fprintln(a.out, errorStyle.Render("Your session has expired. Sign in again with `skilly signin`."))
		if err == nil {
			err = client.ErrUnauthorized
		}
		return reported(err)
	}
	if err != nil {
		var formErr pages.FormError
		if errors.As(err, &formErr) {
			return err
		}
		if !a.notifier.failed() {
			return err
		}
		return reported(err)
	}
	return nil
}

// loadPages keeps loading until n pages are loaded, n <= 0 meaning all.
func loadPages(ctx context.Context, n int, loaded int, loadMore func(context.Context) pagination.LoadResult, hasMore func() bool) error {
	for (n <= 0 || loaded < n) && hasMore() {
		res := loadMore(ctx)
		switch res.Outcome {
		case pagination.OutcomeFailed:
			return res.Err
		case pagination.OutcomeAppended:
			loaded++
		default:
			return nil
		}
	}
	return nil
}

func newAuthCmd(a *app, mode pages.AuthMode) *cobra.Command {
	var email, password string
	use, short := "signin", "Sign in to Skilly"
	if mode == pages.ModeSignUp {
		use, short = "signup", "Create a Skilly account"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = a.getenv(envPassword)
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or %s) are required", envPassword)
			}
			page := pages.NewAuthPage(a.api, a.nav, a.notifier)
			if err := page.Submit(cmd.Context(), mode, client.Credentials{Email: email, Password: password}); err != nil {
				return reported(err)
			}
			fmt.Fprintln(a.out, successStyle.Render("Signed in. Continue at "+a.nav.Current()))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (env "+envPassword+")")
	return cmd
}

func newSignOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the session and forget the stored cookies",
		RunE: func(cmd *cobra.Command, args []string) error {
			page := pages.NewHomePage(a.api, a.nav, a.notifier)
			if err := page.SignOut(cmd.Context()); err != nil {
				return a.done(err)
			}
			return a.jar.Clear(cmd.Context())
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the stored session is still valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			page := pages.NewAuthPage(a.api, a.nav, a.notifier)
			if page.CheckLoginStatus(cmd.Context()) {
				fmt.Fprintln(a.out, successStyle.Render("signed in"))
			} else {
				fmt.Fprintln(a.out, dimStyle.Render("signed out"))
			}
			return nil
		},
	}
}

func newChatsCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List your chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			page := pages.NewChatsPage(a.api, a.nav, a.notifier)
			if err := page.Initialize(ctx); err != nil {
				return a.done(err)
			}
			if err := loadPages(ctx, n, 1, page.LoadMore, page.HasMore); err != nil {
				return a.done(err)
			}
			renderChats(a.out, page.Chats(), page.HasMore())
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "pages", 1, "Pages to load, 0 for all")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		fromURL      string
		username     string
		teach, learn []string
		known        bool
		n            int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search people by username and skill",
		Example: `  skilly search --username ann --teach cooking --teach yoga
  skilly search --url '/search?learn=chess&known=true'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if fromURL == "" {
				fromURL = "/search"
			}
			a.nav.Replace(fromURL)
			page := pages.NewSearchPage(a.api, a.nav, a.notifier, fromURL)

			if cmd.Flags().Changed("username") {
				page.SetUsername(username)
			}
			for _, c := range teach {
				page.AddCategory(pages.Teach, c)
			}
			for _, c := range learn {
				page.AddCategory(pages.Learn, c)
			}
			if cmd.Flags().Changed("known") {
				page.SetShowKnown(known)
			}

			if err := page.Initialize(ctx); err != nil {
				return a.done(err)
			}
			if page.Filters().IsDefault() {
				fmt.Fprintln(a.out, dimStyle.Render("Nothing to search for. Pick a username or categories:"))
				renderCategories(a.out, page.Categories(), nil)
				return nil
			}
			if len(page.Results()) == 0 && !page.HasMore() {
				fmt.Fprintln(a.out, dimStyle.Render("No people found."))
				return nil
			}
			if err := loadPages(ctx, n, 1, page.LoadMore, page.HasMore); err != nil {
				return a.done(err)
			}
			renderSearchResults(a.out, page.Results(), page.HasMore())
			fmt.Fprintln(a.out, dimStyle.Render("url: "+a.nav.Current()))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&fromURL, "url", "", "Start from a saved search URL")
	f.StringVar(&username, "username", "", "Username to search for")
	f.StringSliceVar(&teach, "teach", nil, "Category the person teaches, repeatable")
	f.StringSliceVar(&learn, "learn", nil, "Category the person learns, repeatable")
	f.BoolVar(&known, "known", false, "Include people you already know")
	f.IntVar(&n, "pages", 1, "Pages to load, 0 for all")
	return cmd
}

func newHomeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show your home feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			page := pages.NewHomePage(a.api, a.nav, a.notifier)
			if err := page.Initialize(cmd.Context()); err != nil {
				if !page.Session().Active() && !a.sessionLost() {
					fmt.Fprintln(a.out, dimStyle.Render("Continue at "+page.Session().Target()))
					return nil
				}
				return a.done(err)
			}
			renderHome(a.out, page.Data())
			return nil
		},
	}
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the skill categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := a.api.Categories(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, headerStyle.Render(fmt.Sprintf("Categories (%d)", len(categories))))
			for _, c := range categories {
				fmt.Fprintln(a.out, itemStyle.Render(c))
			}
			return nil
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			page := pages.NewProfilePage(a.api, a.nav, a.notifier)
			if err := page.Initialize(cmd.Context()); err != nil {
				return a.done(err)
			}
			renderProfile(a.out, page.Settings())
			return nil
		},
	}
	cmd.AddCommand(newProfileUpdateCmd(a), newProfileFillCmd(a), newProfileDeleteCmd(a))
	return cmd
}

func newProfileUpdateCmd(a *app) *cobra.Command {
	var (
		displayName, description, picture string
		public, notifications             bool
		toggleTeach, toggleLearn          []string
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			page := pages.NewProfilePage(a.api, a.nav, a.notifier)
			if err := page.Initialize(ctx); err != nil {
				return a.done(err)
			}

			f := cmd.Flags()
			page.Edit(func(s *client.ProfileSettings) {
				if f.Changed("display-name") {
					s.DisplayName = displayName
				}
				if f.Changed("description") {
					s.Description = description
				}
				if f.Changed("public") {
					s.IsPublic = public
				}
				if f.Changed("notifications") {
					s.AreNotificationsEnabled = notifications
				}
			})
			for _, c := range toggleTeach {
				page.ToggleCategory(pages.Teach, c)
			}
			for _, c := range toggleLearn {
				page.ToggleCategory(pages.Learn, c)
			}
			if picture != "" {
				data, err := os.ReadFile(picture)
				if err != nil {
					return fmt.Errorf("read picture: %w", err)
				}
				page.SetPicture(data)
			}

			if err := page.Save(ctx); err != nil {
				return a.done(err)
			}
			renderProfile(a.out, page.Settings())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&displayName, "display-name", "", "Display name")
	f.StringVar(&description, "description", "", "Profile description")
	f.BoolVar(&public, "public", false, "Make the profile public")
	f.BoolVar(&notifications, "notifications", false, "Enable notifications")
	f.StringSliceVar(&toggleTeach, "toggle-teach", nil, "Add or remove a teach category, repeatable")
	f.StringSliceVar(&toggleLearn, "toggle-learn", nil, "Add or remove a learn category, repeatable")
	f.StringVar(&picture, "picture", "", "Path of a new profile picture")
	return cmd
}

func newProfileFillCmd(a *app) *cobra.Command {
	var (
		username, displayName, description, picture string
		teach, learn                                []string
	)
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Complete the profile of a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			page := pages.NewProfileFillPage(a.api, a.nav, a.notifier)
			if err := page.Initialize(ctx); err != nil {
				return a.done(err)
			}
			if !page.Session().Active() {
				fmt.Fprintln(a.out, dimStyle.Render("Profile already complete. Use `skilly profile update`."))
				return nil
			}

			page.SetUsername(username)
			page.SetDisplayName(displayName)
			page.SetDescription(description)
			for _, c := range teach {
				page.ToggleCategory(pages.Teach, c)
			}
			for _, c := range learn {
				page.ToggleCategory(pages.Learn, c)
			}
			if username != "" {
				if _, err := page.CheckUsername(ctx); err != nil {
					return a.done(err)
				}
			}
			if err := page.Submit(ctx); err != nil {
				return a.done(err)
			}
			if picture == "" {
				return nil
			}
			data, err := os.ReadFile(picture)
			if err != nil {
				return fmt.Errorf("read picture: %w", err)
			}
			return a.done(page.UploadPicture(ctx, data))
		},
	}
	f := cmd.Flags()
	f.StringVar(&username, "username", "", "Username")
	f.StringVar(&displayName, "display-name", "", "Display name")
	f.StringVar(&description, "description", "", "Profile description")
	f.StringSliceVar(&teach, "teach", nil, "Category you teach, repeatable")
	f.StringSliceVar(&learn, "learn", nil, "Category you want to learn, repeatable")
	f.StringVar(&picture, "picture", "", "Path of a profile picture")
	return cmd
}

func newProfileDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete the account without --yes")
			}
			page := pages.NewProfilePage(a.api, a.nav, a.notifier)
			if err := page.DeleteAccount(cmd.Context()); err != nil {
				return a.done(err)
			}
			return a.jar.Clear(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}
