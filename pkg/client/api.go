package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// ChatStatus is the delivery state of the last message in a chat.
type ChatStatus string

const (
	ChatStatusSent   ChatStatus = "sent"
	ChatStatusRead   ChatStatus = "read"
	ChatStatusUnread ChatStatus = "unread"
)

// Chat is one entry of the chat list.
type Chat struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	DisplayName         string     `json:"display_name,omitempty"`
	Photo               string     `json:"photo,omitempty"`
	LastMessage         string     `json:"last_message"`
	Status              ChatStatus `json:"status,omitempty"`
	LastActionTimestamp string     `json:"last_action_timestamp,omitempty"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Username        string   `json:"username"`
	TeachCategories []string `json:"teach_categories"`
	LearnCategories []string `json:"learn_categories"`
	ShowKnownPeople bool     `json:"show_known_people"`
	Page            int      `json:"page"`
}

// SearchResult is one user returned by a search.
type SearchResult struct {
	Username        string   `json:"username"`
	DisplayName     string   `json:"display_name"`
	Description     string   `json:"description"`
	TeachCategories []string `json:"teach_categories"`
	LearnCategories []string `json:"learn_categories"`
}

// RecommendedUser is a user suggested on the home feed.
type RecommendedUser struct {
	Username        string   `json:"username"`
	DisplayName     string   `json:"display_name"`
	Photo           string   `json:"photo"`
	TeachCategories []string `json:"teach_categories"`
	LearnCategories []string `json:"learn_categories"`
}

// Event is an upcoming community event.
type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Datetime    string `json:"datetime"`
	Description string `json:"description"`
}

// HomeData is the home feed.
type HomeData struct {
	Username        string            `json:"username"`
	TeachCategories []string          `json:"teach_categories"`
	LearnCategories []string          `json:"learn_categories"`
	Recommended     []RecommendedUser `json:"recommended"`
	Chats           []Chat            `json:"chats"`
	Events          []Event           `json:"events"`
	IsMaintained    bool              `json:"is_maintained"`
}

// ProfileSettings are the editable settings of the signed-in user.
type ProfileSettings struct {
	Username                string   `json:"username"`
	DisplayName             string   `json:"display_name"`
	Email                   string   `json:"email"`
	Description             string   `json:"description"`
	AreNotificationsEnabled bool     `json:"are_notifications_enabled"`
	IsPublic                bool     `json:"is_public"`
	TeachCategories         []string `json:"teach_categories"`
	LearnCategories         []string `json:"learn_categories"`

	// IsRegistered is false until the profile has been filled in.
	IsRegistered bool `json:"is_registered"`
}

// ProfileFill is the body of POST /v1/profile/fill, completing a new account.
type ProfileFill struct {
	Username        string   `json:"username"`
	DisplayName     string   `json:"display_name"`
	TeachCategories []string `json:"teach_categories"`
	LearnCategories []string `json:"learn_categories"`
	Description     string   `json:"description"`
}

// Credentials are posted to sign in or sign up.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type redirectBody struct {
	Redirect string `json:"redirect"`
}

// ListChats returns one page of the chat list. An empty page marks the end.
func (c *Client) ListChats(ctx context.Context, page int) ([]Chat, error) {
	var out struct {
		Chats []Chat `json:"chats"`
	}
	path := "/v1/chats?" + url.Values{"page": {strconv.Itoa(page)}}.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// SearchUsers returns one page of search results. An empty page marks the end.
func (c *Client) SearchUsers(ctx context.Context, sr SearchRequest) ([]SearchResult, error) {
	// the backend rejects null category lists
	if sr.TeachCategories == nil {
		sr.TeachCategories = []string{}
	}
	if sr.LearnCategories == nil {
		sr.LearnCategories = []string{}
	}
	var out struct {
		Users []SearchResult `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/search", sr, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Home loads the home feed. Users who have not completed their profile get
// a *RedirectError.
func (c *Client) Home(ctx context.Context) (*HomeData, error) {
	var out HomeData
	if err := c.doJSON(ctx, http.MethodPost, "/v1/home", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Categories returns the category catalogue.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	data, err := c.getReference(ctx, "/v1/categories/list", "")
	if err != nil {
		return nil, err
	}
	var out struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &APIError{ErrorClass: ErrorClassServer, Message: "decode categories", Err: err}
	}
	return out.Categories, nil
}

// Profile returns the settings of the signed-in user.
func (c *Client) Profile(ctx context.Context) (*ProfileSettings, error) {
	var out ProfileSettings
	if err := c.doJSON(ctx, http.MethodGet, "/v1/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile saves settings.
func (c *Client) UpdateProfile(ctx context.Context, settings ProfileSettings) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/profile", settings, nil)
}

// FillProfile completes the profile of a freshly signed up user.
func (c *Client) FillProfile(ctx context.Context, fill ProfileFill) error {
	if fill.TeachCategories == nil {
		fill.TeachCategories = []string{}
	}
	if fill.LearnCategories == nil {
		fill.LearnCategories = []string{}
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/profile/fill", fill, nil)
}

// DeleteAccount removes the account and returns where to go next.
func (c *Client) DeleteAccount(ctx context.Context) (string, error) {
	var out redirectBody
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/profile", nil, &out); err != nil {
		return "", err
	}
	return out.Redirect, nil
}

// ProfilePicture returns the raw picture of a user.
func (c *Client) ProfilePicture(ctx context.Context, username string) ([]byte, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	return c.getReference(ctx, "/v1/profile/picture/"+url.PathEscape(username), "")
}

// UploadProfilePicture replaces the picture of the signed-in user.
func (c *Client) UploadProfilePicture(ctx context.Context, filename string, picture io.Reader) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("picture", filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, picture); err != nil {
		return fmt.Errorf("copy picture: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/profile/picture", nil)
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(&body)
	req.ContentLength = int64(body.Len())
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// CheckUsername reports whether username is still free. 409 means taken.
func (c *Client) CheckUsername(ctx context.Context, username string) (bool, error) {
	err := c.doJSON(ctx, http.MethodPost, "/v1/profile/check-username", map[string]string{"username": username}, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return false, nil
	}
	return false, err
}

// SignIn starts a session and returns where to go next.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (string, error) {
	return c.postForRedirect(ctx, "/v1/sign-in", creds)
}

// SignUp creates an account and returns where to go next.
func (c *Client) SignUp(ctx context.Context, creds Credentials) (string, error) {
	return c.postForRedirect(ctx, "/v1/sign-up", creds)
}

// SignOut ends the session and returns where to go next.
func (c *Client) SignOut(ctx context.Context) (string, error) {
	return c.postForRedirect(ctx, "/v1/profile/sign-out", nil)
}

func (c *Client) postForRedirect(ctx context.Context, path string, payload any) (string, error) {
	var out redirectBody
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &out); err != nil {
		return "", err
	}
	return out.Redirect, nil
}

// SessionValid calls an authenticated endpoint, bypassing the cache, and
// reports whether the session cookie is still accepted.
func (c *Client) SessionValid(ctx context.Context) (bool, error) {
	err := c.doJSON(ctx, http.MethodGet, "/v1/categories/list", nil, nil)
	switch {
	case err == nil:
		return true, nil
	case IsUnauthorized(err):
		return false, nil
	default:
		return false, err
	}
}
