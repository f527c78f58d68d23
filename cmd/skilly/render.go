package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("44")
	secondaryColor = lipgloss.Color("240")
	accentColor    = lipgloss.Color("205")
	successColor   = lipgloss.Color("42")
	errorColor     = lipgloss.Color("196")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	dimStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	unreadStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)
)

// terminalNotifier prints page notifications to stderr.
type terminalNotifier struct {
	mu     sync.Mutex
	w      io.Writer
	errors int
}

func newTerminalNotifier(w io.Writer) *terminalNotifier {
	return &terminalNotifier{w: w}
}

func (n *terminalNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors++
	fmt.Fprintln(n.w, errorStyle.Render("✗ "+message))
}

func (n *terminalNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, successStyle.Render("✓ "+message))
}

func (n *terminalNotifier) failed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.errors > 0
}

func renderChats(w io.Writer, chats []client.Chat, more bool) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Chats (%d)", len(chats))))
	for _, c := range chats {
		name := c.DisplayName
		if name == "" {
			name = c.Username
		}
		line := nameStyle.Render(name) + " " + dimStyle.Render("@"+c.Username)
		if c.Status == client.ChatStatusUnread {
			line += " " + unreadStyle.Render("●")
		}
		fmt.Fprintln(w, itemStyle.Render(line))
		fmt.Fprintln(w, itemStyle.Render("  "+c.LastMessage))
	}
	renderMore(w, more)
}

func renderSearchResults(w io.Writer, results []client.SearchResult, more bool) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("People (%d)", len(results))))
	for _, r := range results {
		fmt.Fprintln(w, itemStyle.Render(nameStyle.Render(r.DisplayName)+" "+dimStyle.Render("@"+r.Username)))
		if r.Description != "" {
			fmt.Fprintln(w, itemStyle.Render("  "+r.Description))
		}
		renderCategories(w, r.TeachCategories, r.LearnCategories)
	}
	renderMore(w, more)
}

func renderHome(w io.Writer, data *client.HomeData) {
	fmt.Fprintln(w, headerStyle.Render("Welcome back, "+data.Username))
	if data.IsMaintained {
		fmt.Fprintln(w, errorStyle.Render("Skilly is under maintenance, some features may be unavailable."))
	}
	renderCategories(w, data.TeachCategories, data.LearnCategories)

	fmt.Fprintln(w, headerStyle.Render("Recommended"))
	for _, u := range data.Recommended {
		fmt.Fprintln(w, itemStyle.Render(nameStyle.Render(u.DisplayName)+" "+dimStyle.Render("@"+u.Username)))
	}
	fmt.Fprintln(w, headerStyle.Render("Recent chats"))
	for _, c := range data.Chats {
		fmt.Fprintln(w, itemStyle.Render(nameStyle.Render(c.Username)+" "+dimStyle.Render(c.LastMessage)))
	}
	fmt.Fprintln(w, headerStyle.Render("Events"))
	for _, e := range data.Events {
		fmt.Fprintln(w, itemStyle.Render(nameStyle.Render(e.Name)+" "+dimStyle.Render(e.Datetime)))
	}
}

func renderProfile(w io.Writer, s client.ProfileSettings) {
	fmt.Fprintln(w, headerStyle.Render(s.DisplayName+" @"+s.Username))
	rows := [][2]string{
		{"Email", s.Email},
		{"Description", s.Description},
		{"Public", fmt.Sprint(s.IsPublic)},
		{"Notifications", fmt.Sprint(s.AreNotificationsEnabled)},
	}
	for _, r := range rows {
		fmt.Fprintln(w, itemStyle.Render(dimStyle.Render(fmt.Sprintf("%-14s", r[0]))+r[1]))
	}
	renderCategories(w, s.TeachCategories, s.LearnCategories)
}

func renderCategories(w io.Writer, teach, learn []string) {
	if len(teach) > 0 {
		fmt.Fprintln(w, itemStyle.Render(dimStyle.Render("teaches ")+strings.Join(teach, ", ")))
	}
	if len(learn) > 0 {
		fmt.Fprintln(w, itemStyle.Render(dimStyle.Render("learns  ")+strings.Join(learn, ", ")))
	}
}

func renderMore(w io.Writer, more bool) {
	if more {
		fmt.Fprintln(w, dimStyle.Render("more available, use --pages to load further"))
	}
}
