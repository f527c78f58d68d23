// Package navigation abstracts moving the user between pages.
package navigation

import "sync"

// Navigator moves the user to a target path (with optional query).
type Navigator interface {
	// Push navigates and adds a history entry.
	Push(target string)

	// Replace rewrites the current location without a history entry.
	Replace(target string)
}

// Kind tells a push from a replace.
type Kind string

const (
	KindPush    Kind = "push"
	KindReplace Kind = "replace"
)

// Entry is one recorded navigation.
type Entry struct {
	Kind   Kind
	Target string
}

// History is an in-memory Navigator. It keeps every navigation in order
// and tracks the current location.
type History struct {
	mu      sync.Mutex
	entries []Entry
	current string

	// OnNavigate, when set, is called after each navigation outside the lock.
	OnNavigate func(Entry)
}

// NewHistory starts a history at initial.
func NewHistory(initial string) *History {
	return &History{current: initial}
}

// Push implements Navigator.
func (h *History) Push(target string) {
	h.record(Entry{Kind: KindPush, Target: target})
}

// Replace implements Navigator.
func (h *History) Replace(target string) {
	h.record(Entry{Kind: KindReplace, Target: target})
}

func (h *History) record(e Entry) {
	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.current = e.Target
	hook := h.OnNavigate
	h.mu.Unlock()

	if hook != nil {
		hook(e)
	}
}

// Current returns the current location.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Entries returns a copy of all navigations.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}

// Pushes returns the targets of push navigations, oldest first.
func (h *History) Pushes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.entries {
		if e.Kind == KindPush {
			out = append(out, e.Target)
		}
	}
	return out
}
