package navigation

import (
	"reflect"
	"testing"
)

func TestHistory(t *testing.T) {
	h := NewHistory("/search")
	if h.Current() != "/search" {
		t.Errorf("Current() = %q", h.Current())
	}

	var seen []Entry
	h.OnNavigate = func(e Entry) { seen = append(seen, e) }

	h.Replace("/search?username=ann")
	h.Push("/profile/ann")
	h.Replace("/profile/ann?tab=teach")

	if h.Current() != "/profile/ann?tab=teach" {
		t.Errorf("Current() = %q", h.Current())
	}
	want := []Entry{
		{KindReplace, "/search?username=ann"},
		{KindPush, "/profile/ann"},
		{KindReplace, "/profile/ann?tab=teach"},
	}
	if got := h.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("OnNavigate saw %v", seen)
	}
	if got := h.Pushes(); !reflect.DeepEqual(got, []string{"/profile/ann"}) {
		t.Errorf("Pushes() = %v", got)
	}
}

func TestHistory_ImplementsNavigator(t *testing.T) {
	var _ Navigator = NewHistory("/")
}
