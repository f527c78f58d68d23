// Package filter holds the search filters of a page and mirrors them into
// the page URL, so a reload or a shared link reproduces the same search.
//
// A filter State has a free-text term, named multi-value filters with set
// semantics and named boolean flags. A Schema maps them to query keys:
// multi-value filters are comma joined, flags are present as "true" or
// absent. Values containing a comma cannot be represented.
package filter

import "strings"

// State is a snapshot of the filters. The zero value is the default state.
type State struct {
	FreeText string

	// Multi holds the selected values per filter, in selection order.
	Multi map[string][]string

	// Flags holds the set flags. Unset and false are the same.
	Flags map[string]bool
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{FreeText: s.FreeText}
	if len(s.Multi) > 0 {
		out.Multi = make(map[string][]string, len(s.Multi))
		for name, values := range s.Multi {
			out.Multi[name] = append([]string(nil), values...)
		}
	}
	if len(s.Flags) > 0 {
		out.Flags = make(map[string]bool, len(s.Flags))
		for name, v := range s.Flags {
			out.Flags[name] = v
		}
	}
	return out
}

// Values returns the selection of a multi-value filter.
func (s State) Values(name string) []string {
	return append([]string(nil), s.Multi[name]...)
}

// Flag reports whether a flag is set.
func (s State) Flag(name string) bool {
	return s.Flags[name]
}

// IsDefault reports whether no filter is set.
func (s State) IsDefault() bool {
	if s.FreeText != "" {
		return false
	}
	for _, values := range s.Multi {
		if len(values) > 0 {
			return false
		}
	}
	for _, v := range s.Flags {
		if v {
			return false
		}
	}
	return true
}

// HasCriteria reports whether the state can drive a search: a non-blank
// free-text term or at least one multi-value selection.
func (s State) HasCriteria() bool {
	if strings.TrimSpace(s.FreeText) != "" {
		return true
	}
	for _, values := range s.Multi {
		if len(values) > 0 {
			return true
		}
	}
	return false
}

// Equal compares two states. Multi-value filters compare as sets and
// false flags equal absent ones.
func (s State) Equal(o State) bool {
	if s.FreeText != o.FreeText {
		return false
	}
	for name := range union(s.Multi, o.Multi) {
		if !sameSet(s.Multi[name], o.Multi[name]) {
			return false
		}
	}
	for name := range union(s.Flags, o.Flags) {
		if s.Flags[name] != o.Flags[name] {
			return false
		}
	}
	return true
}

// SetFreeText replaces the free-text term.
func (s *State) SetFreeText(text string) {
	s.FreeText = text
}

// Add selects value in a multi-value filter. Surrounding whitespace is
// trimmed and blank values are ignored. It reports whether the selection
// changed.
func (s *State) Add(name, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || contains(s.Multi[name], value) {
		return false
	}
	if s.Multi == nil {
		s.Multi = make(map[string][]string)
	}
	s.Multi[name] = append(s.Multi[name], value)
	return true
}

// Remove deselects value. It reports whether the selection changed.
func (s *State) Remove(name, value string) bool {
	value = strings.TrimSpace(value)
	values := s.Multi[name]
	for i, v := range values {
		if v == value {
			s.Multi[name] = append(values[:i:i], values[i+1:]...)
			if len(s.Multi[name]) == 0 {
				delete(s.Multi, name)
			}
			return true
		}
	}
	return false
}

// SetFlag sets or clears a flag.
func (s *State) SetFlag(name string, on bool) {
	if !on {
		delete(s.Flags, name)
		return
	}
	if s.Flags == nil {
		s.Flags = make(map[string]bool)
	}
	s.Flags[name] = true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func sameSet(a, b []string) bool {
	as := make(map[string]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[string]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}

func union[V any](a, b map[string]V) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
