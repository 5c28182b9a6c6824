// Package navigation provides the account console navigation bar: an ordered
// set of destinations, active-entry resolution against the current request
// path and focus traversal across entries.
package navigation

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Entry represents a single navigable destination in the bar.
type Entry struct {
	// Path is the absolute target path of the destination (e.g. "/sessions").
	Path string
	// Label is the visible text of the destination.
	Label string
}

// Bar is an ordered sequence of entries. The declared order defines both the
// visual order and the focus traversal order.
type Bar struct {
	entries   []Entry
	wrapFocus bool
}

// Option configures a Bar.
type Option func(*Bar)

// WithWrapFocus makes focus traversal wrap around at both ends.
func WithWrapFocus() Option {
	return func(b *Bar) {
		b.wrapFocus = true
	}
}

// NewBar validates the given entries and builds a navigation bar.
// An entry with an empty path, a relative path or an empty label is rejected
// with ErrInvalidConfiguration. Duplicate paths are allowed but logged as a
// warning; resolution stays deterministic via declared order.
func NewBar(entries []Entry, opts ...Option) (*Bar, error) {
	seen := make(map[string]int, len(entries))

	for i, e := range entries {
		switch {
		case e.Path == "":
			return nil, errors.Wrapf(ErrInvalidConfiguration, "entry %d: empty path", i)
		case !strings.HasPrefix(e.Path, "/"):
			return nil, errors.Wrapf(ErrInvalidConfiguration, "entry %d: path %q is not absolute", i, e.Path)
		case e.Label == "":
			return nil, errors.Wrapf(ErrInvalidConfiguration, "entry %d: empty label", i)
		}

		if first, ok := seen[e.Path]; ok {
			log.Warn().
				Str("path", e.Path).
				Int("entry", i).
				Int("declared_first", first).
				Msg("duplicate navigation path, first declared entry wins")
		} else {
			seen[e.Path] = i
		}
	}

	b := &Bar{entries: append([]Entry(nil), entries...)}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Entries returns the declared entries in order.
func (b *Bar) Entries() []Entry {
	return b.entries
}

// ResolvedEntry is one entry of a resolved navigation state.
type ResolvedEntry struct {
	Entry

	// Active reports whether this entry corresponds to the current location.
	Active bool
	// TabIndex implements roving tabindex: 0 on the focus target, -1 elsewhere.
	TabIndex int
}

// State is the result of resolving a Bar against a location. It is a pure
// value: resolving the same bar and location again yields an equal State.
type State struct {
	Entries []ResolvedEntry

	// ActiveIndex is the index of the active entry, or -1 when no entry
	// matches the location.
	ActiveIndex int

	// WrapFocus mirrors the bar's focus wrapping option for traversal.
	WrapFocus bool
}

// Resolve computes which entry is active for the given location.
//
// An entry matches when its path segments are a leading segment sequence of
// the location ("/sessions" matches "/sessions" and "/sessions/123", never
// "/session-foo"). Among all matching entries the one with the most segments
// wins; ties go to the first declared entry. With no match, no entry is
// active.
func (b *Bar) Resolve(location string) State {
	var (
		activeIdx = -1
		activeLen = -1
		locSegs   = splitPath(location)
	)

	for i, e := range b.entries {
		n, ok := matchSegments(splitPath(e.Path), locSegs)
		if ok && n > activeLen {
			activeIdx = i
			activeLen = n
		}
	}

	s := State{
		Entries:     make([]ResolvedEntry, len(b.entries)),
		ActiveIndex: activeIdx,
		WrapFocus:   b.wrapFocus,
	}

	// Roving tabindex: a single tab stop on the active entry, falling back
	// to the first entry when nothing matches.
	focus := activeIdx
	if focus < 0 && len(b.entries) > 0 {
		focus = 0
	}

	for i, e := range b.entries {
		s.Entries[i] = ResolvedEntry{
			Entry:    e,
			Active:   i == activeIdx,
			TabIndex: -1,
		}

		if i == focus {
			s.Entries[i].TabIndex = 0
		}
	}

	return s
}

// Active returns the active entry, or nil when no entry matches.
func (s State) Active() *ResolvedEntry {
	if s.ActiveIndex < 0 {
		return nil
	}

	return &s.Entries[s.ActiveIndex]
}

// NextFocus returns the index receiving focus after an arrow-forward from i.
// Without wrapping, focus stays on the last entry.
func (s State) NextFocus(i int) int {
	if len(s.Entries) == 0 {
		return -1
	}

	if i >= len(s.Entries)-1 {
		if s.WrapFocus {
			return 0
		}

		return len(s.Entries) - 1
	}

	return i + 1
}

// PrevFocus returns the index receiving focus after an arrow-backward from i.
// Without wrapping, focus stays on the first entry.
func (s State) PrevFocus(i int) int {
	if len(s.Entries) == 0 {
		return -1
	}

	if i <= 0 {
		if s.WrapFocus {
			return len(s.Entries) - 1
		}

		return 0
	}

	return i - 1
}

// splitPath splits a path into its non-empty segments, so "/" becomes the
// empty sequence and trailing slashes are ignored.
func splitPath(p string) []string {
	var segs []string

	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}

	return segs
}

// matchSegments reports whether target is a leading segment sequence of
// location and, if so, how many segments were matched. The root target
// (no segments) only matches the root location, otherwise it would
// shadow every unknown path.
func matchSegments(target, location []string) (int, bool) {
	if len(target) == 0 {
		return 0, len(location) == 0
	}

	if len(target) > len(location) {
		return 0, false
	}

	for i := range target {
		if target[i] != location[i] {
			return 0, false
		}
	}

	return len(target), true
}
