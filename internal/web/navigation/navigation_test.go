package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func consoleEntries() []Entry {
	return []Entry{
		{Path: "/", Label: "Profile"},
		{Path: "/sessions", Label: "Sessions"},
	}
}

func TestNewBar(t *testing.T) {
	bar, err := NewBar(consoleEntries())
	require.NoError(t, err)
	require.NotNil(t, bar)

	assert.Len(t, bar.Entries(), 2)
	assert.Equal(t, "/", bar.Entries()[0].Path)
	assert.Equal(t, "Sessions", bar.Entries()[1].Label)
}

func TestNewBar_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{
			name:    "empty path",
			entries: []Entry{{Path: "", Label: "Profile"}},
		},
		{
			name:    "relative path",
			entries: []Entry{{Path: "sessions", Label: "Sessions"}},
		},
		{
			name:    "empty label",
			entries: []Entry{{Path: "/sessions", Label: ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar, err := NewBar(tt.entries)
			assert.Nil(t, bar)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestNewBar_DuplicatePathsAreNotFatal(t *testing.T) {
	bar, err := NewBar([]Entry{
		{Path: "/sessions", Label: "Sessions"},
		{Path: "/sessions", Label: "Also Sessions"},
	})
	require.NoError(t, err)

	// Declared order breaks the tie: the first duplicate is active.
	state := bar.Resolve("/sessions")
	assert.Equal(t, 0, state.ActiveIndex)
	assert.Equal(t, "Sessions", state.Active().Label)
}

func TestBar_Resolve(t *testing.T) {
	bar, err := NewBar(consoleEntries())
	require.NoError(t, err)

	tests := []struct {
		name        string
		location    string
		activeIndex int
		activeLabel string
	}{
		{"root shows profile", "/", 0, "Profile"},
		{"sessions page", "/sessions", 1, "Sessions"},
		{"sessions subpage keeps sessions active", "/sessions/42", 1, "Sessions"},
		{"trailing slash", "/sessions/", 1, "Sessions"},
		{"unknown location has no active entry", "/unknown", -1, ""},
		{"similar segment is not a prefix", "/session-foo", -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := bar.Resolve(tt.location)
			assert.Equal(t, tt.activeIndex, state.ActiveIndex)

			if tt.activeIndex < 0 {
				assert.Nil(t, state.Active())
				return
			}

			require.NotNil(t, state.Active())
			assert.Equal(t, tt.activeLabel, state.Active().Label)
		})
	}
}

func TestBar_Resolve_LongestPrefixWins(t *testing.T) {
	bar, err := NewBar([]Entry{
		{Path: "/", Label: "Home"},
		{Path: "/sessions", Label: "Sessions"},
		{Path: "/sessions/active", Label: "Active Sessions"},
	})
	require.NoError(t, err)

	state := bar.Resolve("/sessions/active")
	require.NotNil(t, state.Active())
	assert.Equal(t, "Active Sessions", state.Active().Label)

	state = bar.Resolve("/sessions/expired")
	require.NotNil(t, state.Active())
	assert.Equal(t, "Sessions", state.Active().Label)
}

func TestBar_Resolve_AtMostOneActive(t *testing.T) {
	bar, err := NewBar([]Entry{
		{Path: "/", Label: "Home"},
		{Path: "/sessions", Label: "Sessions"},
		{Path: "/sessions", Label: "Duplicate"},
		{Path: "/security", Label: "Security"},
	})
	require.NoError(t, err)

	for _, location := range []string{"/", "/sessions", "/sessions/1", "/security", "/nope", ""} {
		state := bar.Resolve(location)

		active := 0
		for _, e := range state.Entries {
			if e.Active {
				active++
			}
		}

		assert.LessOrEqual(t, active, 1, "location %q", location)
	}
}

func TestBar_Resolve_Idempotent(t *testing.T) {
	bar, err := NewBar(consoleEntries())
	require.NoError(t, err)

	first := bar.Resolve("/sessions")
	second := bar.Resolve("/sessions")

	assert.Equal(t, first, second)
}

func TestState_RovingTabIndex(t *testing.T) {
	bar, err := NewBar(consoleEntries())
	require.NoError(t, err)

	// Active entry is the single tab stop.
	state := bar.Resolve("/sessions")
	assert.Equal(t, -1, state.Entries[0].TabIndex)
	assert.Equal(t, 0, state.Entries[1].TabIndex)

	// With no active entry, focus falls back to the first entry.
	state = bar.Resolve("/unknown")
	assert.Equal(t, 0, state.Entries[0].TabIndex)
	assert.Equal(t, -1, state.Entries[1].TabIndex)
}

func TestState_FocusTraversal(t *testing.T) {
	bar, err := NewBar([]Entry{
		{Path: "/", Label: "Profile"},
		{Path: "/sessions", Label: "Sessions"},
		{Path: "/security", Label: "Security"},
	})
	require.NoError(t, err)

	state := bar.Resolve("/")

	// No wrap: clamp at both ends.
	assert.Equal(t, 1, state.NextFocus(0))
	assert.Equal(t, 2, state.NextFocus(1))
	assert.Equal(t, 2, state.NextFocus(2))
	assert.Equal(t, 1, state.PrevFocus(2))
	assert.Equal(t, 0, state.PrevFocus(1))
	assert.Equal(t, 0, state.PrevFocus(0))
}

func TestState_FocusTraversal_Wrap(t *testing.T) {
	bar, err := NewBar(consoleEntries(), WithWrapFocus())
	require.NoError(t, err)

	state := bar.Resolve("/")
	assert.True(t, state.WrapFocus)

	assert.Equal(t, 0, state.NextFocus(1))
	assert.Equal(t, 1, state.PrevFocus(0))
}

func TestState_FocusTraversal_Empty(t *testing.T) {
	bar, err := NewBar(nil)
	require.NoError(t, err)

	state := bar.Resolve("/")
	assert.Equal(t, -1, state.ActiveIndex)
	assert.Nil(t, state.Active())
	assert.Equal(t, -1, state.NextFocus(0))
	assert.Equal(t, -1, state.PrevFocus(0))
}

func TestContext_AddBreadcrumb(t *testing.T) {
	bar, err := NewBar(consoleEntries())
	require.NoError(t, err)

	ctx := NewContext("Sessions", bar.Resolve("/sessions")).
		AddBreadcrumb("Home", "/", false).
		AddBreadcrumb("Sessions", "/sessions", true)

	assert.Equal(t, "Sessions", ctx.PageTitle)
	require.Len(t, ctx.Breadcrumbs, 2)
	assert.Equal(t, "Home", ctx.Breadcrumbs[0].Title)
	assert.False(t, ctx.Breadcrumbs[0].Active)
	assert.True(t, ctx.Breadcrumbs[1].Active)

	assert.True(t, ctx.IsActive("/sessions"))
	assert.False(t, ctx.IsActive("/"))
}
