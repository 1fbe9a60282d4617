package mirror

import (
	"errors"
	"net/url"
	"path"
	"strings"
	"unicode"
)

// PageState is the classification of a profile landing page
type PageState int

const (
	StateAccessible PageState = iota
	StateNotFound
	StatePrivate
	// StateUnavailable means the mirror reported "not found" but the origin
	// platform still serves the profile
	StateUnavailable
)

func (s PageState) String() string {
	switch s {
	case StateAccessible:
		return "accessible"
	case StateNotFound:
		return "not_found"
	case StatePrivate:
		return "private"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

var (
	// ErrNoStories is returned when the profile has no active stories
	ErrNoStories = errors.New("no stories available")
	// ErrNoHighlights is returned when the profile page lists no highlight groups
	ErrNoHighlights = errors.New("no highlights available")
)

// Profile is a resolved username together with its landing page
type Profile struct {
	Username string
	State    PageState
	// Page is the landing page HTML, reused by the extractors
	Page string
}

// Accessible reports whether stories and highlights can be listed
func (p *Profile) Accessible() bool {
	return p != nil && p.State == StateAccessible
}

// MediaLink points to a downloadable media asset
type MediaLink struct {
	URL string
}

// Filename returns the decoded final path segment of the link, or "" when
// the URL has none
func (l MediaLink) Filename() string {
	u, err := url.Parse(l.URL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// HighlightGroup is one named highlight collection of a profile
type HighlightGroup struct {
	URL  string
	ID   string
	Name string
}

var unsafeNameChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
)

// DirName returns the filesystem-safe directory name "{Name}_{ID}", or just
// the ID when the group has no name
func (g HighlightGroup) DirName() string {
	id := sanitizeName(g.ID)
	name := sanitizeName(g.Name)
	if name == "" {
		return id
	}
	return name + "_" + id
}

func sanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, s)
	s = unsafeNameChars.Replace(strings.TrimSpace(s))
	if s == "." || s == ".." {
		return strings.Repeat("_", len(s))
	}
	return s
}
