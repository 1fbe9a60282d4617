package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	errs "instanon/pkg/errors"
)

const (
	// DefaultRoot is the output directory used when none is configured
	DefaultRoot = "users"
	// DefaultDateFormat names dated story directories, e.g. 05-March-2024
	DefaultDateFormat = "02-January-2006"

	dirPerm = 0755
)

// LayoutOptions control where a profile's files go
type LayoutOptions struct {
	Root string
	// Chaos puts every story directly in the stories directory instead of a
	// per-day subdirectory
	Chaos      bool
	DateFormat string
}

// Layout is the on-disk directory layout of one profile
type Layout struct {
	Root       string
	User       string
	Stories    string
	Highlights string
	chaos      bool
}

// Named is anything with a directory name, such as a highlight group
type Named interface {
	DirName() string
}

// EnsureOptions select the optional directories to create
type EnsureOptions struct {
	Stories    bool
	Highlights bool
}

// ValidateUsername rejects names that cannot be a single directory under
// the root, such as "..", "a/b" or names with a NUL byte
func ValidateUsername(username string) error {
	if username == "" || username == "." || username == ".." || strings.ContainsAny(username, "/\\\x00") {
		return errs.New(errs.ErrorTypeFilesystem, 0, "invalid username %q", username)
	}
	return nil
}

// NewLayout computes the layout for username. It touches no files.
func NewLayout(username string, opts LayoutOptions, now time.Time) Layout {
	root := opts.Root
	if root == "" {
		root = DefaultRoot
	}
	format := opts.DateFormat
	if format == "" {
		format = DefaultDateFormat
	}

	user := filepath.Join(root, username)
	stories := filepath.Join(user, "stories")
	if !opts.Chaos {
		stories = filepath.Join(stories, now.Format(format))
	}

	return Layout{
		Root:       root,
		User:       user,
		Stories:    stories,
		Highlights: filepath.Join(user, "highlights"),
		chaos:      opts.Chaos,
	}
}

// Ensure creates the root and user directories and, when requested, the
// stories and highlights directories. Existing directories are left alone.
func (l Layout) Ensure(opts EnsureOptions) error {
	dirs := []string{l.Root, l.User}
	if opts.Stories {
		dirs = append(dirs, l.Stories)
	}
	if opts.Highlights {
		dirs = append(dirs, l.Highlights)
	}

	for _, dir := range dirs {
		if err := EnsureDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDir creates dir and its parents
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to create directory %s", dir)
	}
	return nil
}

// HighlightDir returns the directory of one highlight group
func (l Layout) HighlightDir(group Named) string {
	return filepath.Join(l.Highlights, group.DirName())
}

// PruneEmptyStories removes the stories directory if it exists and is empty.
// In dated mode the parent stories directory goes too when nothing else is
// left in it. A missing directory is not an error.
func (l Layout) PruneEmptyStories() (bool, error) {
	removed, err := removeIfEmpty(l.Stories)
	if err != nil || !removed || l.chaos {
		return removed, err
	}
	if _, err := removeIfEmpty(filepath.Dir(l.Stories)); err != nil {
		return true, err
	}
	return true, nil
}

func removeIfEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to read directory %s", dir)
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to remove directory %s", dir)
	}
	return true, nil
}
