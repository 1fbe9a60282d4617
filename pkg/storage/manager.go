package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	errs "instanon/pkg/errors"
	"instanon/pkg/logger"
)

// FileSet is the set of file names found under a directory tree
type FileSet map[string]struct{}

// Contains reports whether name is in the set
func (s FileSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// ScanFiles walks root and collects the base names of all regular files that
// do not start with a dot. A missing root yields an empty set.
func ScanFiles(root string) (FileSet, error) {
	set := make(FileSet)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		set[d.Name()] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to scan %s", root)
	}
	return set, nil
}

// Store checks for and writes downloaded files
type Store struct {
	logger logger.Logger
}

// NewStore creates a store
func NewStore(log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{logger: log}
}

// Exists reports whether filename is already present anywhere under scope.
// The tree is rescanned on every call.
func (s *Store) Exists(scope, filename string) (bool, error) {
	files, err := ScanFiles(scope)
	if err != nil {
		return false, err
	}
	return files.Contains(filename), nil
}

// readTracker remembers read failures so they are not mistaken for disk errors
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

// Save writes r to dir/filename through a temporary file that is renamed
// into place once complete
func (s *Store) Save(r io.Reader, dir, filename string) (int64, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return 0, errs.New(errs.ErrorTypeFilesystem, 0, "invalid file name %q", filename)
	}
	if err := EnsureDir(dir); err != nil {
		return 0, err
	}

	target := filepath.Join(dir, filename)
	tempFile := target + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to create temporary file")
	}

	src := &readTracker{r: r}
	written, err := io.Copy(out, src)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		if src.err != nil {
			return written, errs.Wrap(errs.ErrorTypeNetwork, src.err, "failed to read %s", filename)
		}
		return written, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to write %s", filename)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return written, errs.Wrap(errs.ErrorTypeFilesystem, closeErr, "failed to close file")
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return written, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to rename temporary file")
	}

	s.logger.DebugWithFields("file saved", map[string]interface{}{
		"path":  target,
		"bytes": written,
	})
	return written, nil
}
