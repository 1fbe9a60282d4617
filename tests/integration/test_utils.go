package integration

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"instanon/internal/downloader"
	"instanon/internal/mirrortest"
	"instanon/pkg/config"
	"instanon/pkg/logger"
	"instanon/pkg/mirror"
	"instanon/pkg/scraper"
	"instanon/pkg/storage"
	"instanon/pkg/ui"
)

// MirrorBase is the base URL the test mirror answers on
const MirrorBase = "https://insta-stories.test/en"

// TestDay dates the stories directory of every test run
var TestDay = time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)

// TestHelper wires the full download stack against an in-process mirror
type TestHelper struct {
	t      *testing.T
	Server *mirrortest.Server
	Root   string
	Output bytes.Buffer
	Logger *logger.TestLogger
}

// NewTestHelper starts a mirror server and an empty output root
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	srv := mirrortest.NewServer()
	t.Cleanup(srv.Close)

	return &TestHelper{
		t:      t,
		Server: srv,
		Root:   filepath.Join(t.TempDir(), "users"),
		Logger: logger.NewTestLogger(),
	}
}

// CreateTestConfig returns the defaults with the output root redirected
func (h *TestHelper) CreateTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = h.Root
	cfg.Mirror.BaseURL = MirrorBase
	return cfg
}

// NewScraper builds the scraper the command line builds, except that all
// hosts resolve to the test server
func (h *TestHelper) NewScraper(cfg *config.Config) *scraper.Scraper {
	h.t.Helper()

	variant, err := mirror.LookupVariant(cfg.Mirror.Variant)
	if err != nil {
		h.t.Fatalf("Failed to look up variant: %v", err)
	}
	variant = variant.WithBaseURL(cfg.Mirror.BaseURL)

	term := ui.NewTerminal(&h.Output, false)
	client := mirror.NewClient(mirror.ClientOptions{
		HTTPClient: h.Server.Client(),
		Logger:     h.Logger,
	})
	m := mirror.New(client, mirror.Options{
		Variant:  variant,
		Reporter: term,
		Logger:   h.Logger,
	})
	progress := func(label string, total int) downloader.Progress {
		return term.NewProgressBar(label, total)
	}

	return scraper.NewWithDeps(scraper.Deps{
		Source:     m,
		Downloader: downloader.New(client, storage.NewStore(h.Logger), progress, h.Logger),
		Reporter:   term,
		Layout: storage.LayoutOptions{
			Root:       cfg.Output.BaseDirectory,
			Chaos:      cfg.Output.Chaos,
			DateFormat: cfg.Output.DateFormat,
		},
		Logger: h.Logger,
		Now:    func() time.Time { return TestDay },
	})
}

// Profile serves an insta-stories profile page with the given stories and
// highlight groups; media URLs are served with their file name as content
func (h *TestHelper) Profile(username string, stories []string, highlights []mirrortest.Highlight) {
	h.Media(stories...)
	h.Server.HandlePage(MirrorBase+"/stories/"+username, 200, mirrortest.InstaStoriesPage(stories, highlights))
}

// HighlightGroup serves the page of one highlight group
func (h *TestHelper) HighlightGroup(id string, media ...string) {
	h.Media(media...)
	h.Server.HandlePage(MirrorBase+"/highlights/"+id, 200, mirrortest.InstaStoriesPage(media, nil))
}

// Media serves each URL with its file name as the body
func (h *TestHelper) Media(urls ...string) {
	for _, u := range urls {
		h.Server.HandleMedia(u, []byte(mirror.MediaLink{URL: u}.Filename()))
	}
}

// UserPath joins elements below the output root
func (h *TestHelper) UserPath(elem ...string) string {
	return filepath.Join(append([]string{h.Root}, elem...)...)
}

// AssertFileContains checks a downloaded file's content
func (h *TestHelper) AssertFileContains(path string, expected string) {
	h.t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		h.t.Errorf("Failed to read file %s: %v", path, err)
		return
	}
	if string(data) != expected {
		h.t.Errorf("File %s contains %q, expected %q", path, string(data), expected)
	}
}

// AssertDirContainsFiles checks the number of regular files in dir
func (h *TestHelper) AssertDirContainsFiles(dir string, expectedCount int) {
	h.t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		h.t.Errorf("Failed to read directory %s: %v", dir, err)
		return
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	if count != expectedCount {
		h.t.Errorf("Expected %d files in %s, found %d", expectedCount, dir, count)
	}
}
