package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instanon/internal/downloader"
	"instanon/internal/mirrortest"
	"instanon/pkg/config"
	"instanon/pkg/logger"
	"instanon/pkg/mirror"
	"instanon/pkg/storage"
	"instanon/pkg/ui"
)

const testBase = "https://mirror.test/en"

var testDay = time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)

type recordingReporter struct {
	lines []string
}

func (r *recordingReporter) add(level, format string, args ...interface{}) {
	r.lines = append(r.lines, level+" "+fmt.Sprintf(format, args...))
}

func (r *recordingReporter) Error(format string, args ...interface{}) {
	r.add("red", format, args...)
}
func (r *recordingReporter) Warning(format string, args ...interface{}) {
	r.add("yellow", format, args...)
}
func (r *recordingReporter) Success(format string, args ...interface{}) {
	r.add("green", format, args...)
}
func (r *recordingReporter) Info(format string, args ...interface{}) {
	r.add("plain", format, args...)
}
func (r *recordingReporter) Blank() {}

type fixture struct {
	srv      *mirrortest.Server
	root     string
	reporter *recordingReporter
	scraper  *Scraper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := mirrortest.NewServer()
	t.Cleanup(srv.Close)

	variant, err := mirror.LookupVariant(mirror.VariantInstaStories)
	require.NoError(t, err)

	nop := logger.NewNopLogger()
	reporter := &recordingReporter{}
	client := mirror.NewClient(mirror.ClientOptions{HTTPClient: srv.Client(), Logger: nop})
	m := mirror.New(client, mirror.Options{
		Variant:  variant.WithBaseURL(testBase),
		Reporter: reporter,
		Logger:   nop,
	})

	root := filepath.Join(t.TempDir(), "users")
	s := NewWithDeps(Deps{
		Source:     m,
		Downloader: downloader.New(client, storage.NewStore(nop), nil, nop),
		Reporter:   reporter,
		Layout:     storage.LayoutOptions{Root: root},
		Logger:     nop,
		Now:        func() time.Time { return testDay },
	})

	return &fixture{srv: srv, root: root, reporter: reporter, scraper: s}
}

func (f *fixture) profile(username string, media []string, highlights []mirrortest.Highlight) {
	f.srv.HandlePage(testBase+"/stories/"+username, http.StatusOK, mirrortest.InstaStoriesPage(media, highlights))
}

func (f *fixture) media(urls ...string) []string {
	for _, u := range urls {
		f.srv.HandleMedia(u, []byte("data:"+filepath.Base(u)))
	}
	return urls
}

func TestRunDownloadsStories(t *testing.T) {
	f := newFixture(t)
	f.profile("alice", f.media("https://scontent.cdn.test/v/a1.jpg", "https://scontent.cdn.test/v/a2.mp4"), nil)

	report, err := f.scraper.Run(context.Background(), []string{"alice"}, Options{Stories: true})
	require.NoError(t, err)

	storiesDir := filepath.Join(f.root, "alice", "stories", "05-March-2024")
	data, err := os.ReadFile(filepath.Join(storiesDir, "a1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "data:a1.jpg", string(data))
	assert.FileExists(t, filepath.Join(storiesDir, "a2.mp4"))

	require.Len(t, report.Profiles, 1)
	assert.Equal(t, mirror.StateAccessible, report.Profiles[0].State)
	assert.Equal(t, 2, report.Profiles[0].Stories.Downloaded)
	assert.Equal(t, 2, report.Downloaded())
	assert.Equal(t, 0, report.Failed())

	assert.Equal(t, []string{
		"green [*] Found user 'alice'",
		"plain [*] Getting alice stories",
	}, f.reporter.lines)

	assert.NoDirExists(t, filepath.Join(f.root, "alice", "highlights"))
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.profile("alice", f.media("https://scontent.cdn.test/v/a1.jpg", "https://scontent.cdn.test/v/a2.mp4"), nil)
	opts := Options{Stories: true}

	_, err := f.scraper.Run(context.Background(), []string{"alice"}, opts)
	require.NoError(t, err)
	first := f.srv.RequestCount()

	report, err := f.scraper.Run(context.Background(), []string{"alice"}, opts)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Downloaded())
	assert.Equal(t, 2, report.Profiles[0].Stories.Skipped)
	assert.Equal(t, first+1, f.srv.RequestCount(), "only the profile page is fetched again")
}

func TestRunSkipsMissingAndPrivateProfiles(t *testing.T) {
	f := newFixture(t)
	f.srv.HandlePage(testBase+"/stories/ghost", http.StatusOK, mirrortest.InstaStoriesMessage(mirrortest.InstaStoriesNotFound))
	f.srv.HandlePage(testBase+"/stories/locked", http.StatusOK, mirrortest.InstaStoriesMessage(mirrortest.InstaStoriesPrivate))

	report, err := f.scraper.Run(context.Background(), []string{"ghost", "locked"}, Options{Stories: true, Highlights: true})
	require.NoError(t, err)

	require.Len(t, report.Profiles, 2)
	assert.Equal(t, mirror.StateNotFound, report.Profiles[0].State)
	assert.Equal(t, mirror.StatePrivate, report.Profiles[1].State)
	assert.Equal(t, []string{
		"red [!] User 'ghost' does not exist",
		"yellow [!] Account 'locked' is private",
	}, f.reporter.lines)

	assert.NoDirExists(t, f.root, "no directory is created for skipped profiles")
}

func TestRunWithoutStories(t *testing.T) {
	f := newFixture(t)
	f.srv.HandlePage(testBase+"/stories/quiet", http.StatusOK, mirrortest.InstaStoriesMessage(mirrortest.InstaStoriesNoStories))

	report, err := f.scraper.Run(context.Background(), []string{"quiet"}, Options{Stories: true})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Downloaded())
	assert.Contains(t, f.reporter.lines, "yellow [!] Whoops! quiet did not post any recent stories")
	assert.NoDirExists(t, filepath.Join(f.root, "quiet", "stories"))
}

func TestRunPrunesEmptyStoriesDirectory(t *testing.T) {
	f := newFixture(t)
	f.profile("alice", []string{"https://scontent.cdn.test/"}, nil)

	report, err := f.scraper.Run(context.Background(), []string{"alice"}, Options{Stories: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Profiles[0].Stories.Invalid)
	assert.NoDirExists(t, filepath.Join(f.root, "alice", "stories"))
	assert.DirExists(t, filepath.Join(f.root, "alice"))
}

func TestRunDownloadsHighlights(t *testing.T) {
	f := newFixture(t)
	f.profile("alice", nil, []mirrortest.Highlight{
		{Href: "/en/highlights/123", Name: "Trip"},
		{Href: "/en/highlights/456", Name: "Food"},
	})
	f.srv.HandlePage(testBase+"/highlights/123", http.StatusOK,
		mirrortest.InstaStoriesPage(f.media("https://scontent.cdn.test/h/t1.jpg", "https://scontent.cdn.test/h/t2.jpg"), nil))
	f.srv.HandlePage(testBase+"/highlights/456", http.StatusOK,
		mirrortest.InstaStoriesPage(f.media("https://scontent.cdn.test/h/f1.mp4"), nil))

	report, err := f.scraper.Run(context.Background(), []string{"alice"}, Options{Highlights: true})
	require.NoError(t, err)

	highlights := filepath.Join(f.root, "alice", "highlights")
	assert.FileExists(t, filepath.Join(highlights, "Trip_123", "t1.jpg"))
	assert.FileExists(t, filepath.Join(highlights, "Trip_123", "t2.jpg"))
	assert.FileExists(t, filepath.Join(highlights, "Food_456", "f1.mp4"))

	assert.Equal(t, 2, report.Profiles[0].Groups)
	assert.Equal(t, 3, report.Profiles[0].Highlights.Downloaded)
	assert.Contains(t, f.reporter.lines, "plain [*] Getting alice highlights")
	assert.NoDirExists(t, filepath.Join(f.root, "alice", "stories"))
}

func TestRunSkipsHighlightAlreadyInAnotherGroup(t *testing.T) {
	f := newFixture(t)
	f.profile("alice", nil, []mirrortest.Highlight{{Href: "/en/highlights/456", Name: "Food"}})
	f.srv.HandlePage(testBase+"/highlights/456", http.StatusOK,
		mirrortest.InstaStoriesPage(f.media("https://scontent.cdn.test/h/shared.jpg"), nil))

	older := filepath.Join(f.root, "alice", "highlights", "Old_1")
	require.NoError(t, os.MkdirAll(older, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(older, "shared.jpg"), []byte("old"), 0644))

	report, err := f.scraper.Run(context.Background(), []string{"alice"}, Options{Highlights: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Profiles[0].Highlights.Skipped)
	assert.DirExists(t, filepath.Join(f.root, "alice", "highlights", "Food_456"))
	assert.NoFileExists(t, filepath.Join(f.root, "alice", "highlights", "Food_456", "shared.jpg"))
}

func TestRunWithoutHighlights(t *testing.T) {
	f := newFixture(t)
	f.profile("alice", nil, nil)

	_, err := f.scraper.Run(context.Background(), []string{"alice"}, Options{Highlights: true})
	require.NoError(t, err)

	assert.Contains(t, f.reporter.lines, "yellow [!] Whoops! alice does not appear to have any highlights")
	assert.NoDirExists(t, filepath.Join(f.root, "alice", "highlights"))
}

func TestRunStopsOnFirstError(t *testing.T) {
	f := newFixture(t)
	f.profile("alice", []string{"https://scontent.cdn.test/v/broken.jpg"}, nil)
	f.srv.SetErrorResponse("https://scontent.cdn.test/v/broken.jpg", http.StatusInternalServerError)
	f.profile("bob", f.media("https://scontent.cdn.test/v/b1.jpg"), nil)

	report, err := f.scraper.Run(context.Background(), []string{"alice", "bob"}, Options{Stories: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alice")

	require.Len(t, report.Profiles, 1)
	assert.Error(t, report.Profiles[0].Err)
	assert.NoDirExists(t, filepath.Join(f.root, "bob"))
}

func TestRunRejectsUsernameOutsideRoot(t *testing.T) {
	f := newFixture(t)
	f.profile("bob", f.media("https://scontent.cdn.test/v/b1.jpg"), nil)

	_, err := f.scraper.Run(context.Background(), []string{"../escape", "bob"}, Options{Stories: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid username")
	assert.Equal(t, 0, f.srv.RequestCount())
	assert.NoDirExists(t, filepath.Join(filepath.Dir(f.root), "escape"))

	report, err := f.scraper.Run(context.Background(), []string{"../escape", "bob"}, Options{Stories: true, KeepGoing: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed())
	assert.FileExists(t, filepath.Join(f.root, "bob", "stories", "05-March-2024", "b1.jpg"))
	assert.NoDirExists(t, filepath.Join(filepath.Dir(f.root), "escape"))
}

func TestRunKeepGoing(t *testing.T) {
	f := newFixture(t)
	f.profile("alice", []string{"https://scontent.cdn.test/v/broken.jpg"}, nil)
	f.srv.SetErrorResponse("https://scontent.cdn.test/v/broken.jpg", http.StatusInternalServerError)
	f.profile("bob", f.media("https://scontent.cdn.test/v/b1.jpg"), nil)

	report, err := f.scraper.Run(context.Background(), []string{"alice", "bob"}, Options{Stories: true, KeepGoing: true})
	require.NoError(t, err)

	require.Len(t, report.Profiles, 2)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, report.Downloaded())
	assert.FileExists(t, filepath.Join(f.root, "bob", "stories", "05-March-2024", "b1.jpg"))

	var reported bool
	for _, line := range f.reporter.lines {
		if len(line) > 4 && line[:4] == "red " {
			reported = true
		}
	}
	assert.True(t, reported, "failed profile is reported in red")
}

func TestRunCancelledBeforeStart(t *testing.T) {
	f := newFixture(t)
	f.profile("alice", f.media("https://scontent.cdn.test/v/a1.jpg"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.scraper.Run(ctx, []string{"alice"}, Options{Stories: true})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Profiles)
	assert.Equal(t, 0, f.srv.RequestCount())
}

type cancellingDownloader struct {
	cancel context.CancelFunc
	calls  int
}

func (d *cancellingDownloader) DownloadAll(ctx context.Context, batch downloader.Batch) (downloader.Summary, error) {
	d.calls++
	d.cancel()
	return downloader.Summary{}, fmt.Errorf("download interrupted: %w", ctx.Err())
}

func TestRunCancellationStopsRemainingProfiles(t *testing.T) {
	f := newFixture(t)
	f.profile("alice", []string{"https://scontent.cdn.test/v/a1.jpg"}, nil)
	f.profile("bob", []string{"https://scontent.cdn.test/v/b1.jpg"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := &cancellingDownloader{cancel: cancel}
	f.scraper.downloader = d

	report, err := f.scraper.Run(ctx, []string{"alice", "bob"}, Options{Stories: true, KeepGoing: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, d.calls)
	require.Len(t, report.Profiles, 1)
	assert.Equal(t, "alice", report.Profiles[0].Username)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = t.TempDir()
	var out bytes.Buffer

	s, err := New(cfg, ui.NewTerminal(&out, false), logger.NewNopLogger())
	require.NoError(t, err)
	assert.NotNil(t, s)

	cfg.Mirror.Variant = "nonexistent"
	_, err = New(cfg, ui.NewTerminal(&out, false), logger.NewNopLogger())
	assert.Error(t, err)
}
