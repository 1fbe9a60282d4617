package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"instanon/internal/downloader"
	"instanon/pkg/config"
	"instanon/pkg/logger"
	"instanon/pkg/mirror"
	"instanon/pkg/storage"
	"instanon/pkg/ui"
)

// Options selects what a run downloads
type Options struct {
	Stories    bool
	Highlights bool
	// KeepGoing records a failed profile and moves on to the next one
	KeepGoing bool
}

// ProfileReport is the outcome for one username
type ProfileReport struct {
	Username   string
	State      mirror.PageState
	Stories    downloader.Summary
	Highlights downloader.Summary
	Groups     int
	Err        error
}

// Report lists the profile outcomes of a run in input order
type Report struct {
	Profiles []ProfileReport
}

// Downloaded is the number of files written across all profiles
func (r Report) Downloaded() int {
	n := 0
	for _, p := range r.Profiles {
		n += p.Stories.Downloaded + p.Highlights.Downloaded
	}
	return n
}

// Failed is the number of profiles that ended with an error
func (r Report) Failed() int {
	n := 0
	for _, p := range r.Profiles {
		if p.Err != nil {
			n++
		}
	}
	return n
}

// Deps are the collaborators of a Scraper
type Deps struct {
	Source     Source
	Downloader Downloader
	Reporter   Reporter
	Layout     storage.LayoutOptions
	Logger     logger.Logger
	// Now dates the stories directory; defaults to time.Now
	Now func() time.Time
}

// Scraper orchestrates the per-profile download process
type Scraper struct {
	source     Source
	downloader Downloader
	reporter   Reporter
	layout     storage.LayoutOptions
	logger     logger.Logger
	now        func() time.Time
}

// New creates a Scraper from cfg, printing through term
func New(cfg *config.Config, term *ui.Terminal, log logger.Logger) (*Scraper, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	m, err := mirror.FromConfig(cfg, term, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create mirror: %w", err)
	}

	progress := func(label string, total int) downloader.Progress {
		return term.NewProgressBar(label, total)
	}
	d := downloader.New(m.Client(), storage.NewStore(log), progress, log)

	return NewWithDeps(Deps{
		Source:     m,
		Downloader: d,
		Reporter:   term,
		Layout: storage.LayoutOptions{
			Root:       cfg.Output.BaseDirectory,
			Chaos:      cfg.Output.Chaos,
			DateFormat: cfg.Output.DateFormat,
		},
		Logger: log,
	}), nil
}

// NewWithDeps creates a Scraper from explicit collaborators
func NewWithDeps(deps Deps) *Scraper {
	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Scraper{
		source:     deps.Source,
		downloader: deps.Downloader,
		reporter:   deps.Reporter,
		layout:     deps.Layout,
		logger:     log,
		now:        now,
	}
}

// Run processes usernames one after another. It returns the first error
// unless opts.KeepGoing is set; cancellation of ctx is always returned.
func (s *Scraper) Run(ctx context.Context, usernames []string, opts Options) (Report, error) {
	var report Report

	for _, username := range usernames {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		pr, err := s.processProfile(ctx, username, opts)
		pr.Err = err
		report.Profiles = append(report.Profiles, pr)
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return report, err
		}
		s.logger.WithError(err).ErrorWithFields("profile failed", map[string]interface{}{
			"username": username,
		})
		if !opts.KeepGoing {
			return report, fmt.Errorf("%s: %w", username, err)
		}
		s.reporter.Error("[!] %s: %v", username, err)
	}

	s.logger.InfoWithFields("run finished", map[string]interface{}{
		"profiles":   len(report.Profiles),
		"downloaded": report.Downloaded(),
		"failed":     report.Failed(),
	})
	return report, nil
}

func (s *Scraper) processProfile(ctx context.Context, username string, opts Options) (ProfileReport, error) {
	pr := ProfileReport{Username: username}
	if err := storage.ValidateUsername(username); err != nil {
		return pr, err
	}

	profile, err := s.source.Resolve(ctx, username)
	if err != nil {
		return pr, err
	}
	pr.State = profile.State
	if !profile.Accessible() {
		return pr, nil
	}

	layout := storage.NewLayout(username, s.layout, s.now())

	if opts.Stories {
		pr.Stories, err = s.downloadStories(ctx, profile, layout)
		if err != nil {
			return pr, err
		}
	}

	if opts.Highlights {
		pr.Highlights, pr.Groups, err = s.downloadHighlights(ctx, profile, layout)
		if err != nil {
			return pr, err
		}
	}

	return pr, nil
}

func (s *Scraper) downloadStories(ctx context.Context, profile *mirror.Profile, layout storage.Layout) (downloader.Summary, error) {
	links, err := s.source.ListStories(ctx, profile)
	if errors.Is(err, mirror.ErrNoStories) || (err == nil && len(links) == 0) {
		s.reporter.Blank()
		s.reporter.Warning("[!] Whoops! %s did not post any recent stories", profile.Username)
		return downloader.Summary{}, nil
	}
	if err != nil {
		return downloader.Summary{}, err
	}

	s.reporter.Blank()
	s.reporter.Info("[*] Getting %s stories", profile.Username)

	if err := layout.Ensure(storage.EnsureOptions{Stories: true}); err != nil {
		return downloader.Summary{}, err
	}

	summary, err := s.downloader.DownloadAll(ctx, downloader.Batch{
		Links:     links,
		TargetDir: layout.Stories,
		ScopeDir:  layout.Stories,
		Label:     "[*] Downloading stories",
	})
	if err != nil {
		return summary, err
	}

	if removed, err := layout.PruneEmptyStories(); err != nil {
		return summary, err
	} else if removed {
		s.logger.DebugWithFields("removed empty stories directory", map[string]interface{}{
			"dir": layout.Stories,
		})
	}
	return summary, nil
}

func (s *Scraper) downloadHighlights(ctx context.Context, profile *mirror.Profile, layout storage.Layout) (downloader.Summary, int, error) {
	var total downloader.Summary

	groups, err := s.source.ListHighlightGroups(ctx, profile)
	if errors.Is(err, mirror.ErrNoHighlights) {
		s.reporter.Blank()
		s.reporter.Warning("[!] Whoops! %s does not appear to have any highlights", profile.Username)
		return total, 0, nil
	}
	if err != nil {
		return total, 0, err
	}

	s.reporter.Blank()
	s.reporter.Info("[*] Getting %s highlights", profile.Username)

	if err := layout.Ensure(storage.EnsureOptions{Highlights: true}); err != nil {
		return total, 0, err
	}

	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			return total, i, err
		}

		links, err := s.source.ListGroupMedia(ctx, group)
		if err != nil {
			return total, i, err
		}

		dir := layout.HighlightDir(group)
		if err := storage.EnsureDir(dir); err != nil {
			return total, i, err
		}

		summary, err := s.downloader.DownloadAll(ctx, downloader.Batch{
			Links:     links,
			TargetDir: dir,
			ScopeDir:  layout.Highlights,
			Label:     fmt.Sprintf("[*] Downloading highlight %d of %d", i+1, len(groups)),
		})
		total = addSummary(total, summary)
		if err != nil {
			return total, i, err
		}
	}

	return total, len(groups), nil
}

func addSummary(a, b downloader.Summary) downloader.Summary {
	a.Total += b.Total
	a.Downloaded += b.Downloaded
	a.Skipped += b.Skipped
	a.Invalid += b.Invalid
	a.Bytes += b.Bytes
	a.Duration += b.Duration
	return a
}
