package scraper

import (
	"context"

	"instanon/internal/downloader"
	"instanon/pkg/mirror"
)

// Source resolves profiles and lists their media on a mirror site
type Source interface {
	Resolve(ctx context.Context, username string) (*mirror.Profile, error)
	ListStories(ctx context.Context, profile *mirror.Profile) ([]mirror.MediaLink, error)
	ListHighlightGroups(ctx context.Context, profile *mirror.Profile) ([]mirror.HighlightGroup, error)
	ListGroupMedia(ctx context.Context, group mirror.HighlightGroup) ([]mirror.MediaLink, error)
}

// Downloader saves one batch of media links
type Downloader interface {
	DownloadAll(ctx context.Context, batch downloader.Batch) (downloader.Summary, error)
}

// Reporter prints the colour-coded status lines
type Reporter interface {
	mirror.Reporter
	Blank()
}
