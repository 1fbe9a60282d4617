package mirror

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"instanon/pkg/config"
	errs "instanon/pkg/errors"
	"instanon/pkg/logger"
	"instanon/pkg/ratelimit"
	"instanon/pkg/retry"
)

// DefaultOriginURL is the origin platform queried by the optional origin check
const DefaultOriginURL = "https://www.instagram.com"

// Reporter receives the human-readable status lines
type Reporter interface {
	Error(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Success(format string, args ...interface{})
	Info(format string, args ...interface{})
}

// Options configures a Mirror
type Options struct {
	Variant Variant
	// Classifier defaults to a MarkerClassifier for Variant
	Classifier Classifier
	// OriginCheck confirms not-found pages against OriginURL
	OriginCheck bool
	OriginURL   string
	Reporter    Reporter
	Logger      logger.Logger
}

// Mirror resolves profiles and lists media on one mirror site
type Mirror struct {
	client      *Client
	variant     Variant
	classifier  Classifier
	originCheck bool
	originURL   string
	reporter    Reporter
	logger      logger.Logger
}

// New creates a Mirror using client for all requests
func New(client *Client, opts Options) *Mirror {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = NewMarkerClassifier(opts.Variant)
	}
	originURL := opts.OriginURL
	if originURL == "" {
		originURL = DefaultOriginURL
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	return &Mirror{
		client:      client,
		variant:     opts.Variant,
		classifier:  classifier,
		originCheck: opts.OriginCheck,
		originURL:   strings.TrimRight(originURL, "/"),
		reporter:    reporter,
		logger:      log.WithField("variant", opts.Variant.Name),
	}
}

// FromConfig builds the client and mirror described by cfg
func FromConfig(cfg *config.Config, reporter Reporter, log logger.Logger) (*Mirror, error) {
	variant, err := LookupVariant(cfg.Mirror.Variant)
	if err != nil {
		return nil, err
	}
	variant = variant.WithBaseURL(cfg.Mirror.BaseURL)

	client := NewClient(ClientOptions{
		Transport: Transport{
			InsecureSkipVerify: cfg.Mirror.InsecureSkipVerify,
			Timeout:            cfg.Download.Timeout,
		},
		UserAgent: cfg.Mirror.UserAgent,
		Headers:   map[string]string{"Referer": variant.BaseURL},
		Retry:     retry.FromSettings(cfg.Retry, log),
		Limiter:   ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute),
		Logger:    log,
	})

	return New(client, Options{
		Variant:     variant,
		OriginCheck: cfg.Mirror.OriginCheck,
		Reporter:    reporter,
		Logger:      log,
	}), nil
}

// Client returns the underlying HTTP client, used for media downloads
func (m *Mirror) Client() *Client {
	return m.client
}

// Variant returns the mirror definition in use
func (m *Mirror) Variant() Variant {
	return m.variant
}

// Resolve fetches the landing page of username and classifies it
func (m *Mirror) Resolve(ctx context.Context, username string) (*Profile, error) {
	profileURL := m.variant.ProfileURL(username)
	m.logger.DebugWithFields("resolving profile", map[string]interface{}{
		"username": username,
		"url":      profileURL,
	})

	page, err := m.client.GetPage(ctx, profileURL)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", username, err)
	}

	state := m.classifier.Classify(page.Body)
	if state == StateAccessible && page.Status >= 400 {
		if page.Status != http.StatusNotFound {
			return nil, fmt.Errorf("resolve %s: %w", username,
				errs.New(errs.ErrorTypeUnknown, page.Status, "unexpected status code: %d", page.Status))
		}
		state = StateNotFound
	}

	if state == StateNotFound && m.originCheck {
		state, err = m.confirmNotFound(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", username, err)
		}
	}

	switch state {
	case StateNotFound:
		m.reporter.Error("[!] User '%s' does not exist", username)
	case StateUnavailable:
		m.reporter.Error("[!] Server error. Please try again later")
	case StatePrivate:
		m.reporter.Warning("[!] Account '%s' is private", username)
	default:
		m.reporter.Success("[*] Found user '%s'", username)
	}

	m.logger.InfoWithFields("profile resolved", map[string]interface{}{
		"username": username,
		"state":    state.String(),
	})
	return &Profile{Username: username, State: state, Page: page.Body}, nil
}

// confirmNotFound asks the origin platform whether the profile exists. A 404
// confirms it; any other answer means the mirror is failing.
func (m *Mirror) confirmNotFound(ctx context.Context, username string) (PageState, error) {
	originURL := m.originURL + "/" + url.PathEscape(username)
	page, err := m.client.GetPage(ctx, originURL)
	if err != nil {
		if errs.IsCancelled(err) {
			return StateNotFound, err
		}
		m.logger.WarnWithFields("origin check failed", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
		return StateUnavailable, nil
	}
	if page.Status == http.StatusNotFound {
		return StateNotFound, nil
	}
	return StateUnavailable, nil
}

// ListStories returns the active story links of an accessible profile, or
// ErrNoStories when the page says there are none
func (m *Mirror) ListStories(ctx context.Context, profile *Profile) ([]MediaLink, error) {
	body := profile.Page
	if storiesURL := m.variant.StoriesURL(profile.Username); storiesURL != "" {
		var err error
		body, err = m.client.GetHTML(ctx, storiesURL)
		if err != nil {
			return nil, fmt.Errorf("stories of %s: %w", profile.Username, err)
		}
	}

	if !m.classifier.HasStories(body) {
		return nil, ErrNoStories
	}

	links, err := ExtractMedia(m.variant.Media, body)
	if err != nil {
		return nil, fmt.Errorf("stories of %s: %w", profile.Username, err)
	}
	m.logger.DebugWithFields("stories extracted", map[string]interface{}{
		"username": profile.Username,
		"count":    len(links),
	})
	return links, nil
}

// ListHighlightGroups returns the highlight groups on the profile page
func (m *Mirror) ListHighlightGroups(ctx context.Context, profile *Profile) ([]HighlightGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	groups, err := ExtractHighlightGroups(m.variant, profile.Page)
	if err != nil {
		return nil, err
	}
	m.logger.DebugWithFields("highlight groups extracted", map[string]interface{}{
		"username": profile.Username,
		"count":    len(groups),
	})
	return groups, nil
}

// ListGroupMedia fetches a highlight group page and returns its media links
func (m *Mirror) ListGroupMedia(ctx context.Context, group HighlightGroup) ([]MediaLink, error) {
	body, err := m.client.GetHTML(ctx, group.URL)
	if err != nil {
		return nil, fmt.Errorf("highlight %s: %w", group.ID, err)
	}
	links, err := ExtractMedia(m.variant.Media, body)
	if err != nil {
		return nil, fmt.Errorf("highlight %s: %w", group.ID, err)
	}
	return links, nil
}

type nopReporter struct{}

func (nopReporter) Error(string, ...interface{})   {}
func (nopReporter) Warning(string, ...interface{}) {}
func (nopReporter) Success(string, ...interface{}) {}
func (nopReporter) Info(string, ...interface{})    {}
