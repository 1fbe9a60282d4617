package mirror

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Markers are the page texts that identify each profile state
type Markers struct {
	NotFound  []string
	Private   []string
	NoStories []string
}

// MediaSelector locates media URLs: every element matching Element whose
// Attr value contains a media host URL yields one link
type MediaSelector struct {
	Element string
	Attr    string
}

// HighlightSelector locates highlight groups. Link and Name are evaluated
// inside each Group element so name and id always belong to the same group.
type HighlightSelector struct {
	Group string
	// Link selects the anchor inside Group; empty means Group is the anchor
	Link string
	Name string
	// NameAttr reads the name from an attribute instead of the element text
	NameAttr string
	// NameSibling also looks for Name on the element following Group
	NameSibling bool
}

// Variant describes one mirror site
type Variant struct {
	Name    string
	BaseURL string
	// ProfilePath and StoriesPath are relative to BaseURL and may contain
	// {username}. An empty StoriesPath means stories are on the profile page.
	ProfilePath string
	StoriesPath string
	Markers     Markers
	Media       MediaSelector
	Highlights  HighlightSelector
}

const (
	VariantInstaStories = "insta-stories"
	VariantStoriesIG    = "storiesig"
)

var builtinVariants = map[string]Variant{
	VariantInstaStories: {
		Name:        VariantInstaStories,
		BaseURL:     "https://insta-stories.com/en",
		ProfilePath: "/stories/{username}",
		Markers: Markers{
			NotFound:  []string{"This username doesn't exist. Please try with another one."},
			Private:   []string{"This user has a private account. Please try with another one."},
			NoStories: []string{"No stories available. Please try again later."},
		},
		Media: MediaSelector{
			Element: "div.download-story-container a.download-story",
			Attr:    "onclick",
		},
		Highlights: HighlightSelector{
			Group:       `div[class^="highlight "]`,
			Link:        "a",
			Name:        ".highlight-description",
			NameSibling: true,
		},
	},
	VariantStoriesIG: {
		Name:        VariantStoriesIG,
		BaseURL:     "https://storiesig.info/en",
		ProfilePath: "/{username}",
		Markers: Markers{
			NotFound:  []string{"username isn't available"},
			Private:   []string{"Account is Private"},
			NoStories: []string{"No stories to show"},
		},
		Media: MediaSelector{
			Element: `a[href^="https://scontent"]`,
			Attr:    "href",
		},
		Highlights: HighlightSelector{
			Group:    `a[href*="/highlights/"]`,
			Name:     "img",
			NameAttr: "alt",
		},
	},
}

// LookupVariant returns the built-in variant with the given name
func LookupVariant(name string) (Variant, error) {
	v, ok := builtinVariants[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Variant{}, fmt.Errorf("unknown mirror variant %q (available: %s)", name, strings.Join(VariantNames(), ", "))
	}
	return v, nil
}

// VariantNames lists the built-in variants in sorted order
func VariantNames() []string {
	names := make([]string, 0, len(builtinVariants))
	for name := range builtinVariants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithBaseURL returns a copy of the variant pointing at another host
func (v Variant) WithBaseURL(base string) Variant {
	if base != "" {
		v.BaseURL = base
	}
	return v
}

// ProfileURL returns the landing page URL for username
func (v Variant) ProfileURL(username string) string {
	return v.expand(v.ProfilePath, username)
}

// StoriesURL returns the stories page URL, or "" when stories are listed on
// the landing page
func (v Variant) StoriesURL(username string) string {
	if v.StoriesPath == "" {
		return ""
	}
	return v.expand(v.StoriesPath, username)
}

// ResolveURL resolves a possibly site-relative href against the base URL
func (v Variant) ResolveURL(href string) (string, error) {
	base, err := url.Parse(v.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", v.BaseURL, err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (v Variant) expand(pattern, username string) string {
	p := strings.ReplaceAll(pattern, "{username}", url.PathEscape(username))
	return strings.TrimRight(v.BaseURL, "/") + p
}
