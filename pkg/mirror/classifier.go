package mirror

import (
	"strings"

	"golang.org/x/net/html"
)

// Classifier decides the state of a profile page from its HTML
type Classifier interface {
	Classify(body string) PageState
	HasStories(body string) bool
}

// MarkerClassifier matches fixed marker substrings
type MarkerClassifier struct {
	Markers Markers
}

// NewMarkerClassifier returns a classifier for the variant's markers
func NewMarkerClassifier(v Variant) MarkerClassifier {
	return MarkerClassifier{Markers: v.Markers}
}

// Classify checks the not-found markers before the private ones
func (c MarkerClassifier) Classify(body string) PageState {
	body = pageText(body)
	switch {
	case containsAny(body, c.Markers.NotFound):
		return StateNotFound
	case containsAny(body, c.Markers.Private):
		return StatePrivate
	default:
		return StateAccessible
	}
}

// HasStories reports false when a no-stories marker is present
func (c MarkerClassifier) HasStories(body string) bool {
	return !containsAny(pageText(body), c.Markers.NoStories)
}

// pageText decodes character references so markers match pages that
// escape apostrophes as &#39; or &#x27;
func pageText(body string) string {
	if !strings.Contains(body, "&") {
		return body
	}
	return html.UnescapeString(body)
}

func containsAny(body string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(body, m) {
			return true
		}
	}
	return false
}
