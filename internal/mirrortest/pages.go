package mirrortest

import (
	"fmt"
	"html"
	"strings"
)

// Highlight is one highlight group rendered on a profile page
type Highlight struct {
	Href string
	Name string
}

const (
	InstaStoriesNotFound  = "This username doesn't exist. Please try with another one."
	InstaStoriesPrivate   = "This user has a private account. Please try with another one."
	InstaStoriesNoStories = "No stories available. Please try again later."
)

// InstaStoriesPage renders an insta-stories style page with the given story
// media and highlight groups
func InstaStoriesPage(media []string, highlights []Highlight) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Stories</title></head><body>\n")
	b.WriteString(`<div class="highlights">` + "\n")
	for _, h := range highlights {
		fmt.Fprintf(&b, `<div class="highlight item"><a href="%s"><img src="/cover.jpg"></a><div class="highlight-description"> %s </div></div>`+"\n",
			html.EscapeString(h.Href), html.EscapeString(h.Name))
	}
	b.WriteString("</div>\n")
	for i, m := range media {
		fmt.Fprintf(&b, `<div class="download-story-container"><a class="download-story" onclick="downloadStory('%s', 'story_%d')">Download</a></div>`+"\n",
			html.EscapeString(m), i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// InstaStoriesMessage renders an insta-stories page carrying a status message
func InstaStoriesMessage(message string) string {
	return fmt.Sprintf(`<html><body><div class="alert">%s</div></body></html>`, html.EscapeString(message))
}

// StoriesIGPage renders a storiesig style page
func StoriesIGPage(media []string, highlights []Highlight) string {
	var b strings.Builder
	b.WriteString("<html><body><ul class=\"highlights\">\n")
	for _, h := range highlights {
		fmt.Fprintf(&b, `<li><a href="%s"><img src="/cover.jpg" alt="%s"></a></li>`+"\n",
			html.EscapeString(h.Href), html.EscapeString(h.Name))
	}
	b.WriteString("</ul><section class=\"stories\">\n")
	for _, m := range media {
		fmt.Fprintf(&b, `<a href="%s" download>Download</a>`+"\n", html.EscapeString(m))
	}
	b.WriteString("</section></body></html>")
	return b.String()
}
