package mirror

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	errs "instanon/pkg/errors"
)

// mediaPattern matches media host URLs inside attribute values such as
// href="..." or onclick="download('...')"
var mediaPattern = regexp.MustCompile(`https://scontent[^\s'"<>]+`)

func parseDocument(body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "parse html")
	}
	return doc, nil
}

// ExtractMedia returns the media links on a page in document order.
// Duplicates are kept.
func ExtractMedia(sel MediaSelector, body string) ([]MediaLink, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	var links []MediaLink
	doc.Find(sel.Element).Each(func(_ int, s *goquery.Selection) {
		value, ok := s.Attr(sel.Attr)
		if !ok {
			return
		}
		match := mediaPattern.FindString(value)
		if match == "" {
			return
		}
		links = append(links, MediaLink{URL: html.UnescapeString(match)})
	})
	return links, nil
}

// ExtractHighlightGroups returns the highlight groups listed on a profile
// page, or ErrNoHighlights when there are none. Links are resolved against
// the variant's base URL.
func ExtractHighlightGroups(v Variant, body string) ([]HighlightGroup, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	sel := v.Highlights
	var groups []HighlightGroup
	var firstErr error
	doc.Find(sel.Group).Each(func(_ int, s *goquery.Selection) {
		link := s
		if sel.Link != "" {
			link = s.Find(sel.Link).First()
		}
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		groupURL, err := v.ResolveURL(href)
		if err != nil {
			if firstErr == nil {
				firstErr = errs.Wrap(errs.ErrorTypeParsing, err, "highlight link")
			}
			return
		}
		id := groupID(groupURL)
		if id == "" {
			return
		}

		groups = append(groups, HighlightGroup{
			URL:  groupURL,
			ID:   id,
			Name: groupName(s, sel),
		})
	})

	if firstErr != nil {
		return nil, firstErr
	}
	if len(groups) == 0 {
		return nil, ErrNoHighlights
	}
	return groups, nil
}

func groupID(groupURL string) string {
	u, err := url.Parse(groupURL)
	if err != nil {
		return ""
	}
	id := path.Base(strings.TrimRight(u.Path, "/"))
	if id == "." || id == "/" {
		return ""
	}
	return id
}

func groupName(s *goquery.Selection, sel HighlightSelector) string {
	if sel.Name == "" {
		return ""
	}
	node := s.Find(sel.Name).First()
	if node.Length() == 0 && sel.NameSibling {
		node = s.Next().Filter(sel.Name)
	}
	if node.Length() == 0 {
		return ""
	}

	var name string
	if sel.NameAttr != "" {
		name = node.AttrOr(sel.NameAttr, "")
	} else {
		name = node.Text()
	}
	return strings.Join(strings.Fields(name), " ")
}
