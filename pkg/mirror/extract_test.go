package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instanon/internal/mirrortest"
)

func instaStories(t *testing.T) Variant {
	t.Helper()
	v, err := LookupVariant(VariantInstaStories)
	require.NoError(t, err)
	return v
}

func storiesIG(t *testing.T) Variant {
	t.Helper()
	v, err := LookupVariant(VariantStoriesIG)
	require.NoError(t, err)
	return v
}

func urls(links []MediaLink) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.URL
	}
	return out
}

func TestExtractMediaOnclick(t *testing.T) {
	media := []string{
		"https://scontent.cdn.test/v/one.jpg?a=1&b=2",
		"https://scontent.cdn.test/v/two.mp4",
		"https://scontent.cdn.test/v/one.jpg?a=1&b=2",
	}
	page := mirrortest.InstaStoriesPage(media, nil)

	links, err := ExtractMedia(instaStories(t).Media, page)
	require.NoError(t, err)
	assert.Equal(t, media, urls(links), "document order with duplicates kept")
}

func TestExtractMediaDecodesEntities(t *testing.T) {
	page := `<div class="download-story-container"><a class="download-story" onclick="go('https://scontent.cdn.test/a.jpg?x=1&amp;amp;y=2')">x</a></div>`

	links, err := ExtractMedia(instaStories(t).Media, page)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://scontent.cdn.test/a.jpg?x=1&y=2", links[0].URL)
}

func TestExtractMediaSkipsNonMedia(t *testing.T) {
	page := `
<div class="download-story-container"><a class="download-story" onclick="go('https://ads.test/x.jpg')">x</a></div>
<div class="download-story-container"><a class="download-story">no handler</a></div>
<div class="download-story-container"><a class="download-story" onclick="go('https://scontent.cdn.test/ok.jpg')">x</a></div>`

	links, err := ExtractMedia(instaStories(t).Media, page)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://scontent.cdn.test/ok.jpg"}, urls(links))
}

func TestExtractMediaHref(t *testing.T) {
	page := mirrortest.StoriesIGPage([]string{
		"https://scontent.cdn.test/a.jpg",
		"https://scontent.cdn.test/b.jpg",
	}, nil)
	page += `<a href="https://example.test/c.jpg">not media</a>`

	links, err := ExtractMedia(storiesIG(t).Media, page)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://scontent.cdn.test/a.jpg", "https://scontent.cdn.test/b.jpg"}, urls(links))
}

func TestExtractMediaEmpty(t *testing.T) {
	links, err := ExtractMedia(instaStories(t).Media, "<html></html>")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestExtractHighlightGroups(t *testing.T) {
	page := mirrortest.InstaStoriesPage(nil, []mirrortest.Highlight{
		{Href: "/en/highlights/123", Name: "Trip"},
		{Href: "/en/highlights/456/", Name: "Food"},
	})

	groups, err := ExtractHighlightGroups(instaStories(t), page)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, HighlightGroup{URL: "https://insta-stories.com/en/highlights/123", ID: "123", Name: "Trip"}, groups[0])
	assert.Equal(t, "456", groups[1].ID)
	assert.Equal(t, "Trip_123", groups[0].DirName())
	assert.Equal(t, "Food_456", groups[1].DirName())
}

func TestExtractHighlightGroupsNameFromSameElement(t *testing.T) {
	// The first group has no description; its neighbour's name must not
	// shift onto it.
	page := `
<div class="highlight a"><a href="/en/highlights/1"></a></div>
<div class="highlight b"><a href="/en/highlights/2"></a><div class="highlight-description">Food</div></div>`

	groups, err := ExtractHighlightGroups(instaStories(t), page)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "1", groups[0].DirName())
	assert.Equal(t, "Food_2", groups[1].DirName())
}

func TestExtractHighlightGroupsSiblingName(t *testing.T) {
	page := `
<div class="highlight x"><a href="/en/highlights/77"></a></div>
<div class="highlight-description">  Summer
  2024 </div>`

	groups, err := ExtractHighlightGroups(instaStories(t), page)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Summer 2024", groups[0].Name)
}

func TestExtractHighlightGroupsStoriesIG(t *testing.T) {
	v := storiesIG(t).WithBaseURL("https://mirror.test/en")
	page := mirrortest.StoriesIGPage(nil, []mirrortest.Highlight{
		{Href: "/en/highlights/17900", Name: "Trip"},
	})

	groups, err := ExtractHighlightGroups(v, page)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "https://mirror.test/en/highlights/17900", groups[0].URL)
	assert.Equal(t, "Trip_17900", groups[0].DirName())
}

func TestExtractHighlightGroupsNone(t *testing.T) {
	_, err := ExtractHighlightGroups(instaStories(t), mirrortest.InstaStoriesPage(nil, nil))
	assert.ErrorIs(t, err, ErrNoHighlights)

	// groups without a usable link are ignored
	page := `<div class="highlight a"><span>no link</span></div><div class="highlight b"><a href="/"></a></div>`
	_, err = ExtractHighlightGroups(instaStories(t), page)
	assert.ErrorIs(t, err, ErrNoHighlights)
}
