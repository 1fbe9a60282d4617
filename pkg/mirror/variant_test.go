package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupVariant(t *testing.T) {
	v, err := LookupVariant("insta-stories")
	require.NoError(t, err)
	assert.Equal(t, "https://insta-stories.com/en", v.BaseURL)

	v, err = LookupVariant(" StoriesIG ")
	require.NoError(t, err)
	assert.Equal(t, VariantStoriesIG, v.Name)

	_, err = LookupVariant("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insta-stories, storiesig")
}

func TestVariantURLs(t *testing.T) {
	v, err := LookupVariant(VariantInstaStories)
	require.NoError(t, err)

	assert.Equal(t, "https://insta-stories.com/en/stories/alice", v.ProfileURL("alice"))
	assert.Equal(t, "", v.StoriesURL("alice"))

	custom := v.WithBaseURL("https://mirror.test/en/")
	assert.Equal(t, "https://mirror.test/en/stories/a%20b", custom.ProfileURL("a b"))
	assert.Equal(t, "https://insta-stories.com/en", v.BaseURL, "original variant is unchanged")
	assert.Equal(t, v.BaseURL, v.WithBaseURL("").BaseURL)

	custom.StoriesPath = "/stories/{username}/active"
	assert.Equal(t, "https://mirror.test/en/stories/bob/active", custom.StoriesURL("bob"))
}

func TestVariantResolveURL(t *testing.T) {
	v, err := LookupVariant(VariantInstaStories)
	require.NoError(t, err)

	tests := []struct {
		href     string
		expected string
	}{
		{"/en/highlights/123", "https://insta-stories.com/en/highlights/123"},
		{"https://other.test/highlights/9", "https://other.test/highlights/9"},
		{"  /en/highlights/5  ", "https://insta-stories.com/en/highlights/5"},
	}
	for _, tt := range tests {
		got, err := v.ResolveURL(tt.href)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}
}

func TestMarkerClassifier(t *testing.T) {
	v, err := LookupVariant(VariantStoriesIG)
	require.NoError(t, err)
	c := NewMarkerClassifier(v)

	assert.Equal(t, StateNotFound, c.Classify("<p>This username isn't available</p>"))
	assert.Equal(t, StatePrivate, c.Classify("<p>Account is Private</p>"))
	assert.Equal(t, StateAccessible, c.Classify("<p>welcome</p>"))
	assert.False(t, c.HasStories("<p>No stories to show</p>"))
	assert.True(t, c.HasStories("<p>stories</p>"))

	// not-found wins over private
	assert.Equal(t, StateNotFound, c.Classify("username isn't available / Account is Private"))

	// empty markers never match
	empty := MarkerClassifier{Markers: Markers{NotFound: []string{""}}}
	assert.Equal(t, StateAccessible, empty.Classify("anything"))
}

func TestMarkerClassifierDecodesEntities(t *testing.T) {
	tests := []struct {
		variant  string
		body     string
		expected PageState
	}{
		{VariantInstaStories, "<div>This username doesn&#39;t exist. Please try with another one.</div>", StateNotFound},
		{VariantInstaStories, "<div>This username doesn&#x27;t exist. Please try with another one.</div>", StateNotFound},
		{VariantInstaStories, "<div>This username doesn&apos;t exist. Please try with another one.</div>", StateNotFound},
		{VariantStoriesIG, "<p>This username isn&#x27;t available</p>", StateNotFound},
		{VariantStoriesIG, "<p>Account&#32;is&#32;Private</p>", StatePrivate},
		{VariantStoriesIG, "<p>Tom &amp; Jerry</p>", StateAccessible},
	}

	for _, tt := range tests {
		v, err := LookupVariant(tt.variant)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, NewMarkerClassifier(v).Classify(tt.body), tt.body)
	}

	v, err := LookupVariant(VariantStoriesIG)
	require.NoError(t, err)
	assert.False(t, NewMarkerClassifier(v).HasStories("<p>No&#32;stories to show</p>"))
}
