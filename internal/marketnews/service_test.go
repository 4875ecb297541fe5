package marketnews

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGoogleNews(t *testing.T) {
	page := `<html><body>
		<article><h3>Gold rallies as dollar weakens</h3><a href="./articles/abc123">read</a></article>
		<article><h4>Fed minutes signal patience</h4><a href="https://example.com/fed">read</a></article>
		<article><div>no headline element here</div></article>
		<article><h3>Oil slides on demand fears</h3><a href="./articles/xyz789">read</a></article>
	</body></html>`

	headlines, err := ParseGoogleNews(strings.NewReader(page), 10)
	require.NoError(t, err)
	require.Len(t, headlines, 3)

	assert.Equal(t, "Gold rallies as dollar weakens", headlines[0].Title)
	assert.Equal(t, "https://news.google.com/articles/abc123", headlines[0].URL)
	assert.Equal(t, "GoogleNews", headlines[0].Source)
	assert.Equal(t, "https://example.com/fed", headlines[1].URL)
}

func TestParseGoogleNewsLimit(t *testing.T) {
	page := `<html><body>
		<article><h3>One</h3><a href="./a">x</a></article>
		<article><h3>Two</h3><a href="./b">x</a></article>
		<article><h3>Three</h3><a href="./c">x</a></article>
	</body></html>`

	headlines, err := ParseGoogleNews(strings.NewReader(page), 2)
	require.NoError(t, err)
	assert.Len(t, headlines, 2)
}

func TestDisabledServiceReturnsNothing(t *testing.T) {
	svc := NewService(&ServiceConfig{Enabled: false, CacheDuration: time.Minute})
	assert.Nil(t, svc.Titles(context.Background(), "XAUUSD"))
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newHeadlineCache(time.Minute)
	cache.set("XAUUSD", []Headline{{Title: "Gold steady"}})

	got, ok := cache.get("XAUUSD")
	require.True(t, ok)
	assert.Equal(t, "Gold steady", got[0].Title)

	_, ok = cache.get("BTCUSD")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	cache := newHeadlineCache(time.Nanosecond)
	cache.set("XAUUSD", []Headline{{Title: "Gold steady"}})
	time.Sleep(time.Millisecond)

	_, ok := cache.get("XAUUSD")
	assert.False(t, ok)

	cache.cleanup()
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	assert.Empty(t, cache.data)
}
