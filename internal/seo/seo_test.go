package seo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobots(t *testing.T) {
	got := Robots(DefaultRobots("https://board.example.com/"))

	want := `User-agent: *
Allow: /
Disallow: /api/
Disallow: /notion/
Disallow: /private/

User-agent: Googlebot
Allow: /
Disallow: /api/
Disallow: /notion/
Disallow: /private/
Crawl-delay: 1

Sitemap: https://board.example.com/sitemap.xml
Host: https://board.example.com
`
	assert.Equal(t, want, got)
}

func TestSitemap(t *testing.T) {
	lastMod := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	out, err := Sitemap([]URL{
		{Loc: "https://board.example.com", LastMod: lastMod, ChangeFreq: "weekly", Priority: 1},
		{Loc: "https://board.example.com/th"},
	})
	require.NoError(t, err)

	body := string(out)
	assert.True(t, strings.HasPrefix(body, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, body, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, body, "<loc>https://board.example.com</loc>")
	assert.Contains(t, body, "<lastmod>2025-01-02T03:04:05Z</lastmod>")
	assert.Contains(t, body, "<changefreq>weekly</changefreq>")
	assert.Contains(t, body, "<priority>1.0</priority>")
	assert.Equal(t, 1, strings.Count(body, "<lastmod>"), "zero values are omitted")
}

func TestDefaultURLs(t *testing.T) {
	urls := DefaultURLs("http://localhost:3000/", time.Time{})
	require.NotEmpty(t, urls)
	assert.Equal(t, "http://localhost:3000", urls[0].Loc)
	for _, u := range urls {
		assert.True(t, strings.HasPrefix(u.Loc, "http://localhost:3000"))
	}
}
