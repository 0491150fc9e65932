// Package seo renders robots.txt and sitemap.xml for the public site.
package seo

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RobotsRule is one User-agent group of robots.txt.
type RobotsRule struct {
	UserAgent  string
	Allow      []string
	Disallow   []string
	CrawlDelay int
}

// RobotsConfig describes a robots.txt file.
type RobotsConfig struct {
	Rules    []RobotsRule
	Sitemaps []string
	Host     string
}

// DefaultRobots keeps crawlers out of the API and the signed-in pages.
func DefaultRobots(siteURL string) RobotsConfig {
	base := strings.TrimRight(siteURL, "/")
	private := []string{"/api/", "/notion/", "/private/"}
	return RobotsConfig{
		Rules: []RobotsRule{
			{UserAgent: "*", Allow: []string{"/"}, Disallow: private},
			{UserAgent: "Googlebot", Allow: []string{"/"}, Disallow: private, CrawlDelay: 1},
		},
		Sitemaps: []string{base + "/sitemap.xml"},
		Host:     base,
	}
}

// Robots renders cfg in robots.txt syntax.
func Robots(cfg RobotsConfig) string {
	var b strings.Builder
	for _, r := range cfg.Rules {
		fmt.Fprintf(&b, "User-agent: %s\n", r.UserAgent)
		for _, p := range r.Allow {
			fmt.Fprintf(&b, "Allow: %s\n", p)
		}
		for _, p := range r.Disallow {
			fmt.Fprintf(&b, "Disallow: %s\n", p)
		}
		if r.CrawlDelay > 0 {
			fmt.Fprintf(&b, "Crawl-delay: %d\n", r.CrawlDelay)
		}
		b.WriteString("\n")
	}
	for _, s := range cfg.Sitemaps {
		fmt.Fprintf(&b, "Sitemap: %s\n", s)
	}
	if cfg.Host != "" {
		fmt.Fprintf(&b, "Host: %s\n", cfg.Host)
	}
	return b.String()
}

// URL is one sitemap entry. Zero values are omitted.
type URL struct {
	Loc        string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
}

// DefaultURLs lists the public pages under siteURL.
func DefaultURLs(siteURL string, lastMod time.Time) []URL {
	base := strings.TrimRight(siteURL, "/")
	return []URL{
		{Loc: base, LastMod: lastMod, ChangeFreq: "weekly", Priority: 1.0},
		{Loc: base + "/en", LastMod: lastMod, ChangeFreq: "weekly", Priority: 0.9},
		{Loc: base + "/th", LastMod: lastMod, ChangeFreq: "weekly", Priority: 0.9},
		{Loc: base + "/waitlist", LastMod: lastMod, ChangeFreq: "monthly", Priority: 0.5},
	}
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Sitemap renders urls as a sitemaps.org urlset.
func Sitemap(urls []URL) ([]byte, error) {
	set := urlset{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, u := range urls {
		e := sitemapURL{Loc: u.Loc, ChangeFreq: u.ChangeFreq}
		if !u.LastMod.IsZero() {
			e.LastMod = u.LastMod.UTC().Format(time.RFC3339)
		}
		if u.Priority > 0 {
			e.Priority = strconv.FormatFloat(u.Priority, 'f', 1, 64)
		}
		set.URLs = append(set.URLs, e)
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
