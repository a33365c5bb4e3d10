// Package seo builds head metadata (Open Graph, Twitter, JSON-LD) for rendered pages.
package seo

import (
	"html/template"
	"net/url"
	"strings"
)

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
}

type Twitter struct {
	Card  string
	Image string
}

// Meta is everything the layout renders into <head> besides the fixed tags.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          OpenGraph
	Twitter     Twitter
	JSONLD      []template.JS
}

// Site describes the application for structured data.
type Site struct {
	Name        string
	Title       string
	Description string
	BaseURL     string
	LogoURL     string
}

// Page describes one rendered page. Empty fields fall back to the site defaults.
type Page struct {
	Path        string
	Title       string
	Description string
	NoIndex     bool
}

// Build derives the head metadata of a page.
func Build(site Site, page Page) Meta {
	title := site.Title
	if t := strings.TrimSpace(page.Title); t != "" && page.Path != "/" {
		title = t + " - " + site.Name
	}
	description := strings.TrimSpace(page.Description)
	if description == "" {
		description = site.Description
	}
	canonical := absoluteURL(site.BaseURL, page.Path)

	m := Meta{
		Title:       title,
		Description: description,
		Canonical:   canonical,
		OG: OpenGraph{
			Title:       title,
			Description: description,
			Image:       site.LogoURL,
			Type:        "website",
			URL:         canonical,
			SiteName:    site.Name,
		},
		Twitter: Twitter{Card: "summary", Image: site.LogoURL},
	}
	if page.NoIndex {
		m.Robots = "noindex"
	}
	if page.Path == "/" {
		m.JSONLD = append(m.JSONLD,
			JSON(Organization(site.Name, site.BaseURL, site.LogoURL)),
			JSON(WebSite(site.Name, site.BaseURL)),
		)
	} else if !page.NoIndex {
		m.JSONLD = append(m.JSONLD, JSON(WebPage(title, description, canonical)))
	}
	return m
}

func absoluteURL(base, path string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	if path == "" {
		path = "/"
	}
	return u.JoinPath(path).String()
}
