// Package scraper fetches a brand's website into structured page content.
package scraper

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/brandlens/brandlens/pkg/models"
)

// Page is one scraped page, ready for prompt construction.
type Page struct {
	URL      string
	Type     models.SourceType
	Title    string
	Content  string
	Excerpt  string
	Metadata map[string]string
}

// Result is the outcome of scraping one site. A main-page failure is
// reported through Error, never as a Go error, so the orchestrator can
// react without exception-driven control flow. Sub-page failures are
// aggregated into Warning.
type Result struct {
	MainPage Page
	SubPages []Page
	Error    string
	Warning  string
}

// Scraper fetches a main page plus a bounded set of sub-pages.
type Scraper interface {
	Scrape(ctx context.Context, siteURL string) (*Result, error)
}

const excerptRunes = 500

// makeExcerpt returns the first excerptRunes runes of content.
func makeExcerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptRunes {
		return content
	}
	return string(runes[:excerptRunes])
}

// classifyPath maps a URL path to a source type by keyword.
func classifyPath(path string) models.SourceType {
	p := strings.ToLower(path)
	switch {
	case strings.Contains(p, "about"):
		return models.SourceAbout
	case strings.Contains(p, "home"), strings.Contains(p, "property"), strings.Contains(p, "properties"), strings.Contains(p, "floor-plan"):
		return models.SourceHomes
	case strings.Contains(p, "amenit"), strings.Contains(p, "feature"), strings.Contains(p, "lifestyle"):
		return models.SourceAmenities
	case strings.Contains(p, "contact"):
		return models.SourceContact
	case strings.Contains(p, "blog"), strings.Contains(p, "news"):
		return models.SourceBlog
	default:
		return models.SourceOther
	}
}

// selectSubPageLinks filters raw hrefs down to at most max same-host pages
// worth scraping, preferring classified pages over unclassified ones.
func selectSubPageLinks(base *url.URL, hrefs []string, max int) []string {
	type scored struct {
		link  string
		typed bool
		order int
	}

	seen := map[string]bool{base.String(): true}
	var candidates []scored

	for i, href := range hrefs {
		u, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		if !strings.EqualFold(u.Host, base.Host) {
			continue
		}
		u.Fragment = ""
		link := u.String()
		if seen[link] {
			continue
		}
		if u.Path == "" || u.Path == "/" {
			continue
		}
		seen[link] = true
		candidates = append(candidates, scored{
			link:  link,
			typed: classifyPath(u.Path) != models.SourceOther,
			order: i,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].typed != candidates[j].typed {
			return candidates[i].typed
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	links := make([]string, len(candidates))
	for i, c := range candidates {
		links[i] = c.link
	}
	return links
}
