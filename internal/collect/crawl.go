package collect

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Crawl collects the home page of siteURL and then follows same-host links,
// labelling every saved page with label. At most maxPerSite pages are kept.
func (c *Collector) Crawl(siteURL, label string, maxPerSite int) (int, error) {
	if !strings.HasPrefix(siteURL, "http") {
		siteURL = "https://" + siteURL
	}
	siteU, err := url.Parse(siteURL)
	if err != nil {
		return 0, err
	}
	siteHost := siteU.Hostname()

	visited := make(map[string]bool)
	collected := 0

	html, status, err := fetchHTML(c.client, siteURL, c.UserAgent)
	if err != nil {
		return 0, fmt.Errorf("homepage: %w", err)
	}
	if status >= 400 || len(html) < minPageSize {
		return 0, fmt.Errorf("homepage HTTP %d (%d bytes)", status, len(html))
	}
	if err := c.add(siteURL, label, html); err != nil {
		return 0, err
	}
	visited[normalizeURL(siteURL)] = true
	collected++
	slog.Debug("Collected homepage", "url", siteURL, "label", label)

	links := extractLinks(html, siteU)
	rand.Shuffle(len(links), func(i, j int) { links[i], links[j] = links[j], links[i] })

	for i := 0; i < len(links); i++ {
		if collected >= maxPerSite || c.full() {
			break
		}
		link := links[i]
		linkU, err := url.Parse(link)
		if err != nil || linkU.Hostname() != siteHost || skipURL(linkU) {
			continue
		}
		normalized := normalizeURL(link)
		if visited[normalized] {
			continue
		}
		visited[normalized] = true

		if c.Delay > 0 {
			time.Sleep(c.Delay)
		}
		linkHTML, linkStatus, err := fetchHTML(c.client, link, c.UserAgent)
		if err != nil {
			slog.Debug("Failed to fetch link", "url", link, "error", err)
			continue
		}
		if linkStatus != 200 || len(linkHTML) < minPageSize {
			continue
		}
		if err := c.add(link, label, linkHTML); err != nil {
			return collected, err
		}
		collected++
		slog.Debug("Collected link", "url", link, "label", label)
		links = append(links, extractLinks(linkHTML, siteU)...)
	}
	return collected, nil
}

func extractLinks(htmlStr string, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		u, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(u).String()

		if !seen[resolved] {
			seen[resolved] = true
			links = append(links, resolved)
		}
	})

	return links
}
