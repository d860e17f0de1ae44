// Package collect fetches web pages into a labelled data folder.
package collect

import (
	"fmt"
	"log/slog"
	"time"
)

// minPageSize is the smallest response body worth keeping.
const minPageSize = 100

// Collector downloads pages into a data folder and records them in its
// index.json.
type Collector struct {
	Folder    string
	UserAgent string
	Delay     time.Duration
	// MaxPages stops collection after this many pages (0 = unlimited).
	MaxPages int

	client    httpClient
	index     map[string]indexEntry
	collected int
}

// NewCollector opens the index of folder, creating an empty one if needed.
func NewCollector(folder string, client httpClient) (*Collector, error) {
	index, err := loadIndex(folder)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	return &Collector{
		Folder:    folder,
		UserAgent: "Mozilla/5.0 (compatible; nbsvm-collect/1.0)",
		client:    client,
		index:     index,
	}, nil
}

// Collected returns the number of pages saved by this collector.
func (c *Collector) Collected() int {
	return c.collected
}

func (c *Collector) full() bool {
	return c.MaxPages > 0 && c.collected >= c.MaxPages
}

// Collect fetches every seed and labels its page with the seed label.
// Failed fetches are logged and skipped.
func (c *Collector) Collect(seeds []Seed) (int, error) {
	start := c.collected
	for i, seed := range seeds {
		if c.full() {
			break
		}
		if i > 0 && c.Delay > 0 {
			time.Sleep(c.Delay)
		}
		if err := c.fetchAndSave(seed.URL, seed.Label); err != nil {
			slog.Warn("Failed to fetch", "url", seed.URL, "error", err)
			continue
		}
		slog.Info("Collected", "url", seed.URL, "label", seed.Label, "total", c.collected)
	}
	return c.collected - start, c.Save()
}

// Save writes the index back to the data folder.
func (c *Collector) Save() error {
	if err := saveIndex(c.Folder, c.index); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

func (c *Collector) fetchAndSave(rawURL, label string) error {
	html, status, err := fetchHTML(c.client, rawURL, c.UserAgent)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("HTTP %d", status)
	}
	if len(html) < minPageSize {
		return fmt.Errorf("response too short (%d bytes)", len(html))
	}
	return c.add(rawURL, label, html)
}

func (c *Collector) add(rawURL, label, html string) error {
	filename, err := saveHTMLFile(html, rawURL, c.Folder)
	if err != nil {
		return err
	}
	c.index[filename] = indexEntry{URL: rawURL, Label: label}
	c.collected++
	return nil
}
