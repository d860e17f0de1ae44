package storage

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/happyhackingspace/nbsvm/internal/htmlutil"
	"github.com/happyhackingspace/nbsvm/internal/textutil"
)

// Storage wraps the labelled data folder.
type Storage struct {
	Folder string
}

// NewStorage creates a Storage for the given data folder.
func NewStorage(folder string) *Storage {
	return &Storage{Folder: folder}
}

// configJSON is the structure of config.json.
type configJSON struct {
	Labels    labelsConfig `json:"labels"`
	SkipValue string       `json:"skip_value"`
}

type labelsConfig struct {
	Negative string `json:"negative"`
	Positive string `json:"positive"`
}

// indexEntry represents a single entry in index.json.
type indexEntry struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// GetConfig reads the config file.
func (s *Storage) GetConfig() (*configJSON, error) {
	data, err := os.ReadFile(filepath.Join(s.Folder, "config.json"))
	if err != nil {
		return nil, err
	}
	var config configJSON
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// GetSchema returns the label schema of the folder.
func (s *Storage) GetSchema() (*LabelSchema, error) {
	config, err := s.GetConfig()
	if err != nil {
		return nil, err
	}
	if config.Labels.Negative == "" || config.Labels.Positive == "" {
		return nil, fmt.Errorf("config.json: both labels.negative and labels.positive are required")
	}
	if config.Labels.Negative == config.Labels.Positive {
		return nil, fmt.Errorf("config.json: labels must differ, both are %q", config.Labels.Positive)
	}
	return &LabelSchema{
		Negative:  config.Labels.Negative,
		Positive:  config.Labels.Positive,
		SkipValue: config.SkipValue,
	}, nil
}

// GetIndex reads the index file.
func (s *Storage) GetIndex() (map[string]indexEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.Folder, "index.json"))
	if err != nil {
		return nil, err
	}
	var index map[string]indexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return index, nil
}

// IterDocuments reads, tokenizes and labels the documents listed in the index.
func (s *Storage) IterDocuments(opts IterOptions) ([]Document, *LabelSchema, error) {
	schema, err := s.GetSchema()
	if err != nil {
		return nil, nil, fmt.Errorf("get schema: %w", err)
	}
	index, err := s.GetIndex()
	if err != nil {
		return nil, nil, fmt.Errorf("get index: %w", err)
	}

	// Sort by domain + path for deterministic ordering
	type pathInfo struct {
		path string
		info indexEntry
	}
	sorted := make([]pathInfo, 0, len(index))
	for path, info := range index {
		sorted = append(sorted, pathInfo{path, info})
	}
	sort.Slice(sorted, func(i, j int) bool {
		di := GetDomain(sorted[i].info.URL)
		dj := GetDomain(sorted[j].info.URL)
		if di != dj {
			return di < dj
		}
		return sorted[i].path < sorted[j].path
	})

	seen := make(map[string]bool)
	var docs []Document

	for _, pi := range sorted {
		if opts.DropSkipped && schema.SkipValue != "" && pi.info.Label == schema.SkipValue {
			continue
		}
		label, ok := schema.Label(pi.info.Label)
		if !ok {
			slog.Warn("Unknown label, skipping document", "path", pi.path, "label", pi.info.Label)
			continue
		}

		text, err := ReadText(filepath.Join(s.Folder, pi.path))
		if err != nil {
			slog.Warn("Cannot read document", "path", pi.path, "error", err)
			continue
		}

		// Deduplication by content hash
		if opts.DropDuplicates {
			hash := fmt.Sprintf("%x", md5.Sum([]byte(text)))
			if seen[hash] {
				if opts.Verbose {
					slog.Debug("Dropping duplicate document", "path", pi.path)
				}
				continue
			}
			seen[hash] = true
		}

		docs = append(docs, Document{
			Path:      pi.path,
			URL:       pi.info.URL,
			LabelName: pi.info.Label,
			Label:     label,
			Text:      text,
			Tokens:    textutil.Document(text),
		})
	}

	if opts.Verbose {
		slog.Debug("Documents loaded", "folder", s.Folder, "indexed", len(index), "kept", len(docs))
	}
	return docs, schema, nil
}

// ReadText reads a document file. HTML files (.html, .htm, or content that
// looks like HTML) are reduced to their visible text.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ExtractText(path, string(data))
}

// ExtractText returns the text of content named name, stripping HTML markup
// when the name or the content indicates an HTML document.
func ExtractText(name, content string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".html" || ext == ".htm" || htmlutil.LooksLikeHTML(content) {
		text, err := htmlutil.DocumentText(content)
		if err != nil {
			return "", fmt.Errorf("parse html %s: %w", name, err)
		}
		return text, nil
	}
	return content, nil
}

// IterOptions controls document iteration behavior.
type IterOptions struct {
	DropDuplicates bool
	DropSkipped    bool
	Verbose        bool
}

// DefaultIterOptions returns the default options for iterating documents.
func DefaultIterOptions() IterOptions {
	return IterOptions{
		DropDuplicates: true,
		DropSkipped:    true,
	}
}

// GetDomain extracts the domain name from a URL (for grouped cross-validation).
func GetDomain(rawURL string) string {
	// Extract host from URL
	host := rawURL
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}

	// Use publicsuffix to find the eTLD+1, then extract just the domain
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	// domain is like "example.co.uk", we want just "example"
	if idx := strings.Index(domain, "."); idx >= 0 {
		return domain[:idx]
	}
	return domain
}
