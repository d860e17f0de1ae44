package collect

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/happyhackingspace/nbsvm/internal/storage"
)

func page(body string) string {
	return "<html><head><title>test page</title></head><body>" + body +
		strings.Repeat("<p>filler text</p>", 10) + "</body></html>"
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page(`<a href="/p1">one</a> <a href="/p2#top">two</a>
			<a href="http://other.example/x">ext</a> <a href="/style.css">css</a>
			<a href="#frag">frag</a> <a href="mailto:a@b.c">mail</a>`))
	})
	mux.HandleFunc("/p1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page(`<a href="/">home</a> <a href="/p2">two</a>`))
	})
	mux.HandleFunc("/p2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page(`free money`))
	})
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "tiny")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCollect(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	if err := InitFolder(dir, "ham", "spam", "?"); err != nil {
		t.Fatal(err)
	}

	c, err := NewCollector(dir, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	n, err := c.Collect([]Seed{
		{URL: srv.URL + "/p2", Label: "spam"},
		{URL: srv.URL + "/p1", Label: "ham"},
		{URL: srv.URL + "/missing", Label: "ham"},
		{URL: srv.URL + "/short", Label: "ham"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("collected %d pages, want 2", n)
	}

	docs, _, err := storage.NewStorage(dir).IterDocuments(storage.DefaultIterOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("storage sees %d documents, want 2", len(docs))
	}
	labels := map[string]string{}
	for _, d := range docs {
		labels[d.URL] = d.LabelName
	}
	if labels[srv.URL+"/p2"] != "spam" || labels[srv.URL+"/p1"] != "ham" {
		t.Errorf("labels = %v", labels)
	}
}

func TestCollectMaxPages(t *testing.T) {
	srv := newServer(t)
	c, err := NewCollector(t.TempDir(), srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	c.MaxPages = 1
	n, err := c.Collect([]Seed{{URL: srv.URL + "/p1", Label: "a"}, {URL: srv.URL + "/p2", Label: "a"}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("collected %d pages, want 1", n)
	}
}

func TestCrawl(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	c, err := NewCollector(dir, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	n, err := c.Crawl(srv.URL, "ham", 10)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("crawled %d pages, want 3 (home, p1, p2)", n)
	}
	if err := c.Save(); err != nil {
		t.Fatal(err)
	}
	index, err := loadIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(index) != 3 {
		t.Errorf("index has %d entries, want 3", len(index))
	}
	for name, e := range index {
		if e.Label != "ham" {
			t.Errorf("%s labelled %q", name, e.Label)
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing page file: %v", err)
		}
	}

	c2, err := NewCollector(t.TempDir(), srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := c2.Crawl(srv.URL, "ham", 1); n != 1 {
		t.Errorf("crawled %d pages with maxPerSite=1", n)
	}
}

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.jsonl")
	data := `# comment
{"url": "https://a.com/", "label": "spam"}

not json
{"label": "ham"}
{"url": "https://b.com/", "label": "ham"}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	seeds, err := LoadSeeds(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []Seed{{URL: "https://a.com/", Label: "spam"}, {URL: "https://b.com/", Label: "ham"}}
	if len(seeds) != len(want) {
		t.Fatalf("seeds = %v, want %v", seeds, want)
	}
	for i := range want {
		if seeds[i] != want[i] {
			t.Errorf("seeds[%d] = %v, want %v", i, seeds[i], want[i])
		}
	}
}

func TestInitFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if err := InitFolder(dir, "same", "same", ""); err == nil {
		t.Error("expected error for identical labels")
	}
	if err := InitFolder(dir, "ham", "spam", "?"); err != nil {
		t.Fatal(err)
	}
	schema, err := storage.NewStorage(dir).GetSchema()
	if err != nil {
		t.Fatal(err)
	}
	if schema.Negative != "ham" || schema.Positive != "spam" || schema.SkipValue != "?" {
		t.Errorf("schema = %+v", schema)
	}
	// existing config is kept
	if err := InitFolder(dir, "x", "y", ""); err != nil {
		t.Fatal(err)
	}
	schema, _ = storage.NewStorage(dir).GetSchema()
	if schema.Negative != "ham" {
		t.Errorf("config overwritten: %+v", schema)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://a.com/x/#frag", "https://a.com/x"},
		{"https://a.com/", "https://a.com"},
		{"https://a.com/p?q=1", "https://a.com/p?q=1"},
	}
	for _, tt := range tests {
		if got := normalizeURL(tt.in); got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
