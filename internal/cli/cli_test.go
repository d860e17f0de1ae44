package cli

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/nbsvm"
	"github.com/happyhackingspace/nbsvm/estimator"
	"github.com/happyhackingspace/nbsvm/internal/vectorizer"
	"github.com/happyhackingspace/nbsvm/linear"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func testDataFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"config.json": `{"labels": {"negative": "ham", "positive": "spam"}, "skip_value": "?"}`,
		"index.json": `{
			"a.txt": {"url": "http://one.com/", "label": "spam"},
			"b.txt": {"url": "http://two.com/", "label": "ham"},
			"c.html": {"url": "http://one.com/x", "label": "spam"},
			"d.txt": {"url": "http://three.org/", "label": "ham"},
			"e.txt": {"url": "http://three.org/y", "label": "?"}
		}`,
		"a.txt":  "free money now",
		"b.txt":  "meeting at noon",
		"c.html": "<html><body><p>win free prize</p></body></html>",
		"d.txt":  "project report lunch",
		"e.txt":  "skipped",
	})
	return dir
}

func TestModelFlagsOverrideConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nbsvm.yaml")
	writeFiles(t, filepath.Dir(cfgPath), map[string]string{
		"nbsvm.yaml": "vectorizer:\n  num_words: 500\nclassifier:\n  base: logit\n  c: 2\n",
	})

	cmd := &cobra.Command{Use: "train"}
	var mf modelFlags
	mf.register(cmd)
	if err := cmd.ParseFlags([]string{"--config", cfgPath, "--num-words", "7", "--dual", "false"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := mf.load(cmd, false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Vectorizer.NumWords != 7 {
		t.Errorf("NumWords = %d, want 7 from flag", cfg.Vectorizer.NumWords)
	}
	if cfg.Classifier.Base != linear.KindLogit || cfg.Classifier.C != 2 {
		t.Errorf("Classifier = %+v, want file values", cfg.Classifier)
	}
	if cfg.Classifier.Dual != estimator.DualFalse {
		t.Errorf("Dual = %v, want false", cfg.Classifier.Dual)
	}
}

func TestTrainAndInspectCommands(t *testing.T) {
	dir := testDataFolder(t)
	modelPath := filepath.Join(t.TempDir(), "model.json")

	c := New("test")
	c.SetArgs([]string{"train", modelPath, "--data-folder", dir, "--num-words", "4", "-s"})
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	p, err := nbsvm.Load(modelPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Vocabulary()) != 4 {
		t.Errorf("vocabulary size = %d, want 4", len(p.Vocabulary()))
	}
	if p.Labels != [2]string{"ham", "spam"} {
		t.Errorf("labels = %v", p.Labels)
	}

	c = New("test")
	c.SetArgs([]string{"inspect", modelPath, "--top", "2", "-s"})
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestDataStats(t *testing.T) {
	var buf bytes.Buffer
	if err := dataStats(&buf, testDataFolder(t), false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Documents: 4", "Domains:   3", "  one "} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestPackAndExtract(t *testing.T) {
	src := testDataFolder(t)
	archive := filepath.Join(t.TempDir(), "data.tar.gz")
	if err := dataPack(src, archive); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(archive)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	dest := filepath.Join(t.TempDir(), "restored")
	count, err := extractArchive(f, dest)
	if err != nil {
		t.Fatal(err)
	}
	if count != 7 {
		t.Errorf("extracted %d files, want 7", count)
	}
	data, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "free money now" {
		t.Errorf("a.txt = %q", data)
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	body := []byte("x")
	if err := tw.WriteHeader(&tar.Header{Name: "../evil.txt", Mode: 0644, Size: int64(len(body)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(body); err != nil {
		t.Fatal(err)
	}
	_ = tw.Close()
	_ = gw.Close()

	if _, err := extractArchive(&buf, t.TempDir()); err == nil {
		t.Error("expected error for an entry outside the data folder")
	}
}

func TestReadFromStdin(t *testing.T) {
	text, err := readFromStdin(strings.NewReader("  <html><body><p>Hello</p></body></html>\n"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(text) != "Hello" {
		t.Errorf("text = %q, want Hello", text)
	}
	if _, err := readFromStdin(strings.NewReader("   ")); err == nil {
		t.Error("expected error for empty stdin")
	}
}

func TestVocabularyHint(t *testing.T) {
	dir := testDataFolder(t)

	for _, args := range [][]string{
		{"train", filepath.Join(t.TempDir(), "model.json"), "--data-folder", dir, "-s"},
		{"evaluate", "--data-folder", dir, "--cv", "3", "-s"},
	} {
		c := New("test")
		c.SetArgs(args)
		err := c.Run()
		if !errors.Is(err, vectorizer.ErrSmallVocabulary) {
			t.Fatalf("%s: expected small vocabulary error, got %v", args[0], err)
		}
		if !strings.Contains(err.Error(), "--num-words") {
			t.Errorf("%s: error lacks flag hint: %v", args[0], err)
		}
	}

	other := errors.New("boom")
	if got := vocabHint(other); got != other {
		t.Errorf("vocabHint changed unrelated error: %v", got)
	}
}

func TestCheckModel(t *testing.T) {
	dir := testDataFolder(t)
	tmp := t.TempDir()
	modelPath := filepath.Join(tmp, "model.json")

	c := New("test")
	c.SetArgs([]string{"train", modelPath, "--data-folder", dir, "--num-words", "4", "-s"})
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	if err := checkModel(modelPath); err != nil {
		t.Errorf("valid model rejected: %v", err)
	}

	corrupt := filepath.Join(tmp, "corrupt.json")
	writeFiles(t, tmp, map[string]string{"corrupt.json": `{"id": "x", "nb": `})

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(tmp, "absent.json")},
		{"corrupt", corrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkModel(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.path) {
				t.Errorf("error does not name the model file: %v", err)
			}
		})
	}
}
