package textutil

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"user_name", []string{"user_name"}},
		{"email@example.com", []string{"email", "example", "com"}},
		{"", nil},
		{"  spaces  ", []string{"spaces"}},
		{"café résumé", []string{"café", "résumé"}},
		{"hello-world", []string{"hello", "world"}},
		{"input[name]", []string{"input", "name"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello world"},
		{"  multiple   spaces  ", " multiple spaces "},
		{"line\nbreak\rhere", "line break here"},
		{"UPPER", "upper"},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeWhitespaces(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello\nworld", "hello world"},
		{"hello\r\nworld", "hello world"},
		{"a  b   c", "a b c"},
	}
	for _, tt := range tests {
		got := NormalizeWhitespaces(tt.input)
		if got != tt.want {
			t.Errorf("NormalizeWhitespaces(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDocument(t *testing.T) {
	got := Document("Free MONEY, free\nmoney!")
	want := []string{"free", "money", "free", "money"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Document = %v, want %v", got, want)
	}
}

func TestCorpus(t *testing.T) {
	got := Corpus([]string{"Cat dog", "", "dog DOG fish"})
	if len(got) != 3 {
		t.Fatalf("len(Corpus) = %d, want 3", len(got))
	}
	if got[1] != nil {
		t.Errorf("empty text = %v, want nil", got[1])
	}
	if !reflect.DeepEqual(got[2], []string{"dog", "dog", "fish"}) {
		t.Errorf("Corpus[2] = %v", got[2])
	}
}
