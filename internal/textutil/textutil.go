// Package textutil turns raw document text into word tokens.
package textutil

import (
	"regexp"
	"strings"
)

var tokenizeRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize extracts word tokens from text (runs of Unicode letters, digits and underscores).
func Tokenize(text string) []string {
	return tokenizeRe.FindAllString(text, -1)
}

var (
	newlineRe    = regexp.MustCompile(`[\n\r]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// NormalizeWhitespaces replaces newlines and multiple whitespace with a single space.
func NormalizeWhitespaces(text string) string {
	text = newlineRe.ReplaceAllString(text, " ")
	return multiSpaceRe.ReplaceAllString(text, " ")
}

// Normalize lowercases text and normalizes whitespace.
func Normalize(text string) string {
	return NormalizeWhitespaces(strings.ToLower(text))
}

// Document lowercases text and splits it into word tokens.
func Document(text string) []string {
	return Tokenize(strings.ToLower(text))
}

// Corpus tokenizes every text with Document.
func Corpus(texts []string) [][]string {
	corpus := make([][]string, len(texts))
	for i, t := range texts {
		corpus[i] = Document(t)
	}
	return corpus
}
