package vectorizer

import (
	"encoding/json"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/nbsvm/estimator"
)

// ErrSmallVocabulary reports a corpus with fewer distinct words than the
// requested vocabulary size.
var ErrSmallVocabulary = fmt.Errorf("%w: vocabulary too small", estimator.ErrConfiguration)

// CountVectorizer keeps the NumWords most frequent words of a corpus and
// converts documents to raw term-count vectors over them.
type CountVectorizer struct {
	NumWords     int      `json:"num_words"`
	FeatureNames []string `json:"feature_names"`

	vocab map[string]int
}

// NewCountVectorizer creates an unfitted CountVectorizer.
func NewCountVectorizer(numWords int) *CountVectorizer {
	return &CountVectorizer{NumWords: numWords}
}

// termCount is a word with its corpus-wide occurrence count.
type termCount struct {
	word  string
	count int
}

// countTerms returns every distinct word of the corpus with its total number
// of occurrences, in order of first appearance.
func countTerms(corpus [][]string) []termCount {
	index := make(map[string]int)
	var terms []termCount
	for _, doc := range corpus {
		for _, w := range doc {
			i, ok := index[w]
			if !ok {
				i = len(terms)
				index[w] = i
				terms = append(terms, termCount{word: w})
			}
			terms[i].count++
		}
	}
	return terms
}

// Fit selects the vocabulary: the NumWords words with the highest total
// occurrence count, most frequent first. Words with equal counts keep their
// order of first appearance in the corpus.
func (cv *CountVectorizer) Fit(corpus [][]string) error {
	if cv.NumWords <= 0 {
		return fmt.Errorf("%w: num_words must be positive, got %d", estimator.ErrConfiguration, cv.NumWords)
	}
	terms := countTerms(corpus)
	if len(terms) < cv.NumWords {
		return fmt.Errorf("%w: corpus has %d distinct words, not enough for num_words=%d",
			ErrSmallVocabulary, len(terms), cv.NumWords)
	}

	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].count > terms[j].count
	})

	names := make([]string, cv.NumWords)
	for i := range names {
		names[i] = terms[i].word
	}
	cv.FeatureNames = names
	cv.vocab = buildVocab(names)
	return nil
}

// Fitted reports whether a vocabulary is present.
func (cv *CountVectorizer) Fitted() bool {
	return cv != nil && len(cv.FeatureNames) > 0
}

// Vocabulary returns the word -> feature index mapping.
func (cv *CountVectorizer) Vocabulary() map[string]int {
	if cv.vocab != nil {
		return cv.vocab
	}
	return buildVocab(cv.FeatureNames)
}

func buildVocab(names []string) map[string]int {
	vocab := make(map[string]int, len(names))
	for i, w := range names {
		vocab[w] = i
	}
	return vocab
}

// Counts returns the occurrences of each vocabulary word in doc.
// Words outside the vocabulary are ignored.
func (cv *CountVectorizer) Counts(doc []string, vocab map[string]int) []float64 {
	counts := make([]float64, len(cv.FeatureNames))
	for _, w := range doc {
		if idx, ok := vocab[w]; ok {
			counts[idx]++
		}
	}
	return counts
}

// Transform converts the corpus to a len(corpus) x VocabSize() count matrix.
// An empty corpus yields a nil matrix.
func (cv *CountVectorizer) Transform(corpus [][]string) (*mat.Dense, error) {
	if !cv.Fitted() {
		return nil, estimator.NotFitted("CountVectorizer", "FeatureNames")
	}
	if len(corpus) == 0 {
		return nil, nil
	}
	vocab := cv.Vocabulary()
	m := mat.NewDense(len(corpus), len(cv.FeatureNames), nil)
	for i, doc := range corpus {
		m.SetRow(i, cv.Counts(doc, vocab))
	}
	return m, nil
}

// VocabSize returns the vocabulary size.
func (cv *CountVectorizer) VocabSize() int {
	return len(cv.FeatureNames)
}

// UnmarshalJSON implements json.Unmarshaler and rebuilds the word index.
func (cv *CountVectorizer) UnmarshalJSON(data []byte) error {
	type Alias CountVectorizer
	if err := json.Unmarshal(data, (*Alias)(cv)); err != nil {
		return err
	}
	cv.vocab = buildVocab(cv.FeatureNames)
	return nil
}
