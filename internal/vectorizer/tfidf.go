package vectorizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/nbsvm/estimator"
)

// TfidfVectorizer converts tokenized documents to TF-IDF weighted vectors
// over a fixed-size vocabulary of the most frequent words.
//
// The fitted state (CountVec and IDF) is read-only after Fit returns, so
// Transform may be called concurrently. Fit must not overlap any other call.
type TfidfVectorizer struct {
	NumWords int              `json:"num_words"`
	CountVec *CountVectorizer `json:"count_vec,omitempty"`
	IDF      []float64        `json:"idf,omitempty"`
}

// NewTfidfVectorizer creates a TfidfVectorizer keeping numWords words.
func NewTfidfVectorizer(numWords int) *TfidfVectorizer {
	return &TfidfVectorizer{NumWords: numWords}
}

// Fit selects the vocabulary and computes IDF values from a corpus:
// idf[i] = log(N / (1 + df[i])), where df[i] counts the documents containing
// word i. Any previous fitted state is replaced only when Fit succeeds.
func (tv *TfidfVectorizer) Fit(corpus [][]string) error {
	cv := NewCountVectorizer(tv.NumWords)
	if err := cv.Fit(corpus); err != nil {
		return fmt.Errorf("fit vocabulary: %w", err)
	}

	vocab := cv.Vocabulary()
	df := make([]float64, cv.VocabSize())
	for _, doc := range corpus {
		seen := make(map[int]bool)
		for _, w := range doc {
			if idx, ok := vocab[w]; ok && !seen[idx] {
				df[idx]++
				seen[idx] = true
			}
		}
	}

	nDocs := float64(len(corpus))
	idf := make([]float64, len(df))
	for i := range df {
		idf[i] = math.Log(nDocs / (1 + df[i]))
	}

	tv.CountVec = cv
	tv.IDF = idf
	return nil
}

// FitTransform fits and transforms the corpus.
func (tv *TfidfVectorizer) FitTransform(corpus [][]string) (*mat.Dense, error) {
	if err := tv.Fit(corpus); err != nil {
		return nil, err
	}
	return tv.Transform(corpus)
}

// Transform converts a corpus to a len(corpus) x NumWords matrix whose
// entry (i, j) is the count of vocabulary word j in document i times idf[j].
// An empty corpus yields a nil matrix.
func (tv *TfidfVectorizer) Transform(corpus [][]string) (*mat.Dense, error) {
	if !tv.Fitted() {
		return nil, estimator.NotFitted("TfidfVectorizer", "FeatureNames", "IDF")
	}
	if len(corpus) == 0 {
		return nil, nil
	}

	vocab := tv.CountVec.Vocabulary()
	m := mat.NewDense(len(corpus), len(tv.IDF), nil)
	for i, doc := range corpus {
		tf := tv.CountVec.Counts(doc, vocab)
		for j, n := range tf {
			if n > 0 {
				tf[j] = n * tv.IDF[j]
			}
		}
		m.SetRow(i, tf)
	}
	return m, nil
}

// Fitted reports whether the vocabulary and IDF vector are present.
func (tv *TfidfVectorizer) Fitted() bool {
	return tv.CountVec.Fitted() && len(tv.IDF) == tv.CountVec.VocabSize()
}

// FeatureNames returns the vocabulary in feature index order, or nil before Fit.
func (tv *TfidfVectorizer) FeatureNames() []string {
	if tv.CountVec == nil {
		return nil
	}
	return tv.CountVec.FeatureNames
}

// VocabSize returns the vocabulary size.
func (tv *TfidfVectorizer) VocabSize() int {
	if tv.CountVec == nil {
		return 0
	}
	return tv.CountVec.VocabSize()
}
