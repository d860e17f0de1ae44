// Package nbsvm classifies text documents with a TF-IDF + Naive-Bayes
// weighted linear model (NB-SVM or NB-Logit).
//
//	p, _ := nbsvm.New(nbsvm.DefaultConfig())
//	_ = p.Fit(corpus, labels)           // corpus: [][]string of tokens, labels: 0/1
//	pred, _ := p.Predict(newCorpus)
//	_ = p.Save("model.json")
package nbsvm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/nbsvm/classifier"
	"github.com/happyhackingspace/nbsvm/estimator"
	"github.com/happyhackingspace/nbsvm/internal/textutil"
	"github.com/happyhackingspace/nbsvm/internal/vectorizer"
	"github.com/happyhackingspace/nbsvm/linear"
)

// Config holds the pipeline hyperparameters.
type Config struct {
	NumWords int            `json:"num_words"`
	Base     string         `json:"base"`
	C        float64        `json:"c"`
	Dual     estimator.Dual `json:"dual"`
	MaxIter  int            `json:"max_iter,omitempty"`
	Tol      float64        `json:"tol,omitempty"`
	Verbose  int            `json:"-"`
}

// DefaultConfig returns an NB-SVM configuration keeping 10000 words.
func DefaultConfig() Config {
	return Config{
		NumWords: 10000,
		Base:     linear.KindSVC,
		C:        1.0,
		Dual:     estimator.DualAuto,
	}
}

// Pipeline chains a TF-IDF vectorizer and an NB-weighted linear classifier.
// Fit must not run concurrently with other calls; a fitted pipeline may be
// used for prediction from several goroutines.
type Pipeline struct {
	// ID identifies a fitted model; it changes on every Fit.
	ID      string
	Created time.Time
	// Labels optionally names classes 0 and 1.
	Labels [2]string

	config Config
	vec    *vectorizer.TfidfVectorizer
	nb     *classifier.NBClassifier
}

// New creates an unfitted pipeline.
func New(config Config) (*Pipeline, error) {
	factory, err := linear.NewFactory(config.Base, linear.Options{MaxIter: config.MaxIter, Tol: config.Tol})
	if err != nil {
		return nil, fmt.Errorf("nbsvm: %w", err)
	}
	if config.NumWords <= 0 {
		return nil, fmt.Errorf("nbsvm: %w: num_words must be positive, got %d", estimator.ErrConfiguration, config.NumWords)
	}
	return &Pipeline{
		Labels: [2]string{"0", "1"},
		config: config,
		vec:    vectorizer.NewTfidfVectorizer(config.NumWords),
		nb: classifier.New(classifier.Config{
			Factory: factory,
			C:       config.C,
			Dual:    config.Dual,
			Verbose: config.Verbose,
		}),
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Fit fits the vectorizer on corpus, then the classifier on the resulting
// features and labels y (0 or 1).
func (p *Pipeline) Fit(corpus [][]string, y []int) error {
	if len(corpus) != len(y) {
		return fmt.Errorf("nbsvm: %w: %d documents, %d labels", estimator.ErrValidation, len(corpus), len(y))
	}
	vec := vectorizer.NewTfidfVectorizer(p.config.NumWords)
	X, err := vec.FitTransform(corpus)
	if err != nil {
		return fmt.Errorf("nbsvm: %w", err)
	}
	if err := p.nb.Fit(X, y); err != nil {
		return fmt.Errorf("nbsvm: %w", err)
	}
	p.vec = vec
	p.ID = ulid.Make().String()
	p.Created = time.Now().UTC()
	return nil
}

// Fitted reports whether the pipeline can predict.
func (p *Pipeline) Fitted() bool {
	return p.vec.Fitted() && p.nb.Fitted()
}

// Transform returns the TF-IDF features of corpus.
func (p *Pipeline) Transform(corpus [][]string) (*mat.Dense, error) {
	X, err := p.vec.Transform(corpus)
	if err != nil {
		return nil, fmt.Errorf("nbsvm: %w", err)
	}
	return X, nil
}

// Predict returns the predicted label of each document.
func (p *Pipeline) Predict(corpus [][]string) ([]int, error) {
	X, err := p.Transform(corpus)
	if err != nil {
		return nil, err
	}
	if X == nil {
		return []int{}, nil
	}
	pred, err := p.nb.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("nbsvm: %w", err)
	}
	return pred, nil
}

// PredictProba returns class probabilities, one row per document. It fails
// with estimator.ErrCapability for an NB-SVM pipeline.
func (p *Pipeline) PredictProba(corpus [][]string) (*mat.Dense, error) {
	X, err := p.Transform(corpus)
	if err != nil {
		return nil, err
	}
	if X == nil {
		return nil, fmt.Errorf("nbsvm: %w: empty corpus", estimator.ErrValidation)
	}
	proba, err := p.nb.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("nbsvm: %w", err)
	}
	return proba, nil
}

// Score returns the accuracy of the predictions on corpus against y.
func (p *Pipeline) Score(corpus [][]string, y []int) (float64, error) {
	X, err := p.Transform(corpus)
	if err != nil {
		return 0, err
	}
	if X == nil {
		return 0, fmt.Errorf("nbsvm: %w: empty corpus", estimator.ErrValidation)
	}
	acc, err := p.nb.Score(X, y)
	if err != nil {
		return 0, fmt.Errorf("nbsvm: %w", err)
	}
	return acc, nil
}

// Result is the classification of one raw text.
type Result struct {
	Label string             `json:"label"`
	Proba map[string]float64 `json:"proba,omitempty"`
}

// Classify tokenizes raw texts and classifies them. Probabilities are
// included when withProba is set and the base classifier supports them.
func (p *Pipeline) Classify(texts []string, withProba bool) ([]Result, error) {
	corpus := textutil.Corpus(texts)
	pred, err := p.Predict(corpus)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(pred))
	for i, y := range pred {
		out[i].Label = p.Labels[y]
	}
	if !withProba || len(texts) == 0 {
		return out, nil
	}
	proba, err := p.PredictProba(corpus)
	if errors.Is(err, estimator.ErrCapability) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Proba = map[string]float64{
			p.Labels[0]: proba.At(i, 0),
			p.Labels[1]: proba.At(i, 1),
		}
	}
	return out, nil
}

// SupportsProba reports whether PredictProba is available.
func (p *Pipeline) SupportsProba() bool {
	return p.nb.SupportsProba()
}

// Vocabulary returns the fitted vocabulary in feature order.
func (p *Pipeline) Vocabulary() []string {
	return p.vec.FeatureNames()
}

// IDF returns the fitted IDF vector.
func (p *Pipeline) IDF() []float64 {
	return p.vec.IDF
}

// WordWeight is a vocabulary word with its log-count ratio.
type WordWeight struct {
	Word  string  `json:"word"`
	Ratio float64 `json:"ratio"`
}

// TopWords returns up to k words most indicative of class 1 and of class 0.
func (p *Pipeline) TopWords(k int) (pos, neg []WordWeight, err error) {
	posIdx, negIdx, err := p.nb.TopFeatures(k)
	if err != nil {
		return nil, nil, fmt.Errorf("nbsvm: %w", err)
	}
	names := p.vec.FeatureNames()
	r := p.nb.R()
	for _, i := range posIdx {
		pos = append(pos, WordWeight{Word: names[i], Ratio: r[i]})
	}
	for _, i := range negIdx {
		neg = append(neg, WordWeight{Word: names[i], Ratio: r[i]})
	}
	return pos, neg, nil
}

// modelFile is the on-disk JSON layout of a fitted pipeline.
type modelFile struct {
	ID         string                      `json:"id"`
	Created    time.Time                   `json:"created"`
	Labels     [2]string                   `json:"labels"`
	Config     Config                      `json:"config"`
	Vectorizer *vectorizer.TfidfVectorizer `json:"vectorizer"`
	NB         nbFile                      `json:"nb"`
	BaseKind   string                      `json:"base_kind"`
	Base       json.RawMessage             `json:"base"`
}

type nbFile struct {
	R            []float64 `json:"r"`
	ResolvedDual bool      `json:"resolved_dual"`
}

// Save writes the fitted pipeline to a JSON model file.
func (p *Pipeline) Save(path string) error {
	if !p.Fitted() {
		return fmt.Errorf("nbsvm: %w", estimator.NotFitted("Pipeline", "Vectorizer", "R"))
	}
	base := p.nb.Base()
	kind := linear.KindOf(base)
	if kind == "" {
		return fmt.Errorf("nbsvm: cannot save base classifier %T", base)
	}
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("nbsvm: marshal base classifier: %w", err)
	}
	dual, _ := p.nb.ResolvedDual()

	data, err := json.Marshal(modelFile{
		ID:         p.ID,
		Created:    p.Created,
		Labels:     p.Labels,
		Config:     p.config,
		Vectorizer: p.vec,
		NB:         nbFile{R: p.nb.R(), ResolvedDual: dual},
		BaseKind:   kind,
		Base:       baseJSON,
	})
	if err != nil {
		return fmt.Errorf("nbsvm: marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("nbsvm: %w", err)
	}
	return nil
}

// Load reads a pipeline saved with Save.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nbsvm: %w", err)
	}
	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("nbsvm: parse %s: %w", path, err)
	}
	if mf.Vectorizer == nil || !mf.Vectorizer.Fitted() {
		return nil, fmt.Errorf("nbsvm: %s: missing fitted vectorizer", path)
	}
	if len(mf.NB.R) != mf.Vectorizer.VocabSize() {
		return nil, fmt.Errorf("nbsvm: %s: ratio vector has %d entries for %d words",
			path, len(mf.NB.R), mf.Vectorizer.VocabSize())
	}

	p, err := New(mf.Config)
	if err != nil {
		return nil, err
	}
	base, err := linear.Empty(mf.BaseKind)
	if err != nil {
		return nil, fmt.Errorf("nbsvm: %w", err)
	}
	if err := json.Unmarshal(mf.Base, base); err != nil {
		return nil, fmt.Errorf("nbsvm: parse base classifier: %w", err)
	}
	if err := p.nb.Restore(mf.NB.R, base, mf.NB.ResolvedDual); err != nil {
		return nil, fmt.Errorf("nbsvm: %w", err)
	}
	p.vec = mf.Vectorizer
	p.ID = mf.ID
	p.Created = mf.Created
	p.Labels = mf.Labels
	return p, nil
}
