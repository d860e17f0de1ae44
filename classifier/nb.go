// Package classifier implements the Naive-Bayes weighted linear classifier
// (NB-SVM / NB-Logit): features are rescaled by a per-feature log-count
// ratio before an injected linear classifier is trained on them.
package classifier

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/nbsvm/estimator"
)

// Config configures an NBClassifier.
type Config struct {
	// Factory builds the base linear classifier at fit time.
	Factory estimator.Factory
	// C is the base classifier's regularisation strength; zero means 1.0.
	C float64
	// Dual selects the base classifier formulation. DualAuto resolves it
	// from the training data shape.
	Dual    estimator.Dual
	Verbose int
}

// nbState is the fitted state, replaced as a whole by every successful Fit.
type nbState struct {
	r    []float64
	base estimator.Classifier
	dual bool
}

// NBClassifier is a binary classifier that reweights features by their
// Naive-Bayes log-count ratio and delegates to a base linear classifier.
//
// Fit must not run concurrently with any other method. A fitted classifier
// is safe for concurrent Predict, Score and PredictProba calls.
type NBClassifier struct {
	config Config
	state  *nbState
}

// New creates an unfitted NBClassifier.
func New(config Config) *NBClassifier {
	if config.C == 0 {
		config.C = 1.0
	}
	return &NBClassifier{config: config}
}

// LogCountRatio computes r[j] = log(p1[j] / p0[j]) where
// py[j] = (1 + sum of column j over rows labelled y) / (1 + rows labelled y).
// Labels must already be validated as binary.
func LogCountRatio(X mat.Matrix, y []int) []float64 {
	_, c := X.Dims()
	var sum [2][]float64
	sum[0] = make([]float64, c)
	sum[1] = make([]float64, c)
	var count [2]float64

	for i, label := range y {
		count[label]++
		row := sum[label]
		for j := range c {
			row[j] += X.At(i, j)
		}
	}

	r := make([]float64, c)
	for j := range c {
		p1 := (sum[1][j] + 1) / (count[1] + 1)
		p0 := (sum[0][j] + 1) / (count[0] + 1)
		r[j] = math.Log(p1 / p0)
	}
	return r
}

// ScaleColumns returns a copy of X with column j multiplied by r[j].
func ScaleColumns(X mat.Matrix, r []float64) *mat.Dense {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return v * r[j]
	}, X)
	return out
}

// Fit computes the log-count ratio from (X, y), scales X by it, and trains a
// new base classifier on the scaled features. Labels must be 0 or 1 with
// both classes present.
func (nb *NBClassifier) Fit(X mat.Matrix, y []int) error {
	if nb.config.Factory == nil {
		return fmt.Errorf("%w: no base classifier factory configured", estimator.ErrConfiguration)
	}
	if nb.config.C < 0 {
		return fmt.Errorf("%w: C must be positive, got %v", estimator.ErrConfiguration, nb.config.C)
	}
	if err := estimator.CheckXY(X, y); err != nil {
		return err
	}

	r := LogCountRatio(X, y)
	for j, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: log-count ratio of column %d is %v; a class sum of the column is not above -1",
				estimator.ErrValidation, j, v)
		}
	}
	xnb := ScaleColumns(X, r)

	rows, cols := xnb.Dims()
	dual := nb.config.Dual.ResolveDual(rows, cols)

	base := nb.config.Factory(estimator.Params{
		C:       nb.config.C,
		Dual:    dual,
		Verbose: nb.config.Verbose,
	})
	if err := base.Fit(xnb, y); err != nil {
		return fmt.Errorf("fit base classifier: %w", err)
	}

	nb.state = &nbState{r: r, base: base, dual: dual}
	return nil
}

func (nb *NBClassifier) scaled(X mat.Matrix) (*nbState, *mat.Dense, error) {
	st := nb.state
	if st == nil {
		return nil, nil, estimator.NotFitted("NBClassifier", "R")
	}
	if err := estimator.CheckCols(X, len(st.r)); err != nil {
		return nil, nil, err
	}
	return st, ScaleColumns(X, st.r), nil
}

// Predict returns the predicted label of each row of X.
func (nb *NBClassifier) Predict(X mat.Matrix) ([]int, error) {
	st, xnb, err := nb.scaled(X)
	if err != nil {
		return nil, err
	}
	return st.base.Predict(xnb)
}

// Score returns the mean accuracy of the predictions on X against y.
func (nb *NBClassifier) Score(X mat.Matrix, y []int) (float64, error) {
	st, xnb, err := nb.scaled(X)
	if err != nil {
		return 0, err
	}
	return st.base.Score(xnb, y)
}

// PredictProba returns class probabilities (columns 0 and 1) for each row
// of X. It fails with ErrCapability when the base classifier does not
// estimate probabilities.
func (nb *NBClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	st, xnb, err := nb.scaled(X)
	if err != nil {
		return nil, err
	}
	pc, ok := st.base.(estimator.ProbaClassifier)
	if !ok {
		return nil, fmt.Errorf("%w: base classifier %T does not support probability estimates",
			estimator.ErrCapability, st.base)
	}
	return pc.PredictProba(xnb)
}

// SupportsProba reports whether PredictProba can succeed once fitted.
func (nb *NBClassifier) SupportsProba() bool {
	if nb.state == nil {
		return false
	}
	_, ok := nb.state.base.(estimator.ProbaClassifier)
	return ok
}

// Fitted reports whether Fit has completed successfully.
func (nb *NBClassifier) Fitted() bool {
	return nb.state != nil
}

// R returns a copy of the log-count ratio vector, or nil before Fit.
func (nb *NBClassifier) R() []float64 {
	if nb.state == nil {
		return nil
	}
	r := make([]float64, len(nb.state.r))
	copy(r, nb.state.r)
	return r
}

// Base returns the trained base classifier, or nil before Fit.
func (nb *NBClassifier) Base() estimator.Classifier {
	if nb.state == nil {
		return nil
	}
	return nb.state.base
}

// ResolvedDual returns the formulation used by the last successful Fit.
func (nb *NBClassifier) ResolvedDual() (dual, ok bool) {
	if nb.state == nil {
		return false, false
	}
	return nb.state.dual, true
}

// Config returns the classifier configuration.
func (nb *NBClassifier) Config() Config {
	return nb.config
}

// Restore installs previously fitted state, e.g. after loading a model file.
func (nb *NBClassifier) Restore(r []float64, base estimator.Classifier, dual bool) error {
	if len(r) == 0 || base == nil {
		return fmt.Errorf("%w: restore needs a ratio vector and a base classifier", estimator.ErrValidation)
	}
	cp := make([]float64, len(r))
	copy(cp, r)
	nb.state = &nbState{r: cp, base: base, dual: dual}
	return nil
}

// TopFeatures returns up to k column indices with the largest positive
// ratios (most indicative of class 1) and up to k with the most negative
// ratios (most indicative of class 0), strongest first. A k of zero or less
// selects nothing.
func (nb *NBClassifier) TopFeatures(k int) (pos, neg []int, err error) {
	if nb.state == nil {
		return nil, nil, estimator.NotFitted("NBClassifier", "R")
	}
	if k <= 0 {
		return nil, nil, nil
	}
	r := nb.state.r
	idx := make([]int, len(r))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return r[idx[a]] > r[idx[b]] })

	for _, i := range idx {
		if len(pos) == k || r[i] <= 0 {
			break
		}
		pos = append(pos, i)
	}
	for j := len(idx) - 1; j >= 0; j-- {
		i := idx[j]
		if len(neg) == k || r[i] >= 0 {
			break
		}
		neg = append(neg, i)
	}
	return pos, neg, nil
}
