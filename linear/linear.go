// Package linear provides the binary linear classifiers used as base models
// by the Naive-Bayes weighted classifier: a squared-hinge linear SVM and a
// logistic regression.
package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/nbsvm/estimator"
)

// Base model kinds.
const (
	KindSVC   = "svc"
	KindLogit = "logit"
)

// Options overrides solver settings that are not part of estimator.Params.
// Zero values keep each model's defaults.
type Options struct {
	MaxIter int
	Tol     float64
}

// NewFactory returns a factory building base models of the given kind.
func NewFactory(kind string, opts Options) (estimator.Factory, error) {
	switch kind {
	case KindSVC:
		return func(p estimator.Params) estimator.Classifier {
			m := NewSVC(p)
			if opts.MaxIter > 0 {
				m.MaxIter = opts.MaxIter
			}
			if opts.Tol > 0 {
				m.Tol = opts.Tol
			}
			return m
		}, nil
	case KindLogit:
		return func(p estimator.Params) estimator.Classifier {
			m := NewLogisticRegression(p)
			if opts.MaxIter > 0 {
				m.MaxIter = opts.MaxIter
			}
			if opts.Tol > 0 {
				m.Tol = opts.Tol
			}
			return m
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown base classifier %q (want %q or %q)",
			estimator.ErrConfiguration, kind, KindSVC, KindLogit)
	}
}

// Empty returns a zero model of the given kind, ready to be decoded from JSON.
func Empty(kind string) (estimator.Classifier, error) {
	switch kind {
	case KindSVC:
		return &SVC{}, nil
	case KindLogit:
		return &LogisticRegression{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown base classifier %q", estimator.ErrConfiguration, kind)
	}
}

// KindOf returns the kind name of a model built by this package, or "".
func KindOf(c estimator.Classifier) string {
	switch c.(type) {
	case *SVC:
		return KindSVC
	case *LogisticRegression:
		return KindLogit
	default:
		return ""
	}
}

// signs maps {0, 1} labels to {-1, +1}.
func signs(y []int) []float64 {
	s := make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			s[i] = 1
		} else {
			s[i] = -1
		}
	}
	return s
}

func decisionFunction(X mat.Matrix, coef []float64, intercept float64) []float64 {
	r, _ := X.Dims()
	w := mat.NewVecDense(len(coef), coef)
	z := mat.NewVecDense(r, nil)
	z.MulVec(X, w)
	out := make([]float64, r)
	for i := range out {
		out[i] = z.AtVec(i) + intercept
	}
	return out
}

func threshold(z []float64) []int {
	out := make([]int, len(z))
	for i, v := range z {
		if v > 0 {
			out[i] = 1
		}
	}
	return out
}

func score(c estimator.Classifier, X mat.Matrix, y []int) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(pred) != len(y) {
		return 0, fmt.Errorf("%w: %d labels for %d rows", estimator.ErrValidation, len(y), len(pred))
	}
	return estimator.Accuracy(y, pred), nil
}
