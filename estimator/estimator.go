// Package estimator defines the contracts shared by the feature extractors and
// classifiers in this module.
package estimator

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Classifier is the capability set of a trainable binary classifier.
// Labels are 0 or 1.
type Classifier interface {
	Fit(X mat.Matrix, y []int) error
	Predict(X mat.Matrix) ([]int, error)
	// Score returns the mean accuracy of Predict(X) against y.
	Score(X mat.Matrix, y []int) (float64, error)
}

// ProbaClassifier is a Classifier that also estimates class probabilities.
type ProbaClassifier interface {
	Classifier
	// PredictProba returns one row per sample and one column per class (0, 1).
	PredictProba(X mat.Matrix) (*mat.Dense, error)
}

// Params holds the resolved hyperparameters handed to a base classifier.
type Params struct {
	C       float64
	Dual    bool
	Verbose int
}

// Factory builds an unfitted base classifier from resolved hyperparameters.
type Factory func(p Params) Classifier

// Dual selects the optimisation formulation of a linear classifier.
// DualAuto defers the choice until the training data shape is known.
type Dual int

const (
	DualAuto Dual = iota
	DualTrue
	DualFalse
)

// ResolveDual returns the boolean formulation for a training matrix of the
// given shape. DualAuto picks the dual problem when there are no more samples
// than features.
func (d Dual) ResolveDual(rows, cols int) bool {
	switch d {
	case DualTrue:
		return true
	case DualFalse:
		return false
	default:
		return rows <= cols
	}
}

func (d Dual) String() string {
	switch d {
	case DualTrue:
		return "true"
	case DualFalse:
		return "false"
	default:
		return "auto"
	}
}

// ParseDual parses "auto" or any boolean accepted by strconv.ParseBool.
func ParseDual(s string) (Dual, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "auto" || s == "" {
		return DualAuto, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return DualAuto, fmt.Errorf("%w: dual must be auto, true or false, got %q", ErrConfiguration, s)
	}
	if b {
		return DualTrue, nil
	}
	return DualFalse, nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Dual) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Dual) UnmarshalText(text []byte) error {
	v, err := ParseDual(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
