package linear

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/nbsvm/estimator"
	"github.com/happyhackingspace/nbsvm/internal/vectorizer"
)

// LogisticRegression is an L2-regularised binary logistic regression trained
// with L-BFGS. It minimises
//
//	sum_i log(1 + exp(-y_i (w.x_i + b))) + 0.5/C ||w||^2
//
// with y_i in {-1, +1}. The intercept is not regularised.
type LogisticRegression struct {
	C         float64   `json:"c"`
	MaxIter   int       `json:"max_iter"`
	Tol       float64   `json:"tol"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	NIter     int       `json:"n_iter"`

	dual    bool
	verbose int
}

// NewLogisticRegression creates an unfitted model from resolved parameters.
func NewLogisticRegression(p estimator.Params) *LogisticRegression {
	c := p.C
	if c <= 0 {
		c = 1.0
	}
	return &LogisticRegression{
		C:       c,
		MaxIter: 100,
		Tol:     1e-5,
		dual:    p.Dual,
		verbose: p.Verbose,
	}
}

// Fit trains the model on X with labels y in {0, 1}.
func (m *LogisticRegression) Fit(X mat.Matrix, y []int) error {
	if err := estimator.CheckXY(X, y); err != nil {
		return err
	}
	if m.dual {
		slog.Debug("Dual formulation not available for logistic regression, using primal L-BFGS")
	}

	rows := vectorizer.SparseRows(X, 0)
	_, d := X.Dims()
	sign := signs(y)
	regCoeff := 1.0 / m.C

	f := func(params []float64) (float64, []float64) {
		w, b := params[:d], params[d]
		grad := make([]float64, d+1)
		loss := 0.0
		for i, x := range rows {
			z := sign[i] * (x.Dot(w) + b)
			loss += log1pExp(-z)
			g := -sign[i] * sigmoid(-z)
			x.AddTo(grad[:d], g)
			grad[d] += g
		}
		for j := range d {
			loss += 0.5 * regCoeff * w[j] * w[j]
			grad[j] += regCoeff * w[j]
		}
		return loss, grad
	}

	params := make([]float64, d+1)
	iters := minimize("logistic", f, params, m.MaxIter, m.Tol, m.verbose)
	if iters >= m.MaxIter {
		slog.Debug("Logistic regression reached max_iter", "max_iter", m.MaxIter)
	}

	m.Coef = params[:d]
	m.Intercept = params[d]
	m.NIter = iters
	return nil
}

func (m *LogisticRegression) decision(X mat.Matrix) ([]float64, error) {
	if m.Coef == nil {
		return nil, estimator.NotFitted("LogisticRegression", "Coef", "Intercept")
	}
	if err := estimator.CheckCols(X, len(m.Coef)); err != nil {
		return nil, err
	}
	return decisionFunction(X, m.Coef, m.Intercept), nil
}

// Predict returns 1 where the estimated probability of class 1 exceeds 0.5.
func (m *LogisticRegression) Predict(X mat.Matrix) ([]int, error) {
	z, err := m.decision(X)
	if err != nil {
		return nil, err
	}
	return threshold(z), nil
}

// PredictProba returns an n x 2 matrix of class probabilities.
func (m *LogisticRegression) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	z, err := m.decision(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(z), 2, nil)
	for i, v := range z {
		p := sigmoid(v)
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Score returns the mean accuracy on X against y.
func (m *LogisticRegression) Score(X mat.Matrix, y []int) (float64, error) {
	return score(m, X, y)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// log1pExp computes log(1 + exp(t)) without overflow.
func log1pExp(t float64) float64 {
	if t > 0 {
		return t + math.Log1p(math.Exp(-t))
	}
	return math.Log1p(math.Exp(t))
}
