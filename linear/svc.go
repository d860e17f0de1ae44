package linear

import (
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/nbsvm/estimator"
	"github.com/happyhackingspace/nbsvm/internal/vectorizer"
)

// SVC is an L2-regularised linear support vector classifier with squared
// hinge loss:
//
//	0.5 ||w||^2 + C sum_i max(0, 1 - y_i w.x_i)^2
//
// The intercept is learned as the weight of a constant bias feature and is
// regularised together with w. Dual selects coordinate descent on the dual
// problem; otherwise the primal is minimised with L-BFGS.
// SVC does not estimate probabilities.
type SVC struct {
	C         float64   `json:"c"`
	Dual      bool      `json:"dual"`
	MaxIter   int       `json:"max_iter"`
	Tol       float64   `json:"tol"`
	Bias      float64   `json:"bias"`
	Seed      int64     `json:"seed"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	NIter     int       `json:"n_iter"`

	verbose int
}

// NewSVC creates an unfitted SVC from resolved parameters.
func NewSVC(p estimator.Params) *SVC {
	c := p.C
	if c <= 0 {
		c = 1.0
	}
	return &SVC{
		C:       c,
		Dual:    p.Dual,
		MaxIter: 1000,
		Tol:     1e-4,
		Bias:    1.0,
		verbose: p.Verbose,
	}
}

// Fit trains the model on X with labels y in {0, 1}.
func (m *SVC) Fit(X mat.Matrix, y []int) error {
	if err := estimator.CheckXY(X, y); err != nil {
		return err
	}
	rows := vectorizer.SparseRows(X, m.Bias)
	_, d := X.Dims()
	sign := signs(y)

	var w []float64
	if m.Dual {
		w, m.NIter = m.solveDual(rows, sign, d+1)
	} else {
		w, m.NIter = m.solvePrimal(rows, sign, d+1)
	}
	if m.NIter >= m.MaxIter {
		slog.Debug("SVC reached max_iter, consider increasing it", "max_iter", m.MaxIter, "dual", m.Dual)
	}

	m.Coef = w[:d]
	m.Intercept = w[d] * m.Bias
	return nil
}

// solveDual runs dual coordinate descent for the squared hinge loss. The
// dual box is unbounded above and each diagonal entry is shifted by 1/(2C).
func (m *SVC) solveDual(rows []vectorizer.SparseVector, sign []float64, dim int) ([]float64, int) {
	n := len(rows)
	w := make([]float64, dim)
	alpha := make([]float64, n)
	diag := 0.5 / m.C

	qd := make([]float64, n)
	for i, x := range rows {
		qd[i] = x.SqNorm() + diag
	}

	rng := rand.New(rand.NewSource(m.Seed))
	perm := rng.Perm(n)

	iter := 0
	for ; iter < m.MaxIter; iter++ {
		rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

		pgMax, pgMin := math.Inf(-1), math.Inf(1)
		for _, i := range perm {
			x := rows[i]
			g := sign[i]*x.Dot(w) - 1 + diag*alpha[i]

			pg := g
			if alpha[i] == 0 && g > 0 {
				pg = 0
			}
			pgMax = math.Max(pgMax, pg)
			pgMin = math.Min(pgMin, pg)

			if math.Abs(pg) > 1e-12 {
				old := alpha[i]
				alpha[i] = math.Max(alpha[i]-g/qd[i], 0)
				x.AddTo(w, (alpha[i]-old)*sign[i])
			}
		}

		if m.verbose > 0 {
			slog.Debug("Dual CD pass", "solver", "svc", "iter", iter, "pg_gap", pgMax-pgMin)
		}
		if pgMax-pgMin <= m.Tol {
			iter++
			break
		}
	}
	return w, iter
}

func (m *SVC) solvePrimal(rows []vectorizer.SparseVector, sign []float64, dim int) ([]float64, int) {
	f := func(w []float64) (float64, []float64) {
		grad := make([]float64, dim)
		loss := 0.0
		for j, v := range w {
			loss += 0.5 * v * v
			grad[j] = v
		}
		for i, x := range rows {
			margin := 1 - sign[i]*x.Dot(w)
			if margin > 0 {
				loss += m.C * margin * margin
				x.AddTo(grad, -2*m.C*margin*sign[i])
			}
		}
		return loss, grad
	}
	w := make([]float64, dim)
	iters := minimize("svc", f, w, m.MaxIter, m.Tol, m.verbose)
	return w, iters
}

// DecisionFunction returns the signed distance of each row to the hyperplane.
func (m *SVC) DecisionFunction(X mat.Matrix) ([]float64, error) {
	if m.Coef == nil {
		return nil, estimator.NotFitted("SVC", "Coef", "Intercept")
	}
	if err := estimator.CheckCols(X, len(m.Coef)); err != nil {
		return nil, err
	}
	return decisionFunction(X, m.Coef, m.Intercept), nil
}

// Predict returns 1 for rows with a positive decision value, else 0.
func (m *SVC) Predict(X mat.Matrix) ([]int, error) {
	z, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return threshold(z), nil
}

// Score returns the mean accuracy on X against y.
func (m *SVC) Score(X mat.Matrix, y []int) (float64, error) {
	return score(m, X, y)
}
