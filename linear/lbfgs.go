package linear

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
)

// objective returns the loss and its gradient at w.
type objective func(w []float64) (float64, []float64)

// lbfgs keeps the last m curvature pairs of a limited-memory BFGS run.
type lbfgs struct {
	m    int
	s    [][]float64
	y    [][]float64
	rho  []float64
	k    int
	size int
}

func newLBFGS(m int) *lbfgs {
	return &lbfgs{
		m:   m,
		s:   make([][]float64, m),
		y:   make([][]float64, m),
		rho: make([]float64, m),
	}
}

func (l *lbfgs) update(s, y []float64) {
	sy := floats.Dot(s, y)
	if sy <= 0 {
		return
	}
	idx := l.k % l.m
	l.s[idx] = append(l.s[idx][:0], s...)
	l.y[idx] = append(l.y[idx][:0], y...)
	l.rho[idx] = 1.0 / sy
	l.k++
	if l.size < l.m {
		l.size++
	}
}

// slot maps the i-th stored pair (0 = oldest) to its ring buffer index.
func (l *lbfgs) slot(i int) int {
	return (l.k - l.size + i) % l.m
}

// direction runs the two-loop recursion and returns the descent direction.
func (l *lbfgs) direction(grad []float64) []float64 {
	q := make([]float64, len(grad))
	copy(q, grad)

	if l.size == 0 {
		floats.Scale(-1, q)
		return q
	}

	alpha := make([]float64, l.size)
	for i := l.size - 1; i >= 0; i-- {
		idx := l.slot(i)
		alpha[i] = l.rho[idx] * floats.Dot(l.s[idx], q)
		floats.AddScaled(q, -alpha[i], l.y[idx])
	}

	latest := l.slot(l.size - 1)
	if yy := floats.Dot(l.y[latest], l.y[latest]); yy > 0 {
		floats.Scale(floats.Dot(l.s[latest], l.y[latest])/yy, q)
	}

	for i := range l.size {
		idx := l.slot(i)
		beta := l.rho[idx] * floats.Dot(l.y[idx], q)
		floats.AddScaled(q, alpha[i]-beta, l.s[idx])
	}

	floats.Scale(-1, q)
	return q
}

// lineSearch backtracks from a unit step until the Armijo condition holds.
func lineSearch(f objective, w, dir, grad []float64, loss float64) (float64, float64, []float64, bool) {
	const c1 = 1e-4
	slope := floats.Dot(grad, dir)
	step := 1.0
	wNew := make([]float64, len(w))
	for range 30 {
		copy(wNew, w)
		floats.AddScaled(wNew, step, dir)
		newLoss, newGrad := f(wNew)
		if newLoss <= loss+c1*step*slope {
			return step, newLoss, newGrad, true
		}
		step *= 0.5
	}
	return 0, loss, grad, false
}

// minimize runs L-BFGS on f starting from w, updating w in place.
// It stops when the largest gradient component drops below tol, when the
// line search fails, or after maxIter iterations. It returns the number of
// iterations run.
func minimize(name string, f objective, w []float64, maxIter int, tol float64, verbose int) int {
	opt := newLBFGS(10)
	loss, grad := f(w)

	iter := 0
	for ; iter < maxIter; iter++ {
		if maxAbs(grad) < tol {
			break
		}
		dir := opt.direction(grad)
		if floats.Dot(dir, grad) >= 0 {
			dir = make([]float64, len(grad))
			floats.ScaleTo(dir, -1, grad)
		}

		step, newLoss, newGrad, ok := lineSearch(f, w, dir, grad, loss)
		if !ok {
			slog.Debug("Line search failed", "solver", name, "iter", iter, "loss", loss)
			break
		}

		s := make([]float64, len(w))
		floats.ScaleTo(s, step, dir)
		floats.Add(w, s)
		y := make([]float64, len(w))
		floats.SubTo(y, newGrad, grad)
		opt.update(s, y)

		loss, grad = newLoss, newGrad
		if verbose > 0 {
			slog.Debug("L-BFGS iteration", "solver", name, "iter", iter, "loss", loss)
		}
	}
	return iter
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}
