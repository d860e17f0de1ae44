package classifier

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/nbsvm/estimator"
	"github.com/happyhackingspace/nbsvm/internal/vectorizer"
	"github.com/happyhackingspace/nbsvm/linear"
)

// recorder is a base classifier that remembers what it was built and
// trained with and predicts 1 for rows whose first scaled feature is positive.
type recorder struct {
	params estimator.Params
	fitX   *mat.Dense
	fitErr error
}

func (r *recorder) Fit(X mat.Matrix, y []int) error {
	if r.fitErr != nil {
		return r.fitErr
	}
	r.fitX = mat.DenseCopyOf(X)
	return nil
}

func (r *recorder) Predict(X mat.Matrix) ([]int, error) {
	n, _ := X.Dims()
	out := make([]int, n)
	for i := range n {
		if X.At(i, 0) > 0 {
			out[i] = 1
		}
	}
	return out, nil
}

func (r *recorder) Score(X mat.Matrix, y []int) (float64, error) {
	pred, _ := r.Predict(X)
	return estimator.Accuracy(y, pred), nil
}

func recordingFactory(built *[]*recorder) estimator.Factory {
	return func(p estimator.Params) estimator.Classifier {
		r := &recorder{params: p}
		*built = append(*built, r)
		return r
	}
}

func TestLogCountRatioFormula(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		2, 1,
		0, 3,
		1, 1,
	})
	y := []int{1, 1, 0, 0}
	r := LogCountRatio(X, y)

	// class 1: sums [3, 1] over 2 rows; class 0: sums [1, 4] over 2 rows
	want0 := math.Log((3.0+1)/3) - math.Log((1.0+1)/3)
	want1 := math.Log((1.0+1)/3) - math.Log((4.0+1)/3)
	assert.InDelta(t, want0, r[0], 1e-12)
	assert.InDelta(t, want1, r[1], 1e-12)
}

func TestLogCountRatioUniformForScaledRows(t *testing.T) {
	neg := []float64{
		1, 2, 3,
		3, 2, 1,
	}
	const k = 2.0
	data := append([]float64{}, neg...)
	for _, v := range neg {
		data = append(data, k*v)
	}
	X := mat.NewDense(4, 3, data)
	r := LogCountRatio(X, []int{0, 0, 1, 1})

	want := math.Log((k*4 + 1) / (4 + 1))
	for j, v := range r {
		assert.InDelta(t, want, v, 1e-12, "r[%d]", j)
	}
}

func TestFitScalesAndDelegates(t *testing.T) {
	var built []*recorder
	nb := New(Config{Factory: recordingFactory(&built), C: 4, Verbose: 2})

	X := mat.NewDense(3, 2, []float64{2, 0, 0, 1, 1, 1})
	y := []int{1, 0, 1}
	require.NoError(t, nb.Fit(X, y))
	require.Len(t, built, 1)

	assert.Equal(t, 4.0, built[0].params.C)
	assert.Equal(t, 2, built[0].params.Verbose)

	r := nb.R()
	require.Len(t, r, 2)
	want := ScaleColumns(X, r)
	assert.True(t, mat.EqualApprox(want, built[0].fitX, 1e-12))
	for i := range 3 {
		for j := range 2 {
			assert.InDelta(t, X.At(i, j)*r[j], built[0].fitX.At(i, j), 1e-12)
		}
	}
	// inputs are left untouched
	assert.Equal(t, 2.0, X.At(0, 0))
}

func TestDualAutoResolution(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		want       bool
	}{
		{"fewer rows than columns", 2, 5, true},
		{"square", 4, 4, true},
		{"more rows than columns", 6, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var built []*recorder
			nb := New(Config{Factory: recordingFactory(&built), Dual: estimator.DualAuto})

			data := make([]float64, tt.rows*tt.cols)
			for i := range data {
				data[i] = float64(i%3 + 1)
			}
			y := make([]int, tt.rows)
			for i := range y {
				y[i] = i % 2
			}
			require.NoError(t, nb.Fit(mat.NewDense(tt.rows, tt.cols, data), y))

			assert.Equal(t, tt.want, built[0].params.Dual)
			dual, ok := nb.ResolvedDual()
			assert.True(t, ok)
			assert.Equal(t, tt.want, dual)
			assert.Equal(t, estimator.DualAuto, nb.Config().Dual)
		})
	}
}

func TestExplicitDualIsPassedThrough(t *testing.T) {
	var built []*recorder
	nb := New(Config{Factory: recordingFactory(&built), Dual: estimator.DualFalse})
	require.NoError(t, nb.Fit(mat.NewDense(2, 4, []float64{1, 2, 3, 4, 4, 3, 2, 1}), []int{0, 1}))
	assert.False(t, built[0].params.Dual)
}

func TestNotFitted(t *testing.T) {
	nb := New(Config{Factory: recordingFactory(new([]*recorder))})
	X := mat.NewDense(1, 2, []float64{1, 2})

	_, err := nb.Predict(X)
	assert.ErrorIs(t, err, estimator.ErrNotFitted)
	assert.Contains(t, err.Error(), "R")
	_, err = nb.Score(X, []int{1})
	assert.ErrorIs(t, err, estimator.ErrNotFitted)
	_, err = nb.PredictProba(X)
	assert.ErrorIs(t, err, estimator.ErrNotFitted)
	_, _, err = nb.TopFeatures(3)
	assert.ErrorIs(t, err, estimator.ErrNotFitted)
	assert.Nil(t, nb.R())
}

func TestFitValidation(t *testing.T) {
	nb := New(Config{Factory: recordingFactory(new([]*recorder))})
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	assert.ErrorIs(t, nb.Fit(X, []int{1}), estimator.ErrValidation)
	assert.ErrorIs(t, nb.Fit(X, []int{1, 3}), estimator.ErrValidation)
	assert.ErrorIs(t, nb.Fit(X, []int{1, 1}), estimator.ErrValidation)
	assert.False(t, nb.Fitted())

	assert.ErrorIs(t, New(Config{}).Fit(X, []int{0, 1}), estimator.ErrConfiguration)
}

func TestFailedFitKeepsState(t *testing.T) {
	var built []*recorder
	nb := New(Config{Factory: recordingFactory(&built)})
	X := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	require.NoError(t, nb.Fit(X, []int{1, 0}))
	before := nb.R()

	boom := errors.New("solver diverged")
	nb.config.Factory = func(p estimator.Params) estimator.Classifier {
		return &recorder{params: p, fitErr: boom}
	}
	err := nb.Fit(mat.NewDense(2, 2, []float64{5, 5, 0, 0}), []int{0, 1})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, nb.R())
}

func TestPredictProbaCapability(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{3, 0, 2, 0, 0, 3, 0, 2})
	y := []int{1, 1, 0, 0}

	svmFactory, err := linear.NewFactory(linear.KindSVC, linear.Options{})
	require.NoError(t, err)
	svm := New(Config{Factory: svmFactory})
	require.NoError(t, svm.Fit(X, y))
	assert.False(t, svm.SupportsProba())
	_, err = svm.PredictProba(X)
	assert.ErrorIs(t, err, estimator.ErrCapability)

	logitFactory, err := linear.NewFactory(linear.KindLogit, linear.Options{})
	require.NoError(t, err)
	logit := New(Config{Factory: logitFactory, C: 10})
	require.NoError(t, logit.Fit(X, y))
	assert.True(t, logit.SupportsProba())
	proba, err := logit.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
}

func TestScoreMatchesPredictions(t *testing.T) {
	X := mat.NewDense(6, 3, []float64{
		3, 0, 1,
		2, 1, 0,
		4, 0, 0,
		0, 3, 1,
		1, 2, 0,
		0, 4, 1,
	})
	y := []int{1, 1, 1, 0, 0, 0}

	for _, kind := range []string{linear.KindSVC, linear.KindLogit} {
		t.Run(kind, func(t *testing.T) {
			f, err := linear.NewFactory(kind, linear.Options{})
			require.NoError(t, err)
			nb := New(Config{Factory: f, Dual: estimator.DualAuto})
			require.NoError(t, nb.Fit(X, y))

			acc, err := nb.Score(X, y)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, acc, 0.0)
			assert.LessOrEqual(t, acc, 1.0)

			pred, err := nb.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, estimator.Accuracy(y, pred), acc)
		})
	}
}

func TestPredictColumnMismatch(t *testing.T) {
	nb := New(Config{Factory: recordingFactory(new([]*recorder))})
	require.NoError(t, nb.Fit(mat.NewDense(2, 2, []float64{1, 0, 0, 1}), []int{1, 0}))
	_, err := nb.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, estimator.ErrValidation)
}

func TestTopFeaturesAndRestore(t *testing.T) {
	nb := New(Config{})
	require.NoError(t, nb.Restore([]float64{0.5, -2, 1.5, 0, -0.1}, &recorder{}, true))

	pos, neg, err := nb.TopFeatures(2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, pos)
	assert.Equal(t, []int{1, 4}, neg)

	dual, ok := nb.ResolvedDual()
	assert.True(t, ok)
	assert.True(t, dual)

	assert.ErrorIs(t, nb.Restore(nil, &recorder{}, false), estimator.ErrValidation)
}

func TestFitRejectsNonFiniteRatio(t *testing.T) {
	// dog occurs in every document, so its idf is negative and the smoothed
	// class-1 sum 1 + 3*log(2/3) drops below zero.
	tv := vectorizer.NewTfidfVectorizer(2)
	X, err := tv.FitTransform([][]string{{"dog", "dog", "dog", "cat"}, {"dog", "fish"}})
	require.NoError(t, err)
	require.Less(t, X.At(0, 0), -1.0)

	nb := New(Config{Factory: recordingFactory(new([]*recorder))})
	err = nb.Fit(X, []int{1, 0})
	assert.ErrorIs(t, err, estimator.ErrValidation)
	assert.Contains(t, err.Error(), "column 0")
	assert.False(t, nb.Fitted())
}

func TestPredictEmptyTransform(t *testing.T) {
	tv := vectorizer.NewTfidfVectorizer(2)
	X, err := tv.FitTransform([][]string{{"free", "money"}, {"lunch", "meeting"}})
	require.NoError(t, err)
	nb := New(Config{Factory: recordingFactory(new([]*recorder))})
	require.NoError(t, nb.Fit(X, []int{1, 0}))

	empty, err := tv.Transform(nil)
	require.NoError(t, err)
	_, err = nb.Predict(empty)
	assert.ErrorIs(t, err, estimator.ErrValidation)
	_, err = nb.PredictProba(empty)
	assert.ErrorIs(t, err, estimator.ErrValidation)
}

func TestTopFeaturesNonPositiveK(t *testing.T) {
	nb := New(Config{})
	require.NoError(t, nb.Restore([]float64{0.5, -2, 1.5}, &recorder{}, false))
	for _, k := range []int{0, -1} {
		pos, neg, err := nb.TopFeatures(k)
		require.NoError(t, err)
		assert.Empty(t, pos)
		assert.Empty(t, neg)
	}
}
