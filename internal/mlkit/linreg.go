package mlkit

import (
	"math"
	"math/rand"
)

// LinearModel is a fitted single-feature least-squares regressor.
type LinearModel struct {
	Intercept float64
	Slope     float64
}

// Predict returns the model's estimate for x.
func (m *LinearModel) Predict(x float64) float64 {
	return m.Intercept + m.Slope*x
}

// EvalStats summarizes holdout performance from a train/test split.
type EvalStats struct {
	TrainSize int
	TestSize  int
	MAE       float64
}

// FitLinear fits y = intercept + slope*x by ordinary least squares.
// It returns nil when fewer than two points are supplied; with zero variance
// in x it degrades to predicting the mean of y.
func FitLinear(xs, ys []float64) *LinearModel {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return nil
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		sxx += dx * dx
		sxy += dx * (ys[i] - meanY)
	}
	if sxx == 0 {
		return &LinearModel{Intercept: meanY}
	}

	slope := sxy / sxx
	return &LinearModel{Intercept: meanY - slope*meanX, Slope: slope}
}

// FitLinearSplit shuffles the sample with the given seed, fits on an 80%
// train split, and evaluates mean absolute error on the 20% holdout. With
// fewer than five points the holdout is empty and MAE is zero. Returns nil
// when the full sample has fewer than two points.
func FitLinearSplit(xs, ys []float64, seed int64) (*LinearModel, *EvalStats) {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return nil, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	testN := n / 5
	trainN := n - testN

	trainX := make([]float64, 0, trainN)
	trainY := make([]float64, 0, trainN)
	for _, i := range idx[:trainN] {
		trainX = append(trainX, xs[i])
		trainY = append(trainY, ys[i])
	}

	model := FitLinear(trainX, trainY)
	if model == nil {
		return nil, nil
	}

	stats := &EvalStats{TrainSize: trainN, TestSize: testN}
	if testN > 0 {
		var absErr float64
		for _, i := range idx[trainN:] {
			absErr += math.Abs(model.Predict(xs[i]) - ys[i])
		}
		stats.MAE = absErr / float64(testN)
	}
	return model, stats
}
