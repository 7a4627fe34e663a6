package mlkit

import (
	"errors"
	"math"
	"sort"
)

// ErrNoRows is returned when a detector is fit over an empty feature matrix.
var ErrNoRows = errors.New("mlkit: no rows to fit")

// OutlierDetector fits an unsupervised scoring model over feature rows.
// Implementations must be deterministic for identical input.
type OutlierDetector interface {
	Fit(rows [][]float64) (OutlierModel, error)
}

// OutlierModel assigns each feature row a continuous anomaly score. Rows
// scoring above Threshold are classified as outliers.
type OutlierModel interface {
	Score(row []float64) float64
	Threshold() float64
}

// RobustZDetector scores rows by their largest per-feature robust z-score
// (deviation from the column median, scaled by the median absolute
// deviation). Contamination sets the expected outlier fraction: the
// classification threshold is the matching upper quantile of the training
// scores, so roughly that share of the training rows classify as outliers.
//
// Missing values (NaN) are imputed with the column median before fitting,
// and again at scoring time.
type RobustZDetector struct {
	Contamination float64
}

// madScale converts a median absolute deviation into a standard-deviation
// equivalent under normality.
const madScale = 1.4826

const scaleEpsilon = 1e-9

type robustZModel struct {
	medians   []float64
	scales    []float64
	threshold float64
}

func (d RobustZDetector) Fit(rows [][]float64) (OutlierModel, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	nFeatures := len(rows[0])

	medians := make([]float64, nFeatures)
	scales := make([]float64, nFeatures)
	col := make([]float64, 0, len(rows))
	for j := 0; j < nFeatures; j++ {
		col = col[:0]
		for _, row := range rows {
			if !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		if len(col) == 0 {
			medians[j] = 0
			scales[j] = scaleEpsilon
			continue
		}
		medians[j] = median(col)

		for i, v := range col {
			col[i] = math.Abs(v - medians[j])
		}
		scales[j] = madScale*median(col) + scaleEpsilon
	}

	m := &robustZModel{medians: medians, scales: scales}

	scores := make([]float64, len(rows))
	for i, row := range rows {
		scores[i] = m.Score(row)
	}
	m.threshold = quantile(scores, 1-d.Contamination)

	return m, nil
}

func (m *robustZModel) Score(row []float64) float64 {
	var max float64
	for j, v := range row {
		if j >= len(m.medians) {
			break
		}
		if math.IsNaN(v) {
			v = m.medians[j]
		}
		z := math.Abs(v-m.medians[j]) / m.scales[j]
		if z > max {
			max = z
		}
	}
	return max
}

func (m *robustZModel) Threshold() float64 {
	return m.threshold
}

// median destroys the order of vs.
func median(vs []float64) float64 {
	sort.Float64s(vs)
	n := len(vs)
	if n%2 == 1 {
		return vs[n/2]
	}
	return (vs[n/2-1] + vs[n/2]) / 2
}

// quantile returns the q-th empirical quantile of vs (q in [0,1]), using the
// smallest value v such that at least q of the sample is <= v.
func quantile(vs []float64, q float64) float64 {
	sorted := make([]float64, len(vs))
	copy(sorted, vs)
	sort.Float64s(sorted)

	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
