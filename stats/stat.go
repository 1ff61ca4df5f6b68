package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrResLenMismatch = errors.New("series have different lengths")
	ErrEmptySeries    = errors.New("no non-missing values in series")
	ErrPercentile     = errors.New("percentile must be within [0, 1]")
)

// DescribePercentiles are the quantiles reported alongside the mean and median of a summary
var DescribePercentiles = []float64{0.25, 0.5, 0.75}

// Summary holds descriptive statistics of a series after dropping missing values.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// DropNaN returns a copy of x without NaN values
func DropNaN(x []float64) []float64 {
	res := make([]float64, 0, len(x))
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		res = append(res, v)
	}
	return res
}

// CountValid returns the number of non-NaN values
func CountValid(x []float64) int {
	var cnt int
	for _, v := range x {
		if !math.IsNaN(v) {
			cnt++
		}
	}
	return cnt
}

// Mean computes the mean skipping NaN values. Returns NaN if every value is missing.
func Mean(x []float64) float64 {
	valid := DropNaN(x)
	if len(valid) == 0 {
		return math.NaN()
	}
	return stat.Mean(valid, nil)
}

// MeanAbs computes the mean of absolute values skipping NaN values
func MeanAbs(x []float64) float64 {
	valid := DropNaN(x)
	if len(valid) == 0 {
		return math.NaN()
	}
	for i, v := range valid {
		valid[i] = math.Abs(v)
	}
	return stat.Mean(valid, nil)
}

// Sum adds all non-NaN values. An all missing series sums to 0.
func Sum(x []float64) float64 {
	return floats.Sum(DropNaN(x))
}

// Percentile computes the p-th percentile of an ascending sorted slice by linearly interpolating
// between the two closest ranks, i.e. position p*(n-1).
func Percentile(sorted []float64, p float64) (float64, error) {
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("got %.3f, %w", p, ErrPercentile)
	}
	n := len(sorted)
	if n == 0 {
		return 0, ErrEmptySeries
	}
	pos := p * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower], nil
	}
	frac := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac, nil
}

// Describe summarizes the non-missing values of x. The standard deviation is the sample standard
// deviation and is NaN with fewer than two values.
func Describe(x []float64) (Summary, error) {
	valid := DropNaN(x)
	if len(valid) == 0 {
		return Summary{}, ErrEmptySeries
	}
	sort.Float64s(valid)

	s := Summary{
		Count: len(valid),
		Mean:  stat.Mean(valid, nil),
		Std:   math.NaN(),
		Min:   valid[0],
		Max:   valid[len(valid)-1],
	}
	if len(valid) > 1 {
		s.Std = stat.StdDev(valid, nil)
	}

	qs := make([]float64, len(DescribePercentiles))
	for i, p := range DescribePercentiles {
		q, err := Percentile(valid, p)
		if err != nil {
			return Summary{}, err
		}
		qs[i] = q
	}
	s.P25, s.Median, s.P75 = qs[0], qs[1], qs[2]
	return s, nil
}

// Rank assigns 1-based ranks to the values of x in ascending order. Tied values receive the
// average of the ranks they span and NaN values keep a NaN rank.
func Rank(x []float64) []float64 {
	idx := make([]int, 0, len(x))
	for i, v := range x {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return x[idx[i]] < x[idx[j]]
	})

	ranks := make([]float64, len(x))
	for i := range ranks {
		ranks[i] = math.NaN()
	}
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && x[idx[end]] == x[idx[start]] {
			end++
		}
		// ranks start+1..end share their average
		avg := float64(start+1+end) / 2.0
		for k := start; k < end; k++ {
			ranks[idx[k]] = avg
		}
		start = end
	}
	return ranks
}

// Correlation computes the Pearson correlation between x and y over the positions where both are
// present.
func Correlation(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(x), len(y), ErrResLenMismatch)
	}
	xCopy := make([]float64, 0, len(x))
	yCopy := make([]float64, 0, len(y))
	for i := 0; i < len(x); i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xCopy = append(xCopy, x[i])
		yCopy = append(yCopy, y[i])
	}
	if len(xCopy) < 2 {
		return math.NaN(), nil
	}
	return stat.Correlation(xCopy, yCopy, nil), nil
}

// RSquared is the squared Pearson correlation between x and y
func RSquared(x, y []float64) (float64, error) {
	r, err := Correlation(x, y)
	if err != nil {
		return 0, err
	}
	return r * r, nil
}
