package truth

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aouyang1/go-forecast-eval/stats"
)

var (
	ErrNoObservations       = errors.New("no observations")
	ErrDatasetLenMismatch   = errors.New("dates have a different length than observations")
	ErrDuplicateObservation = errors.New("duplicate observation date")
)

// Series is the daily incident case series of a single location. Dates are strictly increasing.
type Series struct {
	T []time.Time
	Y []float64
}

// NewSeries returns a Series sorted by date. Repeated dates are rejected rather than combined.
func NewSeries(t []time.Time, y []float64) (*Series, error) {
	if len(y) == 0 {
		return nil, ErrNoObservations
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"dates have length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	idx := make([]int, len(t))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return t[idx[i]].Before(t[idx[j]])
	})

	s := &Series{
		T: make([]time.Time, len(t)),
		Y: make([]float64, len(t)),
	}
	for i, j := range idx {
		s.T[i] = t[j]
		s.Y[i] = y[j]
		if i > 0 && s.T[i].Equal(s.T[i-1]) {
			return nil, fmt.Errorf("%s, %w", s.T[i].Format(time.DateOnly), ErrDuplicateObservation)
		}
	}
	return s, nil
}

// Window returns the number of observations and their sum with start <= date <= end. Missing
// values do not contribute to the sum.
func (s *Series) Window(start, end time.Time) (int, float64) {
	lo := sort.Search(len(s.T), func(i int) bool {
		return !s.T[i].Before(start)
	})
	hi := sort.Search(len(s.T), func(i int) bool {
		return s.T[i].After(end)
	})
	if hi <= lo {
		return 0, 0
	}
	return hi - lo, stats.Sum(s.Y[lo:hi])
}

// StartTime is the first observation date
func (s *Series) StartTime() time.Time {
	return s.T[0]
}

// EndTime is the last observation date
func (s *Series) EndTime() time.Time {
	return s.T[len(s.T)-1]
}
