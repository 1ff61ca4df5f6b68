package score

import (
	"fmt"
	"math"
	"sort"

	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/stats"
	"github.com/aouyang1/go-forecast-eval/table"
)

// Calibration compares a model's national projection with the sum of its location projections
type Calibration struct {
	Model     string  `json:"model"`
	US        float64 `json:"us"`
	SumStates float64 `json:"sum_states"`

	// Diff is US - SumStates corrected by the territory cases, 0 for a perfectly calibrated model
	Diff float64 `json:"diff"`
}

// Matrix is a square model by model matrix
type Matrix struct {
	Models []string    `json:"models"`
	Values [][]float64 `json:"values"`
}

// Get returns the value of a pair of models or NaN if either is absent
func (m *Matrix) Get(a, b string) float64 {
	i, j := -1, -1
	for k, model := range m.Models {
		if model == a {
			i = k
		}
		if model == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

// CaseCorrelation is the correlation between a model's normalized error and the actual cases
// across locations
type CaseCorrelation struct {
	Model    string  `json:"model"`
	Error    float64 `json:"error"`
	AbsError float64 `json:"abs_error"`
}

// Diagnostics are read-only statistical views over the scored error table
type Diagnostics struct {
	// TerritoryCases are the national cases not accounted for by the evaluated locations
	TerritoryCases float64 `json:"territory_cases"`

	// Calibration is sorted by ascending absolute difference
	Calibration []Calibration `json:"calibration"`

	// RSquared is the squared correlation of errors between every pair of models
	RSquared *Matrix `json:"r_squared"`

	// NormalizedErrors divides every error by the mean absolute error of all models at that
	// location
	NormalizedErrors *table.ErrorTable `json:"-"`

	// CaseCorrelations is sorted by ascending signed correlation
	CaseCorrelations []CaseCorrelation `json:"case_correlations"`
}

// Diagnose computes the additional statistics of an evaluation. actual and predictions are keyed
// by location code and include the US. errs is the filtered and imputed error table of a Result.
func (s *Scorer) Diagnose(actual map[string]float64, predictions map[string]map[string]float64, errs *table.ErrorTable) (*Diagnostics, error) {
	d := &Diagnostics{}
	d.TerritoryCases, d.Calibration = s.calibration(actual, predictions)

	rsq, err := RSquaredMatrix(errs)
	if err != nil {
		return nil, fmt.Errorf("unable to compute error correlation, %w", err)
	}
	d.RSquared = rsq

	d.NormalizedErrors, err = NormalizeByLocation(errs)
	if err != nil {
		return nil, err
	}
	locs := errs.Locations()
	cases := make([]float64, len(locs))
	for i, loc := range locs {
		v, exists := actual[loc]
		if !exists {
			v = math.NaN()
		}
		cases[i] = v
	}
	for _, model := range d.NormalizedErrors.Models() {
		row, _ := d.NormalizedErrors.Row(model)
		signed, err := stats.Correlation(row, cases)
		if err != nil {
			return nil, fmt.Errorf("%s, unable to correlate errors with cases, %w", model, err)
		}
		for i, v := range row {
			row[i] = math.Abs(v)
		}
		abs, err := stats.Correlation(row, cases)
		if err != nil {
			return nil, fmt.Errorf("%s, unable to correlate absolute errors with cases, %w", model, err)
		}
		d.CaseCorrelations = append(d.CaseCorrelations, CaseCorrelation{Model: model, Error: signed, AbsError: abs})
	}
	sort.SliceStable(d.CaseCorrelations, func(i, j int) bool {
		return d.CaseCorrelations[i].Error < d.CaseCorrelations[j].Error
	})
	return d, nil
}

// calibration compares the national projection of every model covering more than the minimum
// number of locations against the sum of its other location projections. Location projections
// never include territories, so the observed territory cases are subtracted from the difference.
func (s *Scorer) calibration(actual map[string]float64, predictions map[string]map[string]float64) (float64, []Calibration) {
	usActual, sumActual := splitUS(actual)
	territory := usActual - sumActual

	minLocations := s.opt.MinLocations(s.mode)
	models := make([]string, 0, len(predictions))
	for model, pred := range predictions {
		if len(pred) > minLocations {
			models = append(models, model)
		}
	}
	sort.Strings(models)

	res := make([]Calibration, 0, len(models))
	for _, model := range models {
		us, sum := splitUS(predictions[model])
		res = append(res, Calibration{
			Model:     model,
			US:        us,
			SumStates: sum,
			Diff:      us - sum - territory,
		})
	}
	sort.SliceStable(res, func(i, j int) bool {
		di, dj := math.Abs(res[i].Diff), math.Abs(res[j].Diff)
		if math.IsNaN(dj) {
			return !math.IsNaN(di)
		}
		return di < dj
	})
	return territory, res
}

func splitUS(values map[string]float64) (float64, float64) {
	us := math.NaN()
	rest := make([]float64, 0, len(values))
	for loc, v := range values {
		if loc == location.US {
			us = v
			continue
		}
		rest = append(rest, v)
	}
	return us, stats.Sum(rest)
}

// RSquaredMatrix computes the squared Pearson correlation between the location errors of every
// pair of models
func RSquaredMatrix(e *table.ErrorTable) (*Matrix, error) {
	models := e.Models()
	m := &Matrix{
		Models: models,
		Values: make([][]float64, len(models)),
	}
	rows := make([][]float64, len(models))
	for i, model := range models {
		rows[i], _ = e.Row(model)
		m.Values[i] = make([]float64, len(models))
	}
	for i := range models {
		for j := i; j < len(models); j++ {
			rsq, err := stats.RSquared(rows[i], rows[j])
			if err != nil {
				return nil, err
			}
			m.Values[i][j] = rsq
			m.Values[j][i] = rsq
		}
	}
	return m, nil
}

// NormalizeByLocation divides every error by the mean absolute error of all models at the same
// location
func NormalizeByLocation(e *table.ErrorTable) (*table.ErrorTable, error) {
	locs := e.Locations()
	scale := make([]float64, len(locs))
	for i, loc := range locs {
		scale[i] = stats.MeanAbs(e.Column(loc))
	}

	res := e.Clone()
	for _, model := range res.Models() {
		row, _ := res.Row(model)
		for i := range row {
			row[i] /= scale[i]
		}
		if err := res.Set(model, row); err != nil {
			return nil, fmt.Errorf("unable to normalize %s, %w", model, err)
		}
	}
	return res, nil
}
