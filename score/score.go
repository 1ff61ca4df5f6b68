// Package score computes the per location and national error statistics of the evaluated models:
// coverage filtering, missing value imputation, squared and absolute error summaries, mean ranks
// and beat-baseline comparisons.
package score

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/stats"
	"github.com/aouyang1/go-forecast-eval/table"
	"gonum.org/v1/gonum/floats/scalar"
)

var (
	ErrNationalMismatch   = errors.New("national error does not match US location error")
	ErrNaNAfterImputation = errors.New("NaN still in errors after imputation")
	ErrMissingBaseline    = errors.New("baseline model missing from error table")
)

// Beat is the outcome of comparing a model's absolute error against the baseline at a location
type Beat int8

const (
	BeatUnknown Beat = iota
	BeatFalse
	BeatTrue
)

func (b Beat) String() string {
	switch b {
	case BeatTrue:
		return "True"
	case BeatFalse:
		return "False"
	default:
		return ""
	}
}

// ModelSummary is the descriptive statistics of one model's errors across locations
type ModelSummary struct {
	Model string `json:"model"`
	stats.Summary
}

// MeanRank is a model's average rank across locations where 1 is the most accurate
type MeanRank struct {
	Model    string  `json:"model"`
	MeanRank float64 `json:"mean_rank"`
}

// Result holds every statistic of a scored evaluation
type Result struct {
	Mode location.Mode `json:"mode"`

	// National is sorted by ascending absolute error
	National []table.NationalEntry `json:"national"`

	// ValidCounts is the number of non-missing locations per model before imputation
	ValidCounts map[string]int `json:"valid_counts"`

	// Errors is the filtered and imputed location error table without the US column
	Errors *table.ErrorTable `json:"-"`

	SquaredErrors []ModelSummary `json:"squared_errors"`
	AbsErrors     []ModelSummary `json:"abs_errors"`
	MeanRanks     []MeanRank     `json:"mean_ranks"`

	// BeatBaseline is aligned with the locations of the unmerged error table
	BeatBaseline map[string][]Beat `json:"-"`
}

// Scorer scores the error tables of one evaluation mode
type Scorer struct {
	opt  *Options
	mode location.Mode
}

// New creates a scorer for the evaluation mode
func New(mode location.Mode, opt *Options) *Scorer {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	return &Scorer{opt: opt, mode: mode}
}

// Score runs the full scoring procedure. raw is the unmerged error table used for baseline
// comparisons, merged feeds every aggregate statistic and must agree with the national table.
func (s *Scorer) Score(raw, merged *table.ErrorTable, national *table.NationalTable) (*Result, error) {
	if err := CheckNational(merged, national); err != nil {
		return nil, err
	}

	filtered, counts := s.FilterLocations(merged)
	if filtered.Len() == 0 {
		slog.Warn("no models with enough locations to summarize", "mode", s.mode, "min_locations", s.opt.MinLocations(s.mode))
	}
	for _, model := range filtered.Models() {
		slog.Info("valid projections", "mode", s.mode, "model", model, "locations", counts[model])
	}

	imputed, err := Impute(filtered)
	if err != nil {
		return nil, err
	}

	sq, err := Summarize(imputed.Map(square), counts)
	if err != nil {
		return nil, fmt.Errorf("unable to summarize squared errors, %w", err)
	}
	abs, err := Summarize(imputed.Map(math.Abs), counts)
	if err != nil {
		return nil, fmt.Errorf("unable to summarize absolute errors, %w", err)
	}

	beat, err := s.BeatBaseline(raw)
	if err != nil {
		return nil, err
	}

	return &Result{
		Mode:          s.mode,
		National:      national.SortedByAbsError(),
		ValidCounts:   counts,
		Errors:        imputed,
		SquaredErrors: sq,
		AbsErrors:     abs,
		MeanRanks:     s.MeanRanks(imputed),
		BeatBaseline:  beat,
	}, nil
}

func square(v float64) float64 {
	return v * v
}

// CheckNational verifies that every national error equals the model's US location error. Both
// missing is consistent.
func CheckNational(e *table.ErrorTable, national *table.NationalTable) error {
	for _, entry := range national.Entries() {
		nationalErr := entry.Error()
		locErr := e.Get(entry.Model, location.US)
		if math.IsNaN(nationalErr) && math.IsNaN(locErr) {
			continue
		}
		if math.IsNaN(nationalErr) || math.IsNaN(locErr) ||
			!scalar.EqualWithinAbsOrRel(nationalErr, locErr, 1e-9, 1e-12) {
			return fmt.Errorf("%s national %.3f, location %.3f, %w", entry.Model, nationalErr, locErr, ErrNationalMismatch)
		}
	}
	return nil
}

// FilterLocations drops the US column and keeps the models with more non-missing locations than
// the mode's minimum. Returns the filtered table and the non-missing count of every kept model.
func (s *Scorer) FilterLocations(e *table.ErrorTable) (*table.ErrorTable, map[string]int) {
	minLocations := s.opt.MinLocations(s.mode)
	states := e.DropLocation(location.US)

	counts := make(map[string]int)
	filtered := states.Filter(func(model string, row []float64) bool {
		cnt := stats.CountValid(row)
		if cnt <= minLocations {
			slog.Info("excluding sparse model from summaries", "model", model, "locations", cnt, "min_locations", minLocations)
			return false
		}
		counts[model] = cnt
		return true
	})
	return filtered, counts
}

// Impute fills every missing value with the mean absolute error of the same model across its
// non-missing locations. Imputing an already complete table leaves it unchanged.
func Impute(e *table.ErrorTable) (*table.ErrorTable, error) {
	res := e.Clone()
	for _, model := range res.Models() {
		row, _ := res.Row(model)
		fill := stats.MeanAbs(row)
		var filled int
		for i, v := range row {
			if math.IsNaN(v) {
				row[i] = fill
				filled++
			}
		}
		if filled == 0 {
			continue
		}
		slog.Debug("imputed missing locations", "model", model, "locations", filled, "value", fill)
		if err := res.Set(model, row); err != nil {
			return nil, err
		}
	}
	if missing := res.CountMissing(); missing > 0 {
		return nil, fmt.Errorf("%d missing values, %w", missing, ErrNaNAfterImputation)
	}
	return res, nil
}

// Summarize describes every model row and sorts the summaries by ascending mean. The count is
// replaced by the model's pre-imputation count when one is given.
func Summarize(e *table.ErrorTable, counts map[string]int) ([]ModelSummary, error) {
	res := make([]ModelSummary, 0, e.Len())
	for _, model := range e.Models() {
		row, _ := e.Row(model)
		summary, err := stats.Describe(row)
		if err != nil {
			return nil, fmt.Errorf("%s, %w", model, err)
		}
		if cnt, exists := counts[model]; exists {
			summary.Count = cnt
		}
		res = append(res, ModelSummary{Model: model, Summary: summary})
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Mean < res[j].Mean
	})
	return res, nil
}

// MeanRanks ranks the models by absolute error at every location, ties sharing their average
// rank, and averages each model's ranks across locations. Models starting with the rank exclusion
// prefix are not ranked. The result is sorted by ascending mean rank.
func (s *Scorer) MeanRanks(e *table.ErrorTable) []MeanRank {
	ranked := e.Filter(func(model string, _ []float64) bool {
		return s.opt.RankExcludePrefix == "" || !strings.HasPrefix(model, s.opt.RankExcludePrefix)
	})
	models := ranked.Models()
	if len(models) == 0 {
		return nil
	}

	locs := ranked.Locations()
	ranks := make([][]float64, len(models))
	for i := range ranks {
		ranks[i] = make([]float64, len(locs))
	}
	abs := ranked.Map(math.Abs)
	for j, loc := range locs {
		for i, r := range stats.Rank(abs.Column(loc)) {
			ranks[i][j] = r
		}
	}

	res := make([]MeanRank, len(models))
	for i, model := range models {
		res[i] = MeanRank{Model: model, MeanRank: stats.Mean(ranks[i])}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].MeanRank < res[j].MeanRank
	})
	return res
}

// BeatBaseline compares every non-baseline model against the baseline at each location of e. A
// model beats the baseline when its absolute error is strictly smaller or below the epsilon. The
// outcome is unknown wherever the model's own error is missing.
func (s *Scorer) BeatBaseline(e *table.ErrorTable) (map[string][]Beat, error) {
	baseline, exists := e.Row(s.opt.Baseline)
	if !exists {
		return nil, fmt.Errorf("%q, %w", s.opt.Baseline, ErrMissingBaseline)
	}

	res := make(map[string][]Beat, e.Len())
	for _, model := range e.Models() {
		if model == s.opt.Baseline {
			continue
		}
		row, _ := e.Row(model)
		beats := make([]Beat, len(row))
		for i, v := range row {
			beats[i] = beat(v, baseline[i], s.opt.BeatEpsilon)
		}
		res[model] = beats
	}
	return res, nil
}

func beat(modelErr, baselineErr, epsilon float64) Beat {
	if math.IsNaN(modelErr) {
		return BeatUnknown
	}
	absErr := math.Abs(modelErr)
	// a missing baseline error never compares smaller
	if absErr < math.Abs(baselineErr) || absErr < epsilon {
		return BeatTrue
	}
	return BeatFalse
}
