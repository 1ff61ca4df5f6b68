// Package forecast reduces a model's raw forecast table to a single incident case projection per
// location
package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/selector"
)

var (
	ErrSchemaViolation  = errors.New("forecast table schema violation")
	ErrLocationOverflow = errors.New("more forecast locations than known locations")

	ErrFamilyVariant       = errors.New("model is not the selected variant of its family")
	ErrNoIncidentForecasts = errors.New("no incident case forecasts")
	ErrNoEvalHorizon       = errors.New("no incident case forecasts for the evaluation date")
	ErrNoRowsAfterFilter   = errors.New("no rows after filtering")
)

var skipErrs = []error{
	ErrFamilyVariant,
	ErrNoIncidentForecasts,
	ErrNoEvalHorizon,
	ErrNoRowsAfterFilter,
	selector.ErrNoFileInWindow,
}

// IsSkip reports whether err only excludes a single model from the evaluation
func IsSkip(err error) bool {
	for _, skipErr := range skipErrs {
		if errors.Is(err, skipErr) {
			return true
		}
	}
	return false
}

// Projection is a model's predicted incident cases per location, summed across every weekly
// horizon ending on or before the evaluation date
type Projection struct {
	Model    string                `json:"model"`
	File     selector.ForecastFile `json:"file"`
	Estimate EstimateType          `json:"estimate"`
	Values   map[string]float64    `json:"values"`

	// MaxTargetEndDate is the furthest target end date of the raw table
	MaxTargetEndDate time.Time `json:"max_target_end_date"`

	// Dropped are locations removed for missing in-between horizons
	Dropped []string `json:"dropped,omitempty"`
}

// NumLocations is the number of locations with a projection
func (p *Projection) NumLocations() int {
	return len(p.Values)
}

// Get returns the projection of a location or NaN if absent
func (p *Projection) Get(code string) float64 {
	v, exists := p.Values[code]
	if !exists {
		return math.NaN()
	}
	return v
}

// Normalizer turns raw forecast tables into projections for one projection and evaluation date
type Normalizer struct {
	opt      *Options
	universe *location.Universe
	projDate time.Time
	evalDate time.Time
}

// NewNormalizer creates a Normalizer. If no options are provided a default is used.
func NewNormalizer(u *location.Universe, projDate, evalDate time.Time, opt *Options) *Normalizer {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	return &Normalizer{
		opt:      opt,
		universe: u,
		projDate: projDate,
		evalDate: evalDate,
	}
}

// CheckFamily returns ErrFamilyVariant when the model belongs to a family of which only another
// variant is evaluated
func (n *Normalizer) CheckFamily(model string) error {
	for prefix, selected := range n.opt.FamilySelections {
		if strings.HasPrefix(model, prefix) && model != selected {
			return fmt.Errorf("%s only evaluates %s, %w", prefix, selected, ErrFamilyVariant)
		}
	}
	return nil
}

// Load reads and normalizes a selected forecast file
func (n *Normalizer) Load(file selector.ForecastFile, model string) (*Projection, error) {
	if err := n.CheckFamily(model); err != nil {
		return nil, err
	}
	rows, err := LoadRows(file.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to load %s, %w", file.Name(), err)
	}
	p, err := n.Normalize(model, rows)
	if err != nil {
		return nil, err
	}
	p.File = file
	return p, nil
}

func (n *Normalizer) isIncident(r Row) bool {
	return strings.Contains(r.Target, n.opt.IncidentTarget)
}

// Normalize reduces a model's forecast rows to one incident case total per evaluated location.
func (n *Normalizer) Normalize(model string, rows []Row) (*Projection, error) {
	if err := n.CheckFamily(model); err != nil {
		return nil, err
	}

	p := &Projection{
		Model:  model,
		Values: make(map[string]float64),
	}
	for _, r := range rows {
		if r.TargetEndDate.After(p.MaxTargetEndDate) {
			p.MaxTargetEndDate = r.TargetEndDate
		}
	}
	slog.Info("max projection date",
		"model", model,
		"target_end_date", p.MaxTargetEndDate.Format(time.DateOnly),
		"weeks_ahead", p.MaxTargetEndDate.Sub(n.projDate).Hours()/24/7,
	)

	// every horizon up to the eval date counts towards the total incident cases
	inWindow := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.TargetEndDate.After(n.evalDate) {
			continue
		}
		inWindow = append(inWindow, r)
	}

	var numIncident, numEvalHorizon int
	for _, r := range inWindow {
		if !n.isIncident(r) {
			continue
		}
		numIncident++
		if r.TargetEndDate.Equal(n.evalDate) {
			numEvalHorizon++
		}
	}
	if numIncident == 0 {
		return nil, ErrNoIncidentForecasts
	}
	if numEvalHorizon == 0 {
		return nil, fmt.Errorf("target end date %s, %w", n.evalDate.Format(time.DateOnly), ErrNoEvalHorizon)
	}

	inWindow, p.Dropped = n.completeHorizons(inWindow)
	if len(p.Dropped) > 0 {
		slog.Info("dropped locations with missing horizons", "model", model, "locations", len(p.Dropped))
		slog.Debug("dropped locations", "model", model, "codes", p.Dropped)
	}

	var hasPoint, hasMedian bool
	for _, r := range inWindow {
		if r.Type == Point {
			hasPoint = true
		}
		if r.IsMedian() {
			hasMedian = true
		}
	}
	if !hasPoint {
		slog.Info("no point data", "model", model)
	}
	if !hasMedian {
		slog.Info("no median data", "model", model)
	}

	p.Estimate = Median
	if hasPoint && (n.opt.UsePoint || !hasMedian) {
		p.Estimate = Point
	}

	preFilt := make(map[string]struct{})
	var numRows int
	for _, r := range inWindow {
		preFilt[r.Location] = struct{}{}
		if !n.isIncident(r) || !n.universe.Contains(r.Location) {
			continue
		}
		if p.Estimate == Point && r.Type != Point {
			continue
		}
		if p.Estimate == Median && !r.IsMedian() {
			continue
		}
		numRows++
		v := r.Value
		if math.IsNaN(v) {
			// missing values do not contribute, a location of only missing values sums to 0
			v = 0
		}
		p.Values[r.Location] += v
	}

	slog.Info("unique locations",
		"model", model,
		"pre_filter", len(preFilt),
		"post_filter", p.NumLocations(),
		"estimate", p.Estimate,
	)
	if p.NumLocations() > n.universe.Size() {
		return nil, fmt.Errorf("%d locations for %d known, %w", p.NumLocations(), n.universe.Size(), ErrLocationOverflow)
	}
	if numRows == 0 {
		return nil, ErrNoRowsAfterFilter
	}
	return p, nil
}

// completeHorizons drops locations reporting fewer incident horizon rows than the location with
// the most, e.g. a location with 1, 2 and 4 wk ahead targets but no 3 wk ahead target. When any
// location is dropped only incident rows are kept.
func (n *Normalizer) completeHorizons(rows []Row) ([]Row, []string) {
	counts := make(map[string]int)
	for _, r := range rows {
		if n.isIncident(r) {
			counts[r.Location]++
		}
	}

	var maxCnt int
	uniform := true
	for _, cnt := range counts {
		if maxCnt != 0 && cnt != maxCnt {
			uniform = false
		}
		if cnt > maxCnt {
			maxCnt = cnt
		}
	}
	if uniform {
		return rows, nil
	}

	var dropped []string
	for loc, cnt := range counts {
		if cnt != maxCnt {
			dropped = append(dropped, loc)
		}
	}
	sort.Strings(dropped)

	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !n.isIncident(r) || counts[r.Location] != maxCnt {
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}
