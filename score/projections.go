package score

import (
	"math"
	"slices"
	"sort"

	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/table"
)

// ProjectionTable is the per location report of the observed cases and every model's projection,
// error and beat-baseline outcome. All columns are aligned with Locations.
type ProjectionTable struct {
	Locations []string  `json:"locations"`
	Names     []string  `json:"names"`
	Actual    []float64 `json:"actual_cases"`

	// Models lists the baseline first followed by the other models in sorted order
	Models []string `json:"models"`

	Predicted    map[string][]float64 `json:"predicted"`
	Errors       map[string][]float64 `json:"errors"`
	BeatBaseline map[string][]Beat    `json:"-"`
}

// Projections assembles the projection table from the unmerged error table and the beat-baseline
// outcomes computed over it
func (s *Scorer) Projections(u *location.Universe, actual map[string]float64, predictions map[string]map[string]float64, raw *table.ErrorTable, beat map[string][]Beat) *ProjectionTable {
	locs := raw.Locations()
	p := &ProjectionTable{
		Locations:    locs,
		Names:        make([]string, len(locs)),
		Actual:       make([]float64, len(locs)),
		Predicted:    make(map[string][]float64),
		Errors:       make(map[string][]float64),
		BeatBaseline: beat,
	}
	for i, loc := range locs {
		p.Names[i] = u.Name(loc)
		v, exists := actual[loc]
		if !exists {
			v = math.NaN()
		}
		p.Actual[i] = v
	}

	models := raw.Models()
	sort.Strings(models)
	if idx := slices.Index(models, s.opt.Baseline); idx > 0 {
		models = append([]string{s.opt.Baseline}, slices.Delete(models, idx, idx+1)...)
	}
	p.Models = models

	for _, model := range models {
		pred := make([]float64, len(locs))
		for i, loc := range locs {
			v, exists := predictions[model][loc]
			if !exists {
				v = math.NaN()
			}
			pred[i] = v
		}
		p.Predicted[model] = pred
		p.Errors[model], _ = raw.Row(model)
	}
	return p
}
