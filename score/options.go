package score

import (
	"github.com/aouyang1/go-forecast-eval/location"
)

// Options configures model scoring
type Options struct {
	// MinLocationsStates and MinLocationsCounties are the number of non-missing locations a model
	// must exceed to be included in the aggregate summaries and ranks
	MinLocationsStates   int `json:"min_locations_states"`
	MinLocationsCounties int `json:"min_locations_counties"`

	// Baseline is the reference model every other model is compared against
	Baseline string `json:"baseline"`

	// RankExcludePrefix drops models whose name starts with it from ranking
	RankExcludePrefix string `json:"rank_exclude_prefix"`

	// BeatEpsilon is the absolute error below which a model always beats the baseline
	BeatEpsilon float64 `json:"beat_epsilon"`
}

// NewDefaultOptions returns the scoring policy of the forecast hub evaluation
func NewDefaultOptions() *Options {
	return &Options{
		MinLocationsStates:   40,
		MinLocationsCounties: 2000,
		Baseline:             "COVIDhub-baseline",
		RankExcludePrefix:    "Baseline",
		BeatEpsilon:          1e-3,
	}
}

// MinLocations returns the coverage threshold of an evaluation mode
func (o *Options) MinLocations(mode location.Mode) int {
	if mode == location.Counties {
		return o.MinLocationsCounties
	}
	return o.MinLocationsStates
}
