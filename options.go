package evaluator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/score"
	"github.com/aouyang1/go-forecast-eval/truth"
)

var (
	ErrHubDirNotFound  = errors.New("could not find forecast hub directory")
	ErrUnsetDate       = errors.New("projection and evaluation dates must be set")
	ErrEvalBeforeProj  = errors.New("evaluation date must be after the projection date")
	ErrProjNotMonday   = errors.New("projection date must be a Monday")
	ErrEvalNotSaturday = errors.New("evaluation date must be a Saturday")
)

const (
	LocationsPath = "data-locations/locations.csv"
	ModelsDir     = "data-processed"
	TruthDir      = "data-truth"
)

// Options configures a single evaluation of one projection date, evaluation date and location
// mode
type Options struct {
	HubDir   string        `json:"forecast_hub_dir"`
	ProjDate time.Time     `json:"proj_date"`
	EvalDate time.Time     `json:"eval_date"`
	Mode     location.Mode `json:"mode"`

	// TruthFile overrides the truth file of the forecast hub
	TruthFile string `json:"truth_file"`

	// CopyTruth caches the forecast hub truth file in TruthCacheDir. Ignored with an explicit
	// TruthFile.
	CopyTruth     bool   `json:"copy_truth"`
	TruthCacheDir string `json:"truth_cache_dir"`

	// MergePrefixes are the model families averaged into a single model when MergeModels is set
	MergeModels   bool     `json:"merge_models"`
	MergePrefixes []string `json:"merge_prefixes"`

	// AdditionalStats enables the diagnostics
	AdditionalStats bool `json:"additional_stats"`

	// Parallelism bounds the number of forecast files normalized at once
	Parallelism int `json:"parallelism"`

	LocationOptions *location.Options `json:"location_options"`
	ForecastOptions *forecast.Options `json:"forecast_options"`
	ScoreOptions    *score.Options    `json:"score_options"`
}

// NewDefaultOptions returns the state evaluation settings of the forecast hub. The hub directory
// and dates still need to be set.
func NewDefaultOptions() *Options {
	return &Options{
		Mode:            location.States,
		TruthCacheDir:   "truth",
		MergeModels:     true,
		MergePrefixes:   []string{"Imperial"},
		Parallelism:     4,
		LocationOptions: location.NewDefaultOptions(),
		ForecastOptions: forecast.NewDefaultOptions(),
		ScoreOptions:    score.NewDefaultOptions(),
	}
}

// Validate checks the run preconditions and fills unset nested options with defaults
func (o *Options) Validate() error {
	info, err := os.Stat(o.HubDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q, %w", o.HubDir, ErrHubDirNotFound)
	}
	if o.ProjDate.IsZero() || o.EvalDate.IsZero() {
		return ErrUnsetDate
	}
	if !o.EvalDate.After(o.ProjDate) {
		return fmt.Errorf("proj date %s, eval date %s, %w", o.ProjDate.Format(time.DateOnly), o.EvalDate.Format(time.DateOnly), ErrEvalBeforeProj)
	}
	if o.ProjDate.Weekday() != time.Monday {
		return fmt.Errorf("%s is a %s, %w", o.ProjDate.Format(time.DateOnly), o.ProjDate.Weekday(), ErrProjNotMonday)
	}
	if o.EvalDate.Weekday() != time.Saturday {
		return fmt.Errorf("%s is a %s, %w", o.EvalDate.Format(time.DateOnly), o.EvalDate.Weekday(), ErrEvalNotSaturday)
	}
	if o.Mode == "" {
		o.Mode = location.States
	}
	if o.Parallelism < 1 {
		o.Parallelism = 1
	}
	if o.LocationOptions == nil {
		o.LocationOptions = location.NewDefaultOptions()
	}
	if o.ForecastOptions == nil {
		o.ForecastOptions = forecast.NewDefaultOptions()
	}
	if o.ScoreOptions == nil {
		o.ScoreOptions = score.NewDefaultOptions()
	}
	return nil
}

// TruthPath is the truth file read by the evaluation
func (o *Options) TruthPath() string {
	if o.TruthFile != "" {
		return o.TruthFile
	}
	return filepath.Join(o.HubDir, TruthDir, truth.DefaultFileName)
}

func (o *Options) locationsPath() string {
	return filepath.Join(o.HubDir, LocationsPath)
}

func (o *Options) modelsDir() string {
	return filepath.Join(o.HubDir, ModelsDir)
}
