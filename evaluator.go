// Package evaluator scores the case forecasts submitted to the COVID-19 Forecast Hub against the
// observed incident cases between a projection date and an evaluation date.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/aouyang1/go-forecast-eval/event"
	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/merge"
	"github.com/aouyang1/go-forecast-eval/score"
	"github.com/aouyang1/go-forecast-eval/selector"
	"github.com/aouyang1/go-forecast-eval/table"
	"github.com/aouyang1/go-forecast-eval/truth"
	"golang.org/x/sync/errgroup"
)

var ErrNoProjections = errors.New("no model has a usable projection")

// Evaluator runs one evaluation of the forecast hub
type Evaluator struct {
	opt *Options
}

// New creates an Evaluator. If no options are provided a default is used, which still fails
// validation until the hub directory and dates are set.
func New(opt *Options) (*Evaluator, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options, %w", err)
	}
	return &Evaluator{opt: opt}, nil
}

// Options returns the validated options of the evaluator
func (e *Evaluator) Options() *Options {
	return e.opt
}

// Run loads every input, normalizes the selected forecast of each model and scores the models.
// Any data integrity violation aborts the run.
func (e *Evaluator) Run(ctx context.Context) (*Results, error) {
	opt := e.opt
	slog.Info("starting evaluation",
		"forecast_hub_dir", opt.HubDir,
		"proj_date", opt.ProjDate.Format(time.DateOnly),
		"eval_date", opt.EvalDate.Format(time.DateOnly),
		"mode", opt.Mode,
		"use_point", opt.ForecastOptions.UsePoint,
		"days_ahead", int(opt.EvalDate.Sub(opt.ProjDate).Hours()/24),
	)

	rows, err := location.LoadTable(opt.locationsPath())
	if err != nil {
		return nil, err
	}
	u, err := location.NewUniverse(rows, opt.Mode, opt.LocationOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to build %s locations, %w", opt.Mode, err)
	}

	res := &Results{
		Mode:        opt.Mode,
		ProjDate:    opt.ProjDate,
		EvalDate:    opt.EvalDate,
		Universe:    u,
		Skipped:     make(map[string]string),
		Projections: make(map[string]*forecast.Projection),
	}

	res.Files, err = e.selectFiles(res.Skipped)
	if err != nil {
		return nil, err
	}

	res.Truth, err = e.loadTruth(u)
	if err != nil {
		return nil, err
	}

	if err := e.normalize(ctx, u, res); err != nil {
		return nil, err
	}
	if len(res.Projections) == 0 {
		return nil, ErrNoProjections
	}

	if err := e.score(res); err != nil {
		return nil, err
	}
	return res, nil
}

// selectFiles picks the forecast file of every model directory. Models without a file in the
// tolerance window are recorded in skipped.
func (e *Evaluator) selectFiles(skipped map[string]string) (map[string]selector.ForecastFile, error) {
	entries, err := os.ReadDir(e.opt.modelsDir())
	if err != nil {
		return nil, fmt.Errorf("unable to read model directories, %w", err)
	}

	files := make(map[string]selector.ForecastFile)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		model := entry.Name()
		fnames, err := filepath.Glob(filepath.Join(e.opt.modelsDir(), model, "*.csv"))
		if err != nil {
			return nil, fmt.Errorf("unable to list %s forecasts, %w", model, err)
		}
		sort.Strings(fnames)

		f, err := selector.Select(fnames, e.opt.ProjDate)
		if errors.Is(err, selector.ErrNoFileInWindow) {
			names := make([]string, 0, len(fnames))
			for _, fname := range fnames {
				names = append(names, filepath.Base(fname))
			}
			slog.Info("no files within range", "model", model, "files", names)
			skipped[model] = err.Error()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s, %w", model, err)
		}
		slog.Info("found file", "model", model, "file", f.Name())
		files[model] = f
	}
	return files, nil
}

func (e *Evaluator) loadTruth(u *location.Universe) (*truth.Truth, error) {
	path := e.opt.TruthPath()
	if e.opt.TruthFile != "" {
		slog.Info("ground truth file (provided)", "path", path)
	} else {
		slog.Info("ground truth file (latest from forecast hub)", "path", path)
		if e.opt.CopyTruth {
			cached, err := truth.Cache(path, e.opt.TruthCacheDir)
			if err != nil {
				return nil, err
			}
			slog.Info("saved latest truth file", "path", cached)
		}
	}

	ds, err := truth.Load(path)
	if err != nil {
		return nil, err
	}
	return ds.Actuals(e.opt.ProjDate, e.opt.EvalDate, u)
}

// normalize loads the selected file of every model in parallel. Results are keyed by model so
// completion order does not matter.
func (e *Evaluator) normalize(ctx context.Context, u *location.Universe, res *Results) error {
	n := forecast.NewNormalizer(u, e.opt.ProjDate, e.opt.EvalDate, e.opt.ForecastOptions)

	models := make([]string, 0, len(res.Files))
	for model := range res.Files {
		models = append(models, model)
	}
	sort.Strings(models)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opt.Parallelism)
	for _, model := range models {
		file := res.Files[model]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := n.Load(file, model)
			mu.Lock()
			defer mu.Unlock()
			if forecast.IsSkip(err) {
				slog.Info("skipping model", "model", model, "reason", err.Error())
				res.Skipped[model] = err.Error()
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s, %w", model, err)
			}
			res.Projections[model] = p
			return nil
		})
	}
	return g.Wait()
}

func (e *Evaluator) score(res *Results) error {
	predictions := res.Predictions()
	raw := table.NewErrors(res.Universe.Codes, res.Truth.Actual, predictions)

	expected := make(map[string]int, len(res.Projections))
	for model, p := range res.Projections {
		expected[model] = p.NumLocations()
	}
	if err := raw.VerifyCounts(expected); err != nil {
		return err
	}
	slog.Info("evaluating", "mode", res.Mode, "models", raw.Len(), "missing_values", raw.CountMissing())

	national := make(map[string]float64, len(predictions))
	for model := range predictions {
		national[model] = res.Projections[model].Get(location.US)
	}
	res.RawErrors = raw
	res.Errors = raw.Clone()
	res.National = table.NewNational(res.Truth.US(), national)
	if e.opt.MergeModels {
		if err := merge.Apply(res.Errors, res.National, e.opt.MergePrefixes); err != nil {
			return fmt.Errorf("unable to merge models, %w", err)
		}
	}

	s := score.New(res.Mode, e.opt.ScoreOptions)
	scored, err := s.Score(res.RawErrors, res.Errors, res.National)
	if err != nil {
		return err
	}
	res.Score = scored
	res.ProjectionTable = s.Projections(res.Universe, res.Truth.Actual, predictions, res.RawErrors, scored.BeatBaseline)

	if !e.opt.AdditionalStats {
		return nil
	}
	res.Diagnostics, err = s.Diagnose(res.Truth.Actual, predictions, scored.Errors)
	if err != nil {
		return err
	}
	res.Holidays, err = event.Holidays(res.Truth.Start, res.Truth.End)
	if err != nil {
		return fmt.Errorf("unable to find holidays in truth window, %w", err)
	}
	return nil
}
