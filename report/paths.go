package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/aouyang1/go-forecast-eval/location"
)

// Paths names the output files of one projection and evaluation date pair. Every file lives under
// <out>/<eval date>/.
type Paths struct {
	OutDir   string
	ProjDate time.Time
	EvalDate time.Time
}

// Dir is the directory holding every output of the evaluation date
func (p Paths) Dir() string {
	return filepath.Join(p.OutDir, p.EvalDate.Format(time.DateOnly))
}

func (p Paths) prefix() string {
	return p.ProjDate.Format(time.DateOnly) + "_" + p.EvalDate.Format(time.DateOnly)
}

func (p Paths) file(name string) string {
	return filepath.Join(p.Dir(), name)
}

// National is the national error summary, written for state evaluations only
func (p Paths) National() string {
	return p.file(p.prefix() + "_us_errs.csv")
}

// Projections is the per location projection, error and beat-baseline table
func (p Paths) Projections(mode location.Mode) string {
	return p.file(fmt.Sprintf("projections_%s_%s.csv", p.prefix(), mode))
}

func (p Paths) SquaredErrors(mode location.Mode) string {
	return p.file(fmt.Sprintf("%s_%s_sq_errs.csv", p.prefix(), mode))
}

func (p Paths) AbsErrors(mode location.Mode) string {
	return p.file(fmt.Sprintf("%s_%s_abs_errs.csv", p.prefix(), mode))
}

func (p Paths) MeanRanks(mode location.Mode) string {
	return p.file(fmt.Sprintf("%s_%s_mean_ranks.csv", p.prefix(), mode))
}

// Summary is the JSON document of every statistic of the evaluation
func (p Paths) Summary(mode location.Mode) string {
	return p.file(fmt.Sprintf("%s_%s_summary.json", p.prefix(), mode))
}

// Charts is the HTML page of summary charts
func (p Paths) Charts(mode location.Mode) string {
	return p.file(fmt.Sprintf("%s_%s_charts.html", p.prefix(), mode))
}

// Options is the effective configuration of the run
func (p Paths) Options() string {
	return p.file("options.json")
}
