package evaluator

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aouyang1/go-forecast-eval/event"
	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/report"
	"github.com/aouyang1/go-forecast-eval/score"
	"github.com/aouyang1/go-forecast-eval/selector"
	"github.com/aouyang1/go-forecast-eval/table"
	"github.com/aouyang1/go-forecast-eval/truth"
)

// Results holds every intermediate table and statistic of an evaluation
type Results struct {
	Mode     location.Mode
	ProjDate time.Time
	EvalDate time.Time

	Universe *location.Universe
	Truth    *truth.Truth

	// Files is the selected forecast file of every model with one in the tolerance window
	Files map[string]selector.ForecastFile

	// Skipped maps excluded models to the reason they were excluded
	Skipped map[string]string

	Projections map[string]*forecast.Projection

	// RawErrors is the unmerged error table. Errors and National are merged.
	RawErrors *table.ErrorTable
	Errors    *table.ErrorTable
	National  *table.NationalTable

	Score           *score.Result
	ProjectionTable *score.ProjectionTable

	// Diagnostics and Holidays are only set with additional stats enabled
	Diagnostics *score.Diagnostics
	Holidays    []event.Event
}

// Predictions returns the projected incident cases of every model keyed by location
func (r *Results) Predictions() map[string]map[string]float64 {
	res := make(map[string]map[string]float64, len(r.Projections))
	for model, p := range r.Projections {
		res[model] = p.Values
	}
	return res
}

// Document converts the results to their JSON summary
func (r *Results) Document() *report.Document {
	doc := report.NewDocument(r.Mode, r.ProjDate, r.EvalDate, r.Truth.Start, r.Truth.End, r.Score, r.Diagnostics)
	doc.Files = make(map[string]string, len(r.Files))
	for model, f := range r.Files {
		doc.Files[model] = f.Name()
	}
	doc.Skipped = r.Skipped
	doc.Holidays = r.Holidays
	return doc
}

// Report prints the results to w and, when outDir is set, writes the CSV, JSON and chart outputs
// under outDir. The national summary file is only written for state evaluations.
func (r *Results) Report(w io.Writer, outDir string, format *report.Format) error {
	if format == nil {
		format = report.NewDefaultFormat()
	}
	paths := report.Paths{OutDir: outDir, ProjDate: r.ProjDate, EvalDate: r.EvalDate}
	save := func(path string, write func(io.Writer) error) error {
		if outDir == "" {
			return nil
		}
		if err := report.WriteFile(path, write); err != nil {
			return err
		}
		slog.Info("saved", "path", path)
		return nil
	}
	evalType := capitalize(string(r.Mode))

	if err := format.PrintTitle(w, "US Evaluation:"); err != nil {
		return err
	}
	if err := format.PrintNational(w, r.Score.National); err != nil {
		return err
	}
	if r.Mode == location.States {
		if err := save(paths.National(), func(wr io.Writer) error {
			return format.WriteNationalCSV(wr, r.Score.National)
		}); err != nil {
			return err
		}
	}

	if err := format.PrintTitle(w, fmt.Sprintf("%s Evaluation:", evalType)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Number of %s with valid projections:\n", r.Mode); err != nil {
		return err
	}
	if err := format.PrintValidCounts(w, r.Score.Errors.Models(), r.Score.ValidCounts); err != nil {
		return err
	}

	if r.Mode == location.States {
		if _, err := fmt.Fprintf(w, "Incident case forecasts for %s - %s:\n", r.ProjDate.Format(time.DateOnly), r.EvalDate.Format(time.DateOnly)); err != nil {
			return err
		}
		if err := format.PrintProjections(w, r.ProjectionTable); err != nil {
			return err
		}
	}
	if err := save(paths.Projections(r.Mode), func(wr io.Writer) error {
		return format.WriteProjectionsCSV(wr, r.ProjectionTable)
	}); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s - mean squared errors:\n", evalType); err != nil {
		return err
	}
	if err := format.PrintSummary(w, r.Score.SquaredErrors); err != nil {
		return err
	}
	if err := save(paths.SquaredErrors(r.Mode), func(wr io.Writer) error {
		return format.WriteSummaryCSV(wr, r.Score.SquaredErrors)
	}); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s - mean absolute errors:\n", evalType); err != nil {
		return err
	}
	if err := format.PrintSummary(w, r.Score.AbsErrors); err != nil {
		return err
	}
	if err := save(paths.AbsErrors(r.Mode), func(wr io.Writer) error {
		return format.WriteSummaryCSV(wr, r.Score.AbsErrors)
	}); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, "Mean ranks:"); err != nil {
		return err
	}
	if err := format.PrintMeanRanks(w, r.Score.MeanRanks); err != nil {
		return err
	}
	if err := save(paths.MeanRanks(r.Mode), func(wr io.Writer) error {
		return format.WriteMeanRanksCSV(wr, r.Score.MeanRanks)
	}); err != nil {
		return err
	}

	if r.Diagnostics != nil {
		if err := format.PrintDiagnostics(w, r.Diagnostics, r.Holidays); err != nil {
			return err
		}
	}

	if err := save(paths.Summary(r.Mode), func(wr io.Writer) error {
		return report.WriteJSON(wr, r.Document())
	}); err != nil {
		return err
	}
	return save(paths.Charts(r.Mode), r.PlotResults)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
