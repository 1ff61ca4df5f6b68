package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-forecast-eval/event"
	"github.com/aouyang1/go-forecast-eval/score"
	"github.com/aouyang1/go-forecast-eval/table"
)

const banner = "================================================="

// PrintTitle writes a section heading
func (f *Format) PrintTitle(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n", banner, title, banner)
	return err
}

// PrintNational writes the national comparison table
func (f *Format) PrintNational(w io.Writer, entries []table.NationalEntry) error {
	tbl := f.table(w)
	if err := f.row(tbl, "Model", "predicted_cases", "actual_cases", "error", "perc_error"); err != nil {
		return err
	}
	for _, e := range entries[:f.truncated(len(entries))] {
		if err := f.row(tbl, e.Model, f.Float(e.Predicted), f.Int(e.Actual), f.Float(e.Error()), f.Perc(e.PercError())); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// PrintProjections writes the per location projection table with one row per model
func (f *Format) PrintProjections(w io.Writer, p *score.ProjectionTable) error {
	tbl := f.table(w)
	header := append([]string{"Model"}, p.Names...)
	if err := f.row(tbl, header...); err != nil {
		return err
	}
	actual := []string{"actual_cases"}
	for _, v := range p.Actual {
		actual = append(actual, f.Int(v))
	}
	if err := f.row(tbl, actual...); err != nil {
		return err
	}
	for _, model := range p.Models[:f.truncated(len(p.Models))] {
		cells := []string{model}
		for _, v := range p.Predicted[model] {
			cells = append(cells, f.Float(v))
		}
		if err := f.row(tbl, cells...); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// PrintSummary writes squared or absolute error summaries
func (f *Format) PrintSummary(w io.Writer, summaries []score.ModelSummary) error {
	tbl := f.table(w)
	if err := f.row(tbl, append([]string{"Model"}, SummaryColumns...)...); err != nil {
		return err
	}
	for _, s := range summaries[:f.truncated(len(summaries))] {
		if err := f.row(tbl, f.summaryRow(s)...); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// PrintValidCounts writes the number of non-missing locations per model in the order given
func (f *Format) PrintValidCounts(w io.Writer, models []string, counts map[string]int) error {
	tbl := f.table(w)
	for _, model := range models {
		if err := f.row(tbl, model, strconv.Itoa(counts[model])); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// PrintMeanRanks writes the mean rank of every ranked model
func (f *Format) PrintMeanRanks(w io.Writer, ranks []score.MeanRank) error {
	tbl := f.table(w)
	if err := f.row(tbl, "Model", "mean_rank"); err != nil {
		return err
	}
	for _, r := range ranks[:f.truncated(len(ranks))] {
		if err := f.row(tbl, r.Model, f.Float(r.MeanRank)); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// PrintDiagnostics writes the calibration, error correlation and case correlation views along
// with the holidays observed in the truth window
func (f *Format) PrintDiagnostics(w io.Writer, d *score.Diagnostics, holidays []event.Event) error {
	corr := &Format{Precision: 3, PercPrecision: f.PercPrecision, Padding: f.Padding, Indent: f.Indent, MaxRows: f.MaxRows}

	if err := f.PrintTitle(w, "US projection vs sum of states projection:"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "US territory cases: %s\n", f.Float(d.TerritoryCases)); err != nil {
		return err
	}
	tbl := f.table(w)
	if err := f.row(tbl, "Model", "US", "SumStates", "diff"); err != nil {
		return err
	}
	for _, c := range d.Calibration {
		if err := f.row(tbl, c.Model, f.Float(c.US), f.Float(c.SumStates), f.Float(c.Diff)); err != nil {
			return err
		}
	}
	if err := tbl.Flush(); err != nil {
		return err
	}

	if d.RSquared != nil {
		if err := f.PrintTitle(w, "R^2 Correlation of errors:"); err != nil {
			return err
		}
		tbl = f.table(w)
		if err := f.row(tbl, append([]string{""}, d.RSquared.Models...)...); err != nil {
			return err
		}
		for _, model := range d.RSquared.Models {
			cells := []string{model}
			for _, other := range d.RSquared.Models {
				cells = append(cells, corr.Float(d.RSquared.Get(model, other)))
			}
			if err := f.row(tbl, cells...); err != nil {
				return err
			}
		}
		if err := tbl.Flush(); err != nil {
			return err
		}
	}

	if err := f.PrintTitle(w, "Correlation between normalized error and total cases:"); err != nil {
		return err
	}
	tbl = f.table(w)
	if err := f.row(tbl, "Model", "error", "abs_error"); err != nil {
		return err
	}
	for _, c := range d.CaseCorrelations {
		if err := f.row(tbl, c.Model, corr.Float(c.Error), corr.Float(c.AbsError)); err != nil {
			return err
		}
	}
	if err := tbl.Flush(); err != nil {
		return err
	}

	if len(holidays) == 0 {
		return nil
	}
	names := make([]string, 0, len(holidays))
	for _, h := range holidays {
		names = append(names, fmt.Sprintf("%s (%s)", h.Name, h.Date.Format(time.DateOnly)))
	}
	_, err := fmt.Fprintf(w, "Holidays in truth window: %s\n", strings.Join(names, ", "))
	return err
}
