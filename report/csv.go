package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aouyang1/go-forecast-eval/score"
	"github.com/aouyang1/go-forecast-eval/table"
)

// SummaryColumns are the columns of the squared and absolute error summaries
var SummaryColumns = []string{"count", "mean", "median", "std", "min", "25%", "75%", "max"}

// WriteFile creates the parent directory of path and writes the file with write
func WriteFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create output directory, %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return f.Close()
}

func writeRecords(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// WriteNationalCSV writes one row per model with its predicted and actual national cases, error
// and percentage error
func (f *Format) WriteNationalCSV(w io.Writer, entries []table.NationalEntry) error {
	records := [][]string{{"", "predicted_cases", "actual_cases", "error", "perc_error"}}
	for _, entry := range entries {
		records = append(records, []string{
			entry.Model,
			f.Float(entry.Predicted),
			f.Int(entry.Actual),
			f.Float(entry.Error()),
			f.Perc(entry.PercError()),
		})
	}
	return writeRecords(w, records)
}

// projectionHeader lists actual cases, every model's projection, every model's error and the
// beat-baseline outcome of each non-baseline model
func projectionHeader(p *score.ProjectionTable) []string {
	header := []string{"", "actual_cases"}
	header = append(header, p.Models...)
	for _, model := range p.Models {
		header = append(header, "error-"+model)
	}
	for _, model := range p.Models {
		if _, exists := p.BeatBaseline[model]; exists {
			header = append(header, "beat_baseline-"+model)
		}
	}
	return header
}

func (f *Format) projectionRow(p *score.ProjectionTable, i int) []string {
	row := []string{p.Names[i], f.Int(p.Actual[i])}
	for _, model := range p.Models {
		row = append(row, f.Float(p.Predicted[model][i]))
	}
	for _, model := range p.Models {
		row = append(row, f.Float(p.Errors[model][i]))
	}
	for _, model := range p.Models {
		if beats, exists := p.BeatBaseline[model]; exists {
			row = append(row, beats[i].String())
		}
	}
	return row
}

// WriteProjectionsCSV writes one row per location keyed by its display name
func (f *Format) WriteProjectionsCSV(w io.Writer, p *score.ProjectionTable) error {
	records := [][]string{projectionHeader(p)}
	for i := range p.Locations {
		records = append(records, f.projectionRow(p, i))
	}
	return writeRecords(w, records)
}

func (f *Format) summaryRow(s score.ModelSummary) []string {
	return []string{
		s.Model,
		strconv.Itoa(s.Count),
		f.Float(s.Mean),
		f.Float(s.Median),
		f.Float(s.Std),
		f.Float(s.Min),
		f.Float(s.P25),
		f.Float(s.P75),
		f.Float(s.Max),
	}
}

// WriteSummaryCSV writes one row of descriptive statistics per model
func (f *Format) WriteSummaryCSV(w io.Writer, summaries []score.ModelSummary) error {
	records := [][]string{append([]string{""}, SummaryColumns...)}
	for _, s := range summaries {
		records = append(records, f.summaryRow(s))
	}
	return writeRecords(w, records)
}

// WriteMeanRanksCSV writes the mean rank of every ranked model
func (f *Format) WriteMeanRanksCSV(w io.Writer, ranks []score.MeanRank) error {
	records := [][]string{{"", "mean_rank"}}
	for _, r := range ranks {
		records = append(records, []string{r.Model, f.Float(r.MeanRank)})
	}
	return writeRecords(w, records)
}
