package report

import (
	"math"
	"strconv"
	"time"

	"github.com/aouyang1/go-forecast-eval/event"
	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/score"
	"github.com/aouyang1/go-forecast-eval/table"
)

// Float is a float64 encoded as null when it is not a finite number
type Float float64

// MarshalJSON writes missing and infinite values as null
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
}

func floatSlice(x []float64) []Float {
	res := make([]Float, len(x))
	for i, v := range x {
		res[i] = Float(v)
	}
	return res
}

// NationalRow is one model's national comparison
type NationalRow struct {
	Model     string `json:"model"`
	Predicted Float  `json:"predicted_cases"`
	Actual    Float  `json:"actual_cases"`
	Error     Float  `json:"error"`
	PercError Float  `json:"perc_error"`
}

// SummaryRow is the error summary of one model
type SummaryRow struct {
	Model  string `json:"model"`
	Count  int    `json:"count"`
	Mean   Float  `json:"mean"`
	Median Float  `json:"median"`
	Std    Float  `json:"std"`
	Min    Float  `json:"min"`
	P25    Float  `json:"p25"`
	P75    Float  `json:"p75"`
	Max    Float  `json:"max"`
}

// RankRow is one model's mean rank across locations
type RankRow struct {
	Model    string `json:"model"`
	MeanRank Float  `json:"mean_rank"`
}

// CalibrationRow compares a national projection with the sum of its state projections
type CalibrationRow struct {
	Model     string `json:"model"`
	US        Float  `json:"us"`
	SumStates Float  `json:"sum_states"`
	Diff      Float  `json:"diff"`
}

// CorrelationRow correlates a model's normalized errors with the actual cases
type CorrelationRow struct {
	Model    string `json:"model"`
	Error    Float  `json:"error"`
	AbsError Float  `json:"abs_error"`
}

// DiagnosticsDoc holds the optional diagnostics of an evaluation
type DiagnosticsDoc struct {
	TerritoryCases   Float            `json:"territory_cases"`
	Calibration      []CalibrationRow `json:"calibration"`
	RSquaredModels   []string         `json:"r_squared_models"`
	RSquared         [][]Float        `json:"r_squared"`
	CaseCorrelations []CorrelationRow `json:"case_correlations"`
}

// Document is the JSON summary of one evaluation
type Document struct {
	Mode       location.Mode     `json:"mode"`
	ProjDate   string            `json:"proj_date"`
	EvalDate   string            `json:"eval_date"`
	TruthStart string            `json:"truth_start"`
	TruthEnd   string            `json:"truth_end"`
	Files      map[string]string `json:"files"`
	Skipped    map[string]string `json:"skipped,omitempty"`
	Holidays   []event.Event     `json:"holidays,omitempty"`

	ValidCounts   map[string]int  `json:"valid_counts"`
	National      []NationalRow   `json:"national"`
	SquaredErrors []SummaryRow    `json:"squared_errors"`
	AbsErrors     []SummaryRow    `json:"abs_errors"`
	MeanRanks     []RankRow       `json:"mean_ranks"`
	Diagnostics   *DiagnosticsDoc `json:"diagnostics,omitempty"`
}

// NewDocument converts the scored results into their JSON representation
func NewDocument(mode location.Mode, projDate, evalDate, truthStart, truthEnd time.Time, res *score.Result, diag *score.Diagnostics) *Document {
	doc := &Document{
		Mode:        mode,
		ProjDate:    projDate.Format(time.DateOnly),
		EvalDate:    evalDate.Format(time.DateOnly),
		TruthStart:  truthStart.Format(time.DateOnly),
		TruthEnd:    truthEnd.Format(time.DateOnly),
		ValidCounts: res.ValidCounts,
		National:    nationalRows(res.National),
		MeanRanks:   make([]RankRow, 0, len(res.MeanRanks)),
	}
	doc.SquaredErrors = summaryRows(res.SquaredErrors)
	doc.AbsErrors = summaryRows(res.AbsErrors)
	for _, r := range res.MeanRanks {
		doc.MeanRanks = append(doc.MeanRanks, RankRow{Model: r.Model, MeanRank: Float(r.MeanRank)})
	}
	if diag != nil {
		doc.Diagnostics = diagnosticsDoc(diag)
	}
	return doc
}

func nationalRows(entries []table.NationalEntry) []NationalRow {
	res := make([]NationalRow, 0, len(entries))
	for _, e := range entries {
		res = append(res, NationalRow{
			Model:     e.Model,
			Predicted: Float(e.Predicted),
			Actual:    Float(e.Actual),
			Error:     Float(e.Error()),
			PercError: Float(e.PercError()),
		})
	}
	return res
}

func summaryRows(summaries []score.ModelSummary) []SummaryRow {
	res := make([]SummaryRow, 0, len(summaries))
	for _, s := range summaries {
		res = append(res, SummaryRow{
			Model:  s.Model,
			Count:  s.Count,
			Mean:   Float(s.Mean),
			Median: Float(s.Median),
			Std:    Float(s.Std),
			Min:    Float(s.Min),
			P25:    Float(s.P25),
			P75:    Float(s.P75),
			Max:    Float(s.Max),
		})
	}
	return res
}

func diagnosticsDoc(d *score.Diagnostics) *DiagnosticsDoc {
	doc := &DiagnosticsDoc{
		TerritoryCases: Float(d.TerritoryCases),
	}
	for _, c := range d.Calibration {
		doc.Calibration = append(doc.Calibration, CalibrationRow{
			Model:     c.Model,
			US:        Float(c.US),
			SumStates: Float(c.SumStates),
			Diff:      Float(c.Diff),
		})
	}
	if d.RSquared != nil {
		doc.RSquaredModels = d.RSquared.Models
		for _, row := range d.RSquared.Values {
			doc.RSquared = append(doc.RSquared, floatSlice(row))
		}
	}
	for _, c := range d.CaseCorrelations {
		doc.CaseCorrelations = append(doc.CaseCorrelations, CorrelationRow{
			Model:    c.Model,
			Error:    Float(c.Error),
			AbsError: Float(c.AbsError),
		})
	}
	return doc
}
