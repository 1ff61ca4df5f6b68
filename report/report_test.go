package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-forecast-eval/event"
	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/score"
	"github.com/aouyang1/go-forecast-eval/stats"
	"github.com/aouyang1/go-forecast-eval/table"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	f := NewDefaultFormat()

	testData := map[string]struct {
		fn       func(float64) string
		in       float64
		expected string
	}{
		"float":         {fn: f.Float, in: 12.345, expected: "12.3"},
		"float missing": {fn: f.Float, in: math.NaN(), expected: ""},
		"int":           {fn: f.Int, in: 29.6, expected: "30"},
		"int missing":   {fn: f.Int, in: math.NaN(), expected: ""},
		"perc":          {fn: f.Perc, in: 0.1234, expected: "12.3%"},
		"perc negative": {fn: f.Perc, in: -0.05, expected: "-5.0%"},
		"perc missing":  {fn: f.Perc, in: math.NaN(), expected: ""},
		"perc inf":      {fn: f.Perc, in: math.Inf(1), expected: ""},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.fn(td.in))
		})
	}
}

func TestPaths(t *testing.T) {
	p := Paths{
		OutDir:   "out",
		ProjDate: time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC),
		EvalDate: time.Date(2020, 6, 27, 0, 0, 0, 0, time.UTC),
	}
	dir := filepath.Join("out", "2020-06-27")
	assert.Equal(t, dir, p.Dir())
	assert.Equal(t, filepath.Join(dir, "2020-06-15_2020-06-27_us_errs.csv"), p.National())
	assert.Equal(t, filepath.Join(dir, "projections_2020-06-15_2020-06-27_states.csv"), p.Projections(location.States))
	assert.Equal(t, filepath.Join(dir, "2020-06-15_2020-06-27_counties_sq_errs.csv"), p.SquaredErrors(location.Counties))
	assert.Equal(t, filepath.Join(dir, "2020-06-15_2020-06-27_states_abs_errs.csv"), p.AbsErrors(location.States))
	assert.Equal(t, filepath.Join(dir, "2020-06-15_2020-06-27_states_mean_ranks.csv"), p.MeanRanks(location.States))
	assert.Equal(t, filepath.Join(dir, "options.json"), p.Options())
}

func TestWriteNationalCSV(t *testing.T) {
	entries := []table.NationalEntry{
		{Model: "M1", Predicted: 33, Actual: 30},
		{Model: "M2", Predicted: math.NaN(), Actual: 30},
	}
	var buf bytes.Buffer
	require.NoError(t, NewDefaultFormat().WriteNationalCSV(&buf, entries))

	expected := ",predicted_cases,actual_cases,error,perc_error\n" +
		"M1,33.0,30,3.0,10.0%\n" +
		"M2,,30,,\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteSummaryCSV(t *testing.T) {
	summaries := []score.ModelSummary{
		{Model: "M1", Summary: stats.Summary{Count: 2, Mean: 4, Median: 4, Std: 0, Min: 4, P25: 4, P75: 4, Max: 4}},
		{Model: "M2", Summary: stats.Summary{Count: 1, Mean: 9, Median: 9, Std: math.NaN(), Min: 9, P25: 9, P75: 9, Max: 9}},
	}
	var buf bytes.Buffer
	require.NoError(t, NewDefaultFormat().WriteSummaryCSV(&buf, summaries))

	expected := ",count,mean,median,std,min,25%,75%,max\n" +
		"M1,2,4.0,4.0,0.0,4.0,4.0,4.0,4.0\n" +
		"M2,1,9.0,9.0,,9.0,9.0,9.0,9.0\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteMeanRanksCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDefaultFormat().WriteMeanRanksCSV(&buf, []score.MeanRank{{Model: "M1", MeanRank: 1.26}}))
	assert.Equal(t, ",mean_rank\nM1,1.3\n", buf.String())
}

func testProjectionTable() *score.ProjectionTable {
	return &score.ProjectionTable{
		Locations: []string{"US", "01"},
		Names:     []string{"United States", "Alabama"},
		Actual:    []float64{30, 10},
		Models:    []string{"B", "M1"},
		Predicted: map[string][]float64{
			"B":  {40, 11},
			"M1": {30, math.NaN()},
		},
		Errors: map[string][]float64{
			"B":  {10, 1},
			"M1": {0, math.NaN()},
		},
		BeatBaseline: map[string][]score.Beat{
			"M1": {score.BeatTrue, score.BeatUnknown},
		},
	}
}

func TestWriteProjectionsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDefaultFormat().WriteProjectionsCSV(&buf, testProjectionTable()))

	expected := ",actual_cases,B,M1,error-B,error-M1,beat_baseline-M1\n" +
		"United States,30,40.0,30.0,10.0,0.0,True\n" +
		"Alabama,10,11.0,,1.0,,\n"
	assert.Equal(t, expected, buf.String())
}

func TestPrintTables(t *testing.T) {
	f := NewDefaultFormat()
	var buf bytes.Buffer

	require.NoError(t, f.PrintProjections(&buf, testProjectionTable()))
	require.NoError(t, f.PrintMeanRanks(&buf, []score.MeanRank{{Model: "M1", MeanRank: 1}}))
	out := buf.String()
	assert.Contains(t, out, "United States")
	assert.Contains(t, out, "actual_cases")
	assert.Contains(t, out, "mean_rank")

	f.MaxRows = 1
	buf.Reset()
	require.NoError(t, f.PrintProjections(&buf, testProjectionTable()))
	// header, actual cases and the first model only
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
}

func TestPrintDiagnostics(t *testing.T) {
	d := &score.Diagnostics{
		TerritoryCases: 5,
		Calibration:    []score.Calibration{{Model: "M1", US: 30, SumStates: 30, Diff: -5}},
		RSquared: &score.Matrix{
			Models: []string{"M1", "M2"},
			Values: [][]float64{{1, 0.25}, {0.25, 1}},
		},
		CaseCorrelations: []score.CaseCorrelation{{Model: "M1", Error: -0.5, AbsError: math.NaN()}},
	}
	holidays := []event.Event{{Name: "Independence_Day_2020", Date: time.Date(2020, 7, 3, 0, 0, 0, 0, time.UTC)}}

	var buf bytes.Buffer
	require.NoError(t, NewDefaultFormat().PrintDiagnostics(&buf, d, holidays))
	out := buf.String()
	assert.Contains(t, out, "US territory cases: 5.0")
	assert.Contains(t, out, "1.000 0.250")
	assert.Contains(t, out, "-0.500")
	assert.Contains(t, out, "Holidays in truth window: Independence_Day_2020 (2020-07-03)")
}

func TestWriteJSONFile(t *testing.T) {
	res := &score.Result{
		Mode:        location.States,
		National:    []table.NationalEntry{{Model: "M1", Predicted: math.NaN(), Actual: 30}},
		ValidCounts: map[string]int{"M1": 2},
		SquaredErrors: []score.ModelSummary{
			{Model: "M1", Summary: stats.Summary{Count: 1, Mean: 4, Std: math.NaN()}},
		},
	}
	d := time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)
	doc := NewDocument(location.States, d, d.AddDate(0, 0, 12), d.AddDate(0, 0, -1), d.AddDate(0, 0, 12), res, nil)

	path := filepath.Join(t.TempDir(), "nested", "summary.json")
	require.NoError(t, WriteJSONFile(path, doc))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "2020-06-27", decoded["eval_date"])
	national := decoded["national"].([]any)[0].(map[string]any)
	assert.Nil(t, national["predicted_cases"])
	assert.Equal(t, 30.0, national["actual_cases"])
	sq := decoded["squared_errors"].([]any)[0].(map[string]any)
	assert.Nil(t, sq["std"])
}
