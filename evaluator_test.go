package evaluator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-forecast-eval/location"
	"github.com/aouyang1/go-forecast-eval/score"
	"github.com/aouyang1/go-forecast-eval/table"
	"github.com/aouyang1/go-forecast-eval/truth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testProjDate = time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)
	testEvalDate = time.Date(2020, 6, 27, 0, 0, 0, 0, time.UTC)

	// daily cases per location, American Samoa is a territory and never evaluated
	testDailyCases = map[string]float64{"US": 7, "01": 1, "02": 2, "04": 3, "60": 1}
)

const testLocations = `location,abbreviation,location_name
US,US,United States
1,AL,Alabama
02,AK,Alaska
04,AZ,Arizona
60,AS,American Samoa
01001,,Autauga County
`

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// weeklyForecast writes a forecast with the same weekly point value for both horizons up to
// testEvalDate
func weeklyForecast(t testing.TB, hub, model, fileDate string, weekly map[string]float64, weeks int) {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("forecast_date,target,target_end_date,location,type,quantile,value\n")
	for loc, v := range weekly {
		for w := 1; w <= weeks; w++ {
			end := testProjDate.AddDate(0, 0, 5+7*(w-1)).Format(time.DateOnly)
			fmt.Fprintf(&sb, "%s,%d wk ahead inc case,%s,%s,point,NA,%.1f\n", fileDate, w, end, loc, v)
			fmt.Fprintf(&sb, "%s,%d wk ahead inc case,%s,%s,quantile,0.5,%.1f\n", fileDate, w, end, loc, v+1)
		}
	}
	writeFile(t, filepath.Join(hub, ModelsDir, model, fileDate+"-"+model+".csv"), sb.String())
}

func setupHub(t testing.TB) string {
	t.Helper()
	hub := t.TempDir()
	writeFile(t, filepath.Join(hub, LocationsPath), testLocations)

	var sb strings.Builder
	sb.WriteString("date,location,location_name,value\n")
	for d := testProjDate.AddDate(0, 0, -2); !d.After(testEvalDate); d = d.AddDate(0, 0, 1) {
		for loc, v := range testDailyCases {
			fmt.Fprintf(&sb, "%s,%s,,%.0f\n", d.Format(time.DateOnly), loc, v)
		}
	}
	writeFile(t, filepath.Join(hub, TruthDir, truth.DefaultFileName), sb.String())

	// actual cases over the two week window: US 98, 01 14, 02 28, 04 42
	weeklyForecast(t, hub, "COVIDhub-baseline", "2020-06-15", map[string]float64{"US": 50, "01": 8, "02": 15, "04": 22}, 2)
	weeklyForecast(t, hub, "TeamA-model", "2020-06-12", map[string]float64{"US": 40, "01": 1, "02": 1, "04": 1}, 2)
	weeklyForecast(t, hub, "TeamA-model", "2020-06-14", map[string]float64{"US": 49, "01": 7, "02": 14, "04": 21}, 2)
	weeklyForecast(t, hub, "Imperial-ensemble1", "2020-06-14", map[string]float64{"US": 51, "01": 9, "02": 16, "04": 23}, 2)
	weeklyForecast(t, hub, "Imperial-ensemble2", "2020-06-14", map[string]float64{"01": 5, "02": 12, "04": 19}, 2)
	weeklyForecast(t, hub, "TeamB-old", "2020-06-01", map[string]float64{"US": 49}, 2)
	weeklyForecast(t, hub, "CU-nochange", "2020-06-14", map[string]float64{"US": 49}, 2)
	weeklyForecast(t, hub, "TeamC-short", "2020-06-14", map[string]float64{"US": 49}, 1)

	// not a model directory
	writeFile(t, filepath.Join(hub, ModelsDir, "README.md"), "models")
	return hub
}

func testOptions(hub string) *Options {
	opt := NewDefaultOptions()
	opt.HubDir = hub
	opt.ProjDate = testProjDate
	opt.EvalDate = testEvalDate
	opt.LocationOptions.ExpectedStateRows = 0
	opt.ScoreOptions.MinLocationsStates = 2
	return opt
}

func modelOrder[T any](rows []T, name func(T) string) []string {
	res := make([]string, 0, len(rows))
	for _, r := range rows {
		res = append(res, name(r))
	}
	return res
}

func TestRun(t *testing.T) {
	hub := setupHub(t)
	opt := testOptions(hub)
	opt.AdditionalStats = true

	ev, err := New(opt)
	require.NoError(t, err)
	res, err := ev.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2020-06-14-TeamA-model.csv", res.Files["TeamA-model"].Name())
	assert.Contains(t, res.Skipped, "TeamB-old")
	assert.Contains(t, res.Skipped, "CU-nochange")
	assert.Contains(t, res.Skipped, "TeamC-short")
	assert.Len(t, res.Projections, 4)

	assert.Equal(t, map[string]float64{"US": 98, "01": 14, "02": 28, "04": 42}, res.Truth.Actual)
	assert.Equal(t, 100.0, res.Projections["COVIDhub-baseline"].Values["US"])

	assert.Equal(t, []string{"COVIDhub-baseline", "Imperial-ensemble1", "Imperial-ensemble2", "TeamA-model"}, res.RawErrors.Models())
	assert.Equal(t, []string{"COVIDhub-baseline", "TeamA-model", "Imperial-combined"}, res.Errors.Models())
	assert.Equal(t, 4.0, res.Errors.Get("Imperial-combined", "US"))
	assert.Equal(t, 0.0, res.Errors.Get("Imperial-combined", "01"))

	nationalOrder := modelOrder(res.Score.National, func(e table.NationalEntry) string { return e.Model })
	assert.Equal(t, []string{"TeamA-model", "COVIDhub-baseline", "Imperial-combined"}, nationalOrder)

	absOrder := modelOrder(res.Score.AbsErrors, func(s score.ModelSummary) string { return s.Model })
	assert.Equal(t, []string{"TeamA-model", "Imperial-combined", "COVIDhub-baseline"}, absOrder)
	assert.Equal(t, 2.0, res.Score.AbsErrors[2].Mean)
	assert.Equal(t, 3, res.Score.AbsErrors[2].Count)

	assert.Equal(t, []score.MeanRank{
		{Model: "TeamA-model", MeanRank: 1.5},
		{Model: "Imperial-combined", MeanRank: 1.5},
		{Model: "COVIDhub-baseline", MeanRank: 3},
	}, res.Score.MeanRanks)

	// beat-baseline is computed over the unmerged models and includes the US
	assert.Equal(t, []score.Beat{score.BeatTrue, score.BeatTrue, score.BeatTrue, score.BeatTrue}, res.Score.BeatBaseline["TeamA-model"])
	assert.Equal(t, []score.Beat{score.BeatUnknown, score.BeatFalse, score.BeatFalse, score.BeatFalse}, res.Score.BeatBaseline["Imperial-ensemble2"])
	assert.Equal(t, "COVIDhub-baseline", res.ProjectionTable.Models[0])
	assert.Equal(t, []string{"United States", "Alabama", "Alaska", "Arizona"}, res.ProjectionTable.Names)

	require.NotNil(t, res.Diagnostics)
	assert.Equal(t, 14.0, res.Diagnostics.TerritoryCases)
	assert.Empty(t, res.Holidays)
}

func TestRunCounties(t *testing.T) {
	hub := setupHub(t)
	opt := testOptions(hub)
	opt.Mode = location.Counties

	ev, err := New(opt)
	require.NoError(t, err)
	_, err = ev.Run(context.Background())
	// the truth file has no county level data
	assert.ErrorIs(t, err, truth.ErrMissingTruth)
}

func TestRunMissingTruth(t *testing.T) {
	hub := setupHub(t)
	writeFile(t, filepath.Join(hub, TruthDir, truth.DefaultFileName), "date,location,value\n2020-06-20,US,7\n")

	ev, err := New(testOptions(hub))
	require.NoError(t, err)
	_, err = ev.Run(context.Background())
	assert.ErrorIs(t, err, truth.ErrMissingTruth)
}

func TestRunCopyTruth(t *testing.T) {
	hub := setupHub(t)
	opt := testOptions(hub)
	opt.CopyTruth = true
	opt.TruthCacheDir = filepath.Join(t.TempDir(), "truth")

	ev, err := New(opt)
	require.NoError(t, err)
	_, err = ev.Run(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(opt.TruthCacheDir, truth.CacheFileName))
}

func TestReport(t *testing.T) {
	hub := setupHub(t)
	opt := testOptions(hub)
	opt.AdditionalStats = true

	ev, err := New(opt)
	require.NoError(t, err)
	res, err := ev.Run(context.Background())
	require.NoError(t, err)

	out := t.TempDir()
	var console bytes.Buffer
	require.NoError(t, res.Report(&console, out, nil))

	assert.Contains(t, console.String(), "US Evaluation:")
	assert.Contains(t, console.String(), "States - mean absolute errors:")

	dir := filepath.Join(out, "2020-06-27")
	for _, name := range []string{
		"2020-06-15_2020-06-27_us_errs.csv",
		"projections_2020-06-15_2020-06-27_states.csv",
		"2020-06-15_2020-06-27_states_sq_errs.csv",
		"2020-06-15_2020-06-27_states_abs_errs.csv",
		"2020-06-15_2020-06-27_states_mean_ranks.csv",
		"2020-06-15_2020-06-27_states_summary.json",
		"2020-06-15_2020-06-27_states_charts.html",
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	ranks, err := os.ReadFile(filepath.Join(dir, "2020-06-15_2020-06-27_states_mean_ranks.csv"))
	require.NoError(t, err)
	assert.Equal(t, ",mean_rank\nTeamA-model,1.5\nImperial-combined,1.5\nCOVIDhub-baseline,3.0\n", string(ranks))
}

func TestValidate(t *testing.T) {
	hub := t.TempDir()

	testData := map[string]struct {
		hub      string
		projDate time.Time
		evalDate time.Time
		err      error
	}{
		"valid": {
			hub:      hub,
			projDate: testProjDate,
			evalDate: testEvalDate,
		},
		"missing hub": {
			hub:      filepath.Join(hub, "missing"),
			projDate: testProjDate,
			evalDate: testEvalDate,
			err:      ErrHubDirNotFound,
		},
		"unset dates": {
			hub: hub,
			err: ErrUnsetDate,
		},
		"eval before proj": {
			hub:      hub,
			projDate: testProjDate,
			evalDate: testProjDate.AddDate(0, 0, -2),
			err:      ErrEvalBeforeProj,
		},
		"proj not monday": {
			hub:      hub,
			projDate: testProjDate.AddDate(0, 0, 1),
			evalDate: testEvalDate,
			err:      ErrProjNotMonday,
		},
		"eval not saturday": {
			hub:      hub,
			projDate: testProjDate,
			evalDate: testEvalDate.AddDate(0, 0, 1),
			err:      ErrEvalNotSaturday,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := NewDefaultOptions()
			opt.HubDir = td.hub
			opt.ProjDate = td.projDate
			opt.EvalDate = td.evalDate
			_, err := New(opt)
			if td.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestTruthPath(t *testing.T) {
	opt := NewDefaultOptions()
	opt.HubDir = "hub"
	assert.Equal(t, filepath.Join("hub", "data-truth", "truth-Incident Cases.csv"), opt.TruthPath())

	opt.TruthFile = "truth.csv"
	assert.Equal(t, "truth.csv", opt.TruthPath())
}
