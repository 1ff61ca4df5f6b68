// Package truth loads the observed incident case series and reduces it to one observed total per
// location for an evaluation window
package truth

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-forecast-eval/location"
)

const (
	// DefaultFileName is the truth file inside the data-truth directory of the forecast hub
	DefaultFileName = "truth-Incident Cases.csv"

	// CacheFileName is the name a cached copy of the truth file is saved under
	CacheFileName = "truth-incident-cases-latest.csv"
)

var (
	ErrSchemaViolation = errors.New("truth table schema violation")
	ErrNoTruthData     = errors.New("no truth data available for evaluation window")
	ErrMissingTruth    = errors.New("missing locations in truth")
)

// Dataset holds the daily series of every location in the truth file
type Dataset struct {
	series map[string]*Series
}

// Read parses a truth CSV with date, location and value columns. The value column holds daily
// incident cases; blank or NA values are kept as missing.
func Read(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read truth header, %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.TrimSpace(col)] = i
	}
	for _, col := range []string{"date", "location", "value"} {
		if _, exists := cols[col]; !exists {
			return nil, fmt.Errorf("missing column %q, %w", col, ErrSchemaViolation)
		}
	}

	dates := make(map[string][]time.Time)
	values := make(map[string][]float64)
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read truth row, %w", err)
		}
		line++
		if len(rec) < len(header) {
			return nil, fmt.Errorf("line %d has %d fields, %w", line, len(rec), ErrSchemaViolation)
		}

		d, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[cols["date"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d invalid date, %w", line, errors.Join(ErrSchemaViolation, err))
		}
		v, err := parseValue(rec[cols["value"]])
		if err != nil {
			return nil, fmt.Errorf("line %d invalid value, %w", line, errors.Join(ErrSchemaViolation, err))
		}
		loc := location.NormalizeCode(rec[cols["location"]])
		dates[loc] = append(dates[loc], d)
		values[loc] = append(values[loc], v)
	}

	ds := &Dataset{series: make(map[string]*Series, len(dates))}
	for loc, t := range dates {
		s, err := NewSeries(t, values[loc])
		if err != nil {
			return nil, fmt.Errorf("location %s, %w", loc, err)
		}
		ds.series[loc] = s
	}
	return ds, nil
}

// Load reads the truth file at path
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open truth file, %w", err)
	}
	defer f.Close()
	return Read(f)
}

func parseValue(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "NA", "NaN", "nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(raw, 64)
}

// Locations returns the sorted location codes present in the dataset
func (d *Dataset) Locations() []string {
	locs := make([]string, 0, len(d.series))
	for loc := range d.series {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	return locs
}

// Series returns the daily series of a location
func (d *Dataset) Series(loc string) (*Series, bool) {
	s, exists := d.series[loc]
	return s, exists
}

// Truth is the observed incident case total per evaluated location over an evaluation window
type Truth struct {
	Start  time.Time          `json:"start"`
	End    time.Time          `json:"end"`
	Actual map[string]float64 `json:"actual"`

	// DataStart and DataEnd bound the observations of the whole truth file
	DataStart time.Time `json:"data_start"`
	DataEnd   time.Time `json:"data_end"`
}

// US returns the national observed total
func (t *Truth) US() float64 {
	v, exists := t.Actual[location.US]
	if !exists {
		return math.NaN()
	}
	return v
}

// WindowStart is the day the model ran, one day before the projection date. Incident cases are
// counted from this day through the evaluation date.
func WindowStart(projDate time.Time) time.Time {
	return projDate.AddDate(0, 0, -1)
}

// Actuals sums the daily cases of each location between the day before projDate and evalDate
// inclusive and restricts the result to the evaluated locations of the universe. Every evaluated
// location must be present.
func (d *Dataset) Actuals(projDate, evalDate time.Time, u *location.Universe) (*Truth, error) {
	start := WindowStart(projDate)

	t := &Truth{
		Start:  start,
		End:    evalDate,
		Actual: make(map[string]float64, len(u.Codes)),
	}

	sums := make(map[string]float64)
	var rows int
	for _, loc := range d.Locations() {
		s, _ := d.Series(loc)
		if t.DataStart.IsZero() || s.StartTime().Before(t.DataStart) {
			t.DataStart = s.StartTime()
		}
		if s.EndTime().After(t.DataEnd) {
			t.DataEnd = s.EndTime()
		}

		cnt, sum := s.Window(start, evalDate)
		if cnt == 0 {
			continue
		}
		rows += cnt
		sums[loc] = sum
	}
	slog.Info("truth coverage", "first_date", t.DataStart.Format(time.DateOnly), "last_date", t.DataEnd.Format(time.DateOnly), "locations", len(d.series))
	if rows == 0 {
		return nil, fmt.Errorf("eval date %s, data ends %s, %w", evalDate.Format(time.DateOnly), t.DataEnd.Format(time.DateOnly), ErrNoTruthData)
	}

	var missing []string
	for _, code := range u.Codes {
		v, exists := sums[code]
		if !exists {
			missing = append(missing, code)
			continue
		}
		t.Actual[code] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%d of %d locations %v, %w", len(missing), len(u.Codes), missing, ErrMissingTruth)
	}
	slog.Info("loaded truth", "start", start.Format(time.DateOnly), "end", evalDate.Format(time.DateOnly), "locations", len(t.Actual), "us_cases", t.US())
	return t, nil
}

// Cache copies the truth file at src into dir under CacheFileName, keeping its modification time
func Cache(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("unable to create truth cache directory, %w", err)
	}
	dst := filepath.Join(dir, CacheFileName)

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("unable to open truth file, %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("unable to stat truth file, %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("unable to create cached truth file, %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("unable to copy truth file, %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("unable to close cached truth file, %w", err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return "", fmt.Errorf("unable to set cached truth file time, %w", err)
	}
	return dst, nil
}
