package forecast

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-forecast-eval/location"
)

// EstimateType is the kind of value a forecast row carries
type EstimateType string

const (
	Point    EstimateType = "point"
	Quantile EstimateType = "quantile"

	// Median is reported when the median quantile is used in place of a point estimate
	Median EstimateType = "median"
)

const MedianQuantile = 0.5

// RequiredColumns are the columns every forecast file must contain
var RequiredColumns = []string{"forecast_date", "target", "target_end_date", "location", "type", "quantile", "value"}

// Row is a single line of a model's forecast table. Location is always a string code with its
// leading zeros intact. Quantile is NaN for point rows.
type Row struct {
	ForecastDate  time.Time
	Target        string
	TargetEndDate time.Time
	Location      string
	Type          EstimateType
	Quantile      float64
	Value         float64
}

// IsMedian reports whether the row is the 0.5 quantile
func (r Row) IsMedian() bool {
	return r.Quantile == MedianQuantile
}

// ReadRows parses a forecast CSV. Missing required columns or unparseable dates and numbers are
// reported as ErrSchemaViolation.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read forecast header, %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.TrimSpace(col)] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, exists := cols[col]; !exists {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns %v, %w", missing, ErrSchemaViolation)
	}

	var rows []Row
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read forecast row, %w", err)
		}
		line++
		if len(rec) < len(header) {
			return nil, fmt.Errorf("line %d has %d fields, %w", line, len(rec), ErrSchemaViolation)
		}
		row, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d, %w", line, errors.Join(ErrSchemaViolation, err))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadRows reads the forecast file at path
func LoadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open forecast file, %w", err)
	}
	defer f.Close()
	return ReadRows(f)
}

func parseRow(rec []string, cols map[string]int) (Row, error) {
	forecastDate, err := parseDate(rec[cols["forecast_date"]])
	if err != nil {
		return Row{}, fmt.Errorf("invalid forecast_date, %w", err)
	}
	targetEndDate, err := parseDate(rec[cols["target_end_date"]])
	if err != nil {
		return Row{}, fmt.Errorf("invalid target_end_date, %w", err)
	}
	quantile, err := parseFloat(rec[cols["quantile"]])
	if err != nil {
		return Row{}, fmt.Errorf("invalid quantile, %w", err)
	}
	value, err := parseFloat(rec[cols["value"]])
	if err != nil {
		return Row{}, fmt.Errorf("invalid value, %w", err)
	}
	return Row{
		ForecastDate:  forecastDate,
		Target:        strings.TrimSpace(rec[cols["target"]]),
		TargetEndDate: targetEndDate,
		Location:      location.NormalizeCode(rec[cols["location"]]),
		Type:          EstimateType(strings.TrimSpace(rec[cols["type"]])),
		Quantile:      quantile,
		Value:         value,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	// some submissions carry a time component
	if len(raw) > len(time.DateOnly) {
		raw = raw[:len(time.DateOnly)]
	}
	return time.Parse(time.DateOnly, raw)
}

func parseFloat(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "NA", "NaN", "nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(raw, 64)
}
