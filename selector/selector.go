// Package selector picks the forecast submission file of a model that applies to a projection date
package selector

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	// ToleranceDays is the submission window used for projection dates on or after
	// ToleranceChangeDate, EarlyToleranceDays before it.
	ToleranceDays      = 6
	EarlyToleranceDays = 3
)

// ToleranceChangeDate is the first projection date where Tue-Mon submissions are accepted
var ToleranceChangeDate = time.Date(2020, 7, 20, 0, 0, 0, 0, time.UTC)

var (
	ErrUnsortedFiles   = errors.New("forecast file names are not sorted")
	ErrNoFileInWindow  = errors.New("no forecast file within tolerance window")
	ErrInvalidFileName = errors.New("file name does not start with a YYYY-MM-DD date")
)

// ForecastFile is a single model submission identified by the date and team-model name embedded
// in its file name, e.g. 2020-06-01-team-model.csv
type ForecastFile struct {
	Path  string    `json:"path"`
	Date  time.Time `json:"date"`
	Model string    `json:"model"`
}

// Name returns the base name of the file
func (f ForecastFile) Name() string {
	return filepath.Base(f.Path)
}

// ParseForecastFile extracts the submission date and model name from a forecast file path
func ParseForecastFile(path string) (ForecastFile, error) {
	base := filepath.Base(path)
	if len(base) < len(time.DateOnly) {
		return ForecastFile{}, fmt.Errorf("%q, %w", base, ErrInvalidFileName)
	}
	d, err := time.Parse(time.DateOnly, base[:len(time.DateOnly)])
	if err != nil {
		return ForecastFile{}, fmt.Errorf("%q, %w", base, ErrInvalidFileName)
	}
	model := strings.TrimSuffix(base[len(time.DateOnly):], filepath.Ext(base))
	model = strings.TrimPrefix(model, "-")
	return ForecastFile{
		Path:  path,
		Date:  d,
		Model: model,
	}, nil
}

// Tolerance returns the number of days a submission may precede the projection date
func Tolerance(projDate time.Time) int {
	if projDate.Before(ToleranceChangeDate) {
		return EarlyToleranceDays
	}
	return ToleranceDays
}

// Select returns the forecast file with the latest embedded date d such that d <= projDate and
// projDate - d is within the tolerance window. Files sharing a date resolve to the last one in
// the list. Names without a leading date are ignored. The input must already be sorted.
func Select(fnames []string, projDate time.Time) (ForecastFile, error) {
	if !slices.IsSorted(fnames) {
		return ForecastFile{}, fmt.Errorf("%v, %w", fnames, ErrUnsortedFiles)
	}
	tolerance := Tolerance(projDate)

	var last ForecastFile
	var found bool
	for _, fname := range fnames {
		f, err := ParseForecastFile(fname)
		if err != nil {
			continue
		}
		if f.Date.After(projDate) {
			continue
		}
		if daysBetween(f.Date, projDate) > tolerance {
			continue
		}
		if !found || !f.Date.Before(last.Date) {
			last = f
			found = true
		}
	}
	if !found {
		return ForecastFile{}, ErrNoFileInWindow
	}
	return last, nil
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
