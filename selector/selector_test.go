package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseForecastFile(t *testing.T) {
	f, err := ParseForecastFile("data-processed/A-B/2020-06-01-A-B.csv")
	require.NoError(t, err)
	assert.Equal(t, date(2020, 6, 1), f.Date)
	assert.Equal(t, "A-B", f.Model)
	assert.Equal(t, "2020-06-01-A-B.csv", f.Name())

	_, err = ParseForecastFile("metadata-A-B.txt")
	assert.ErrorIs(t, err, ErrInvalidFileName)

	_, err = ParseForecastFile("short.csv")
	assert.ErrorIs(t, err, ErrInvalidFileName)
}

func TestTolerance(t *testing.T) {
	assert.Equal(t, EarlyToleranceDays, Tolerance(date(2020, 7, 13)))
	assert.Equal(t, ToleranceDays, Tolerance(date(2020, 7, 20)))
	assert.Equal(t, ToleranceDays, Tolerance(date(2020, 8, 3)))
}

func TestSelect(t *testing.T) {
	testData := map[string]struct {
		fnames   []string
		projDate time.Time
		expected string
		err      error
	}{
		"latest wins": {
			fnames:   []string{"2020-06-01-A-B.csv", "2020-06-03-A-B.csv"},
			projDate: date(2020, 6, 3),
			expected: "2020-06-03-A-B.csv",
		},
		"early window excludes 4 days": {
			fnames:   []string{"2020-06-04-A-B.csv"},
			projDate: date(2020, 6, 8),
			err:      ErrNoFileInWindow,
		},
		"early window includes 3 days": {
			fnames:   []string{"2020-06-05-A-B.csv"},
			projDate: date(2020, 6, 8),
			expected: "2020-06-05-A-B.csv",
		},
		"late window includes 6 days": {
			fnames:   []string{"2020-07-21-A-B.csv"},
			projDate: date(2020, 7, 27),
			expected: "2020-07-21-A-B.csv",
		},
		"late window excludes 7 days": {
			fnames:   []string{"2020-07-20-A-B.csv"},
			projDate: date(2020, 7, 27),
			err:      ErrNoFileInWindow,
		},
		"future file ignored": {
			fnames:   []string{"2020-07-25-A-B.csv", "2020-07-28-A-B.csv"},
			projDate: date(2020, 7, 27),
			expected: "2020-07-25-A-B.csv",
		},
		"unparseable skipped": {
			fnames:   []string{"2020-07-25-A-B.csv", "README.csv"},
			projDate: date(2020, 7, 27),
			expected: "2020-07-25-A-B.csv",
		},
		"same date last in list wins": {
			fnames:   []string{"2020-07-25-A-B.csv", "2020-07-25-A-C.csv"},
			projDate: date(2020, 7, 27),
			expected: "2020-07-25-A-C.csv",
		},
		"unsorted": {
			fnames:   []string{"2020-07-25-A-B.csv", "2020-07-21-A-B.csv"},
			projDate: date(2020, 7, 27),
			err:      ErrUnsortedFiles,
		},
		"empty": {
			projDate: date(2020, 7, 27),
			err:      ErrNoFileInWindow,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := Select(td.fnames, td.projDate)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, f.Name())
		})
	}
}
