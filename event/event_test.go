package event

import (
	"testing"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoliday(t *testing.T) {
	testData := map[string]struct {
		hol      *cal.Holiday
		start    time.Time
		end      time.Time
		expected []Event
	}{
		"multiple years": {
			hol:   us.ChristmasDay,
			start: time.Date(2024, 12, 8, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 12, 8, 0, 0, 0, 0, time.UTC),
			expected: []Event{
				{"Christmas_Day_2024", time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)},
				{"Christmas_Day_2025", time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)},
			},
		},
		"inclusive bounds": {
			hol:   us.ThanksgivingDay,
			start: time.Date(2020, 11, 26, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2020, 11, 26, 0, 0, 0, 0, time.UTC),
			expected: []Event{
				{"Thanksgiving_Day_2020", time.Date(2020, 11, 26, 0, 0, 0, 0, time.UTC)},
			},
		},
		"observed on friday": {
			hol:   us.IndependenceDay,
			start: time.Date(2020, 6, 28, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2020, 7, 4, 0, 0, 0, 0, time.UTC),
			expected: []Event{
				{"Independence_Day_2020", time.Date(2020, 7, 3, 0, 0, 0, 0, time.UTC)},
			},
		},
		"outside window": {
			hol:   us.ChristmasDay,
			start: time.Date(2020, 6, 14, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2020, 6, 27, 0, 0, 0, 0, time.UTC),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := Holiday(td.hol, td.start, td.end)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestHolidays(t *testing.T) {
	// Labor Day and Columbus Day 2020
	res, err := Holidays(
		time.Date(2020, 9, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 10, 17, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, time.Date(2020, 9, 7, 0, 0, 0, 0, time.UTC), res[0].Date)
	assert.Equal(t, time.Date(2020, 10, 12, 0, 0, 0, 0, time.UTC), res[1].Date)
}

func TestHolidaysInvalidWindow(t *testing.T) {
	_, err := Holidays(time.Date(2020, 9, 6, 0, 0, 0, 0, time.UTC), time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrStartAfterEnd)

	_, err = Holidays(time.Time{}, time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrUnsetTime)
}
