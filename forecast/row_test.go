package forecast

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRows(t *testing.T) {
	input := "forecast_date,target,target_end_date,location,location_name,type,quantile,value\n" +
		"2020-06-15,1 wk ahead inc case,2020-06-20,1,Alabama,point,NA,5.5\n" +
		"2020-06-15,1 wk ahead inc case,2020-06-20,06037,Los Angeles,quantile,0.5,7\n" +
		"2020-06-15T00:00:00,1 wk ahead inc case,2020-06-20,US,US,quantile,0.025,\n"

	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "01", rows[0].Location)
	assert.Equal(t, Point, rows[0].Type)
	assert.True(t, math.IsNaN(rows[0].Quantile))
	assert.Equal(t, 5.5, rows[0].Value)
	assert.Equal(t, projDate, rows[0].ForecastDate)
	assert.False(t, rows[0].IsMedian())

	assert.Equal(t, "06037", rows[1].Location)
	assert.True(t, rows[1].IsMedian())

	assert.Equal(t, "US", rows[2].Location)
	assert.Equal(t, projDate, rows[2].ForecastDate)
	assert.True(t, math.IsNaN(rows[2].Value))
}

func TestReadRowsSchemaViolation(t *testing.T) {
	testData := map[string]struct {
		input string
	}{
		"missing columns": {
			input: "forecast_date,target,location,value\n2020-06-15,1 wk ahead inc case,US,1\n",
		},
		"bad target end date": {
			input: "forecast_date,target,target_end_date,location,type,quantile,value\n" +
				"2020-06-15,1 wk ahead inc case,06/20/2020,US,point,NA,1\n",
		},
		"bad value": {
			input: "forecast_date,target,target_end_date,location,type,quantile,value\n" +
				"2020-06-15,1 wk ahead inc case,2020-06-20,US,point,NA,many\n",
		},
		"short row": {
			input: "forecast_date,target,target_end_date,location,type,quantile,value\n" +
				"2020-06-15,1 wk ahead inc case,2020-06-20\n",
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := ReadRows(strings.NewReader(td.input))
			assert.ErrorIs(t, err, ErrSchemaViolation)
		})
	}
}
