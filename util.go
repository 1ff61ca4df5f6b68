package evaluator

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var ErrNoScores = errors.New("no scores to plot")

// BarModels generates an echart bar chart with one bar per model. Models with a missing value are
// left out.
func BarModels(title, seriesName string, models []string, values []float64) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	labels := make([]string, 0, len(models))
	barData := make([]opts.BarData, 0, len(values))
	for i, model := range models {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			continue
		}
		labels = append(labels, model)
		barData = append(barData, opts.BarData{Value: values[i]})
	}

	bar.SetXAxis(labels).AddSeries(seriesName, barData)
	return bar
}

// PlotResults uses the Apache Echarts library to render an html page with the national errors,
// mean absolute errors and mean ranks of every model
func (r *Results) PlotResults(w io.Writer) error {
	if r.Score == nil {
		return ErrNoScores
	}

	national := r.Score.National
	nationalModels := make([]string, len(national))
	nationalErrs := make([]float64, len(national))
	for i, entry := range national {
		nationalModels[i] = entry.Model
		nationalErrs[i] = entry.PercError() * 100
	}

	absModels := make([]string, len(r.Score.AbsErrors))
	absMeans := make([]float64, len(r.Score.AbsErrors))
	for i, s := range r.Score.AbsErrors {
		absModels[i] = s.Model
		absMeans[i] = s.Mean
	}

	rankModels := make([]string, len(r.Score.MeanRanks))
	ranks := make([]float64, len(r.Score.MeanRanks))
	for i, rank := range r.Score.MeanRanks {
		rankModels[i] = rank.Model
		ranks[i] = rank.MeanRank
	}

	page := components.NewPage()
	page.AddCharts(
		BarModels("US Projected - True (%)", "Percent Error", nationalModels, nationalErrs),
		BarModels(fmt.Sprintf("%s Mean Absolute Error", capitalize(string(r.Mode))), "Mean Absolute Error", absModels, absMeans),
		BarModels("Mean Rank", "Mean Rank", rankModels, ranks),
	)
	return page.Render(w)
}
