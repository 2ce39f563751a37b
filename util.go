package demandcast

import (
	"fmt"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaNs are
// left out as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	xAxis := make([]string, 0, len(t))
	for _, ts := range t {
		xAxis = append(xAxis, ts.Format("2006-01-02 15:04"))
	}

	line = line.SetXAxis(xAxis)
	for i, series := range seriesName {
		if i >= len(y) {
			break
		}
		lineData := make([]opts.LineData, 0, len(y[i]))
		for _, val := range y[i] {
			if math.IsNaN(val) {
				lineData = append(lineData, opts.LineData{Value: "-"})
				continue
			}
			lineData = append(lineData, opts.LineData{Value: val})
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

// LineForecast generates an echart line chart of the hourly forecast with its peak marked
func LineForecast(res *Results) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title:    "24-Hour Demand Forecast",
				Subtitle: fmt.Sprintf("%s, MAE %.2f", res.Date.Format(time.DateOnly), res.MAE),
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	hours := make([]int, 0, len(res.Steps))
	lineData := make([]opts.LineData, 0, len(res.Steps))
	for _, s := range res.Steps {
		hours = append(hours, s.Hour)
		lineData = append(lineData, opts.LineData{Value: s.PredictedDemand})
	}

	line.SetXAxis(hours).
		AddSeries("Predicted Demand (MW)", lineData,
			charts.WithMarkPointNameTypeItemOpts(opts.MarkPointNameTypeItem{
				Name: "Peak Hour",
				Type: "max",
			}),
		)
	return line
}
