// Package chart renders driver time series as an interactive scatter page.
package chart

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Tiliavir/rally-results/internal/results"
)

const (
	chartWidth  = "100%"
	chartHeight = "520px"
	symbolSize  = 12
	emptyHeight = "300px"
)

// DriverScatter plots one marker per time at x = driver index and
// y = elapsed seconds, one series per driver so the legend is keyed by name.
func DriverScatter(title string, series []results.DriverSeries) *charts.Scatter {
	scatter := charts.NewScatter()

	if len(series) == 0 {
		scatter.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: emptyHeight}),
			charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "No times recorded"}),
		)
		return scatter
	}

	names := make([]string, len(series))
	for i, s := range series {
		names[i] = s.Driver.Name
	}

	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Driver",
			Type: "category",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Time (s)",
			Type: "value",
		}),
	)
	scatter.SetXAxis(names)

	for i, s := range series {
		points := make([]opts.ScatterData, 0, len(s.Times))
		for _, t := range s.Times {
			points = append(points, opts.ScatterData{
				Name:       s.Driver.Name,
				Value:      []any{i, t},
				SymbolSize: symbolSize,
			})
		}
		scatter.AddSeries(s.Driver.Name, points)
	}
	return scatter
}

// Render writes the complete chart page for series to w.
func Render(w io.Writer, title string, series []results.DriverSeries) error {
	return DriverScatter(title, series).Render(w)
}
