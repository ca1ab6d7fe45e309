package viz

import (
	"errors"
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/interp"
)

var ErrNoData = errors.New("viz: nothing to plot")

const (
	DefaultPlotWidth  = 70
	DefaultPlotHeight = 15
)

// Resample evaluates the piecewise-linear curve through (x, y) at n evenly
// spaced abscissae spanning x. x must be strictly increasing.
func Resample(x, y []float64, n int) ([]float64, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d abscissae, %d ordinates", ErrNoData, len(x), len(y))
	}
	if len(x) == 1 || n <= 1 {
		return []float64{y[0]}, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(x, y); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	lo, hi := x[0], x[len(x)-1]
	for i := range out {
		out[i] = pl.Predict(lo + (hi-lo)*float64(i)/float64(n-1))
	}
	return out, nil
}

// PlotSeries draws y(x) resampled to the default width, with a caption
// giving the x range.
func PlotSeries(x, y []float64, caption string) (string, error) {
	return PlotMany(x, [][]float64{y}, caption)
}

// PlotMany draws several series sharing the abscissae x. Series are
// coloured in order.
func PlotMany(x []float64, ys [][]float64, caption string) (string, error) {
	if len(ys) == 0 {
		return "", ErrNoData
	}
	data := make([][]float64, len(ys))
	for i, y := range ys {
		r, err := Resample(x, y, DefaultPlotWidth)
		if err != nil {
			return "", err
		}
		for _, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return "", fmt.Errorf("%w: series %d is not finite", ErrNoData, i)
			}
		}
		data[i] = r
	}

	colors := []asciigraph.AnsiColor{asciigraph.Cyan, asciigraph.Magenta, asciigraph.Yellow, asciigraph.Green, asciigraph.Red, asciigraph.Blue}
	seriesColors := make([]asciigraph.AnsiColor, len(data))
	for i := range data {
		seriesColors[i] = colors[i%len(colors)]
	}

	return asciigraph.PlotMany(data,
		asciigraph.Height(DefaultPlotHeight),
		asciigraph.Width(DefaultPlotWidth),
		asciigraph.SeriesColors(seriesColors...),
		asciigraph.Caption(fmt.Sprintf("%s  [%.4g … %.4g]", caption, x[0], x[len(x)-1])),
	), nil
}

// PlotResiduals draws log10 of a residual history.
func PlotResiduals(history []float64, height, width int) string {
	if len(history) == 0 {
		return ""
	}
	logs := make([]float64, len(history))
	for i, r := range history {
		logs[i] = math.Log10(math.Max(r, 1e-300))
	}
	return asciigraph.Plot(logs, asciigraph.Height(height), asciigraph.Width(width), asciigraph.Caption("log10 residual"))
}
