// Package viz renders solver output in the terminal.
//
//   - [PlotSeries] and [PlotMany]: asciigraph line plots of g(r) and S(k)
//   - [Progress]: a Bubble Tea view that follows a running solve through a
//     [Feed], which is attached to the solver as an observer
//
// # Key Bindings
//
//	q - Quit (aborts the solve)
//	t - Cycle color themes
package viz
