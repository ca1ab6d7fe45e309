package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles is the rendered form of a Theme.
type styles struct {
	panel, title, label, value, muted lipgloss.Style
	good, warn, bad                   lipgloss.Style
	graph                             lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(1, 2),
		title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).MarginBottom(1),
		label: lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		value: lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		muted: lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		good:  lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		warn:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		bad:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		graph: lipgloss.NewStyle().Foreground(t.Accent).Padding(1, 0),
	}
}

// ProgressBar renders fraction in [0, 1] as a bar of the given width.
func ProgressBar(fraction float64, width int) string {
	filled := int(math.Round(fraction * float64(width)))
	filled = max(0, min(width, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Sparkline renders values on a logarithmic scale, sampling the most
// recent width values. Non-positive values map to the lowest bar.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	bars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	logs := make([]float64, len(values))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range values {
		logs[i] = math.Inf(-1)
		if v > 0 {
			logs[i] = math.Log10(v)
			lo, hi = math.Min(lo, logs[i]), math.Max(hi, logs[i])
		}
	}
	span := hi - lo
	if !(span > 0) {
		span = 1
	}

	var b strings.Builder
	for _, l := range logs {
		idx := 0
		if !math.IsInf(l, -1) {
			idx = int((l - lo) / span * float64(len(bars)-1))
		}
		b.WriteRune(bars[max(0, min(len(bars)-1, idx))])
	}
	return b.String()
}
