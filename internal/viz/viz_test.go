package viz

import (
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/xrts/internal/experiment"
	"github.com/san-kum/xrts/internal/hnc"
	"github.com/san-kum/xrts/internal/plasma"
	"github.com/san-kum/xrts/internal/units"
)

var _ hnc.Observer = (*Feed)(nil)

func TestResample(t *testing.T) {
	x := []float64{0, 1, 2, 4}
	y := []float64{0, 2, 4, 8}

	got, err := Resample(x, y, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 2, 4, 6, 8}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("point %d: expected %f, got %f", i, want[i], got[i])
		}
	}

	if _, err := Resample(x, y[:2], 5); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestPlotSeries(t *testing.T) {
	x := make([]float64, 200)
	y := make([]float64, 200)
	for i := range x {
		x[i] = float64(i+1) * 0.05
		y[i] = 1 - math.Exp(-x[i])
	}
	out, err := PlotSeries(x, y, "g(r)")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "g(r)") {
		t.Error("caption missing from plot")
	}
	if lines := strings.Count(out, "\n"); lines < DefaultPlotHeight {
		t.Errorf("expected at least %d lines, got %d", DefaultPlotHeight, lines)
	}
}

func TestPlotRejectsNonFinite(t *testing.T) {
	_, err := PlotSeries([]float64{1, 2}, []float64{1, math.NaN()}, "bad")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := PlotMany([]float64{1, 2}, nil, "empty"); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestSparkline(t *testing.T) {
	s := Sparkline([]float64{1, 1e-2, 1e-4, 1e-6}, 10)
	if n := utf8.RuneCountInString(s); n != 4 {
		t.Fatalf("expected 4 bars, got %d", n)
	}
	runes := []rune(s)
	if runes[0] != '█' || runes[3] != '▁' {
		t.Errorf("unexpected sparkline %q", s)
	}
	if n := utf8.RuneCountInString(Sparkline(make([]float64, 100), 20)); n != 20 {
		t.Errorf("expected 20 bars, got %d", n)
	}
	if Sparkline(nil, 3) != "───" {
		t.Error("expected flat line for empty input")
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		fraction float64
		filled   int
	}{
		{0, 0}, {0.5, 5}, {1, 10}, {2, 10}, {-1, 0},
	}
	for _, tt := range tests {
		bar := ProgressBar(tt.fraction, 10)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("fraction %v: expected %d filled, got %d", tt.fraction, tt.filled, got)
		}
		if n := utf8.RuneCountInString(bar); n != 10 {
			t.Errorf("fraction %v: expected width 10, got %d", tt.fraction, n)
		}
	}
}

func TestFeedDropsWhenFull(t *testing.T) {
	f := NewFeed()
	for i := 1; i <= 1000; i++ {
		if err := f.OnIteration(i, 1/float64(i)); err != nil {
			t.Fatal(err)
		}
	}
	msg, ok := f.Next().(IterationMsg)
	if !ok || msg.Iteration != 1 {
		t.Errorf("expected first iteration, got %#v", msg)
	}

	f.Close()
	f.Close()
	if err := f.OnIteration(1001, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	f.Finish(nil, nil)
}

func TestProgressUpdate(t *testing.T) {
	f := NewFeed()
	var m tea.Model = NewProgress("test", 100, 1e-6, f)

	m, cmd := m.Update(IterationMsg{Iteration: 1, Residual: 0.1})
	if cmd == nil {
		t.Error("expected a command waiting for the next message")
	}
	m, _ = m.Update(IterationMsg{Iteration: 2, Residual: 0.01})

	view := m.View()
	for _, want := range []string{"test", "2 / 100", "1.000e-02", "solving"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	h, err := plasma.LookupElement("H")
	if err != nil {
		t.Fatal(err)
	}
	ion, err := plasma.NewIon(h, 1, units.PerCubicCentimeter(1e23), units.ElectronVoltsTemperature(10))
	if err != nil {
		t.Fatal(err)
	}
	out := &experiment.Outcome{
		Species: []plasma.Species{ion},
		Result:  &hnc.Result{Iterations: 7, Residual: 1e-7, Converged: true},
		K:       5e10,
		SAtK:    [][]float64{{0.75}},
	}
	m, cmd = m.Update(DoneMsg{Outcome: out})
	if cmd != nil {
		t.Error("expected no command after completion")
	}
	view = m.View()
	for _, want := range []string{"converged", "7 / 100", "S_HH", "0.75000", "S(k) at k = 5"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if got, err := m.(Progress).Outcome(); got != out || err != nil {
		t.Error("outcome not recorded")
	}
}

func TestProgressLabelsSpeciesByIndex(t *testing.T) {
	m := NewProgress("test", 10, 1e-6, NewFeed())
	out := &experiment.Outcome{
		Result: &hnc.Result{Iterations: 3, Converged: true},
		K:      5e10,
		SAtK:   [][]float64{{0.5, 0.1}, {0.1, 0.9}},
	}
	next, _ := m.Update(DoneMsg{Outcome: out})
	view := next.View()
	for _, want := range []string{"S_00", "S_01", "S_11", "0.50000", "0.10000", "0.90000"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestProgressQuit(t *testing.T) {
	f := NewFeed()
	m := NewProgress("test", 10, 1e-6, f)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if err := f.OnIteration(1, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after quit, got %v", err)
	}
}

func TestProgressFailure(t *testing.T) {
	m := NewProgress("test", 10, 1e-6, NewFeed())
	next, _ := m.Update(DoneMsg{Err: hnc.ErrDiverged})
	if view := next.View(); !strings.Contains(view, "failed") {
		t.Error("expected failure status")
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("ocean").Name != "ocean" {
		t.Error("expected ocean theme")
	}
	if GetTheme("missing").Name != Themes[0].Name {
		t.Error("expected fallback theme")
	}
	seen := map[string]bool{}
	th := Themes[0]
	for range Themes {
		seen[th.Name] = true
		th = th.next()
	}
	if len(seen) != len(ThemeNames()) {
		t.Errorf("theme cycle visited %d of %d themes", len(seen), len(Themes))
	}
}
