package viz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/xrts/internal/experiment"
	"github.com/san-kum/xrts/internal/units"
)

// ErrClosed is returned to the solver once the live view has gone away,
// which aborts the solve.
var ErrClosed = errors.New("viz: live view closed")

const historyCapacity = 2000

// IterationMsg reports one solver iteration.
type IterationMsg struct {
	Iteration int
	Residual  float64
}

// DoneMsg reports the end of a run.
type DoneMsg struct {
	Outcome *experiment.Outcome
	Err     error
}

// Feed carries solver progress into a bubbletea program. It implements
// hnc.Observer; iterations arriving faster than the view drains them are
// dropped, the final DoneMsg never is.
type Feed struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

func NewFeed() *Feed {
	return &Feed{ch: make(chan tea.Msg, 64), done: make(chan struct{})}
}

func (f *Feed) OnIteration(iteration int, residual float64) error {
	select {
	case <-f.done:
		return ErrClosed
	default:
	}
	select {
	case f.ch <- IterationMsg{Iteration: iteration, Residual: residual}:
	default:
	}
	return nil
}

// Finish delivers the run result. It returns once the view has taken it or
// has been closed.
func (f *Feed) Finish(out *experiment.Outcome, err error) {
	select {
	case f.ch <- DoneMsg{Outcome: out, Err: err}:
	case <-f.done:
	}
}

// Close detaches the view; later OnIteration calls fail with ErrClosed.
func (f *Feed) Close() { f.once.Do(func() { close(f.done) }) }

// Next is a tea.Cmd that waits for the next message of the feed.
func (f *Feed) Next() tea.Msg {
	select {
	case msg := <-f.ch:
		return msg
	case <-f.done:
		return nil
	}
}

// Progress is the live convergence view of one run.
type Progress struct {
	name          string
	maxIterations int
	tolerance     float64
	feed          *Feed
	theme         Theme
	styles        styles

	iteration int
	residual  float64
	history   []float64
	started   time.Time
	elapsed   time.Duration

	done    bool
	outcome *experiment.Outcome
	err     error
}

func NewProgress(name string, maxIterations int, tolerance float64, feed *Feed) Progress {
	return Progress{
		name:          name,
		maxIterations: maxIterations,
		tolerance:     tolerance,
		feed:          feed,
		theme:         Themes[0],
		styles:        newStyles(Themes[0]),
		history:       make([]float64, 0, historyCapacity),
		started:       time.Now(),
	}
}

func (m Progress) Init() tea.Cmd { return m.feed.Next }

// Outcome returns the finished run, if any.
func (m Progress) Outcome() (*experiment.Outcome, error) { return m.outcome, m.err }

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.feed.Close()
			return m, tea.Quit
		case "t":
			m.theme = m.theme.next()
			m.styles = newStyles(m.theme)
		}
	case IterationMsg:
		m.iteration, m.residual = msg.Iteration, msg.Residual
		if len(m.history) == historyCapacity {
			m.history = append(m.history[:0], m.history[historyCapacity/2:]...)
		}
		m.history = append(m.history, msg.Residual)
		m.elapsed = time.Since(m.started)
		return m, m.feed.Next
	case DoneMsg:
		m.done, m.outcome, m.err = true, msg.Outcome, msg.Err
		m.elapsed = time.Since(m.started)
		if msg.Outcome != nil && msg.Outcome.Result != nil {
			m.iteration = msg.Outcome.Result.Iterations
			m.residual = msg.Outcome.Result.Residual
		}
	}
	return m, nil
}

func (m Progress) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.title.Render("xrts · "+m.name) + "\n")
	b.WriteString(s.label.Render("status") + m.status() + "\n")
	b.WriteString(s.label.Render("iteration") + s.value.Render(fmt.Sprintf("%d / %d", m.iteration, m.maxIterations)) + "\n")
	frac := 0.0
	if m.maxIterations > 0 {
		frac = float64(m.iteration) / float64(m.maxIterations)
	}
	b.WriteString(s.label.Render("") + ProgressBar(frac, 40) + "\n")
	b.WriteString(s.label.Render("residual") + s.value.Render(fmt.Sprintf("%.3e", m.residual)) +
		s.muted.Render(fmt.Sprintf("  (tolerance %.1e)", m.tolerance)) + "\n")
	b.WriteString(s.label.Render("elapsed") + s.value.Render(m.elapsed.Round(time.Millisecond).String()) + "\n")
	b.WriteString(s.label.Render("trend") + Sparkline(m.history, 40) + "\n")

	if len(m.history) > 1 {
		b.WriteString(s.graph.Render(PlotResiduals(m.history, 8, 50)) + "\n")
	}

	if m.done && m.outcome != nil && m.outcome.SAtK != nil {
		names := speciesLabels(m.outcome)
		b.WriteString(s.title.Render(fmt.Sprintf("S(k) at k = %.4g Å⁻¹", m.outcome.K*units.Angstrom)) + "\n")
		for a := range names {
			for c := a; c < len(names); c++ {
				b.WriteString(s.label.Render(fmt.Sprintf("S_%s%s", names[a], names[c])) +
					s.value.Render(fmt.Sprintf("%.5f", m.outcome.SAtK[a][c])) + "\n")
			}
		}
	}

	b.WriteString("\n" + s.muted.Render("q quit · t theme ("+m.theme.Name+")"))
	return s.panel.Render(b.String())
}

// speciesLabels names the rows of SAtK, falling back to indices when the
// outcome carries no species.
func speciesLabels(out *experiment.Outcome) []string {
	names := out.SpeciesNames()
	if len(names) == len(out.SAtK) {
		return names
	}
	labels := make([]string, len(out.SAtK))
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	return labels
}

func (m Progress) status() string {
	s := m.styles
	switch {
	case !m.done:
		return s.warn.Render("solving")
	case m.err != nil:
		return s.bad.Render("failed: " + m.err.Error())
	case m.outcome != nil && m.outcome.Result != nil && m.outcome.Result.Converged:
		return s.good.Render("converged")
	}
	return s.warn.Render("iteration cap reached")
}
