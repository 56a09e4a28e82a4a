package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	monitorHistory = 240
	monitorFPS     = 30
)

// Event is one training progress sample, typically an epoch or
// iteration loss.
type Event struct {
	Step  int
	Value float64
}

type tickMsg time.Time

func tick(fps int) tea.Cmd {
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Monitor is a bubbletea model showing a live training run. It drains
// progress events from a channel on every tick; closing the channel
// marks the run finished and leaves the final stats on screen.
type Monitor struct {
	title  string
	events <-chan Event

	history []float64
	step    int
	last    float64
	best    float64
	count   int
	start   time.Time
	done    bool
}

func NewMonitor(title string, events <-chan Event) Monitor {
	return Monitor{
		title:  title,
		events: events,
		best:   math.Inf(1),
		start:  time.Now(),
	}
}

func (m Monitor) Init() tea.Cmd { return tick(monitorFPS) }

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.drain()
		return m, tick(monitorFPS)
	}
	return m, nil
}

// drain consumes whatever events arrived since the last tick, bounded
// so a fast trainer cannot stall rendering.
func (m *Monitor) drain() {
	if m.events == nil {
		return
	}
	for i := 0; i < 1024; i++ {
		select {
		case ev, ok := <-m.events:
			if !ok {
				m.done = true
				m.events = nil
				return
			}
			m.observe(ev)
		default:
			return
		}
	}
}

func (m *Monitor) observe(ev Event) {
	m.step = ev.Step
	m.last = ev.Value
	m.count++
	if ev.Value < m.best {
		m.best = ev.Value
	}
	m.history = append(m.history, ev.Value)
	if len(m.history) > monitorHistory {
		m.history = m.history[1:]
	}
}

func (m Monitor) View() string {
	var b strings.Builder
	b.WriteString(Header.Render(strings.ToUpper(m.title)) + "\n")

	status := "training"
	if m.done {
		status = "finished"
	}
	b.WriteString(Accent.Render(status) + "\n")

	if len(m.history) > 1 {
		b.WriteString(Graph.Render(Curve(m.history, "loss", 60, 10)) + "\n")
	}

	elapsed := time.Since(m.start)
	b.WriteString(Label.Render("step") + Value.Render(fmt.Sprintf("%d", m.step)) + "\n")
	if m.count > 0 {
		b.WriteString(Label.Render("loss") + Value.Render(fmt.Sprintf("%.6g", m.last)) + "\n")
		b.WriteString(Label.Render("best") + Value.Render(fmt.Sprintf("%.6g", m.best)) + "\n")
		rate := float64(m.count) / math.Max(elapsed.Seconds(), 1e-9)
		b.WriteString(Label.Render("rate") + Value.Render(fmt.Sprintf("%.1f steps/s", rate)) + "\n")
	}
	b.WriteString(Label.Render("elapsed") + Value.Render(elapsed.Round(time.Second).String()) + "\n")

	b.WriteString(Help.Render("q: quit"))
	return Frame.Render(b.String())
}
