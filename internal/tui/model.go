package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quantfold/botkeeper/internal/procstat"
	"github.com/quantfold/botkeeper/internal/stats"
	"github.com/quantfold/botkeeper/internal/supervisor"
)

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// StatusSource provides the supervisor snapshot.
type StatusSource interface {
	Status() supervisor.Status
}

// UsageSource provides the latest worker resource sample.
type UsageSource interface {
	Last() procstat.Usage
}

// OutputSource provides recent worker output lines.
type OutputSource interface {
	RecentLines(n int) []string
}

// SummarySource provides the session statistics.
type SummarySource interface {
	Summary() stats.Summary
}

// Config holds TUI configuration.
type Config struct {
	Script     string
	StatusAddr string
	Version    string

	StatusSource  StatusSource
	UsageSource   UsageSource
	OutputSource  OutputSource
	SummarySource SummarySource
}

// Model represents the TUI state.
type Model struct {
	script     string
	statusAddr string
	version    string

	statusSource  StatusSource
	usageSource   UsageSource
	outputSource  OutputSource
	summarySource SummarySource

	status  supervisor.Status
	usage   procstat.Usage
	summary stats.Summary
	lines   []string

	startTime  time.Time
	lastUpdate time.Time

	width  int
	height int

	quitting bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	return Model{
		script:        cfg.Script,
		statusAddr:    cfg.StatusAddr,
		version:       cfg.Version,
		statusSource:  cfg.StatusSource,
		usageSource:   cfg.UsageSource,
		outputSource:  cfg.OutputSource,
		summarySource: cfg.SummarySource,
		startTime:     time.Now(),
		lastUpdate:    time.Now(),
		width:         80,
		height:        24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			// Force refresh
			return m, tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m = m.refresh()
		return m, tickCmd()

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// refresh pulls the latest data from all sources.
func (m Model) refresh() Model {
	if m.statusSource != nil {
		m.status = m.statusSource.Status()
	}
	if m.usageSource != nil {
		m.usage = m.usageSource.Last()
	}
	if m.outputSource != nil {
		m.lines = m.outputSource.RecentLines(outputLines)
	}
	if m.summarySource != nil {
		m.summary = m.summarySource.Summary()
	}
	m.lastUpdate = time.Now()
	return m
}

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
