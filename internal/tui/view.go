package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// outputLines is how many recent worker lines the dashboard shows.
const outputLines = 8

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.renderWorker(),
		m.renderSession(),
	}

	if len(m.lines) > 0 {
		sections = append(sections, m.renderOutput())
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	state := stateStyle(m.status.State).Render(strings.ToUpper(m.status.State))

	header := fmt.Sprintf(
		" botkeeper %s │ %s │ %s │ Elapsed: %s ",
		m.version,
		m.script,
		state,
		formatDuration(m.Elapsed()),
	)

	return titleStyle.Render(header)
}

func (m Model) renderWorker() string {
	var b strings.Builder

	b.WriteString(row("State", stateStyle(m.status.State).Render(m.status.State)))
	b.WriteString(row("Worker alive", renderBool(m.status.WorkerAlive)))

	if m.status.WorkerAlive {
		b.WriteString(row("PID", valueStyle.Render(fmt.Sprintf("%d", m.status.PID))))
		b.WriteString(row("Uptime", valueStyle.Render(formatDuration(m.status.Uptime))))
		b.WriteString(row("CPU", valueStyle.Render(fmt.Sprintf("%.1f%%", m.usage.CPUPercent))))
		b.WriteString(row("Memory (RSS)", valueStyle.Render(formatBytes(m.usage.RSSBytes))))
	} else {
		b.WriteString(row("Last exit code", renderExitCode(m.status.LastExitCode)))
	}

	attempts := fmt.Sprintf("%d / %d", m.status.RestartAttempts, m.status.MaxRestartAttempts)
	attemptStyle := valueStyle
	if m.status.RestartAttempts > 0 {
		attemptStyle = statusWarning
	}
	if m.status.RestartAttempts >= m.status.MaxRestartAttempts && m.status.MaxRestartAttempts > 0 {
		attemptStyle = statusError
	}
	b.WriteString(row("Restart budget", attemptStyle.Render(attempts)))

	return sectionStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderSession() string {
	var b strings.Builder

	b.WriteString(row("Spawns", valueStyle.Render(fmt.Sprintf("%d", m.summary.Spawns))))
	b.WriteString(row("Restarts", valueStyle.Render(fmt.Sprintf("%d", m.summary.Restarts))))
	b.WriteString(row("Total worker uptime", valueStyle.Render(formatDuration(m.summary.TotalUptime))))

	if m.summary.UptimeP50 > 0 {
		percentiles := fmt.Sprintf("p50 %s · p95 %s",
			formatDuration(m.summary.UptimeP50),
			formatDuration(m.summary.UptimeP95),
		)
		b.WriteString(row("Incarnation uptime", accentStyle.Render(percentiles)))
	}

	return sectionStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderOutput() string {
	var b strings.Builder

	b.WriteString(mutedStyle.Render("Recent worker output"))
	b.WriteString("\n")

	width := m.width - 6
	if width < 20 {
		width = 20
	}
	for _, line := range m.lines {
		b.WriteString(dimStyle.Render(trimLine(line, width)))
		b.WriteString("\n")
	}

	return sectionStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderFooter() string {
	footer := fmt.Sprintf(
		" q: quit │ r: refresh │ status: http://%s/status │ updated %s ago ",
		m.statusAddr,
		formatDuration(time.Since(m.lastUpdate)),
	)
	return dimStyle.Render(footer)
}

// trimLine shortens a line to width runes, never splitting a multibyte
// sequence.
func trimLine(line string, width int) string {
	if len(line) <= width {
		return line
	}
	runes := []rune(line)
	if len(runes) <= width {
		return line
	}
	return string(runes[:width-1]) + "…"
}

// row renders one aligned label/value line.
func row(label, value string) string {
	return labelStyle.Render(label) + " " + value + "\n"
}

func renderBool(v bool) string {
	if v {
		return statusOK.Render("yes")
	}
	return statusError.Render("no")
}

func renderExitCode(code int) string {
	if code == 0 {
		return statusOK.Render("0")
	}
	return statusError.Render(fmt.Sprintf("%d", code))
}

// formatDuration renders a duration as h/m/s without sub-second noise.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	d -= min * time.Minute
	sec := d / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%ds", h, min, sec)
	case min > 0:
		return fmt.Sprintf("%dm%ds", min, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
