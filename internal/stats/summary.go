package stats

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

// WriteSummary renders the session summary as a table.
func WriteSummary(w io.Writer, s Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")

	table.Append("Session duration", formatDuration(s.SessionDuration))
	table.Append("Worker spawns", strconv.Itoa(s.Spawns))
	table.Append("Restarts", strconv.Itoa(s.Restarts))
	table.Append("Total worker uptime", formatDuration(s.TotalUptime))
	table.Append("Longest incarnation", formatDuration(s.LongestUptime))

	if len(s.ExitCodes) > 0 {
		table.Append("Uptime p50", formatDuration(s.UptimeP50))
		table.Append("Uptime p95", formatDuration(s.UptimeP95))
		table.Append("Uptime p99", formatDuration(s.UptimeP99))

		for _, code := range s.sortedExitCodes() {
			table.Append(
				fmt.Sprintf("Exits with code %d", code),
				strconv.Itoa(s.ExitCodes[code]),
			)
		}
	}

	return table.Render()
}

// formatDuration trims sub-millisecond noise for display.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	return d.Round(time.Millisecond).String()
}
