// Package stats aggregates per-incarnation statistics for the session
// summary printed at shutdown.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// Tracker accumulates worker lifecycle statistics across incarnations.
type Tracker struct {
	mu sync.Mutex

	startedAt time.Time

	spawns   int
	restarts int

	exitCodes map[int]int

	uptimeDigest  *tdigest.TDigest
	exitCount     int
	totalUptime   time.Duration
	longestUptime time.Duration
}

// Summary is a point-in-time aggregate of the session.
type Summary struct {
	SessionDuration time.Duration

	Spawns   int
	Restarts int

	// ExitCodes maps exit code to occurrence count.
	ExitCodes map[int]int

	TotalUptime   time.Duration
	LongestUptime time.Duration

	// Uptime percentiles across incarnations; zero when no exits occurred.
	UptimeP50 time.Duration
	UptimeP95 time.Duration
	UptimeP99 time.Duration
}

// NewTracker creates a tracker. The session clock starts now.
func NewTracker() *Tracker {
	return &Tracker{
		startedAt:    time.Now(),
		exitCodes:    make(map[int]int),
		uptimeDigest: tdigest.NewWithCompression(100),
	}
}

// RecordSpawn counts one worker incarnation.
func (t *Tracker) RecordSpawn() {
	t.mu.Lock()
	t.spawns++
	t.mu.Unlock()
}

// RecordRestart counts one scheduled restart.
func (t *Tracker) RecordRestart() {
	t.mu.Lock()
	t.restarts++
	t.mu.Unlock()
}

// RecordExit records one worker exit with its uptime.
func (t *Tracker) RecordExit(code int, uptime time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.exitCodes[code]++
	t.exitCount++
	t.totalUptime += uptime
	if uptime > t.longestUptime {
		t.longestUptime = uptime
	}
	t.uptimeDigest.Add(uptime.Seconds(), 1)
}

// Summary returns the current aggregate.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{
		SessionDuration: time.Since(t.startedAt),
		Spawns:          t.spawns,
		Restarts:        t.restarts,
		ExitCodes:       make(map[int]int, len(t.exitCodes)),
		TotalUptime:     t.totalUptime,
		LongestUptime:   t.longestUptime,
	}
	for code, n := range t.exitCodes {
		s.ExitCodes[code] = n
	}

	if t.exitCount > 0 {
		s.UptimeP50 = secondsToDuration(t.uptimeDigest.Quantile(0.50))
		s.UptimeP95 = secondsToDuration(t.uptimeDigest.Quantile(0.95))
		s.UptimeP99 = secondsToDuration(t.uptimeDigest.Quantile(0.99))
	}

	return s
}

// sortedExitCodes returns the summary's exit codes in ascending order.
func (s Summary) sortedExitCodes() []int {
	codes := make([]int, 0, len(s.ExitCodes))
	for code := range s.ExitCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
