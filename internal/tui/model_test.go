package tui

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quantfold/botkeeper/internal/procstat"
	"github.com/quantfold/botkeeper/internal/stats"
	"github.com/quantfold/botkeeper/internal/supervisor"
)

type fakeStatus struct{ status supervisor.Status }

func (f *fakeStatus) Status() supervisor.Status { return f.status }

type fakeUsage struct{ usage procstat.Usage }

func (f *fakeUsage) Last() procstat.Usage { return f.usage }

type fakeOutput struct{ lines []string }

func (f *fakeOutput) RecentLines(n int) []string {
	if n > len(f.lines) {
		n = len(f.lines)
	}
	return f.lines[len(f.lines)-n:]
}

type fakeSummary struct{ summary stats.Summary }

func (f *fakeSummary) Summary() stats.Summary { return f.summary }

func newTestModel() Model {
	return New(Config{
		Script:     "bot.py",
		StatusAddr: "0.0.0.0:10000",
		Version:    "test",
		StatusSource: &fakeStatus{status: supervisor.Status{
			State:              "running",
			Running:            true,
			WorkerAlive:        true,
			PID:                4242,
			RestartAttempts:    1,
			MaxRestartAttempts: 5,
			Uptime:             3 * time.Minute,
		}},
		UsageSource:   &fakeUsage{usage: procstat.Usage{CPUPercent: 7.5, RSSBytes: 64 << 20}},
		OutputSource:  &fakeOutput{lines: []string{"tick", "order placed", "position closed"}},
		SummarySource: &fakeSummary{summary: stats.Summary{Spawns: 2, Restarts: 1}},
	})
}

func TestModelInit(t *testing.T) {
	m := newTestModel()
	if cmd := m.Init(); cmd == nil {
		t.Error("Init() returned nil cmd, want tick")
	}
}

func TestModelTickRefreshes(t *testing.T) {
	m := newTestModel()

	updated, cmd := m.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Error("Update(TickMsg) returned nil cmd, want next tick")
	}

	got := updated.(Model)
	if got.status.PID != 4242 {
		t.Errorf("status.PID = %d, want 4242 after tick", got.status.PID)
	}
	if got.usage.CPUPercent != 7.5 {
		t.Errorf("usage.CPUPercent = %v, want 7.5 after tick", got.usage.CPUPercent)
	}
	if len(got.lines) != 3 {
		t.Errorf("len(lines) = %d, want 3 after tick", len(got.lines))
	}
}

func TestModelQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c", "esc"} {
		t.Run(key, func(t *testing.T) {
			m := newTestModel()

			var msg tea.KeyMsg
			switch key {
			case "ctrl+c":
				msg = tea.KeyMsg{Type: tea.KeyCtrlC}
			case "esc":
				msg = tea.KeyMsg{Type: tea.KeyEsc}
			default:
				msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
			}

			updated, cmd := m.Update(msg)
			if !updated.(Model).quitting {
				t.Error("quitting = false after quit key")
			}
			if cmd == nil {
				t.Error("cmd = nil, want tea.Quit")
			}
		})
	}
}

func TestModelWindowSize(t *testing.T) {
	m := newTestModel()

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	got := updated.(Model)
	if got.width != 120 || got.height != 40 {
		t.Errorf("size = %dx%d, want 120x40", got.width, got.height)
	}
}

func TestViewShowsWorkerState(t *testing.T) {
	m := newTestModel().refresh()

	view := m.View()
	for _, want := range []string{"botkeeper", "bot.py", "4242", "1 / 5", "order placed"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestViewAfterQuit(t *testing.T) {
	m := newTestModel()
	m.quitting = true

	if got := m.View(); got != "" {
		t.Errorf("View() = %q after quit, want empty", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Millisecond, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute + 3*time.Second, "2h5m3s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrimLine(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "short line", 20, "short line"},
		{"ascii trimmed", "abcdefghij", 5, "abcd…"},
		{"multibyte fits in runes", "ordre placé ✓", 15, "ordre placé ✓"},
		{"multibyte trimmed", "价格上涨价格上涨", 5, "价格上涨…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trimLine(tt.in, tt.width)
			if got != tt.want {
				t.Errorf("trimLine(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("trimLine(%q, %d) produced invalid UTF-8", tt.in, tt.width)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{64 << 20, "64.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
