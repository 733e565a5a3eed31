package logging

import (
	"bufio"
	"io"
	"log/slog"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a single worker output line
	// before truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is the number of recent worker lines retained for
	// the status surface and dashboard.
	MaxBufferedLines = 100

	// maxScanBuffer bounds the scanner's token size. Lines between
	// MaxLineLength and this are still relayed (truncated); anything
	// beyond it errors the scan and the reader falls back to draining.
	maxScanBuffer = 1024 * 1024
)

// WorkerOutputHandler relays worker stdout/stderr lines to the logger.
// Lines are forwarded as opaque text: the supervisor never acts on their
// content. A ring buffer keeps the most recent lines for inspection.
type WorkerOutputHandler struct {
	logger *slog.Logger

	buffer []string
	bufIdx int
	mu     sync.Mutex
}

// NewWorkerOutputHandler creates a handler relaying worker output.
func NewWorkerOutputHandler(logger *slog.Logger) *WorkerOutputHandler {
	return &WorkerOutputHandler{
		logger: logger,
		buffer: make([]string, MaxBufferedLines),
	}
}

// HandleReader reads from r and forwards each line, tagged with the
// stream name ("stdout" or "stderr"). Run in a goroutine; returns when
// the reader is exhausted.
func (h *WorkerOutputHandler) HandleReader(stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, MaxLineLength), maxScanBuffer)

	for scanner.Scan() {
		h.HandleLine(stream, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		// The scan error is unrecoverable mid-stream, but the pipe must
		// stay drained or the worker blocks on a full buffer.
		h.logger.Warn("worker output scan failed, draining stream",
			"stream", stream,
			"error", err,
		)
		io.Copy(io.Discard, r)
	}
}

// HandleLine forwards a single line of worker output.
func (h *WorkerOutputHandler) HandleLine(stream, line string) {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	h.mu.Lock()
	h.buffer[h.bufIdx] = line
	h.bufIdx = (h.bufIdx + 1) % MaxBufferedLines
	h.mu.Unlock()

	level := slog.LevelInfo
	if stream == "stderr" {
		level = slog.LevelWarn
	}

	h.logger.Log(nil, level, "worker_output",
		"stream", stream,
		"line", line,
	)
}

// RecentLines returns up to n of the most recent worker output lines,
// oldest first.
func (h *WorkerOutputHandler) RecentLines(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if h.buffer[idx] != "" {
			lines = append(lines, h.buffer[idx])
		}
	}

	return lines
}
