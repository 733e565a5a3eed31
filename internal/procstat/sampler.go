// Package procstat samples CPU and memory usage of the worker process.
package procstat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Usage is one resource sample of the tracked process.
type Usage struct {
	CPUPercent float64
	RSSBytes   uint64
	SampledAt  time.Time
}

// Sink receives resource samples. Implemented by metrics.Collector.
type Sink interface {
	SetResourceUsage(cpuPercent float64, rssBytes uint64)
	ClearResourceUsage()
}

// Sampler periodically samples the tracked PID and forwards usage to the
// sink. Track/Clear follow the worker lifecycle; Run drives the loop.
type Sampler struct {
	interval time.Duration
	sink     Sink
	logger   *slog.Logger

	mu   sync.Mutex
	proc *process.Process
	last Usage
}

// NewSampler creates a sampler. sink may be nil.
func NewSampler(interval time.Duration, sink Sink, logger *slog.Logger) *Sampler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Sampler{
		interval: interval,
		sink:     sink,
		logger:   logger,
	}
}

// Track starts sampling the given PID, replacing any previous target.
func (s *Sampler) Track(pid int) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		s.logger.Debug("procstat_track_failed", "pid", pid, "error", err)
		return
	}

	s.mu.Lock()
	s.proc = p
	s.last = Usage{}
	s.mu.Unlock()
}

// Clear stops sampling and zeroes the sink's gauges.
func (s *Sampler) Clear() {
	s.mu.Lock()
	s.proc = nil
	s.last = Usage{}
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.ClearResourceUsage()
	}
}

// Last returns the most recent sample.
func (s *Sampler) Last() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Run samples on every tick until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

// sample reads one CPU/RSS measurement from the tracked process.
func (s *Sampler) sample() {
	s.mu.Lock()
	p := s.proc
	s.mu.Unlock()

	if p == nil {
		return
	}

	cpu, err := p.CPUPercent()
	if err != nil {
		// Worker likely exited between Track and this tick.
		s.logger.Debug("procstat_cpu_sample_failed", "error", err)
		return
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		s.logger.Debug("procstat_mem_sample_failed", "error", err)
		return
	}

	u := Usage{
		CPUPercent: cpu,
		RSSBytes:   mem.RSS,
		SampledAt:  time.Now(),
	}

	s.mu.Lock()
	s.last = u
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.SetResourceUsage(u.CPUPercent, u.RSSBytes)
	}
}
