package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Maintainer is the part of the quote service the scheduler drives.
type Maintainer interface {
	Reindex() (int, error)
	PrunePreviews(maxAge time.Duration) (int, error)
}

// Scheduler runs maintenance cycles on a cron schedule.
type Scheduler struct {
	config   *Config
	schedule cron.Schedule
	target   Maintainer

	mu      sync.Mutex
	running bool
}

// CycleStats holds statistics for a maintenance cycle.
type CycleStats struct {
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	Indexed        int
	PreviewsPruned int
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a Scheduler. It fails when the schedule does not parse.
func New(target Maintainer, opts ...Option) (*Scheduler, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	schedule, err := parser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	return &Scheduler{
		config:   cfg,
		schedule: schedule,
		target:   target,
	}, nil
}

// Next returns the next activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run starts the scheduler and blocks until the stop channel is closed.
func (s *Scheduler) Run(stop <-chan struct{}) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		slog.Warn("scheduler already running")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	slog.Info("scheduler started",
		"schedule", s.config.Schedule,
		"run_on_start", s.config.RunOnStart,
		"preview_max_age", s.config.PreviewMaxAge.String(),
	)

	if s.config.RunOnStart {
		s.runCycle()
	}

	c := cron.New(cron.WithParser(parser))
	c.Schedule(s.schedule, cron.FuncJob(s.runCycle))
	c.Start()

	<-stop
	slog.Info("scheduler stopping")
	<-c.Stop().Done()
}

// RunOnce executes a single maintenance cycle (for testing or manual runs).
func (s *Scheduler) RunOnce(ctx context.Context) (*CycleStats, error) {
	return s.executeCycle(ctx)
}

func (s *Scheduler) runCycle() {
	stats, err := s.executeCycle(context.Background())
	if err != nil {
		slog.Error("maintenance cycle failed", "error", err)
		return
	}

	slog.Info("maintenance cycle complete",
		"duration", stats.Duration.String(),
		"indexed", stats.Indexed,
		"previews_pruned", stats.PreviewsPruned,
	)
}

func (s *Scheduler) executeCycle(ctx context.Context) (*CycleStats, error) {
	stats := &CycleStats{
		StartTime: time.Now(),
	}

	n, err := s.target.Reindex()
	if err != nil {
		return nil, fmt.Errorf("reindex failed: %w", err)
	}
	stats.Indexed = n

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.config.PreviewMaxAge > 0 {
		pruned, err := s.target.PrunePreviews(s.config.PreviewMaxAge)
		if err != nil {
			return nil, fmt.Errorf("preview pruning failed: %w", err)
		}
		stats.PreviewsPruned = pruned
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	return stats, nil
}
