// Package scheduler runs the background interval jobs: campaign post
// monitoring and hashtag prefetch. Jobs invoke tools through the same
// dispatcher the orchestrator uses.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/pkg/clock"
	"github.com/brandlens/brandlens/pkg/safego"
)

// Job is one guarded interval job. The running flag makes an overdue tick
// skip instead of queueing behind a slow previous execution.
type Job struct {
	Name     string
	Interval time.Duration
	// InitialDelay fires the job once this long after Start, before the
	// interval cadence begins. Zero means no startup run.
	InitialDelay time.Duration
	Run          func(ctx context.Context)

	running atomic.Bool
}

// Scheduler drives a set of jobs until its context is cancelled.
type Scheduler struct {
	jobs   []*Job
	clock  clock.Clock
	logger *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(clk clock.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:  clk,
		logger: logger.With(zap.String("component", "scheduler")),
	}
}

// Add registers a job. Not safe to call after Start.
func (s *Scheduler) Add(job *Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches one goroutine per job. Tickers stop with the context, so
// the scheduler never keeps the process alive past shutdown.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		job := job
		s.wg.Add(1)
		safego.Go(s.logger, "scheduler:"+job.Name, func() {
			defer s.wg.Done()
			s.runJob(ctx, job)
		})
	}
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop cancels all jobs and waits for in-flight executions to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	if job.InitialDelay > 0 {
		select {
		case <-time.After(job.InitialDelay):
			s.tick(ctx, job)
		case <-ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one guarded execution. A tick arriving while the previous run is
// still going is dropped, not queued.
func (s *Scheduler) tick(ctx context.Context, job *Job) {
	if !job.running.CompareAndSwap(false, true) {
		s.logger.Warn("Job still running, skipping tick", zap.String("job", job.Name))
		return
	}
	defer job.running.Store(false)

	start := s.clock.Now()
	s.logger.Info("Job started", zap.String("job", job.Name))
	job.Run(ctx)
	s.logger.Info("Job finished",
		zap.String("job", job.Name),
		zap.Duration("duration", s.clock.Since(start)),
	)
}
