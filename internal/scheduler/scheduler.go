package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/threading"
	"golang.org/x/sync/singleflight"

	"auction-engine/utils"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered
var ErrUnknownJob = errors.New("unknown job")

// Job is a named periodic task
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs each job on its own ticker. Runs of the same job never overlap:
// a tick or RunNow that arrives while the job is running shares that run's result.
type Scheduler struct {
	jobs   map[string]Job
	order  []string
	flight singleflight.Group

	mu      sync.Mutex
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// New creates a scheduler for the given jobs
func New(jobs ...Job) *Scheduler {
	s := &Scheduler{jobs: make(map[string]Job, len(jobs))}
	for _, j := range jobs {
		s.jobs[j.Name] = j
		s.order = append(s.order, j.Name)
	}
	return s
}

// Start launches one loop per job. It returns immediately; loops stop when ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		job := s.jobs[name]
		if job.Interval <= 0 {
			utils.Warn("Scheduler: job has no interval, not scheduled", map[string]any{"job": job.Name})
			continue
		}
		s.running.Add(1)
		threading.GoSafe(func() {
			defer s.running.Done()
			s.loop(ctx, job)
		})
	}
	utils.Info("Scheduler: started", map[string]any{"jobs": len(s.order)})
}

// Stop cancels every loop and waits for in-flight runs to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.running.Wait()
	utils.Info("Scheduler: stopped", nil)
}

// RunNow triggers a job outside its schedule and waits for it
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("scheduler: %w - %s", ErrUnknownJob, name)
	}
	return s.run(ctx, job)
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.run(ctx, job); err != nil && !errors.Is(err, context.Canceled) {
				utils.Error("Scheduler: job failed", map[string]any{
					"job":   job.Name,
					"error": err.Error(),
				})
			}
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	_, err, _ := s.flight.Do(job.Name, func() (result any, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("scheduler: job %s panicked: %v", job.Name, p)
			}
		}()
		return nil, job.Run(ctx)
	})
	return err
}
