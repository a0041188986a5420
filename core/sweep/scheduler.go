package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var ErrUnknownJob = errors.New("unknown sweep job")

// TickerFunc returns a channel ticking every d and the func stopping it.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(d)
	return ticker.C, ticker.Stop
}

type entry struct {
	job      Job
	interval time.Duration

	run  sync.Mutex // held while the job runs
	mu   sync.RWMutex
	last *Summary
}

// Scheduler runs each registered Job once on Start, then every interval.
// A job never overlaps with itself: RunNow waits for an in-flight run.
type Scheduler struct {
	logger    core.Logger
	now       func() time.Time
	newTicker TickerFunc

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler returns a Scheduler reading the time from now (time.Now when nil).
func NewScheduler(logger core.Logger, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		logger:    logger,
		now:       now,
		newTicker: realTicker,
		entries:   make(map[string]*entry),
	}
}

// WithTicker replaces the ticker driving the job intervals. Call it before Start.
func (s *Scheduler) WithTicker(fn TickerFunc) *Scheduler {
	s.newTicker = fn
	return s
}

// Register adds a job. Registering a name twice replaces the previous job.
// Jobs registered after Start only run through RunNow.
func (s *Scheduler) Register(job Job, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, ok := s.entries[name]; !ok {
		s.order = append(s.order, name)
	}
	s.entries[name] = &entry{job: job, interval: interval}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		e := s.entries[name]
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
	s.logger.Info(fmt.Sprintf("sweep scheduler started with %d jobs", len(s.order)))
}

// Stop cancels the running jobs and waits for their loops to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("sweep scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	if ctx.Err() != nil {
		return
	}
	_, _ = s.runEntry(ctx, e)

	if e.interval <= 0 {
		return
	}
	ticks, stop := s.newTicker(e.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			_, _ = s.runEntry(ctx, e)
		}
	}
}

// RunNow runs the named job immediately and returns its summary.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Summary, error) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return Summary{}, ErrUnknownJob
	}
	return s.runEntry(ctx, e)
}

func (s *Scheduler) runEntry(ctx context.Context, e *entry) (Summary, error) {
	e.run.Lock()
	defer e.run.Unlock()

	name := e.job.Name()
	summary, err := e.job.RunOnce(ctx, s.now())
	if summary.Job == "" {
		summary.Job = name
	}
	if err != nil {
		summary.Error = err.Error()
		s.logger.Error(fmt.Sprintf("sweep %s failed: %v", name, err), err, summary)
	} else if summary.HasFailures() {
		s.logger.Warn(summary.String(), summary)
	} else {
		s.logger.Info(summary.String())
	}
	for _, r := range summary.Results {
		if r.Outcome == OutcomeFailed {
			s.logger.Error(fmt.Sprintf("sweep %s: item %s failed: %s", name, r.ID, r.Error))
		}
	}

	e.mu.Lock()
	e.last = &summary
	e.mu.Unlock()
	return summary, err
}

// Last returns the summary of the latest run of the named job.
func (s *Scheduler) Last(name string) (Summary, bool) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return Summary{}, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return Summary{}, false
	}
	return *e.last, true
}

// LastSummaries returns the latest summary of every job that ran, in registration order.
func (s *Scheduler) LastSummaries() []Summary {
	s.mu.RLock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	s.mu.RUnlock()

	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		if summary, ok := s.Last(name); ok {
			summaries = append(summaries, summary)
		}
	}
	return summaries
}

// Jobs returns the registered job names, in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}
