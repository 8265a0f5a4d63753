// Package scheduler runs named background checks on cron schedules and
// keeps their last outcome, e.g. whether the AI search backend answers.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CheckFunc is invoked when a scheduled check runs. A nil error marks the
// check healthy.
type CheckFunc func(ctx context.Context) error

// CheckStatus is the state of one scheduled check.
type CheckStatus struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	NextRun   time.Time `json:"next_run"`
	Schedule  string    `json:"schedule"`
	LastError string    `json:"last_error,omitempty"`
}

type check struct {
	entry    cron.EntryID
	schedule string
	fn       CheckFunc
	timeout  time.Duration
	running  bool
	ran      bool
	lastRun  time.Time
	lastErr  error
}

// Scheduler manages cron-scheduled checks.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.RWMutex
	checks  map[string]*check
	ctx     context.Context    // cancelled on Stop
	cancel  context.CancelFunc // cancels ctx
	wg      sync.WaitGroup     // tracks running checks
	started bool
	stopped bool
}

func newParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// New creates an empty Scheduler.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithParser(newParser())),
		logger: slog.Default(),
		checks: make(map[string]*check),
		ctx:    ctx,
		cancel: cancel,
	}
}

// WithLogger sets the logger for the scheduler.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// Add schedules fn under name, replacing any check of the same name. Each
// run gets timeout (no limit when zero). Until the first run completes the
// check reports healthy.
func (s *Scheduler) Add(name, cronExpr string, timeout time.Duration, fn CheckFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, exists := s.checks[name]; exists {
		s.cron.Remove(c.entry)
		delete(s.checks, name)
	}

	entry, err := s.cron.AddFunc(cronExpr, func() {
		if s.begin(name) {
			s.run(name)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	s.checks[name] = &check{entry: entry, schedule: cronExpr, fn: fn, timeout: timeout}
	s.logger.Debug("scheduled check",
		"check", name,
		"schedule", cronExpr,
		"next_run", s.cron.Entry(entry).Next)
	return nil
}

// Remove unschedules a check.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, exists := s.checks[name]; exists {
		s.cron.Remove(c.entry)
		delete(s.checks, name)
	}
}

// Start begins executing scheduled checks.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.stopped = false
	n := len(s.checks)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Debug("scheduler started", "checks", n)
}

// IsRunning returns true if the scheduler has been started and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}

// Stop stops scheduling, cancels running checks and returns a context that
// is done once they have returned.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// begin marks name running. It reports false when the check is unknown,
// already running or the scheduler is stopped.
func (s *Scheduler) begin(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checks[name]
	if !ok || s.stopped || c.running {
		return false
	}
	c.running = true
	s.wg.Add(1)
	return true
}

// run executes a check. The caller must have called begin.
func (s *Scheduler) run(name string) {
	defer s.wg.Done()

	s.mu.RLock()
	c := s.checks[name]
	fn, timeout := c.fn, c.timeout
	s.mu.RUnlock()

	ctx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	c.running = false
	c.ran = true
	c.lastRun = time.Now()
	if err != nil && c.lastErr == nil {
		s.logger.Warn("check failed", "check", name, "duration", time.Since(start), "error", err)
	} else if err == nil && c.lastErr != nil {
		s.logger.Info("check recovered", "check", name, "duration", time.Since(start))
	}
	c.lastErr = err
}

// Trigger runs a check now, outside its schedule.
func (s *Scheduler) Trigger(name string) error {
	s.mu.RLock()
	_, exists := s.checks[name]
	stopped := s.stopped
	s.mu.RUnlock()

	switch {
	case stopped:
		return fmt.Errorf("scheduler is stopped")
	case !exists:
		return fmt.Errorf("check %s is not scheduled", name)
	case !s.begin(name):
		return fmt.Errorf("check %s already running", name)
	}
	go s.run(name)
	return nil
}

// Healthy reports whether the last run of name succeeded. Unknown checks
// and checks that have not run yet are healthy.
func (s *Scheduler) Healthy(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checks[name]
	return !ok || c.lastErr == nil
}

// Status returns the state of all checks ordered by name.
func (s *Scheduler) Status() []CheckStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]CheckStatus, 0, len(s.checks))
	for name, c := range s.checks {
		st := CheckStatus{
			Name:     name,
			Healthy:  c.lastErr == nil,
			Running:  c.running,
			NextRun:  s.cron.Entry(c.entry).Next,
			Schedule: c.schedule,
		}
		if c.ran {
			st.LastRun = c.lastRun
		}
		if c.lastErr != nil {
			st.LastError = c.lastErr.Error()
		}
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	if _, err := newParser().Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
