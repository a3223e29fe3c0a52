package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"starknet_portfolio/internal/app/port"
)

var (
	// ErrJobRunning is returned when a job is triggered while a previous run
	// of the same job has not returned yet.
	ErrJobRunning = errors.New("job already running")
	ErrUnknownJob = errors.New("unknown job")
)

// Job is a unit of background work.
type Job interface {
	Run() error
	Name() string
}

// slot tracks one registered job. busy is shared by scheduled ticks and
// manual triggers, so at most one run of a job is in flight.
type slot struct {
	job  Job
	busy atomic.Bool
}

// Scheduler runs named jobs on cron schedules and on demand.
type Scheduler struct {
	cron *cron.Cron
	log  port.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

func New(l port.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger{l})),
		),
		log:   l,
		slots: make(map[string]*slot),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", "jobs", s.Entries())
}

// Stop waits for scheduled runs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// AddJob registers job under schedule. Both six-field specs with seconds and
// descriptors such as "@every 6h" are accepted. Job names must be unique.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, dup := s.slots[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	sl := &slot{job: job}
	if _, err := s.cron.AddFunc(schedule, func() { _ = s.trigger(sl, "schedule") }); err != nil {
		return err
	}
	s.slots[name] = sl

	s.log.Info("Job registered", "schedule", schedule, "job", name)
	return nil
}

// RunNow runs the named job immediately, outside its schedule. It returns
// ErrJobRunning without running anything when the job is already in flight.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	sl, ok := s.slots[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.trigger(sl, "manual")
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) trigger(sl *slot, source string) error {
	name := sl.job.Name()
	if !sl.busy.CompareAndSwap(false, true) {
		s.log.Warn("Job still running, skipping", "job", name, "trigger", source)
		return fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	defer sl.busy.Store(false)

	s.log.Debug("Running job", "job", name, "trigger", source)
	if err := sl.job.Run(); err != nil {
		s.log.Error("Job failed", "job", name, "trigger", source, "error", err)
		return err
	}
	s.log.Debug("Job completed", "job", name, "trigger", source)
	return nil
}

// cronLogger feeds cron's own messages (recovered panics) into port.Logger.
type cronLogger struct {
	log port.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, append(keysAndValues, "error", err)...)
}
