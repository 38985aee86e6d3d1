// Package scheduler runs shell commands once a day at a fixed local time.
// Jobs live in memory for the life of the process.
package scheduler

import (
	"context"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/common/uuid"
)

const DefaultTick = time.Second

type JobID string

// Job is a snapshot of a scheduled command.
type Job struct {
	ID        JobID     `json:"id"`
	TimeOfDay string    `json:"time_of_day"`
	Command   string    `json:"command"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
}

// Runner executes a command. The default runs it with sh -c.
type Runner func(ctx context.Context, command string) error

type job struct {
	Job
	hour, minute int
	created      time.Time
}

type Scheduler struct {
	mu      sync.Mutex
	jobs    map[JobID]*job
	tick    time.Duration
	now     func() time.Time
	run     Runner
	running bool
	wg      sync.WaitGroup
}

type Option func(*Scheduler)

func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithRunner(r Runner) Option {
	return func(s *Scheduler) { s.run = r }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs: make(map[JobID]*job),
		tick: DefaultTick,
		now:  time.Now,
		run:  ShellRunner,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShellRunner runs command with sh -c and logs its combined output.
func ShellRunner(ctx context.Context, command string) error {
	out, err := exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
	log.Ctx(ctx).Info().Str("command", command).Bytes("output", out).Err(err).Msg("scheduled job finished")
	return err
}

// ParseTimeOfDay parses "HH:MM" in 24-hour time.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, perr := time.Parse("15:04", s)
	if perr != nil || len(s) != 5 {
		return 0, 0, ErrInvalidTimeOfDay.Msg("invalid time of day " + `"` + s + `", expected HH:MM`)
	}
	return t.Hour(), t.Minute(), nil
}

// ScheduleDaily registers command to run every day at timeOfDay.
func (s *Scheduler) ScheduleDaily(timeOfDay, command string) (JobID, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return "", err
	}
	if command == "" {
		return "", ErrEmptyCommand
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	j := &job{
		Job: Job{
			ID:        JobID(uuid.NewString()),
			TimeOfDay: timeOfDay,
			Command:   command,
			NextRun:   nextOccurrence(now, hour, minute),
		},
		hour:    hour,
		minute:  minute,
		created: now,
	}
	s.jobs[j.ID] = j
	log.Info().Str("job_id", string(j.ID)).Str("command", command).Str("at", timeOfDay).Msg("job scheduled")
	return j.ID, nil
}

// Cancel removes a job. A run already in progress is not interrupted.
func (s *Scheduler) Cancel(id JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrJobNotFound.Msg("job not found: " + string(id))
	}
	delete(s.jobs, id)
	return nil
}

// Jobs returns the scheduled jobs in creation order.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		list = append(list, j)
	}
	sort.Slice(list, func(a, b int) bool {
		if list[a].created.Equal(list[b].created) {
			return list[a].ID < list[b].ID
		}
		return list[a].created.Before(list[b].created)
	})
	out := make([]Job, len(list))
	for i, j := range list {
		out[i] = j.Job
	}
	return out
}

// Run checks for due jobs every tick until ctx ends, then waits for
// in-flight commands to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Ctx(ctx).Info().Dur("tick", s.tick).Msg("scheduler started")
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			log.Ctx(ctx).Info().Msg("scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunPending(ctx)
		}
	}
}

// RunPending starts every job whose next run time has passed and advances
// it to the following day. It returns the number of jobs started.
func (s *Scheduler) RunPending(ctx context.Context) int {
	s.mu.Lock()
	now := s.now()
	var due []*job
	for _, j := range s.jobs {
		if !now.Before(j.NextRun) {
			due = append(due, j)
			j.LastRun = now
			j.Runs++
			j.NextRun = nextOccurrence(now, j.hour, j.minute)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.wg.Add(1)
		go func(id JobID, command string) {
			defer s.wg.Done()
			err := s.run(ctx, command)
			s.mu.Lock()
			if j, ok := s.jobs[id]; ok {
				j.LastError = ""
				if err != nil {
					j.LastError = err.Error()
				}
			}
			s.mu.Unlock()
			if err != nil {
				log.Ctx(ctx).Error().Err(err).Str("job_id", string(id)).Msg("scheduled job failed")
			}
		}(j.ID, j.Command)
	}
	return len(due)
}

// Wait blocks until every started command has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// nextOccurrence is the first hour:minute strictly after now, in now's zone.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}
