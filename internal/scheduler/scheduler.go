// Package scheduler fires the daily clock-in and clock-out jobs. It polls a
// ticker and evaluates fire conditions against the configured local timezone
// instead of carrying cron semantics; two fixed daily jobs do not need a cron
// expression language.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/gopunch/internal/attendance"
	"github.com/jonesrussell/gopunch/internal/config"
	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
)

// fireDayLayout keys the once-per-day guard.
const fireDayLayout = "2006-01-02"

// Executor runs one attendance attempt. Satisfied by attendance.Runner.
type Executor interface {
	Execute(
		ctx context.Context,
		action domain.Action,
		trigger domain.Trigger,
		observers ...attendance.PhaseFunc,
	) (attendance.Result, error)
}

// lane tracks one daily job through its state machine.
type lane struct {
	action domain.Action
	at     string // local time of day, HH:MM

	mu        sync.Mutex
	state     LaneState
	lastFired string // local calendar day of the last fire
}

// Scheduler evaluates the two daily jobs on every tick. A job fires when
// automation is enabled, the local day is a weekday, and the local time
// matches the job's configured HH:MM. Each lane fires at most once per day
// and a failed attempt never stops the loop.
type Scheduler struct {
	executor Executor
	state    *attendance.State
	lanes    []*lane
	location *time.Location
	tick     time.Duration
	logger   logger.Interface

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// New creates a scheduler for the configured job times and timezone.
func New(
	executor Executor,
	state *attendance.State,
	cfg config.ScheduleConfig,
	log logger.Interface,
) (*Scheduler, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		executor: executor,
		state:    state,
		lanes: []*lane{
			{action: domain.ActionClockIn, at: cfg.ClockIn, state: StateIdle},
			{action: domain.ActionClockOut, at: cfg.ClockOut, state: StateIdle},
		},
		location: location,
		tick:     cfg.Tick,
		logger:   log.WithComponent("scheduler"),
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}, nil
}

// Start launches the tick loop.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler starting",
		"timezone", s.location.String(),
		"clock_in", s.lanes[0].at,
		"clock_out", s.lanes[1].at,
		"tick", s.tick.String())

	s.wg.Add(1)
	go s.run()
}

// Stop stops the tick loop and waits for any in-flight attempt to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("scheduler stopping")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.evaluate(s.now())
		}
	}
}

// evaluate checks every lane's fire condition at the given instant.
func (s *Scheduler) evaluate(now time.Time) {
	local := now.In(s.location)
	day := local.Format(fireDayLayout)
	hhmm := local.Format("15:04")

	for _, ln := range s.lanes {
		s.resetLane(ln, day)
	}

	if !s.state.Enabled() {
		return
	}
	if !isWeekday(local.Weekday()) {
		return
	}

	for _, ln := range s.lanes {
		if ln.at != hhmm {
			continue
		}
		s.fire(ln, day)
	}
}

// resetLane returns a finished lane to idle once its fire day has passed.
func (s *Scheduler) resetLane(ln *lane, day string) {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	if IsTerminalForToday(ln.state) && ln.lastFired != day {
		s.transitionLocked(ln, StateIdle)
	}
}

// fire starts the lane's attempt unless it already fired today or is busy.
func (s *Scheduler) fire(ln *lane, day string) {
	ln.mu.Lock()
	if ln.lastFired == day || ln.state != StateIdle {
		ln.mu.Unlock()
		return
	}
	s.transitionLocked(ln, StateAuthenticating)
	ln.lastFired = day
	ln.mu.Unlock()

	s.logger.Info("firing scheduled job",
		"action", ln.action.String(), "at", ln.at, "day", day)

	s.wg.Add(1)
	go s.runLane(ln)
}

// runLane executes the attempt and settles the lane's final state.
func (s *Scheduler) runLane(ln *lane) {
	defer s.wg.Done()

	observe := func(phase attendance.Phase) {
		ln.mu.Lock()
		defer ln.mu.Unlock()
		s.transitionLocked(ln, phaseState(phase))
	}

	result, err := s.executor.Execute(s.ctx, ln.action, domain.TriggerScheduled, observe)

	ln.mu.Lock()
	defer ln.mu.Unlock()
	if err != nil {
		s.logger.Error("scheduled job failed",
			"action", ln.action.String(), "error", err)
		s.transitionLocked(ln, StateFailed)
		return
	}

	s.logger.Info("scheduled job finished",
		"action", ln.action.String(),
		"outcome", string(result.Outcome),
		"message", result.Message)
	s.transitionLocked(ln, StateDone)
}

// transitionLocked applies a validated state change. The caller holds ln.mu.
func (s *Scheduler) transitionLocked(ln *lane, to LaneState) {
	if ln.state == to {
		return
	}
	if err := ValidateStateTransition(ln.state, to); err != nil {
		s.logger.Error("lane state transition rejected",
			"action", ln.action.String(), "error", err)
		return
	}
	ln.state = to
}

// phaseState maps attempt phases onto lane states.
func phaseState(phase attendance.Phase) LaneState {
	switch phase {
	case attendance.PhaseChecking:
		return StateChecking
	case attendance.PhasePosting:
		return StatePosting
	default:
		return StateAuthenticating
	}
}

func isWeekday(d time.Weekday) bool {
	return d != time.Saturday && d != time.Sunday
}
