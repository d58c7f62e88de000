package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/gopunch/internal/auth"
	"github.com/jonesrussell/gopunch/internal/config"
	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
)

// ErrAttemptInProgress is returned when an attempt is requested while another
// one is still running. The caller reports it instead of queueing.
var ErrAttemptInProgress = errors.New("an attendance attempt is already in progress")

// Phase marks the stage an attempt is currently in. Observers receive phases
// in order; they are informational and never affect the attempt itself.
type Phase string

const (
	// PhaseAuthenticating covers session acquisition.
	PhaseAuthenticating Phase = "authenticating"
	// PhaseChecking covers the duplicate guard's log scrape.
	PhaseChecking Phase = "checking"
	// PhasePosting covers the portal form submission.
	PhasePosting Phase = "posting"
)

// PhaseFunc observes attempt phase changes.
type PhaseFunc func(Phase)

// ActionPoster submits an attendance action to the portal.
type ActionPoster interface {
	PostAction(
		ctx context.Context,
		action domain.Action,
		loc domain.Location,
		cookie string,
		description string,
	) (domain.PostResult, error)
}

// LocationResolver produces the coordinates for a posting.
type LocationResolver interface {
	Resolve(ctx context.Context) domain.Location
}

// Notifier delivers a human-readable message about an attempt. Delivery is
// best effort; implementations log and swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Recorder appends an attempt to the local history.
type Recorder interface {
	Record(attempt domain.Attempt)
}

// Result is the outcome of one attendance attempt.
type Result struct {
	AttemptID string            `json:"attempt_id"`
	Outcome   domain.Outcome    `json:"outcome"`
	Message   string            `json:"message"`
	Post      domain.PostResult `json:"post,omitempty"`
	// Ambiguous is set when the duplicate check could not read the log and
	// the posting proceeded without it.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// Runner executes attendance attempts. All triggers, scheduled, manual, and
// CLI, go through the same Execute path: authenticate, check the attendance
// log, then post. A single process-wide lock serializes attempts; a second
// request while one is running is rejected, never queued.
type Runner struct {
	auth     auth.Provider
	resolver LocationResolver
	poster   ActionPoster
	guard    *DuplicateGuard
	notifier Notifier
	recorder Recorder
	policy   RetryPolicy
	messages map[domain.Action]string
	logger   logger.Interface

	// location is the schedule's timezone. "Today" for the duplicate check
	// is always this zone's calendar date, whatever the host clock runs in.
	location *time.Location

	mu  sync.Mutex
	now func() time.Time
}

// NewRunner wires the attempt pipeline. recorder may be nil when no journal
// is configured.
func NewRunner(
	provider auth.Provider,
	resolver LocationResolver,
	poster ActionPoster,
	guard *DuplicateGuard,
	notifier Notifier,
	recorder Recorder,
	portalCfg config.PortalConfig,
	scheduleLoc *time.Location,
	log logger.Interface,
) *Runner {
	if scheduleLoc == nil {
		scheduleLoc = time.Local
	}
	return &Runner{
		auth:     provider,
		resolver: resolver,
		poster:   poster,
		guard:    guard,
		notifier: notifier,
		recorder: recorder,
		policy:   DefaultRetryPolicy(),
		messages: map[domain.Action]string{
			domain.ActionClockIn:  portalCfg.ClockInMessage,
			domain.ActionClockOut: portalCfg.ClockOutMessage,
		},
		logger:   log.WithComponent("runner"),
		location: scheduleLoc,
		now:      time.Now,
	}
}

// Execute runs one attendance attempt end to end. It returns
// ErrAttemptInProgress without blocking when another attempt holds the lock.
// Expired sessions are retried with a fresh login per the retry policy.
func (r *Runner) Execute(
	ctx context.Context,
	action domain.Action,
	trigger domain.Trigger,
	observers ...PhaseFunc,
) (Result, error) {
	if !r.mu.TryLock() {
		return Result{}, ErrAttemptInProgress
	}
	defer r.mu.Unlock()

	attemptID := uuid.New().String()
	log := r.logger.WithAction(action.String()).WithAttemptID(attemptID)
	log.Info("attendance attempt started", "trigger", string(trigger))

	var (
		result Result
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = r.attempt(ctx, action, log, observers)
		if err == nil || !r.policy.Retryable(err) || attempt >= r.policy.MaxAttempts {
			break
		}
		log.Warn("session rejected, refreshing and retrying",
			"attempt", attempt, "max_attempts", r.policy.MaxAttempts)
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(r.policy.Delay):
			continue
		}
		break
	}

	result.AttemptID = attemptID
	if err != nil {
		result.Outcome = domain.OutcomeFailed
		result.Message = err.Error()
	}

	r.finish(ctx, action, trigger, attemptID, result, err, log)
	return result, err
}

// attempt runs one pass of the pipeline without retry handling.
func (r *Runner) attempt(
	ctx context.Context,
	action domain.Action,
	log logger.Interface,
	observers []PhaseFunc,
) (Result, error) {
	notifyPhase(observers, PhaseAuthenticating)
	cookie, err := r.auth.Authenticate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("authenticate: %w", err)
	}

	notifyPhase(observers, PhaseChecking)
	today := r.now().In(r.location)
	check, err := r.guard.AlreadyPerformed(ctx, action, cookie, today)
	if err != nil {
		return Result{}, err
	}
	if check.Performed {
		log.Info("action already recorded today, skipping")
		return Result{
			Outcome: domain.OutcomeSkipped,
			Message: fmt.Sprintf("%s already recorded today", action.Label()),
		}, nil
	}

	notifyPhase(observers, PhasePosting)
	loc := r.resolver.Resolve(ctx)
	post, err := r.poster.PostAction(ctx, action, loc, cookie, r.messages[action])
	if err != nil {
		return Result{}, err
	}
	if !post.Success() {
		return Result{Post: post}, fmt.Errorf("portal rejected %s: %s",
			action.Label(), post.Message)
	}

	log.Info("attendance posted",
		"portal_status", post.StatusCode, "record_id", post.RecordID)
	return Result{
		Outcome:   domain.OutcomePosted,
		Message:   fmt.Sprintf("%s recorded", action.Label()),
		Post:      post,
		Ambiguous: check.Ambiguous,
	}, nil
}

// finish records the attempt and sends the outcome notification.
func (r *Runner) finish(
	ctx context.Context,
	action domain.Action,
	trigger domain.Trigger,
	attemptID string,
	result Result,
	execErr error,
	log logger.Interface,
) {
	if execErr != nil {
		log.Error("attendance attempt failed", "error", execErr)
	}

	at := r.now().In(r.location)

	if r.recorder != nil {
		r.recorder.Record(domain.Attempt{
			ID:      attemptID,
			Action:  action,
			Trigger: trigger,
			Outcome: result.Outcome,
			Message: result.Message,
			At:      at,
		})
	}

	if r.notifier != nil {
		r.notifier.Notify(ctx, notificationText(action, result, at))
	}
}

// notificationText renders the outcome message sent to the notification sink.
func notificationText(action domain.Action, result Result, at time.Time) string {
	stamp := at.Format("Mon, 2 Jan 2006 15:04")
	switch result.Outcome {
	case domain.OutcomePosted:
		text := fmt.Sprintf("%s successful at %s", action.Label(), stamp)
		if result.Ambiguous {
			text += " (attendance log could not be verified beforehand)"
		}
		return text
	case domain.OutcomeSkipped:
		return fmt.Sprintf("%s skipped at %s: already recorded today",
			action.Label(), stamp)
	default:
		return fmt.Sprintf("%s failed at %s: %s", action.Label(), stamp, result.Message)
	}
}

func notifyPhase(observers []PhaseFunc, phase Phase) {
	for _, observe := range observers {
		if observe != nil {
			observe(phase)
		}
	}
}
