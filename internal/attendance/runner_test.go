package attendance

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gopunch/internal/config"
	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
	"github.com/jonesrussell/gopunch/internal/portal"
)

type fakeAuth struct {
	cookie string
	err    error
	calls  int
}

func (f *fakeAuth) Authenticate(_ context.Context) (string, error) {
	f.calls++
	return f.cookie, f.err
}

type fakeResolver struct {
	loc domain.Location
}

func (f *fakeResolver) Resolve(_ context.Context) domain.Location {
	return f.loc
}

type fakePoster struct {
	mu      sync.Mutex
	result  domain.PostResult
	errs    []error // consumed per call, nil entries mean success
	calls   int
	block   chan struct{} // when set, PostAction waits until closed
	started chan struct{} // when set, closed on first call
}

func (f *fakePoster) PostAction(
	_ context.Context,
	_ domain.Action,
	_ domain.Location,
	_ string,
	_ string,
) (domain.PostResult, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	started := f.started
	f.started = nil
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if f.block != nil {
		<-f.block
	}
	if call < len(f.errs) && f.errs[call] != nil {
		return domain.PostResult{}, f.errs[call]
	}
	return f.result, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeNotifier) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []domain.Attempt
}

func (f *fakeRecorder) Record(attempt domain.Attempt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
}

// emptyLogPage has history rows but none for the runner's test day.
const emptyLogPage = `<html><body><ul>
<li>08:49 AM 23 Oct Clock In</li>
<li>05:03 PM 23 Oct Clock Out</li>
</ul></body></html>`

func newTestRunner(
	provider *fakeAuth,
	poster *fakePoster,
	fetcher *fakeLogFetcher,
	notifier *fakeNotifier,
	recorder *fakeRecorder,
) *Runner {
	guard := NewDuplicateGuard(fetcher, logger.NewNoOp())
	runner := NewRunner(
		provider,
		&fakeResolver{loc: domain.Location{Latitude: "-6.175392", Longitude: "106.827153"}},
		poster,
		guard,
		notifier,
		recorder,
		config.PortalConfig{
			ClockInMessage:  "Hello I am In",
			ClockOutMessage: "Goodbye I am Out",
		},
		time.UTC,
		logger.NewNoOp(),
	)
	runner.now = func() time.Time {
		return time.Date(2026, time.October, 24, 8, 49, 0, 0, time.UTC)
	}
	runner.policy.Delay = time.Millisecond
	return runner
}

func TestRunnerExecutePosts(t *testing.T) {
	provider := &fakeAuth{cookie: "PHPSESSID=abc"}
	poster := &fakePoster{result: domain.PostResult{StatusCode: 200, Message: "Success"}}
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	runner := newTestRunner(provider, poster, &fakeLogFetcher{page: emptyLogPage},
		notifier, recorder)

	result, err := runner.Execute(
		context.Background(), domain.ActionClockIn, domain.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePosted, result.Outcome)
	assert.NotEmpty(t, result.AttemptID)
	assert.Equal(t, 1, poster.calls)
	assert.Contains(t, notifier.last(), "Clock In successful")

	require.Len(t, recorder.attempts, 1)
	assert.Equal(t, domain.OutcomePosted, recorder.attempts[0].Outcome)
	assert.Equal(t, domain.TriggerManual, recorder.attempts[0].Trigger)
}

func TestRunnerExecuteSkipsDuplicate(t *testing.T) {
	fetcher := &fakeLogFetcher{page: logPage("08:30 AM 24 Oct Clock In")}
	poster := &fakePoster{}
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	runner := newTestRunner(&fakeAuth{cookie: "PHPSESSID=abc"}, poster, fetcher,
		notifier, recorder)

	result, err := runner.Execute(
		context.Background(), domain.ActionClockIn, domain.TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSkipped, result.Outcome)
	assert.Zero(t, poster.calls)
	assert.Contains(t, notifier.last(), "already recorded today")
}

func TestRunnerDuplicateCheckUsesScheduleTimezone(t *testing.T) {
	// 17:30 UTC on 24 Oct is already 00:30 on 25 Oct in Jakarta. The portal
	// shows the entry under the local date, so the check must compare against
	// the schedule's zone, not the host clock's.
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	fetcher := &fakeLogFetcher{page: logPage("08:49 AM 25 Oct Clock In")}
	poster := &fakePoster{result: domain.PostResult{StatusCode: 200}}
	runner := newTestRunner(&fakeAuth{cookie: "PHPSESSID=abc"}, poster, fetcher,
		&fakeNotifier{}, &fakeRecorder{})
	runner.location = jakarta
	runner.now = func() time.Time {
		return time.Date(2026, time.October, 24, 17, 30, 0, 0, time.UTC)
	}

	result, err := runner.Execute(
		context.Background(), domain.ActionClockIn, domain.TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSkipped, result.Outcome)
	assert.Zero(t, poster.calls)
}

func TestRunnerExecuteAmbiguousLogStillPosts(t *testing.T) {
	fetcher := &fakeLogFetcher{page: "<html><body>redesigned</body></html>"}
	poster := &fakePoster{result: domain.PostResult{StatusCode: 200}}
	notifier := &fakeNotifier{}
	runner := newTestRunner(&fakeAuth{cookie: "PHPSESSID=abc"}, poster, fetcher,
		notifier, &fakeRecorder{})

	result, err := runner.Execute(
		context.Background(), domain.ActionClockOut, domain.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePosted, result.Outcome)
	assert.True(t, result.Ambiguous)
	assert.Contains(t, notifier.last(), "could not be verified")
}

func TestRunnerExecuteRetriesExpiredSession(t *testing.T) {
	provider := &fakeAuth{cookie: "PHPSESSID=abc"}
	poster := &fakePoster{
		result: domain.PostResult{StatusCode: 200},
		errs:   []error{fmt.Errorf("%w: status 401", portal.ErrUnauthenticated)},
	}
	runner := newTestRunner(provider, poster, &fakeLogFetcher{page: emptyLogPage},
		&fakeNotifier{}, &fakeRecorder{})

	result, err := runner.Execute(
		context.Background(), domain.ActionClockIn, domain.TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePosted, result.Outcome)
	assert.Equal(t, 2, poster.calls)
	assert.Equal(t, 2, provider.calls)
}

func TestRunnerExecuteGivesUpAfterMaxAttempts(t *testing.T) {
	sessionErr := fmt.Errorf("%w: status 401", portal.ErrUnauthenticated)
	poster := &fakePoster{errs: []error{sessionErr, sessionErr, sessionErr}}
	recorder := &fakeRecorder{}
	runner := newTestRunner(&fakeAuth{cookie: "PHPSESSID=abc"}, poster,
		&fakeLogFetcher{page: emptyLogPage}, &fakeNotifier{}, recorder)

	_, err := runner.Execute(
		context.Background(), domain.ActionClockIn, domain.TriggerScheduled)
	require.Error(t, err)

	assert.Equal(t, 3, poster.calls)
	require.Len(t, recorder.attempts, 1)
	assert.Equal(t, domain.OutcomeFailed, recorder.attempts[0].Outcome)
}

func TestRunnerExecutePortalRejection(t *testing.T) {
	poster := &fakePoster{
		result: domain.PostResult{StatusCode: 422, Message: "Request not permitted"},
	}
	notifier := &fakeNotifier{}
	runner := newTestRunner(&fakeAuth{cookie: "PHPSESSID=abc"}, poster,
		&fakeLogFetcher{page: emptyLogPage}, notifier, &fakeRecorder{})

	result, err := runner.Execute(
		context.Background(), domain.ActionClockIn, domain.TriggerManual)
	require.Error(t, err)

	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
	assert.Contains(t, notifier.last(), "failed")
}

func TestRunnerExecuteRejectsConcurrentAttempt(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	poster := &fakePoster{
		result:  domain.PostResult{StatusCode: 200},
		block:   block,
		started: started,
	}
	runner := newTestRunner(&fakeAuth{cookie: "PHPSESSID=abc"}, poster,
		&fakeLogFetcher{page: emptyLogPage}, &fakeNotifier{}, &fakeRecorder{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := runner.Execute(
			context.Background(), domain.ActionClockIn, domain.TriggerScheduled)
		firstDone <- err
	}()

	// Wait until the first attempt holds the lock inside PostAction.
	<-started

	_, err := runner.Execute(
		context.Background(), domain.ActionClockOut, domain.TriggerManual)
	assert.ErrorIs(t, err, ErrAttemptInProgress)

	close(block)
	require.NoError(t, <-firstDone)
}

func TestRunnerExecuteAuthFailure(t *testing.T) {
	provider := &fakeAuth{err: fmt.Errorf("invalid email or password")}
	poster := &fakePoster{}
	runner := newTestRunner(provider, poster, &fakeLogFetcher{page: emptyLogPage},
		&fakeNotifier{}, &fakeRecorder{})

	_, err := runner.Execute(
		context.Background(), domain.ActionClockIn, domain.TriggerManual)
	require.Error(t, err)
	assert.Zero(t, poster.calls)
}
