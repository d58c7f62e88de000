package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gopunch/internal/attendance"
	"github.com/jonesrussell/gopunch/internal/config"
	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
)

type fakeExecutor struct {
	result  attendance.Result
	err     error
	action  domain.Action
	trigger domain.Trigger
	calls   int
}

func (f *fakeExecutor) Execute(
	_ context.Context,
	action domain.Action,
	trigger domain.Trigger,
	_ ...attendance.PhaseFunc,
) (attendance.Result, error) {
	f.calls++
	f.action = action
	f.trigger = trigger
	return f.result, f.err
}

type fakeHistory struct {
	attempts []domain.Attempt
	err      error
	limit    int
}

func (f *fakeHistory) Recent(limit int) ([]domain.Attempt, error) {
	f.limit = limit
	return f.attempts, f.err
}

func newTestServer(executor Executor, history History) (*Server, *attendance.State) {
	state := attendance.NewState()
	server := NewServer(config.ServerConfig{Address: ":0"}, state, executor,
		history, logger.NewNoOp())
	return server, state
}

func doRequest(server *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, http.NoBody)
	server.httpSrv.Handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(&fakeExecutor{}, nil)

	w := doRequest(server, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])
}

func TestStatusEndpoint(t *testing.T) {
	server, state := newTestServer(&fakeExecutor{}, nil)

	w := doRequest(server, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["state"].(map[string]any)["enabled"])

	state.Disable()
	w = doRequest(server, http.MethodGet, "/status")
	body = decodeBody(t, w)
	assert.Equal(t, false, body["state"].(map[string]any)["enabled"])
}

func TestEnableDisableEndpoints(t *testing.T) {
	server, state := newTestServer(&fakeExecutor{}, nil)

	w := doRequest(server, http.MethodPost, "/disable")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["state"].(map[string]any)["enabled"])
	assert.False(t, state.Enabled())

	w = doRequest(server, http.MethodPost, "/enable")
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["state"].(map[string]any)["enabled"])
	assert.True(t, state.Enabled())
}

func TestClockInEndpointSuccess(t *testing.T) {
	executor := &fakeExecutor{result: attendance.Result{
		Outcome: domain.OutcomePosted,
		Message: "Clock In recorded",
	}}
	server, _ := newTestServer(executor, nil)

	w := doRequest(server, http.MethodPost, "/clockin")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Clock In recorded", body["message"])
	assert.Equal(t, domain.ActionClockIn, executor.action)
	assert.Equal(t, domain.TriggerManual, executor.trigger)
}

func TestClockOutEndpointFailureStaysHTTP200(t *testing.T) {
	executor := &fakeExecutor{err: errors.New("portal unreachable")}
	server, _ := newTestServer(executor, nil)

	w := doRequest(server, http.MethodPost, "/clockout")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "portal unreachable", body["error"])
	assert.Equal(t, domain.ActionClockOut, executor.action)
}

func TestClockInEndpointRejectsConcurrentAttempt(t *testing.T) {
	executor := &fakeExecutor{err: attendance.ErrAttemptInProgress}
	server, _ := newTestServer(executor, nil)

	w := doRequest(server, http.MethodPost, "/clockin")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "rejected")
}

func TestDisabledStateDoesNotBlockManualTrigger(t *testing.T) {
	executor := &fakeExecutor{result: attendance.Result{Outcome: domain.OutcomePosted}}
	server, state := newTestServer(executor, nil)
	state.Disable()

	w := doRequest(server, http.MethodPost, "/clockin")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])
	assert.Equal(t, 1, executor.calls)
}

func TestHistoryEndpoint(t *testing.T) {
	history := &fakeHistory{attempts: []domain.Attempt{
		{ID: "a1", Action: domain.ActionClockIn, Outcome: domain.OutcomePosted},
	}}
	server, _ := newTestServer(&fakeExecutor{}, history)

	w := doRequest(server, http.MethodGet, "/history?limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, 5, history.limit)
}

func TestHistoryEndpointInvalidLimit(t *testing.T) {
	server, _ := newTestServer(&fakeExecutor{}, &fakeHistory{})

	w := doRequest(server, http.MethodGet, "/history?limit=nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpointWithoutJournal(t *testing.T) {
	server, _ := newTestServer(&fakeExecutor{}, nil)

	w := doRequest(server, http.MethodGet, "/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])
}
