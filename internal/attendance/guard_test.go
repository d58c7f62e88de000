package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
)

type fakeLogFetcher struct {
	page string
	err  error
}

func (f *fakeLogFetcher) FetchAttendanceLog(_ context.Context, _ string) (string, error) {
	return f.page, f.err
}

// logPage renders a minimal attendance page with the given history rows.
func logPage(rows ...string) string {
	page := "<html><body><ul>"
	for _, row := range rows {
		page += "<li>" + row + "</li>"
	}
	page += "</ul></body></html>"
	return page
}

func TestDuplicateGuardFindsTodayEntry(t *testing.T) {
	today := time.Date(2026, time.October, 24, 9, 0, 0, 0, time.UTC)
	guard := NewDuplicateGuard(&fakeLogFetcher{
		page: logPage(
			"08:49 AM 24 Oct Clock In",
			"05:03 PM 23 Oct Clock Out",
		),
	}, logger.NewNoOp())

	check, err := guard.AlreadyPerformed(
		context.Background(), domain.ActionClockIn, "PHPSESSID=x", today)
	require.NoError(t, err)
	assert.True(t, check.Performed)
	assert.False(t, check.Ambiguous)
}

func TestDuplicateGuardIgnoresOtherDaysAndActions(t *testing.T) {
	today := time.Date(2026, time.October, 24, 17, 0, 0, 0, time.UTC)
	guard := NewDuplicateGuard(&fakeLogFetcher{
		page: logPage(
			"08:49 AM 24 Oct Clock In",
			"05:03 PM 23 Oct Clock Out",
		),
	}, logger.NewNoOp())

	// A clock-out from yesterday does not count for today.
	check, err := guard.AlreadyPerformed(
		context.Background(), domain.ActionClockOut, "PHPSESSID=x", today)
	require.NoError(t, err)
	assert.False(t, check.Performed)
}

func TestDuplicateGuardMatchesZeroPaddedDay(t *testing.T) {
	// The portal pads single-digit days in some renderings; the entry still
	// counts for today.
	today := time.Date(2026, time.October, 4, 9, 0, 0, 0, time.UTC)
	guard := NewDuplicateGuard(&fakeLogFetcher{
		page: logPage("08:49 AM 04 Oct Clock In"),
	}, logger.NewNoOp())

	check, err := guard.AlreadyPerformed(
		context.Background(), domain.ActionClockIn, "PHPSESSID=x", today)
	require.NoError(t, err)
	assert.True(t, check.Performed)
}

func TestDuplicateGuardAmbiguousPage(t *testing.T) {
	today := time.Date(2026, time.October, 24, 9, 0, 0, 0, time.UTC)
	guard := NewDuplicateGuard(&fakeLogFetcher{
		page: "<html><body><div>nothing recognizable</div></body></html>",
	}, logger.NewNoOp())

	check, err := guard.AlreadyPerformed(
		context.Background(), domain.ActionClockIn, "PHPSESSID=x", today)
	require.NoError(t, err)
	assert.False(t, check.Performed)
	assert.True(t, check.Ambiguous)
}

func TestDuplicateGuardFetchError(t *testing.T) {
	fetchErr := errors.New("connection refused")
	guard := NewDuplicateGuard(&fakeLogFetcher{err: fetchErr}, logger.NewNoOp())

	_, err := guard.AlreadyPerformed(
		context.Background(), domain.ActionClockIn, "PHPSESSID=x", time.Now())
	assert.ErrorIs(t, err, fetchErr)
}
