package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
)

// LogFetcher retrieves the live attendance page for the authenticated session.
type LogFetcher interface {
	FetchAttendanceLog(ctx context.Context, sessionCookie string) (string, error)
}

// CheckResult reports whether an action was already recorded today.
// Ambiguous is set when the log could not be read conclusively; the action is
// then treated as not performed and the caller decides whether to proceed.
type CheckResult struct {
	Performed bool
	Ambiguous bool
}

// DuplicateGuard answers "did today's clock in / clock out already happen" by
// scraping the portal's attendance log. The log entries are the only source
// of truth; the page's action buttons carry no signal.
type DuplicateGuard struct {
	fetcher LogFetcher
	logger  logger.Interface
}

// NewDuplicateGuard creates a guard backed by the given page fetcher.
func NewDuplicateGuard(fetcher LogFetcher, log logger.Interface) *DuplicateGuard {
	return &DuplicateGuard{
		fetcher: fetcher,
		logger:  log.WithComponent("duplicate-guard"),
	}
}

// AlreadyPerformed checks the attendance log for an entry matching the action
// on the given day. Fetch failures propagate; an unrecognized page resolves to
// "not performed, ambiguous" so a markup change never silently suppresses a
// scheduled punch.
func (g *DuplicateGuard) AlreadyPerformed(
	ctx context.Context,
	action domain.Action,
	sessionCookie string,
	today time.Time,
) (CheckResult, error) {
	page, err := g.fetcher.FetchAttendanceLog(ctx, sessionCookie)
	if err != nil {
		return CheckResult{}, fmt.Errorf("fetch attendance log: %w", err)
	}

	entries, err := ExtractLogEntries(strings.NewReader(page))
	if err != nil {
		if errors.Is(err, ErrParseAmbiguity) {
			g.logger.Warn("attendance log unreadable, assuming not performed",
				"action", action.String(),
				"date", domain.DateLabelFor(today))
			return CheckResult{Ambiguous: true}, nil
		}
		return CheckResult{}, err
	}

	for _, entry := range entries {
		if entry.IsOn(today) && entry.Matches(action) {
			g.logger.Info("found existing attendance entry",
				"action", action.String(),
				"time", entry.Time,
				"date", entry.DateLabel)
			return CheckResult{Performed: true}, nil
		}
	}

	return CheckResult{}, nil
}
