// Package attendance implements the duplicate guard and the shared posting
// path used by the scheduler, the control API, and the CLI.
package attendance

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/gopunch/internal/domain"
)

// ErrParseAmbiguity is returned when the attendance page yields no
// recognizable log structure. The portal's markup is a third-party contract
// and can change without notice; an unrecognized page means "status unknown",
// never "nothing recorded".
var ErrParseAmbiguity = errors.New("attendance log structure not recognized")

// Patterns matching the portal's log entry text: a displayed time of day,
// a day + abbreviated month date label, and the event label.
var (
	entryTimePattern = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?(?:\s?[AP]M)?\b`)
	entryDatePattern = regexp.MustCompile(
		`\b\d{1,2} (?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\b`)
	entryActionPattern = regexp.MustCompile(`(?i)\bclock\s?(?:in|out)\b`)
)

// ExtractLogEntries parses the attendance log rows out of the live attendance
// page. Only structured entries carrying a time, a date label, and an action
// label are returned. Action buttons are rendered on the page regardless of
// attendance state and are never treated as entries.
func ExtractLogEntries(page io.Reader) ([]domain.LogEntry, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, ErrParseAmbiguity
	}

	var entries []domain.LogEntry
	doc.Find("li, tr").Each(func(_ int, row *goquery.Selection) {
		// Only leaf rows; a container wrapping other rows would double-count.
		if row.Find("li, tr").Length() > 0 {
			return
		}
		// Rows holding the action buttons are controls, not log entries.
		if row.Find("button").Length() > 0 {
			return
		}

		text := squashWhitespace(row.Text())
		entryTime := entryTimePattern.FindString(text)
		dateLabel := entryDatePattern.FindString(text)
		actionLabel := entryActionPattern.FindString(text)
		if entryTime == "" || dateLabel == "" || actionLabel == "" {
			return
		}

		entries = append(entries, domain.LogEntry{
			Time:        entryTime,
			DateLabel:   dateLabel,
			ActionLabel: canonicalActionLabel(actionLabel),
		})
	})

	if len(entries) == 0 {
		// A live page always lists recent days. Nothing recognized means the
		// markup changed underneath us, not that the log is empty.
		return nil, ErrParseAmbiguity
	}

	return entries, nil
}

// squashWhitespace collapses runs of whitespace so the row text can be
// matched regardless of the markup's formatting.
func squashWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// canonicalActionLabel normalizes the matched event text to the portal's
// display labels.
func canonicalActionLabel(matched string) string {
	if strings.Contains(strings.ToLower(matched), "out") {
		return domain.ActionClockOut.Label()
	}
	return domain.ActionClockIn.Label()
}
