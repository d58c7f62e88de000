// Package domain defines the core attendance types shared across the application.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Action identifies an attendance action.
type Action string

const (
	// ActionClockIn is the morning check-in action.
	ActionClockIn Action = "clockin"
	// ActionClockOut is the evening check-out action.
	ActionClockOut Action = "clockout"
)

// String returns the action tag as sent to the portal's posting endpoint.
func (a Action) String() string {
	return string(a)
}

// Status returns the encoded status value the portal expects in the form payload.
func (a Action) Status() string {
	if a == ActionClockOut {
		return "checkout"
	}
	return "checkin"
}

// Label returns the action label as rendered in the portal's attendance log.
func (a Action) Label() string {
	if a == ActionClockOut {
		return "Clock Out"
	}
	return "Clock In"
}

// ParseAction converts a user-supplied string into an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clockin", "clock-in", "in":
		return ActionClockIn, nil
	case "clockout", "clock-out", "out":
		return ActionClockOut, nil
	default:
		return "", fmt.Errorf("unknown attendance action: %q", s)
	}
}

// Location is a pair of decimal-string coordinates. Both fields are always
// populated; resolution falls back to configured values rather than returning
// a partial pair.
type Location struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// LogEntry is a single row scraped from the portal's attendance log listing.
type LogEntry struct {
	// Time is the entry's time of day as displayed, e.g. "08:49 AM".
	Time string `json:"time"`
	// DateLabel is the entry's calendar date as displayed, e.g. "24 Oct".
	DateLabel string `json:"date"`
	// ActionLabel is the entry's event label, e.g. "Clock In".
	ActionLabel string `json:"event"`
}

// dateLabelLayout matches the portal's day + abbreviated month display format.
const dateLabelLayout = "2 Jan"

// DateLabelFor formats a local timestamp the way the portal labels log entries.
func DateLabelFor(t time.Time) string {
	return t.Format(dateLabelLayout)
}

// IsOn reports whether the entry is dated on the given local calendar date.
// The portal zero-pads single-digit days in some renderings; the comparison
// ignores the padding.
func (e LogEntry) IsOn(t time.Time) bool {
	return strings.EqualFold(normalizeDateLabel(e.DateLabel), DateLabelFor(t))
}

// normalizeDateLabel strips surrounding whitespace and a leading zero from
// the day number, matching DateLabelFor's unpadded rendering.
func normalizeDateLabel(label string) string {
	label = strings.TrimSpace(label)
	if len(label) > 1 && label[0] == '0' {
		label = label[1:]
	}
	return label
}

// Matches reports whether the entry records the given action.
func (e LogEntry) Matches(a Action) bool {
	return strings.EqualFold(strings.TrimSpace(e.ActionLabel), a.Label())
}

// PostResult is the portal's application-level outcome of a posting attempt.
type PostResult struct {
	// StatusCode is the portal's reported status, e.g. 200.
	StatusCode int `json:"status"`
	// Message is the portal's human-readable outcome text.
	Message string `json:"message"`
	// RecordID is the identifier of the created attendance record, when returned.
	RecordID string `json:"record_id,omitempty"`
}

// Success reports whether the portal accepted the posting.
func (r PostResult) Success() bool {
	return r.StatusCode == 0 || r.StatusCode == 200
}

// Trigger identifies what initiated a posting attempt.
type Trigger string

const (
	// TriggerScheduled marks attempts initiated by the scheduler loop.
	TriggerScheduled Trigger = "scheduled"
	// TriggerManual marks attempts initiated through the control API.
	TriggerManual Trigger = "manual"
	// TriggerCLI marks attempts initiated by the one-shot CLI executor.
	TriggerCLI Trigger = "cli"
)

// Outcome classifies how a posting attempt ended.
type Outcome string

const (
	// OutcomePosted means the portal accepted the attendance posting.
	OutcomePosted Outcome = "posted"
	// OutcomeSkipped means the duplicate guard found the action already recorded today.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the attempt ended in an error.
	OutcomeFailed Outcome = "failed"
)

// Attempt is the record of one posting attempt, as kept in the local journal.
type Attempt struct {
	ID      string    `json:"id"`
	Action  Action    `json:"action"`
	Trigger Trigger   `json:"trigger"`
	Outcome Outcome   `json:"outcome"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}
