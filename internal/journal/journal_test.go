package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(filepath.Join(t.TempDir(), "test.db"), logger.NewNoOp())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	base := time.Date(2026, time.October, 24, 8, 49, 0, 0, time.UTC)

	j.Record(domain.Attempt{
		ID: "a1", Action: domain.ActionClockIn, Trigger: domain.TriggerScheduled,
		Outcome: domain.OutcomePosted, At: base,
	})
	j.Record(domain.Attempt{
		ID: "a2", Action: domain.ActionClockOut, Trigger: domain.TriggerManual,
		Outcome: domain.OutcomeSkipped, At: base.Add(8 * time.Hour),
	})
	j.Record(domain.Attempt{
		ID: "a3", Action: domain.ActionClockIn, Trigger: domain.TriggerCLI,
		Outcome: domain.OutcomeFailed, Message: "portal unreachable",
		At: base.Add(24 * time.Hour),
	})

	attempts, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, attempts, 3)

	// Newest first.
	assert.Equal(t, "a3", attempts[0].ID)
	assert.Equal(t, "a2", attempts[1].ID)
	assert.Equal(t, "a1", attempts[2].ID)
	assert.Equal(t, domain.OutcomeFailed, attempts[0].Outcome)
	assert.Equal(t, "portal unreachable", attempts[0].Message)
}

func TestJournalRecentLimit(t *testing.T) {
	j := openTestJournal(t)
	base := time.Date(2026, time.October, 24, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		j.Record(domain.Attempt{
			ID: string(rune('a' + i)), Action: domain.ActionClockIn,
			Outcome: domain.OutcomePosted, At: base.Add(time.Duration(i) * time.Minute),
		})
	}

	attempts, err := j.Recent(2)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
	assert.Equal(t, "e", attempts[0].ID)
}

func TestJournalRecentEmpty(t *testing.T) {
	j := openTestJournal(t)

	attempts, err := j.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}
