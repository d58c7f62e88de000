// Package status implements the attendance log inspection command.
package status

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gopunch/cmd/common"
	"github.com/jonesrussell/gopunch/internal/attendance"
	"github.com/jonesrussell/gopunch/internal/auth"
	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/portal"
)

const fetchTimeout = time.Minute

// Command returns the status command, which prints the portal's recent
// attendance log entries.
func Command(debug *bool) *cobra.Command {
	var todayOnly bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent attendance log entries from the portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), *debug, todayOnly)
		},
	}
	cmd.Flags().BoolVar(&todayOnly, "today", false, "only show today's entries")

	return cmd
}

func run(ctx context.Context, debug, todayOnly bool) error {
	deps, err := common.NewCommandDeps(debug)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	provider := auth.NewProvider(deps.Config.Portal, deps.Config.Credentials, deps.Logger)
	cookie, err := provider.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	client := portal.NewClient(deps.Config.Portal, deps.Logger)
	page, err := client.FetchAttendanceLog(ctx, cookie)
	if err != nil {
		return fmt.Errorf("failed to fetch attendance log: %w", err)
	}

	entries, err := attendance.ExtractLogEntries(strings.NewReader(page))
	if err != nil {
		return fmt.Errorf("failed to read attendance log: %w", err)
	}

	location, err := time.LoadLocation(deps.Config.Schedule.Timezone)
	if err != nil {
		return err
	}
	today := time.Now().In(location)

	renderEntries(entries, today, todayOnly)
	return nil
}

// renderEntries prints the log entries as a table, newest rows as the portal
// lists them.
func renderEntries(entries []domain.LogEntry, today time.Time, todayOnly bool) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Date", "Time", "Event"})

	shown := 0
	for _, entry := range entries {
		if todayOnly && !entry.IsOn(today) {
			continue
		}
		t.AppendRow(table.Row{entry.DateLabel, entry.Time, entry.ActionLabel})
		shown++
	}

	if shown == 0 {
		fmt.Println("No attendance entries to show.")
		return
	}

	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d entries", shown)})
	t.Render()
}
