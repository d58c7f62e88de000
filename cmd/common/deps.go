// Package common provides shared utilities for command implementations.
package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/gopunch/internal/attendance"
	"github.com/jonesrussell/gopunch/internal/auth"
	"github.com/jonesrussell/gopunch/internal/config"
	"github.com/jonesrussell/gopunch/internal/journal"
	"github.com/jonesrussell/gopunch/internal/location"
	"github.com/jonesrussell/gopunch/internal/logger"
	"github.com/jonesrussell/gopunch/internal/notify"
	"github.com/jonesrussell/gopunch/internal/portal"
)

// CommandDeps holds common dependencies for all commands.
// Use this instead of context.Value for type-safe dependency injection.
type CommandDeps struct {
	Config *config.Config
	Logger logger.Interface
}

// NewCommandDeps loads the configuration and builds the logger.
// config.InitializeViper must have been called first.
func NewCommandDeps(debug bool) (*CommandDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if debug {
		cfg.Log.Level = logger.DebugLevel
		cfg.Log.Development = true
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := validateAtStartup(cfg, log); err != nil {
		return nil, err
	}

	return &CommandDeps{Config: cfg, Logger: log}, nil
}

// validateAtStartup runs config validation but keeps missing credentials a
// per-attempt failure: the daemon still starts, the API still binds, and each
// attempt reports the authentication error until credentials appear.
func validateAtStartup(cfg *config.Config, log logger.Interface) error {
	err := cfg.Validate()
	if err == nil {
		return nil
	}
	if errors.Is(err, config.ErrMissingCredentials) {
		log.Warn("authentication not configured, attempts will fail until credentials are set",
			"error", err)
		return nil
	}
	return err
}

// Validate ensures all required dependencies are present.
func (d *CommandDeps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	return nil
}

// Pipeline is the wired attendance stack shared by the daemon and the
// one-shot commands.
type Pipeline struct {
	Portal  *portal.Client
	State   *attendance.State
	Runner  *attendance.Runner
	Journal *journal.Journal
}

// BuildPipeline wires the attempt pipeline. When withJournal is false, or the
// journal file cannot be opened, attempts run without local history.
func (d *CommandDeps) BuildPipeline(withJournal bool) *Pipeline {
	client := portal.NewClient(d.Config.Portal, d.Logger)
	provider := auth.NewProvider(d.Config.Portal, d.Config.Credentials, d.Logger)
	resolver := location.NewResolver(d.Config.Location, d.Logger)
	guard := attendance.NewDuplicateGuard(client, d.Logger)
	notifier := notify.NewTelegram(d.Config.Telegram, d.Logger)

	scheduleLoc, err := time.LoadLocation(d.Config.Schedule.Timezone)
	if err != nil {
		d.Logger.Warn("invalid schedule timezone, using host local time",
			"timezone", d.Config.Schedule.Timezone, "error", err)
		scheduleLoc = time.Local
	}

	var (
		record  attendance.Recorder
		history *journal.Journal
	)
	if withJournal && d.Config.Journal.Path != "" {
		opened, err := journal.Open(d.Config.Journal.Path, d.Logger)
		if err != nil {
			d.Logger.Warn("journal unavailable, continuing without history",
				"path", d.Config.Journal.Path, "error", err)
		} else {
			history = opened
			record = opened
		}
	}

	runner := attendance.NewRunner(
		provider, resolver, client, guard, notifier, record,
		d.Config.Portal, scheduleLoc, d.Logger)

	return &Pipeline{
		Portal:  client,
		State:   attendance.NewState(),
		Runner:  runner,
		Journal: history,
	}
}

// Close releases pipeline resources.
func (p *Pipeline) Close() {
	if p.Journal != nil {
		_ = p.Journal.Close()
	}
}
