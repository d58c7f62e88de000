// Package config provides configuration management for the gopunch application.
// It handles loading, validation, and access to configuration values from an
// optional YAML file and environment variables via Viper.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/gopunch/internal/logger"
)

// Server defaults
const (
	defaultServerAddress      = ":5000"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 60 * time.Second
)

// Portal and job defaults, matching the portal's observed contract.
const (
	defaultPortalBaseURL    = "https://hr.talenta.co"
	defaultAccountBaseURL   = "https://account.mekari.com"
	defaultSSOClientID      = "TAL-73645"
	defaultPortalTimeout    = 15 * time.Second
	defaultLookupURL        = "https://ip-api.com/json/?fields=lat,lon,city,country,status,message"
	defaultLookupTimeout    = 10 * time.Second
	defaultTimezone         = "Asia/Jakarta"
	defaultClockInTime      = "09:00"
	defaultClockOutTime     = "17:00"
	defaultTickInterval     = time.Second
	defaultTelegramAPIURL   = "https://api.telegram.org"
	defaultNotifyTimeout    = 10 * time.Second
	defaultJournalPath      = "gopunch.db"
	defaultClockInMessage   = "Hello I am In"
	defaultClockOutMessage  = "Goodbye I am Out"
	defaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// jobTimeLayout is the HH:MM layout job times are configured in.
const jobTimeLayout = "15:04"

// ErrMissingCredentials is returned when neither login credentials nor a
// manual session cookie are configured.
var ErrMissingCredentials = errors.New(
	"authentication not configured: set EMAIL and PASSWORD, or COOKIES_TALENTA")

// Config represents the application configuration.
type Config struct {
	// Log holds logger configuration.
	Log logger.Config `yaml:"log" mapstructure:"log"`
	// Server holds control API server configuration.
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	// Portal holds HR portal endpoints and HTTP behaviour.
	Portal PortalConfig `yaml:"portal" mapstructure:"portal"`
	// Credentials holds portal authentication inputs.
	Credentials CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`
	// Location holds geolocation lookup settings and fallback coordinates.
	Location LocationConfig `yaml:"location" mapstructure:"location"`
	// Schedule holds the two daily job times and the timezone they apply in.
	Schedule ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
	// Telegram holds notification delivery settings.
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
	// Journal holds local attempt-history settings.
	Journal JournalConfig `yaml:"journal" mapstructure:"journal"`
}

// ServerConfig holds the control API server configuration.
type ServerConfig struct {
	Address      string        `yaml:"address" mapstructure:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// PortalConfig holds HR portal endpoints and HTTP behaviour.
type PortalConfig struct {
	// BaseURL is the portal origin, e.g. https://hr.talenta.co.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// AccountBaseURL is the SSO account origin, e.g. https://account.mekari.com.
	AccountBaseURL string `yaml:"account_base_url" mapstructure:"account_base_url"`
	// SSOClientID is the portal's OAuth client ID used in the authorization step.
	SSOClientID string `yaml:"sso_client_id" mapstructure:"sso_client_id"`
	// UserAgent is sent on every portal request so the flow matches a browser login.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	// Timeout bounds every portal HTTP call.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// ClockInMessage is the description text submitted on clock-in.
	ClockInMessage string `yaml:"clock_in_message" mapstructure:"clock_in_message"`
	// ClockOutMessage is the description text submitted on clock-out.
	ClockOutMessage string `yaml:"clock_out_message" mapstructure:"clock_out_message"`
}

// CredentialsConfig holds portal authentication inputs. Password mode is tried
// first when both modes are present; the raw cookie is the fallback.
type CredentialsConfig struct {
	Email    string `yaml:"email" mapstructure:"email"`
	Password string `yaml:"password" mapstructure:"password"`
	// Cookie is a manually captured session cookie string, e.g. "PHPSESSID=...".
	Cookie string `yaml:"cookie" mapstructure:"cookie"`
}

// HasLogin reports whether email/password login simulation is configured.
func (c CredentialsConfig) HasLogin() bool {
	return c.Email != "" && c.Password != ""
}

// HasCookie reports whether a manual session cookie is configured.
func (c CredentialsConfig) HasCookie() bool {
	return c.Cookie != ""
}

// LocationConfig holds geolocation lookup settings and fallback coordinates.
type LocationConfig struct {
	// Latitude and Longitude are the configured fallback coordinates.
	Latitude  string `yaml:"latitude" mapstructure:"latitude"`
	Longitude string `yaml:"longitude" mapstructure:"longitude"`
	// LookupURL is the IP geolocation endpoint.
	LookupURL string `yaml:"lookup_url" mapstructure:"lookup_url"`
	// Timeout bounds the lookup call before falling back.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ScheduleConfig holds the two daily job times and the timezone they apply in.
type ScheduleConfig struct {
	// Timezone is an IANA timezone identifier, e.g. Asia/Jakarta.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
	// ClockIn and ClockOut are local times of day in HH:MM.
	ClockIn  string `yaml:"clock_in" mapstructure:"clock_in"`
	ClockOut string `yaml:"clock_out" mapstructure:"clock_out"`
	// Tick is the scheduler's polling interval.
	Tick time.Duration `yaml:"tick" mapstructure:"tick"`
}

// TelegramConfig holds notification delivery settings.
type TelegramConfig struct {
	BotToken string        `yaml:"bot_token" mapstructure:"bot_token"`
	ChatID   string        `yaml:"chat_id" mapstructure:"chat_id"`
	APIURL   string        `yaml:"api_url" mapstructure:"api_url"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Configured reports whether notification delivery is set up.
func (c TelegramConfig) Configured() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// JournalConfig holds local attempt-history settings.
type JournalConfig struct {
	// Path is the bbolt database file. An empty path disables the journal.
	Path string `yaml:"path" mapstructure:"path"`
}

// Load builds the configuration from Viper's current state.
// InitializeViper must have been called first.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&cfg)

	return &cfg, nil
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	// A bare cookie value is assumed to be the PHP session ID.
	if cookie := cfg.Credentials.Cookie; cookie != "" &&
		!strings.HasPrefix(cookie, "PHPSESSID=") &&
		!strings.HasPrefix(cookie, "_identity=") {
		cfg.Credentials.Cookie = "PHPSESSID=" + cookie
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultServerIdleTimeout
	}

	if cfg.Portal.BaseURL == "" {
		cfg.Portal.BaseURL = defaultPortalBaseURL
	}
	if cfg.Portal.AccountBaseURL == "" {
		cfg.Portal.AccountBaseURL = defaultAccountBaseURL
	}
	if cfg.Portal.SSOClientID == "" {
		cfg.Portal.SSOClientID = defaultSSOClientID
	}
	if cfg.Portal.UserAgent == "" {
		cfg.Portal.UserAgent = defaultBrowserUserAgent
	}
	if cfg.Portal.Timeout == 0 {
		cfg.Portal.Timeout = defaultPortalTimeout
	}
	if cfg.Portal.ClockInMessage == "" {
		cfg.Portal.ClockInMessage = defaultClockInMessage
	}
	if cfg.Portal.ClockOutMessage == "" {
		cfg.Portal.ClockOutMessage = defaultClockOutMessage
	}

	if cfg.Location.LookupURL == "" {
		cfg.Location.LookupURL = defaultLookupURL
	}
	if cfg.Location.Timeout == 0 {
		cfg.Location.Timeout = defaultLookupTimeout
	}

	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = defaultTimezone
	}
	if cfg.Schedule.ClockIn == "" {
		cfg.Schedule.ClockIn = defaultClockInTime
	}
	if cfg.Schedule.ClockOut == "" {
		cfg.Schedule.ClockOut = defaultClockOutTime
	}
	if cfg.Schedule.Tick == 0 {
		cfg.Schedule.Tick = defaultTickInterval
	}

	if cfg.Telegram.APIURL == "" {
		cfg.Telegram.APIURL = defaultTelegramAPIURL
	}
	if cfg.Telegram.Timeout == 0 {
		cfg.Telegram.Timeout = defaultNotifyTimeout
	}

	if cfg.Journal.Path == "" {
		cfg.Journal.Path = defaultJournalPath
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Credentials.HasLogin() && !c.Credentials.HasCookie() {
		return ErrMissingCredentials
	}

	if err := validateCoordinate(c.Location.Latitude, "latitude"); err != nil {
		return err
	}
	if err := validateCoordinate(c.Location.Longitude, "longitude"); err != nil {
		return err
	}

	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Schedule.Timezone, err)
	}
	if _, err := time.Parse(jobTimeLayout, c.Schedule.ClockIn); err != nil {
		return fmt.Errorf("invalid clock-in time %q: %w", c.Schedule.ClockIn, err)
	}
	if _, err := time.Parse(jobTimeLayout, c.Schedule.ClockOut); err != nil {
		return fmt.Errorf("invalid clock-out time %q: %w", c.Schedule.ClockOut, err)
	}

	return nil
}

// validateCoordinate checks that a fallback coordinate is a decimal number.
func validateCoordinate(value, name string) error {
	if value == "" {
		return fmt.Errorf("missing fallback %s", name)
	}
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return fmt.Errorf("invalid fallback %s %q: %w", name, value, err)
	}
	return nil
}
