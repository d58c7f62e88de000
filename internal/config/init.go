package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// InitializeViper initializes Viper configuration from environment variables
// and config files. This must be called before Load().
func InitializeViper() error {
	loadEnvFile()
	setupViper()
	readConfigFile()

	if err := bindEnvironmentVariables(); err != nil {
		return fmt.Errorf("failed to bind environment variables: %w", err)
	}
	return nil
}

// loadEnvFile loads .env file (ignores error if file doesn't exist).
func loadEnvFile() {
	_ = godotenv.Load()
}

// setupViper configures Viper for environment variable and config file reading.
func setupViper() {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
}

// readConfigFile reads config file (ignores error if file doesn't exist).
func readConfigFile() {
	_ = viper.ReadInConfig()
}

// bindEnvironmentVariables binds the legacy flat environment variable names
// the deployment has always used onto the nested config keys.
func bindEnvironmentVariables() error {
	bindings := map[string]string{
		"credentials.email":    "EMAIL",
		"credentials.password": "PASSWORD",
		"credentials.cookie":   "COOKIES_TALENTA",
		"location.latitude":    "LATITUDE",
		"location.longitude":   "LONGITUDE",
		"schedule.clock_in":    "TIME_CLOCK_IN",
		"schedule.clock_out":   "TIME_CLOCK_OUT",
		"schedule.timezone":    "TZ",
		"telegram.bot_token":   "TELEGRAM_BOT_TOKEN",
		"telegram.chat_id":     "TELEGRAM_CHAT_ID",
		"server.address":       "SERVER_ADDRESS",
		"journal.path":         "JOURNAL_PATH",
		"log.level":            "LOG_LEVEL",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}
