package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"calexport/internal/validator"
)

var (
	ErrMissingConfig    = errors.New("missing required configuration")
	ErrInvalidConfig    = errors.New("invalid configuration value")
	ErrValidationFailed = errors.New("configuration validation failed")
)

// Config holds all application configuration.
type Config struct {
	Calendar CalendarConfig `json:"calendar"`
	SFTP     SFTPConfig     `json:"sftp"`
	Target   TargetConfig   `json:"target"`
	History  HistoryConfig  `json:"history"`
	Logging  LoggingConfig  `json:"logging"`
}

// CalendarConfig holds the read and normalization settings.
type CalendarConfig struct {
	Names            []string `json:"names"`
	DaysAhead        int      `json:"days_ahead"`
	DaysBehind       int      `json:"days_behind"`
	OutputFile       string   `json:"output_file"`
	OutputName       string   `json:"output_name"`
	IncludeDetails   bool     `json:"include_details"`
	TitleLengthLimit int      `json:"title_length_limit"`
	TimezoneID       string   `json:"timezone_id"`
	MockFallback     bool     `json:"mock_fallback"`
	BridgePath       string   `json:"bridge_path,omitempty"`
	AuthTimeoutSecs  int      `json:"auth_timeout_secs"`
}

// SFTPConfig holds the transport settings.
type SFTPConfig struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"-"` // Never include in JSON
	KeyFile     string `json:"key_file,omitempty"`
	RemotePath  string `json:"remote_path"`
	CreateDirs  bool   `json:"create_dirs"`
	TimeoutSecs int    `json:"timeout_secs"`
}

// TargetConfig holds the local reconciliation target.
type TargetConfig struct {
	CalendarName string `json:"calendar_name,omitempty"`
}

// HistoryConfig holds the run-history store settings. An empty path
// disables history.
type HistoryConfig struct {
	Path string `json:"path,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Verbose bool `json:"verbose"`
}

// Load loads configuration from environment variables.
// It attempts to load from .env file first, but continues if not found.
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load() //nolint:errcheck // Intentionally ignore - .env file is optional

	cfg := &Config{}

	// Calendar configuration
	cfg.Calendar.Names = splitList(os.Getenv("CALENDAR_NAMES"))

	daysAhead, err := getEnvInt("DAYS_AHEAD", 30)
	if err != nil {
		return nil, fmt.Errorf("%w: DAYS_AHEAD: %w", ErrInvalidConfig, err)
	}
	cfg.Calendar.DaysAhead = daysAhead

	daysBehind, err := getEnvInt("DAYS_BEHIND", 30)
	if err != nil {
		return nil, fmt.Errorf("%w: DAYS_BEHIND: %w", ErrInvalidConfig, err)
	}
	cfg.Calendar.DaysBehind = daysBehind

	cfg.Calendar.OutputFile = getEnv("ICS_FILE", "./calendar_export.ics")
	cfg.Calendar.OutputName = getEnv("ICS_CALENDAR_NAME", "Exported Calendar")

	includeDetails, err := getEnvBool("INCLUDE_DETAILS", false)
	if err != nil {
		return nil, fmt.Errorf("%w: INCLUDE_DETAILS: %w", ErrInvalidConfig, err)
	}
	cfg.Calendar.IncludeDetails = includeDetails

	titleLimit, err := getEnvInt("TITLE_LENGTH_LIMIT", 36)
	if err != nil {
		return nil, fmt.Errorf("%w: TITLE_LENGTH_LIMIT: %w", ErrInvalidConfig, err)
	}
	cfg.Calendar.TitleLengthLimit = titleLimit

	cfg.Calendar.TimezoneID = getEnv("TIMEZONE_ID", "Europe/Berlin")

	mockFallback, err := getEnvBool("USE_MOCK_ON_FAILURE", false)
	if err != nil {
		return nil, fmt.Errorf("%w: USE_MOCK_ON_FAILURE: %w", ErrInvalidConfig, err)
	}
	cfg.Calendar.MockFallback = mockFallback

	cfg.Calendar.BridgePath = os.Getenv("BRIDGE_PATH")

	authTimeout, err := getEnvInt("AUTH_TIMEOUT_SECS", 60)
	if err != nil {
		return nil, fmt.Errorf("%w: AUTH_TIMEOUT_SECS: %w", ErrInvalidConfig, err)
	}
	cfg.Calendar.AuthTimeoutSecs = authTimeout

	// SFTP configuration
	sftpEnabled, err := getEnvBool("ENABLE_SFTP", false)
	if err != nil {
		return nil, fmt.Errorf("%w: ENABLE_SFTP: %w", ErrInvalidConfig, err)
	}
	cfg.SFTP.Enabled = sftpEnabled
	cfg.SFTP.Host = os.Getenv("SFTP_HOST")

	sftpPort, err := getEnvInt("SFTP_PORT", 22)
	if err != nil {
		return nil, fmt.Errorf("%w: SFTP_PORT: %w", ErrInvalidConfig, err)
	}
	cfg.SFTP.Port = sftpPort
	cfg.SFTP.Username = os.Getenv("SFTP_USERNAME")
	cfg.SFTP.Password = os.Getenv("SFTP_PASSWORD")
	cfg.SFTP.KeyFile = os.Getenv("SFTP_KEY_FILE")
	cfg.SFTP.RemotePath = getEnv("SFTP_REMOTE_PATH", "/calendar/calendar.ics")

	createDirs, err := getEnvBool("SFTP_CREATE_DIRS", true)
	if err != nil {
		return nil, fmt.Errorf("%w: SFTP_CREATE_DIRS: %w", ErrInvalidConfig, err)
	}
	cfg.SFTP.CreateDirs = createDirs

	sftpTimeout, err := getEnvInt("SFTP_TIMEOUT_SECS", 30)
	if err != nil {
		return nil, fmt.Errorf("%w: SFTP_TIMEOUT_SECS: %w", ErrInvalidConfig, err)
	}
	cfg.SFTP.TimeoutSecs = sftpTimeout

	// Target and history configuration
	cfg.Target.CalendarName = os.Getenv("TARGET_CALENDAR")
	cfg.History.Path = getEnv("HISTORY_DB_PATH", "./data/calexport.db")

	verbose, err := getEnvBool("LOG_VERBOSE", false)
	if err != nil {
		return nil, fmt.Errorf("%w: LOG_VERBOSE: %w", ErrInvalidConfig, err)
	}
	cfg.Logging.Verbose = verbose

	// Check for missing required configuration
	missing := cfg.getMissingRequired()
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getMissingRequired returns a list of missing required configuration values.
func (c *Config) getMissingRequired() []string {
	var missing []string

	if c.SFTP.Enabled {
		if c.SFTP.Host == "" {
			missing = append(missing, "SFTP_HOST")
		}
		if c.SFTP.Username == "" {
			missing = append(missing, "SFTP_USERNAME")
		}
	}

	return missing
}

// Validate checks value ranges and cross-field constraints. It runs
// before any calendar store access. Calendar names are checked here
// rather than in Load because command-line flags may supply them.
func (c *Config) Validate() error {
	if len(c.Calendar.Names) == 0 {
		return fmt.Errorf("%w: no calendars configured (set CALENDAR_NAMES)", ErrValidationFailed)
	}
	if err := validator.ValidateWindow(c.Calendar.DaysBehind, c.Calendar.DaysAhead); err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if err := validator.ValidateTitleLimit(c.Calendar.TitleLengthLimit); err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if err := validator.ValidateTimezone(c.Calendar.TimezoneID); err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if c.Calendar.AuthTimeoutSecs <= 0 {
		return fmt.Errorf("%w: AUTH_TIMEOUT_SECS must be positive", ErrValidationFailed)
	}

	if c.SFTP.Enabled {
		if err := validator.ValidateHost(c.SFTP.Host); err != nil {
			return fmt.Errorf("%w: SFTP_HOST: %w", ErrValidationFailed, err)
		}
		if err := validator.ValidatePort(c.SFTP.Port); err != nil {
			return fmt.Errorf("%w: SFTP_PORT: %w", ErrValidationFailed, err)
		}
		if c.SFTP.Password == "" && c.SFTP.KeyFile == "" {
			return fmt.Errorf("%w: SFTP needs SFTP_PASSWORD or SFTP_KEY_FILE", ErrValidationFailed)
		}
	}

	return nil
}

// AuthTimeout returns the authorization handshake timeout.
func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.Calendar.AuthTimeoutSecs) * time.Second
}

// SFTPTimeout returns the transport timeout.
func (c *Config) SFTPTimeout() time.Duration {
	return time.Duration(c.SFTP.TimeoutSecs) * time.Second
}

// splitList splits a comma-separated value, trimming whitespace and
// dropping empty entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	return parsed, nil
}

// getEnvBool returns the boolean value of an environment variable or a default.
func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean: %w", err)
	}
	return parsed, nil
}
