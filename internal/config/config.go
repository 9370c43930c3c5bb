// Package config handles SmartScheduler configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Backend names
const (
	BackendGoogle = "google"
	BackendLocal  = "local"
)

// LLM provider names
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// Config holds all configuration
type Config struct {
	// Paths
	DataDir string `json:"data_dir"`

	// Scheduling
	TimeZone        string `json:"timezone"`
	DefaultAttendee string `json:"default_attendee"`
	Conferencing    bool   `json:"conferencing"`

	// Services
	Backend string       `json:"backend"`
	Google  GoogleConfig `json:"google"`
	LLM     LLMConfig    `json:"llm"`
	Email   EmailConfig  `json:"email"`

	LogLevel string `json:"log_level"`
}

// GoogleConfig for Calendar and Tasks access
type GoogleConfig struct {
	CredentialsFile string `json:"credentials_file"` // OAuth client secrets JSON
	ClientID        string `json:"client_id"`
	ClientSecret    string `json:"client_secret"`
	CallbackPort    int    `json:"callback_port"`
	CalendarID      string `json:"calendar_id"`
	TaskListID      string `json:"task_list_id"`
	// TokenPassphrase encrypts the cached OAuth token when set. Never saved.
	TokenPassphrase string `json:"-"`
}

// LLMConfig for the extraction model
type LLMConfig struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	BaseURL  string        `json:"base_url"`
	Timeout  time.Duration `json:"timeout"`
	APIKey   string        `json:"-"`
}

// EmailConfig for confirmation emails
type EmailConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
}

// env lists the environment variables that override file settings. The
// unprefixed names are the ones the assistant has always read.
type env struct {
	DataDir         string `envconfig:"SMARTSCHEDULER_DATA_DIR"`
	TimeZone        string `envconfig:"SMARTSCHEDULER_TIMEZONE"`
	Backend         string `envconfig:"SMARTSCHEDULER_BACKEND"`
	LogLevel        string `envconfig:"SMARTSCHEDULER_LOG_LEVEL"`
	Conferencing    string `envconfig:"SMARTSCHEDULER_CONFERENCING"`
	DefaultAttendee string `envconfig:"SMARTSCHEDULER_DEFAULT_ATTENDEE"`

	LLMProvider     string `envconfig:"SMARTSCHEDULER_LLM_PROVIDER"`
	LLMModel        string `envconfig:"SMARTSCHEDULER_LLM_MODEL"`
	LLMBaseURL      string `envconfig:"SMARTSCHEDULER_LLM_BASE_URL"`
	GoogleAPIKey    string `envconfig:"GOOGLE_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`

	GoogleCredentials  string `envconfig:"GOOGLE_OAUTH_CREDENTIALS"`
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	TokenPassphrase    string `envconfig:"SMARTSCHEDULER_TOKEN_PASSPHRASE"`

	EmailAddress  string `envconfig:"EMAIL_ADDRESS"`
	EmailPassword string `envconfig:"EMAIL_PASSWORD"`
	EmailHost     string `envconfig:"EMAIL_HOST"`
	EmailPort     int    `envconfig:"EMAIL_PORT"`
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		DataDir:      filepath.Join(home, ".smartscheduler"),
		TimeZone:     "Asia/Kolkata",
		Conferencing: true,
		Backend:      BackendGoogle,
		Google: GoogleConfig{
			CredentialsFile: "oauth_credentials.json",
			CallbackPort:    8765,
			CalendarID:      "primary",
			TaskListID:      "@default",
		},
		LLM: LLMConfig{
			Provider: ProviderGemini,
			Model:    "gemini-2.0-flash",
			Timeout:  60 * time.Second,
		},
		Email: EmailConfig{
			Port:     587,
			FromName: "SmartScheduler",
		},
		LogLevel: "warn",
	}
}

// LoadEnvFile loads a .env file into the process environment if one exists.
// Variables already set win.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Load loads config from file, falling back to defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if e.DataDir != "" {
		cfg.DataDir = e.DataDir
	}

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.json")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	cfg.applyEnv(e)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(e env) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&c.DataDir, e.DataDir)
	set(&c.TimeZone, e.TimeZone)
	set(&c.Backend, e.Backend)
	set(&c.LogLevel, e.LogLevel)
	set(&c.DefaultAttendee, e.DefaultAttendee)
	switch e.Conferencing {
	case "true", "1", "yes":
		c.Conferencing = true
	case "false", "0", "no":
		c.Conferencing = false
	}

	set(&c.LLM.Provider, e.LLMProvider)
	set(&c.LLM.Model, e.LLMModel)
	set(&c.LLM.BaseURL, e.LLMBaseURL)
	switch c.LLM.Provider {
	case ProviderClaude:
		set(&c.LLM.APIKey, e.AnthropicAPIKey)
	default:
		set(&c.LLM.APIKey, e.GoogleAPIKey)
	}

	set(&c.Google.CredentialsFile, e.GoogleCredentials)
	set(&c.Google.ClientID, e.GoogleClientID)
	set(&c.Google.ClientSecret, e.GoogleClientSecret)
	set(&c.Google.TokenPassphrase, e.TokenPassphrase)

	set(&c.Email.Host, e.EmailHost)
	set(&c.Email.Password, e.EmailPassword)
	if e.EmailAddress != "" {
		c.Email.From = e.EmailAddress
		if c.Email.Username == "" {
			c.Email.Username = e.EmailAddress
		}
		if c.DefaultAttendee == "" {
			c.DefaultAttendee = e.EmailAddress
		}
	}
	if e.EmailPort != 0 {
		c.Email.Port = e.EmailPort
	}
	if c.Email.Host != "" && c.Email.From != "" {
		c.Email.Enabled = true
	}
}

// Validate checks that enumerated settings hold known values.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGoogle, BackendLocal:
	default:
		return fmt.Errorf("unsupported backend: %q", c.Backend)
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderClaude:
	default:
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the fixed time zone all timestamps are resolved in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "smartscheduler.db")
}

// Save saves config to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.DataDir, "config.json")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	// Secrets carry json:"-" and never reach disk
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
