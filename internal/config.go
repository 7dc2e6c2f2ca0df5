package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Auth        AuthConfig        `yaml:"auth"`
	LLM         LLMConfig         `yaml:"llm"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Vault       VaultConfig       `yaml:"vault"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Calendar    CalendarConfig    `yaml:"calendar"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.SQLite, &c.Auth, &c.LLM, &c.Scheduler, &c.Vault, &c.Attachments, &c.Calendar,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
//
// AdminToken guards the /api/admin routes independently of Mode.
type AuthConfig struct {
	Mode       string `yaml:"mode"`
	Token      string `yaml:"token"`
	AdminToken string `yaml:"admin_token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// LLMConfig configures the chat completions endpoint. An empty APIKey is
// allowed; model calls then fail with "API key not configured".
type LLMConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	MaxTokens    int           `yaml:"max_tokens"`
	AskMaxTokens int           `yaml:"ask_max_tokens"`
	ImageTimeout time.Duration `yaml:"image_timeout"`
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&c.AskMaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&c.ImageTimeout, validation.Min(time.Duration(0))),
	)
}

// SchedulerConfig holds the cron specs of the background jobs.
type SchedulerConfig struct {
	Enabled         bool   `yaml:"enabled"`
	ProcessCaptures string `yaml:"process_captures"`
	ExtractEvents   string `yaml:"extract_events"`
}

// Validate validates the scheduler configuration.
func (c *SchedulerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ProcessCaptures, validation.Required, validation.By(cronSpec)),
		validation.Field(&c.ExtractEvents, validation.Required, validation.By(cronSpec)),
	)
}

func cronSpec(v any) error {
	s, _ := v.(string)
	if _, err := cron.ParseStandard(s); err != nil {
		return errors.New("must be a valid cron spec")
	}
	return nil
}

// VaultConfig holds the Markdown mirror settings.
type VaultConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// Watch pushes edited files as they change.
	Watch bool `yaml:"watch"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// AttachmentsConfig holds the directory uploaded files are stored in.
type AttachmentsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the attachments configuration.
func (c *AttachmentsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CalendarConfig configures event times and the ICS feed.
type CalendarConfig struct {
	Timezone string `yaml:"timezone"`
	Name     string `yaml:"name"`
}

// Validate validates the calendar configuration.
func (c *CalendarConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.Required, validation.By(func(v any) error {
			s, _ := v.(string)
			if _, err := time.LoadLocation(s); err != nil {
				return errors.New("must be an IANA time zone")
			}
			return nil
		})),
	)
}

// Location returns the configured time zone, falling back to UTC.
func (c *CalendarConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./secondbrain.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		LLM: LLMConfig{
			BaseURL:      "https://api.openai.com/v1",
			Model:        "gpt-4o-mini",
			MaxTokens:    2048,
			AskMaxTokens: 1024,
			ImageTimeout: 30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			ProcessCaptures: "@every 5m",
			ExtractEvents:   "@every 1h",
		},
		Vault: VaultConfig{
			Path:  "./vault",
			Watch: true,
		},
		Attachments: AttachmentsConfig{
			Path: "./attachments",
		},
		Calendar: CalendarConfig{
			Timezone: "UTC",
			Name:     "Second Brain",
		},
	}
}
