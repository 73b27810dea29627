package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var mongoURIRe = regexp.MustCompile(`^mongodb(\+srv)?://`)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Schema   SchemaConfig      `yaml:"schema"`
	Mongo    MongoConfig       `yaml:"mongo"`
	Backfill BackfillConfig    `yaml:"backfill"`
	Journal  JournalConfig     `yaml:"journal"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Schema, &c.Mongo, &c.Backfill, &c.Auth} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}
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

// SchemaConfig locates schema sources and generated output.
type SchemaConfig struct {
	// Path is a schema file or a directory walked for .prisma files.
	Path string `yaml:"path"`
	// Output is the directory validation documents are written to.
	Output         string `yaml:"output"`
	StrictOptional bool   `yaml:"strict_optional"`
}

// Validate validates the schema configuration.
func (c *SchemaConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// MongoConfig holds the record store connection settings.
type MongoConfig struct {
	URI string `yaml:"uri"`
	// Database overrides the database named in URI.
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Validate validates the fields that are set. Use Require before opening a
// connection.
func (c *MongoConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.URI, validation.Match(mongoURIRe).Error("must be a mongodb:// or mongodb+srv:// connection string")),
		validation.Field(&c.ConnectTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	return nil
}

// Require reports an error when no connection string is configured.
func (c *MongoConfig) Require() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.URI, validation.Required),
	); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	return c.Validate()
}

// BackfillConfig tunes the backfill engine.
type BackfillConfig struct {
	BatchSize     int  `yaml:"batch_size"`
	DryRun        bool `yaml:"dry_run"`
	FillGenerated bool `yaml:"fill_generated"`
}

// Validate validates the backfill configuration.
func (c *BackfillConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BatchSize, validation.Min(0), validation.Max(100000)),
	); err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	return nil
}

// JournalConfig holds the run journal location. An empty path disables
// journaling.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether runs are journaled.
func (c *JournalConfig) Enabled() bool {
	return c.Path != ""
}

// AuthConfig holds authentication configuration for the serve command.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Schema: SchemaConfig{
			Path:   "./prisma",
			Output: "./schemas",
		},
		Mongo: MongoConfig{
			ConnectTimeout: 10 * time.Second,
		},
		Backfill: BackfillConfig{
			BatchSize: 1,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
