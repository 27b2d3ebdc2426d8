package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/jotter/internal/tld"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// TLD list stores.
const (
	TLDStoreFile   = "file"
	TLDStoreSQLite = "sqlite"
	TLDStoreMemory = "memory"
)

// Link validation modes.
const (
	LinkValidationLenient = "lenient"
	LinkValidationStrict  = "strict"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	TLD    TLDConfig         `yaml:"tld"`
	Render RenderConfig      `yaml:"render"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.TLD.Validate(); err != nil {
		return err
	}
	return c.Render.Validate()
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

// TLDConfig controls where the top-level domain list comes from and where
// the last good copy is kept.
//
// Store selects the shared copy:
//   - "file" (default): JSON file at CachePath, shared by every process on the host.
//   - "sqlite": tables in the note database.
//   - "memory": no shared copy; each process fetches its own list.
type TLDConfig struct {
	SourceURL    string        `yaml:"source_url"`
	TTL          time.Duration `yaml:"ttl"`
	Store        string        `yaml:"store"`
	CachePath    string        `yaml:"cache_path"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Watch        bool          `yaml:"watch"`
}

// Validate validates the TLD configuration.
func (c *TLDConfig) Validate() error {
	if c.Store == "" {
		c.Store = TLDStoreFile
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.SourceURL, validation.Required, is.RequestURL),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.Store, validation.In(TLDStoreFile, TLDStoreSQLite, TLDStoreMemory)),
		validation.Field(&c.CachePath, validation.When(c.Store == TLDStoreFile, validation.Required)),
		validation.Field(&c.FetchTimeout, validation.Required, validation.Min(time.Second)),
	)
}

// RenderConfig holds defaults for rendering stored notes.
type RenderConfig struct {
	LinkValidation string        `yaml:"link_validation"`
	ShowLinkHost   bool          `yaml:"show_link_host"`
	LinkTimeout    time.Duration `yaml:"link_timeout"`
}

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	if c.LinkValidation == "" {
		c.LinkValidation = LinkValidationLenient
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LinkValidation, validation.In(LinkValidationLenient, LinkValidationStrict)),
		validation.Field(&c.LinkTimeout, validation.Required, validation.Min(100*time.Millisecond)),
	)
}

// Strict reports whether links are confirmed over the network.
func (c *RenderConfig) Strict() bool {
	return c.LinkValidation == LinkValidationStrict
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
			Path: "./jotter.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		TLD: TLDConfig{
			SourceURL:    tld.DefaultSource,
			TTL:          tld.DefaultTTL,
			Store:        TLDStoreFile,
			CachePath:    "./data/tlds.json",
			FetchTimeout: 10 * time.Second,
		},
		Render: RenderConfig{
			LinkValidation: LinkValidationLenient,
			LinkTimeout:    10 * time.Second,
		},
	}
}
