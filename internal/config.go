package internal

import (
	"fmt"
	"log/slog"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tutordocs/internal/render"
)

// Environment variables that override the config file.
const (
	EnvPort          = "PORT"
	EnvAdminUsername = "ADMIN_USERNAME"
	EnvAdminPassword = "ADMIN_PASSWORD"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Content  ContentConfig     `yaml:"content"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Admin    AdminConfig       `yaml:"admin"`
	Markdown render.Options    `yaml:"markdown"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Content.Validate(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Admin.Validate(); err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.App.HTTP.Port = port
	}
	if v, ok := lookup(EnvAdminUsername); ok && v != "" {
		c.Admin.Username = v
	}
	if v, ok := lookup(EnvAdminPassword); ok && v != "" {
		c.Admin.Password = v
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

// ContentConfig locates the page directory and the static site.
type ContentConfig struct {
	Path string `yaml:"path"`
	// StaticDir is served at "/" when set and present on disk.
	StaticDir string `yaml:"static_dir"`
	// Seed writes the default tutorial into an empty content directory.
	Seed bool `yaml:"seed"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
	// MCPPath is the index used by the mcp command. It must differ from Path:
	// each process detects the other's writes by comparing against its own
	// index checksums.
	MCPPath string `yaml:"mcp_path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MCPPath, validation.Required,
			validation.NotIn(c.Path).Error("must differ from path")),
	)
}

// AdminConfig is the single admin credential pair.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Validate validates the admin configuration.
func (c *AdminConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3000,
			},
		},
		Content: ContentConfig{
			Path:      "./content",
			StaticDir: "./public",
			Seed:      true,
		},
		SQLite: SQLiteConfig{
			Path:    "./tutordocs.db",
			MCPPath: "./tutordocs-mcp.db",
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "admin123",
		},
	}
}
