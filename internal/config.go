package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/novelcipher/internal/api"
	"github.com/starford/novelcipher/internal/cipher"
)

// Auth modes.
const (
	AuthModeDisabled = string(api.AuthDisabled)
	AuthModeToken    = string(api.AuthToken)
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Cipher    CipherConfig      `yaml:"cipher"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
	SSE       SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Cipher.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	return c.SSE.Validate()
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

// VaultConfig holds the path to the chapter vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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

// AuthConfig guards the authoring endpoints. Reading is always public.
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

// CipherConfig holds the pre-shared key material. Values are usually
// injected with ${ENCRYPTION_KEY} and ${ENCRYPTION_IV}.
type CipherConfig struct {
	Key string `yaml:"key"`
	IV  string `yaml:"iv"`
	// AllowInsecureDefault permits the built-in development key when Key or
	// IV is empty.
	AllowInsecureDefault bool `yaml:"allow_insecure_default"`
}

// Validate validates the cipher configuration.
func (c *CipherConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Key, validation.When(c.Key != "", validation.Length(32, 32))),
		validation.Field(&c.IV, validation.When(c.IV != "", validation.Length(16, 16))),
	); err != nil {
		return err
	}
	if _, err := c.KeyMaterial(); err != nil {
		return err
	}
	return nil
}

// KeyMaterial resolves the configured key and IV.
func (c *CipherConfig) KeyMaterial() (cipher.KeyMaterial, error) {
	return cipher.NewKeyMaterial(c.Key, c.IV, c.AllowInsecureDefault)
}

// RateLimitConfig limits public read requests per client IP.
type RateLimitConfig struct {
	// RequestsPerMinute of 0 disables the limit.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RequestsPerMinute, validation.Min(0)),
	)
}

// SSEConfig holds event stream settings.
type SSEConfig struct {
	// CatalogThrottle is the minimum gap between catalog.updated events.
	CatalogThrottle time.Duration `yaml:"catalog_throttle"`
	KeepAlive       time.Duration `yaml:"keep_alive"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CatalogThrottle, validation.Min(time.Duration(0))),
		validation.Field(&c.KeepAlive, validation.Min(time.Duration(0))),
	)
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
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./novelcipher.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
		},
		SSE: SSEConfig{
			CatalogThrottle: 2 * time.Second,
			KeepAlive:       30 * time.Second,
		},
	}
}
