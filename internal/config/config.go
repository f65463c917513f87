package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported database drivers
const (
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
)

// Supported email providers
const (
	ProviderSMTP  = "smtp"
	ProviderGmail = "gmail"
)

// DefaultQuery is the read query issued against the contact store
const DefaultQuery = "SELECT * FROM Employees"

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Email    EmailConfig    `mapstructure:"email"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds the contact store configuration
type DatabaseConfig struct {
	Driver         string        `mapstructure:"driver"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Instance       string        `mapstructure:"instance"`
	Name           string        `mapstructure:"name"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	Query          string        `mapstructure:"query"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// DSN returns the driver specific connection string
func (c DatabaseConfig) DSN() string {
	switch c.Driver {
	case DriverSQLServer:
		u := &url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(c.User, c.Password),
			Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		}
		if c.Instance != "" {
			u.Path = c.Instance
		}
		q := url.Values{}
		q.Set("database", c.Name)
		u.RawQuery = q.Encode()
		return u.String()
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
		)
	}
}

// SMTPConfig holds the mail session configuration
type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// RequireAuth enables SMTP AUTH with Credentials
	RequireAuth bool `mapstructure:"require_auth"`
	// StartTLS upgrades the connection when the server offers STARTTLS
	StartTLS bool `mapstructure:"starttls"`
	// SSL uses implicit TLS (usually port 465)
	SSL                bool          `mapstructure:"ssl"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	SenderAddress      string        `mapstructure:"sender_address"`
	SenderName         string        `mapstructure:"sender_name"`
	Credentials        Credentials   `mapstructure:"credentials"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// Credentials is a fixed username/password pair for SMTP AUTH
type Credentials struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// EmailConfig selects the delivery provider
type EmailConfig struct {
	// Provider is "smtp" or "gmail"
	Provider string           `mapstructure:"provider"`
	Gmail    GmailEmailConfig `mapstructure:"gmail"`
}

// GmailEmailConfig holds Gmail API configuration
type GmailEmailConfig struct {
	// CredentialsJSON is the service account credentials JSON content
	CredentialsJSON string `mapstructure:"credentials_json"`
	// ClientID for OAuth2 token-based auth (alternative to service account)
	ClientID string `mapstructure:"client_id"`
	// ClientSecret for OAuth2 token-based auth
	ClientSecret string `mapstructure:"client_secret"`
	// RefreshToken for OAuth2 token-based auth
	RefreshToken string `mapstructure:"refresh_token"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path searches the default locations for config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/staffmail")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STAFFMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports every missing or inconsistent setting at once
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLServer:
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if strings.TrimSpace(c.Database.Query) == "" {
		errs = append(errs, errors.New("database.query is required"))
	}
	if c.SMTP.SenderAddress == "" {
		errs = append(errs, errors.New("smtp.sender_address is required"))
	}

	switch c.Email.Provider {
	case ProviderSMTP:
		if c.SMTP.Host == "" {
			errs = append(errs, errors.New("smtp.host is required"))
		}
		if c.SMTP.Port <= 0 {
			errs = append(errs, fmt.Errorf("smtp.port must be positive, got %d", c.SMTP.Port))
		}
		if c.SMTP.RequireAuth && c.SMTP.Credentials.Username == "" {
			errs = append(errs, errors.New("smtp.credentials.username is required when smtp.require_auth is set"))
		}
	case ProviderGmail:
		g := c.Email.Gmail
		if g.CredentialsJSON == "" && (g.ClientID == "" || g.ClientSecret == "" || g.RefreshToken == "") {
			errs = append(errs, errors.New("email.gmail needs credentials_json or client_id, client_secret and refresh_token"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported email provider %q", c.Email.Provider))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.instance", "")
	v.SetDefault("database.name", "employee")
	v.SetDefault("database.user", "staffmail")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.query", DefaultQuery)
	v.SetDefault("database.connect_timeout", "10s")

	// SMTP defaults
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.require_auth", true)
	v.SetDefault("smtp.starttls", true)
	v.SetDefault("smtp.ssl", false)
	v.SetDefault("smtp.insecure_skip_verify", false)
	v.SetDefault("smtp.sender_address", "")
	v.SetDefault("smtp.sender_name", "")
	v.SetDefault("smtp.credentials.username", "")
	v.SetDefault("smtp.credentials.password", "")
	v.SetDefault("smtp.timeout", "30s")

	// Email defaults
	v.SetDefault("email.provider", ProviderSMTP)
	v.SetDefault("email.gmail.credentials_json", "")
	v.SetDefault("email.gmail.client_id", "")
	v.SetDefault("email.gmail.client_secret", "")
	v.SetDefault("email.gmail.refresh_token", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
