package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Dispatcher  DispatcherConfig  `mapstructure:"dispatcher"`
	Mail        MailConfig        `mapstructure:"mail"`
	DeliveryLog DeliveryLogConfig `mapstructure:"delivery_log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DispatcherConfig holds the scheduled dispatch configuration
type DispatcherConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Subject     string        `mapstructure:"subject"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	AutoStart   bool          `mapstructure:"auto_start"`
}

// MailConfig selects and configures the outgoing mail transport.
// It is only validated when the first message is actually sent.
type MailConfig struct {
	Transport string        `mapstructure:"transport"`
	From      string        `mapstructure:"from"`
	SMTP      SMTPConfig    `mapstructure:"smtp"`
	Gmail     GmailConfig   `mapstructure:"gmail"`
	Archive   ArchiveConfig `mapstructure:"archive"`
}

// SMTPConfig holds SMTP relay credentials
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// ImplicitTLS dials TLS directly (port 465) instead of upgrading with STARTTLS.
	ImplicitTLS bool `mapstructure:"implicit_tls"`
	// Plaintext skips STARTTLS for unauthenticated local relays.
	Plaintext bool `mapstructure:"plaintext"`
}

// GmailConfig holds Gmail API configuration
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
}

// ArchiveConfig controls copying sent SMTP mail into an IMAP folder
type ArchiveConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
	Folder       string `mapstructure:"folder"`
}

// DeliveryLogConfig holds the delivery attempt log database configuration
type DeliveryLogConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// Mail transports
const (
	TransportSMTP  = "smtp"
	TransportGmail = "gmail"
	TransportLog   = "log"
)

// Delivery log drivers
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// LoadConfig loads configuration from the config file, defaults and
// environment variables. An empty path searches ./config.yaml and
// ./config/config.yaml; a missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("dispatcher.interval", "10s")
	v.SetDefault("dispatcher.subject", "Scheduled message")
	v.SetDefault("dispatcher.send_timeout", "30s")
	v.SetDefault("dispatcher.auto_start", true)

	v.SetDefault("mail.transport", TransportSMTP)
	v.SetDefault("mail.smtp.port", 587)
	v.SetDefault("mail.archive.enabled", false)
	v.SetDefault("mail.archive.imap_port", 993)
	v.SetDefault("mail.archive.folder", "Sent")

	v.SetDefault("delivery_log.enabled", true)
	v.SetDefault("delivery_log.driver", DriverSQLite)
	v.SetDefault("delivery_log.dsn", "file:delivery_log?mode=memory&cache=shared")
	v.SetDefault("delivery_log.port", 3306)
}

var envBindings = map[string]string{
	"server.host":          "SERVER_HOST",
	"server.port":          "SERVER_PORT",
	"server.read_timeout":  "SERVER_READ_TIMEOUT",
	"server.write_timeout": "SERVER_WRITE_TIMEOUT",
	"server.mode":          "GIN_MODE",

	"log.level":  "LOG_LEVEL",
	"log.format": "LOG_FORMAT",

	"dispatcher.interval":     "DISPATCHER_INTERVAL",
	"dispatcher.subject":      "DISPATCHER_SUBJECT",
	"dispatcher.send_timeout": "DISPATCHER_SEND_TIMEOUT",
	"dispatcher.auto_start":   "DISPATCHER_AUTO_START",

	"mail.transport":             "MAIL_TRANSPORT",
	"mail.from":                  "MAIL_FROM",
	"mail.smtp.host":             "SMTP_HOST",
	"mail.smtp.port":             "SMTP_PORT",
	"mail.smtp.username":         "SMTP_USERNAME",
	"mail.smtp.password":         "SMTP_PASSWORD",
	"mail.smtp.implicit_tls":     "SMTP_IMPLICIT_TLS",
	"mail.smtp.plaintext":        "SMTP_PLAINTEXT",
	"mail.gmail.client_id":       "GMAIL_CLIENT_ID",
	"mail.gmail.client_secret":   "GMAIL_CLIENT_SECRET",
	"mail.gmail.refresh_token":   "GMAIL_REFRESH_TOKEN",
	"mail.gmail.user_email":      "GMAIL_USER_EMAIL",
	"mail.archive.enabled":       "ARCHIVE_ENABLED",
	"mail.archive.imap_host":     "ARCHIVE_IMAP_HOST",
	"mail.archive.imap_port":     "ARCHIVE_IMAP_PORT",
	"mail.archive.imap_user":     "ARCHIVE_IMAP_USER",
	"mail.archive.imap_password": "ARCHIVE_IMAP_PASSWORD",
	"mail.archive.folder":        "ARCHIVE_FOLDER",

	"delivery_log.enabled":  "DELIVERY_LOG_ENABLED",
	"delivery_log.driver":   "DELIVERY_LOG_DRIVER",
	"delivery_log.dsn":      "DELIVERY_LOG_DSN",
	"delivery_log.host":     "DB_HOST",
	"delivery_log.port":     "DB_PORT",
	"delivery_log.user":     "DB_USER",
	"delivery_log.password": "DB_PASSWORD",
	"delivery_log.dbname":   "DB_NAME",
}

func bindEnvVars(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Addr returns the listen address of the HTTP server
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// GetDSN returns the delivery log connection string for the configured driver
func (c *DeliveryLogConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration needed at startup. Mail settings are
// checked lazily by the mailer on first use.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported server mode %q", c.Server.Mode)
	}

	if c.Dispatcher.Interval <= 0 {
		return fmt.Errorf("dispatcher interval must be greater than 0")
	}

	if c.Dispatcher.SendTimeout < 0 {
		return fmt.Errorf("dispatcher send timeout must not be negative")
	}

	if c.DeliveryLog.Enabled {
		switch strings.ToLower(c.DeliveryLog.Driver) {
		case DriverSQLite:
			if c.DeliveryLog.DSN == "" {
				return fmt.Errorf("delivery log dsn is required for sqlite")
			}
		case DriverMySQL:
			if c.DeliveryLog.DSN == "" && (c.DeliveryLog.Host == "" || c.DeliveryLog.User == "" || c.DeliveryLog.DBName == "") {
				return fmt.Errorf("delivery log host, user, and dbname are required for mysql")
			}
		default:
			return fmt.Errorf("unsupported delivery log driver %q", c.DeliveryLog.Driver)
		}
	}

	return nil
}

// Validate checks that the selected transport has what it needs
func (c *MailConfig) Validate() error {
	switch c.Transport {
	case TransportSMTP:
		if c.SMTP.Host == "" || c.SMTP.Port <= 0 {
			return fmt.Errorf("smtp host and port are required")
		}
		if c.From == "" && c.SMTP.Username == "" {
			return fmt.Errorf("mail from address or smtp username is required")
		}
		if c.SMTP.Plaintext && (c.SMTP.ImplicitTLS || c.SMTP.Username != "") {
			return fmt.Errorf("smtp plaintext cannot be combined with TLS or credentials")
		}
	case TransportGmail:
		if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" || c.Gmail.RefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required")
		}
		if c.Gmail.UserEmail == "" {
			return fmt.Errorf("Gmail user email is required")
		}
	case TransportLog:
	default:
		return fmt.Errorf("unknown mail transport %q", c.Transport)
	}

	if c.Archive.Enabled && (c.Archive.IMAPHost == "" || c.Archive.IMAPUser == "" || c.Archive.IMAPPassword == "") {
		return fmt.Errorf("IMAP credentials are required when archiving is enabled")
	}

	return nil
}

// Sender returns the envelope sender address
func (c *MailConfig) Sender() string {
	if c.From != "" {
		return c.From
	}
	if c.Transport == TransportGmail {
		return c.Gmail.UserEmail
	}
	return c.SMTP.Username
}
